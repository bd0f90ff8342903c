package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "List player characters across saves",
		Run:   runPlayers,
	}

	RootCmd.AddCommand(cmd)
}

func runPlayers(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	players, err := s.Players(cmd.Context())
	if err != nil {
		exitErr("players", err)
	}
	printJSON(players)
}
