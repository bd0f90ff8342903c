package cli

import (
	"fmt"

	"github.com/rcliao/world-weaver/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saves",
		Run:   runList,
	}

	cmd.Flags().StringP("player", "p", "", "Filter by player character")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("deleted", false, "Include removed saves")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	player, _ := cmd.Flags().GetString("player")
	limit, _ := cmd.Flags().GetInt("limit")
	deleted, _ := cmd.Flags().GetBool("deleted")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	saves, err := s.List(cmd.Context(), store.ListParams{
		Player:  player,
		Limit:   limit,
		Deleted: deleted,
	})
	if err != nil {
		exitErr("list", err)
	}

	if textFormat() {
		for _, sv := range saves {
			fmt.Printf("%s  %-24s %-12s %4d turns  %s\n", sv.ID, sv.Title, sv.PlayerCharacter, sv.Turns, sv.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return
	}
	printJSON(saves)
}
