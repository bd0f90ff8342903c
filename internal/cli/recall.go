package cli

import (
	"strings"

	"github.com/rcliao/world-weaver/internal/game"
	"github.com/rcliao/world-weaver/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall <save> <query>",
		Short: "Show the earlier passages a turn would be reminded of",
		Args:  cobra.MinimumNArgs(2),
		Run:   runRecall,
	}

	cmd.Flags().Int("before", -1, "Only turns before this one (default: all but the recent history)")
	cmd.Flags().IntP("budget", "b", store.DefaultRecallBudget, "Character budget")

	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	before, _ := cmd.Flags().GetInt("before")
	budget, _ := cmd.Flags().GetInt("budget")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sv, err := s.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("recall", err)
	}
	if before < 0 {
		before = sv.Turns - game.HistorySize
	}

	result, err := s.Recall(cmd.Context(), store.RecallParams{
		SaveID:     sv.ID,
		Query:      strings.Join(args[1:], " "),
		BeforeTurn: before,
		Budget:     budget,
	})
	if err != nil {
		exitErr("recall", err)
	}
	printJSON(result)
}
