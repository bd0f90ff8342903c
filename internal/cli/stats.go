package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics",
		Long:  "Show save, turn and passage counts for the library, with per-player totals.",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	st, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	if textFormat() {
		fmt.Printf("library   %s (%d KiB)\n", st.DBPath, st.DBSizeBytes/1024)
		fmt.Printf("saves     %d active, %d removed\n", st.ActiveSaves, st.TotalSaves-st.ActiveSaves)
		fmt.Printf("turns     %d (%d indexed passages)\n", st.TotalTurns, st.Passages)
		for _, p := range st.Players {
			fmt.Printf("  %-20s %3d saves %5d turns\n", p.Player, p.Saves, p.Turns)
		}
		return
	}
	printJSON(st)
}
