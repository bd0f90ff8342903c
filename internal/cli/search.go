package cli

import (
	"fmt"
	"strings"

	"github.com/rcliao/world-weaver/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the text of every game",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("save", "s", "", "Only search this save (ID or title)")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	ref, _ := cmd.Flags().GetString("save")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var saveID string
	if ref != "" {
		sv, err := s.Get(cmd.Context(), ref)
		if err != nil {
			exitErr("search", err)
		}
		saveID = sv.ID
	}

	results, err := s.Search(cmd.Context(), store.SearchParams{
		SaveID: saveID,
		Query:  strings.Join(args, " "),
		Limit:  limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if textFormat() {
		for _, r := range results {
			fmt.Printf("%s, turn %d:\n  %s\n\n", r.Title, r.Turn, r.Text)
		}
		return
	}
	printJSON(results)
}
