package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rcliao/world-weaver/internal/model"
)

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func textFormat() bool { return formatFlag == "text" }

// printTurn renders a committed turn for a reader. Secret info is never
// shown.
func printTurn(w io.Writer, i int, td model.TurnData) {
	fmt.Fprintf(w, "── turn %d ──\n", i)
	if in := td.Input.String(); in != "" {
		fmt.Fprintf(w, "> %s\n\n", strings.ReplaceAll(in, "\n", "\n> "))
	}
	fmt.Fprintln(w, td.Output.Text)
	printActions(w, td.Output.ProposedActions)
}

func printActions(w io.Writer, actions [model.ProposedActionCount]string) {
	fmt.Fprintln(w)
	for i, a := range actions {
		fmt.Fprintf(w, "  %d. %s\n", i+1, a)
	}
}

func printGame(gd *model.GameData) {
	w := os.Stdout
	fmt.Fprintf(w, "%s\n\n%s\n\nPlaying as %s.\n\n", gd.Title, strings.TrimSpace(gd.WorldDescription), gd.PlayerCharacter)
	if s, ok := gd.LatestSummary(); ok {
		fmt.Fprintf(w, "Story so far (to turn %d): %s\n\n", s.Age, s.Content)
	}
	for i, td := range gd.Turns {
		printTurn(w, i, td)
		fmt.Fprintln(w)
	}
}
