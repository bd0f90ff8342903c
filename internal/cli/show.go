package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "show <save>",
		Short: "Show a game or one of its turns",
		Args:  cobra.ExactArgs(1),
		Run:   runShow,
	}

	cmd.Flags().IntP("turn", "n", -1, "Show only this turn")

	RootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) {
	turn, _ := cmd.Flags().GetInt("turn")

	s, sv, sess := openSave(cmd, args[0], false)
	defer s.Close()
	defer sess.Close()

	gd := sess.Data()
	if turn >= 0 {
		if turn >= len(gd.Turns) {
			exitErr("show", fmt.Errorf("turn %d out of range [0, %d)", turn, len(gd.Turns)))
		}
		if textFormat() {
			printTurn(os.Stdout, turn, gd.Turns[turn])
			return
		}
		printJSON(newTurnView(sv.ID, turn, gd.Turns[turn]))
		return
	}

	if textFormat() {
		printGame(&gd)
		return
	}
	printJSON(gd)
}
