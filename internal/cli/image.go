package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "image <save>",
		Short: "Extract a turn's illustration",
		Args:  cobra.ExactArgs(1),
		Run:   runImage,
	}

	cmd.Flags().IntP("turn", "n", -1, "Turn index (default: latest)")
	cmd.Flags().StringP("out", "o", "", "Output file, - for stdout (default: turn-NNN.<format> in the current directory)")

	RootCmd.AddCommand(cmd)
}

func runImage(cmd *cobra.Command, args []string) {
	turn, _ := cmd.Flags().GetInt("turn")
	out, _ := cmd.Flags().GetString("out")

	s, _, sess := openSave(cmd, args[0], false)
	defer s.Close()
	defer sess.Close()

	if turn < 0 {
		turn = len(sess.Data().Turns) - 1
	}

	switch out {
	case "-":
		data, err := sess.ImageFor(cmd.Context(), turn)
		if err != nil {
			exitErr("read image", err)
		}
		os.Stdout.Write(data)
	case "":
		path, err := writeTurnImage(cmd.Context(), sess, turn, ".")
		if err != nil {
			exitErr("write image", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"turn":%d,"path":%q}`+"\n", turn, path)
	default:
		data, err := sess.ImageFor(cmd.Context(), turn)
		if err != nil {
			exitErr("read image", err)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			exitErr("write image", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"turn":%d,"path":%q}`+"\n", turn, out)
	}
}
