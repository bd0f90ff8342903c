package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rcliao/world-weaver/internal/archive"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export <save>",
		Short: "Export a game as JSON",
		Long:  "Export a game's state and every illustration it references as JSON, to stdout or --out.",
		Args:  cobra.ExactArgs(1),
		Run:   runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Output file (default: stdout)")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	sv := resolveSave(cmd, args[0])
	ar, err := archive.Open(sv.Path)
	if err != nil {
		exitErr("open archive", err)
	}
	defer ar.Close()

	exp, err := ar.Export(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	b, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		exitErr("export", err)
	}
	if out == "" {
		fmt.Println(string(b))
		return
	}
	if err := os.WriteFile(out, append(b, '\n'), 0o644); err != nil {
		exitErr("write export", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"path":%q,"turns":%d,"images":%d}`+"\n", out, len(exp.Game.Turns), len(exp.Images))
}
