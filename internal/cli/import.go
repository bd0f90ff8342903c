package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rcliao/world-weaver/internal/archive"
	"github.com/rcliao/world-weaver/internal/model"
	"github.com/rcliao/world-weaver/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a game from JSON",
		Long:  "Import a game exported with export (from a file or stdin) into a fresh archive and add it to the library.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	cmd.Flags().StringP("title", "t", "", "Title for the imported save (default: the exported title)")
	cmd.Flags().String("path", "", "Archive path (default: <home>/saves/<id>.wwa)")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	title, _ := cmd.Flags().GetString("title")
	path, _ := cmd.Flags().GetString("path")

	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = readAllStdin()
	}
	if err != nil {
		exitErr("read input", err)
	}

	var exp model.ExportedGame
	if err := json.Unmarshal(data, &exp); err != nil {
		exitErr("parse json", err)
	}
	if title == "" {
		title = exp.Game.Title
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sv, err := s.Register(cmd.Context(), store.RegisterParams{
		Title:           title,
		PlayerCharacter: exp.Game.PlayerCharacter,
		Path:            path,
		Dir:             cfg.SaveDir(),
	})
	if err != nil {
		exitErr("register save", err)
	}

	ar, err := archive.Import(cmd.Context(), sv.Path, &exp)
	if err != nil {
		s.Rm(cmd.Context(), store.RmParams{Ref: sv.ID, Hard: true})
		exitErr("import", err)
	}
	gd := ar.Current()
	ar.Close()

	if err := s.RecordTurn(cmd.Context(), sv.ID, &gd); err != nil {
		exitErr("index turns", err)
	}

	fmt.Printf(`{"ok":true,"id":%q,"path":%q,"turns":%d}`+"\n", sv.ID, sv.Path, len(gd.Turns))
}

func readAllStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}
