package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rcliao/world-weaver/internal/model"
	"github.com/rcliao/world-weaver/internal/session"
	"github.com/rcliao/world-weaver/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new game",
		Long: `Create a save in the library and its archive file. The world is a
library world named by --world, or a description given by --world-text,
--world-file or stdin.`,
		Run: runNew,
	}

	cmd.Flags().StringP("title", "t", "", "Game title (required)")
	cmd.Flags().StringP("player", "p", "", "Player character name (required)")
	cmd.Flags().StringP("world", "w", "", "Start from this world in the world library")
	cmd.Flags().String("world-text", "", "World description")
	cmd.Flags().String("world-file", "", "Read the world description from a file")
	cmd.Flags().String("path", "", "Archive path (default: <home>/saves/<id>.wwa)")

	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("player")
	cmd.MarkFlagsMutuallyExclusive("world", "world-text", "world-file")

	RootCmd.AddCommand(cmd)
}

func runNew(cmd *cobra.Command, args []string) {
	title, _ := cmd.Flags().GetString("title")
	player, _ := cmd.Flags().GetString("player")
	worldName, _ := cmd.Flags().GetString("world")
	worldText, _ := cmd.Flags().GetString("world-text")
	worldFile, _ := cmd.Flags().GetString("world-file")
	path, _ := cmd.Flags().GetString("path")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var world string
	if worldName != "" {
		w, err := s.GetWorld(cmd.Context(), worldName)
		if err != nil {
			exitErr("new", err)
		}
		var warn error
		world, player, warn = startingWorld(w, player)
		if warn != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", warn)
		}
	} else {
		world, err = readText(worldText, worldFile)
		if err != nil {
			exitErr("read world", err)
		}
	}
	if strings.TrimSpace(world) == "" {
		exitErr("new", fmt.Errorf("world description is empty"))
	}

	sv, err := s.Register(cmd.Context(), store.RegisterParams{
		Title:           title,
		PlayerCharacter: player,
		Path:            path,
		Dir:             cfg.SaveDir(),
	})
	if err != nil {
		exitErr("register save", err)
	}

	gd := model.GameData{Title: title, WorldDescription: world, PlayerCharacter: player}
	orch, _ := newOrchestrator(cmd.Context(), s, sv.ID, false)
	sess, err := session.New(cmd.Context(), sv.Path, gd, orch, session.Options{SaveID: sv.ID, Index: s})
	if err != nil {
		s.Rm(cmd.Context(), store.RmParams{Ref: sv.ID, Hard: true})
		exitErr("create archive", err)
	}
	sess.Close()

	printJSON(sv)
}

// startingWorld returns the world description and player name a game of w
// starts with. A player who is not one of w's characters is allowed, with a
// warning.
func startingWorld(w *model.World, player string) (string, string, error) {
	name, _, ok := w.Character(player)
	if !ok {
		warn := fmt.Errorf("%q is not a character of world %s", player, w.Name)
		if names := w.CharacterNames(); len(names) > 0 {
			warn = fmt.Errorf("%w (characters: %s)", warn, strings.Join(names, ", "))
		}
		return w.GameWorld(player), player, warn
	}
	return w.GameWorld(name), name, nil
}

// readText returns inline if set, else the contents of file, else stdin.
func readText(inline, file string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if file != "" {
		b, err := os.ReadFile(file)
		return string(b), err
	}
	b, err := readAllStdin()
	return string(b), err
}
