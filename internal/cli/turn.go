package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rcliao/world-weaver/internal/game"
	"github.com/rcliao/world-weaver/internal/model"
	"github.com/rcliao/world-weaver/internal/session"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "turn <save>",
		Short: "Play a single turn",
		Long:  "Play one turn of a save. With neither --action nor --gm the story simply continues.",
		Args:  cobra.ExactArgs(1),
		Run:   runTurn,
	}

	cmd.Flags().StringP("action", "a", "", "Player action")
	cmd.Flags().StringP("gm", "g", "", "Game master instruction")
	cmd.Flags().String("image-dir", "", "Write the turn's illustration into this directory")

	RootCmd.AddCommand(cmd)
}

// turnView is a committed turn without its secret info.
type turnView struct {
	Save            string                            `json:"save"`
	Turn            int                               `json:"turn"`
	Input           model.TurnInput                   `json:"input"`
	Text            string                            `json:"text"`
	ProposedActions [model.ProposedActionCount]string `json:"proposed_actions"`
	ImageID         model.ImageID                     `json:"image_id"`
	ImagePath       string                            `json:"image_path,omitempty"`
}

func newTurnView(saveID string, i int, td model.TurnData) turnView {
	return turnView{
		Save:            saveID,
		Turn:            i,
		Input:           td.Input,
		Text:            td.Output.Text,
		ProposedActions: td.Output.ProposedActions,
		ImageID:         td.ImageID,
	}
}

func runTurn(cmd *cobra.Command, args []string) {
	action, _ := cmd.Flags().GetString("action")
	gm, _ := cmd.Flags().GetString("gm")
	imageDir, _ := cmd.Flags().GetString("image-dir")

	s, sv, sess := openSave(cmd, args[0], true)
	defer s.Close()
	defer sess.Close()

	var stream io.Writer = io.Discard
	if textFormat() {
		stream = os.Stdout
	}
	in := model.TurnInput{PlayerAction: action, GMInstruction: gm}
	i, err := playTurn(cmd.Context(), sess, in, stream)
	if err != nil {
		exitErr("turn", err)
	}

	td := sess.Data().Turns[i]
	view := newTurnView(sv.ID, i, td)
	if imageDir != "" {
		if view.ImagePath, err = writeTurnImage(cmd.Context(), sess, i, imageDir); err != nil {
			exitErr("write image", err)
		}
	}

	if textFormat() {
		fmt.Println()
		printActions(os.Stdout, td.Output.ProposedActions)
		if view.ImagePath != "" {
			fmt.Printf("\n[illustration: %s]\n", view.ImagePath)
		}
		return
	}
	printJSON(view)
}

// playTurn runs one turn, copying the narrative to w as it streams in, and
// returns the index of the committed turn.
func playTurn(ctx context.Context, sess *session.Session, in model.TurnInput, w io.Writer) (int, error) {
	// Requests run to completion even if the caller gives up waiting.
	t, err := sess.BeginTurn(context.WithoutCancel(ctx), in)
	if err != nil {
		return 0, err
	}
	for {
		chunk, err := t.Text.Recv(ctx)
		if err != nil {
			// Apply reports why the stream ended early.
			break
		}
		fmt.Fprint(w, chunk)
	}
	if err := sess.Apply(ctx, t); err != nil {
		return 0, err
	}
	return len(sess.Data().Turns) - 1, nil
}

// writeTurnImage saves the illustration of turn i as dir/turn-NNN.<format>.
func writeTurnImage(ctx context.Context, sess *session.Session, i int, dir string) (string, error) {
	data, err := sess.ImageFor(ctx, i)
	if err != nil {
		return "", err
	}
	format, err := game.ImageFormat(data)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("turn-%03d.%s", i, format))
	return path, os.WriteFile(path, data, 0o644)
}
