package cli

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"testing"

	"github.com/rcliao/world-weaver/internal/game"
	"github.com/rcliao/world-weaver/internal/guard"
	"github.com/rcliao/world-weaver/internal/imagegen"
	"github.com/rcliao/world-weaver/internal/llm"
	"github.com/rcliao/world-weaver/internal/model"
	"github.com/rcliao/world-weaver/internal/session"
)

// heldText answers every request once hold is closed.
type heldText struct{ hold chan struct{} }

func (m *heldText) Name() string { return "held" }

func (m *heldText) Generate(ctx context.Context, req llm.Request, onDelta func(string)) (*llm.Response, error) {
	<-m.hold
	return &llm.Response{Text: "The tide turns.\n<<<EOO>>>\n<<<EOS>>>\nSwim\n<<<EOA>>>\nWade\n<<<EOA>>>\nWait"}, nil
}

type blankImage struct{ data []byte }

func (m blankImage) Name() string { return "blank" }

func (m blankImage) Generate(ctx context.Context, prompt string) (*imagegen.Image, error) {
	return &imagegen.Image{Data: m.data}, nil
}

func TestPlayTurnCancelled(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}
	text := &heldText{hold: make(chan struct{})}
	orch := &game.Orchestrator{Text: text, Image: blankImage{data: buf.Bytes()}}
	gd := model.GameData{Title: "Shore", WorldDescription: "A grey shore.", PlayerCharacter: "Lin"}
	sess, err := session.New(context.Background(), filepath.Join(t.TempDir(), "shore.wwa"), gd, orch, session.Options{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = playTurn(ctx, sess, model.TurnInput{PlayerAction: "swim"}, io.Discard)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	sess.Abort()
	close(text.hold)
	if sess.State() != guard.Complete {
		t.Fatalf("expected Complete after abort, got %v", sess.State())
	}

	i, err := playTurn(context.Background(), sess, model.TurnInput{PlayerAction: "wade"}, io.Discard)
	if err != nil {
		t.Fatalf("next turn: %v", err)
	}
	if i != 0 || len(sess.Data().Turns) != 1 {
		t.Errorf("expected one committed turn, got index %d of %d", i, len(sess.Data().Turns))
	}
}
