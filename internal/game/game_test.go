package game

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/world-weaver/internal/archive"
	"github.com/rcliao/world-weaver/internal/imagegen"
	"github.com/rcliao/world-weaver/internal/llm"
	"github.com/rcliao/world-weaver/internal/model"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeText streams a scripted turn output, or a summary for summary requests.
type fakeText struct {
	mu        sync.Mutex
	turns     int
	summaries int
	err       error
	raw       string
	blank     bool
	gate      chan struct{}
}

func (f *fakeText) Name() string { return "fake-text" }

func (f *fakeText) Generate(ctx context.Context, req llm.Request, onDelta func(string)) (*llm.Response, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if req.System == summarySystem {
		f.summaries++
		if f.blank {
			return &llm.Response{Text: "  \n"}, nil
		}
		return &llm.Response{Text: fmt.Sprintf("summary #%d: %s", f.summaries, lastLine(req))}, nil
	}
	f.turns++
	raw := f.raw
	if raw == "" {
		raw = fmt.Sprintf("Story part %d.\n<<<EOO>>>\nSecret %d.\n<<<EOS>>>\nA\n<<<EOA>>>\nB\n<<<EOA>>>\nC", f.turns, f.turns)
	}
	for i := 0; i < len(raw); i += 5 {
		if onDelta != nil {
			onDelta(raw[i:min(i+5, len(raw))])
		}
	}
	return &llm.Response{Text: raw, InputTokens: 10, OutputTokens: 20}, nil
}

func lastLine(req llm.Request) string {
	body := req.Messages[len(req.Messages)-1].Content
	return body[strings.LastIndex(body, "\n")+1:]
}

type fakeImage struct {
	data []byte
	cost float64
	err  error
}

func (f *fakeImage) Name() string { return "fake-image" }

func (f *fakeImage) Generate(ctx context.Context, prompt string) (*imagegen.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &imagegen.Image{Data: f.data, Cost: f.cost}, nil
}

// spyArchive records calls without storing anything.
type spyArchive struct {
	adds    int
	commits int
	err     error
}

func (s *spyArchive) AddImage(ctx context.Context, data []byte) (model.ImageID, error) {
	s.adds++
	return model.ImageID(s.adds - 1), s.err
}

func (s *spyArchive) Commit(ctx context.Context, data *model.GameData) error {
	s.commits++
	return s.err
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeText) {
	t.Helper()
	text := &fakeText{}
	return &Orchestrator{Text: text, Image: &fakeImage{data: testPNG(t)}}, text
}

func drain(t *testing.T, s *TextStream) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var b strings.Builder
	for {
		c, err := s.Recv(ctx)
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), err
		}
		b.WriteString(c)
	}
}

func TestBeginTurnSuccess(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(t)
	gd := gameWithTurns(0)

	turn := o.BeginTurn(ctx, 7, model.TurnInput{PlayerAction: "I open the door"}, gd)
	assert.Equal(t, uint64(7), turn.Generation)

	visible, err := drain(t, turn.Text)
	require.NoError(t, err)
	assert.Equal(t, "Story part 1.\n", visible)

	img, err := turn.Image.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, testPNG(t), img)

	c, err := turn.Completion.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), c.Generation)
	assert.Equal(t, "Story part 1.", c.Turn.Output.Text)
	assert.Equal(t, "Secret 1.", c.Turn.Output.SecretInfo)
	assert.Equal(t, [3]string{"A", "B", "C"}, c.Turn.Output.ProposedActions)
	assert.Equal(t, 10, c.Turn.Output.InputTokens)
	assert.Equal(t, "I open the door", c.Turn.Input.PlayerAction)

	assert.Empty(t, gd.Turns, "snapshot must not be modified")
}

func TestBeginTurnTextFailure(t *testing.T) {
	ctx := context.Background()
	o, text := newTestOrchestrator(t)
	text.err = errors.New("connection reset")

	turn := o.BeginTurn(ctx, 0, model.TurnInput{}, gameWithTurns(0))

	_, err := drain(t, turn.Text)
	require.ErrorIs(t, err, ErrRequestFailed)

	_, err = turn.Completion.Wait(ctx)
	var te *TurnError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, SideText, te.Side)
	require.ErrorIs(t, err, ErrRequestFailed)
}

func TestBeginTurnValidationFailure(t *testing.T) {
	ctx := context.Background()
	o, text := newTestOrchestrator(t)
	text.raw = "A story with no delimiters at all."

	turn := o.BeginTurn(ctx, 0, model.TurnInput{}, gameWithTurns(0))
	visible, err := drain(t, turn.Text)
	require.NoError(t, err)
	assert.Equal(t, text.raw, visible)

	_, err = turn.Completion.Wait(ctx)
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestBeginTurnImageRejected(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		img  *fakeImage
	}{
		{"moderated", &fakeImage{err: fmt.Errorf("job 1: %w", imagegen.ErrRejected)}},
		{"not an image", &fakeImage{data: []byte("<html>oops</html>")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _ := newTestOrchestrator(t)
			o.Image = tt.img
			turn := o.BeginTurn(ctx, 0, model.TurnInput{}, gameWithTurns(0))

			_, err := turn.Image.Wait(ctx)
			require.ErrorIs(t, err, ErrImageRejected)

			_, err = turn.Completion.Wait(ctx)
			var te *TurnError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, SideImage, te.Side)
			require.ErrorIs(t, err, ErrImageRejected)
		})
	}
}

func TestBeginTurnImageFirst(t *testing.T) {
	ctx := context.Background()
	o, text := newTestOrchestrator(t)
	text.gate = make(chan struct{})

	turn := o.BeginTurn(ctx, 0, model.TurnInput{}, gameWithTurns(0))

	// the image resolves while the text request is still blocked
	_, err := turn.Image.Wait(ctx)
	require.NoError(t, err)
	select {
	case <-turn.Completion.Done():
		t.Fatal("completion resolved before text finished")
	default:
	}

	close(text.gate)
	_, err = turn.Completion.Wait(ctx)
	require.NoError(t, err)
}

func TestAbandonedTurnDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(t)

	turn := o.BeginTurn(ctx, 0, model.TurnInput{}, gameWithTurns(0))
	// nobody reads the text stream
	_, err := turn.Completion.Wait(ctx)
	require.NoError(t, err)
}

func TestCommitTurnRejectsInvalidCandidate(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(t)
	valid := model.TurnOutput{Text: "x", ProposedActions: [3]string{"a", "b", "c"}}

	tests := []struct {
		name string
		c    *Candidate
		want error
	}{
		{"nil", nil, ErrValidationFailed},
		{"empty text", &Candidate{Turn: model.TurnData{Output: model.TurnOutput{ProposedActions: valid.ProposedActions}}, Image: testPNG(t)}, ErrValidationFailed},
		{"missing action", &Candidate{Turn: model.TurnData{Output: model.TurnOutput{Text: "x"}}, Image: testPNG(t)}, ErrValidationFailed},
		{"bad image", &Candidate{Turn: model.TurnData{Output: valid}, Image: []byte("nope")}, ErrImageRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := &spyArchive{}
			gd := gameWithTurns(1)
			err := o.CommitTurn(ctx, spy, &gd, tt.c)
			require.ErrorIs(t, err, tt.want)
			assert.Zero(t, spy.adds)
			assert.Zero(t, spy.commits)
			assert.Len(t, gd.Turns, 1)
		})
	}
}

func TestCommitTurnSummaryFailureLeavesData(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(t)
	o.Summary = &fakeText{err: errors.New("overloaded")}

	spy := &spyArchive{}
	gd := gameWithTurns(7)
	c := &Candidate{Turn: model.TurnData{Output: model.TurnOutput{Text: "x", ProposedActions: [3]string{"a", "b", "c"}}}, Image: testPNG(t)}

	err := o.CommitTurn(ctx, spy, &gd, c)
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.Len(t, gd.Turns, 7)
	assert.Empty(t, gd.Summaries)
	assert.Equal(t, 1, spy.adds, "image written before summary")
	assert.Zero(t, spy.commits)
}

func TestCommitTurnBlankSummary(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(t)
	o.Summary = &fakeText{blank: true}

	spy := &spyArchive{}
	gd := gameWithTurns(7)
	c := &Candidate{Turn: model.TurnData{Output: model.TurnOutput{Text: "x", ProposedActions: [3]string{"a", "b", "c"}}}, Image: testPNG(t)}

	err := o.CommitTurn(ctx, spy, &gd, c)
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.NotErrorIs(t, err, ErrValidationFailed)
	assert.Len(t, gd.Turns, 7)
	assert.Empty(t, gd.Summaries)
	assert.Zero(t, spy.commits)
}

func TestBeginTurnKeepsImageCost(t *testing.T) {
	ctx := context.Background()
	o := &Orchestrator{Text: &fakeText{}, Image: &fakeImage{data: testPNG(t), cost: 0.04}}

	turn := o.BeginTurn(ctx, 1, model.TurnInput{PlayerAction: "look"}, gameWithTurns(0))
	c, err := turn.Completion.Wait(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.04, c.Turn.Output.ImageCost, 1e-9)

	spy := &spyArchive{}
	gd := gameWithTurns(0)
	require.NoError(t, o.CommitTurn(ctx, spy, &gd, c))
	assert.InDelta(t, 0.04, gd.Turns[0].Output.ImageCost, 1e-9)
}

func TestCommitTurnArchiveFailureLeavesData(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(t)
	spy := &spyArchive{err: errors.New("disk full")}
	gd := gameWithTurns(2)
	c := &Candidate{Turn: model.TurnData{Output: model.TurnOutput{Text: "x", ProposedActions: [3]string{"a", "b", "c"}}}, Image: testPNG(t)}

	require.Error(t, o.CommitTurn(ctx, spy, &gd, c))
	assert.Len(t, gd.Turns, 2)
}

func playTurn(t *testing.T, o *Orchestrator, ar Archive, gd *model.GameData, action string) {
	t.Helper()
	ctx := context.Background()
	turn := o.BeginTurn(ctx, 0, model.TurnInput{PlayerAction: action}, gd.Clone())
	c, err := turn.Completion.Wait(ctx)
	require.NoError(t, err)
	require.NoError(t, o.CommitTurn(ctx, ar, gd, c))
}

func TestEightTurnScenario(t *testing.T) {
	ctx := context.Background()
	o, text := newTestOrchestrator(t)

	ar, err := archive.Create(filepath.Join(t.TempDir(), "game.wwa"))
	require.NoError(t, err)
	defer ar.Close()

	gd := gameWithTurns(0)
	require.NoError(t, ar.Commit(ctx, &gd))

	playTurn(t, o, ar, &gd, "I open the door")
	require.Len(t, gd.Turns, 1)
	img, err := ar.ReadImage(ctx, gd.Turns[0].ImageID)
	require.NoError(t, err)
	assert.Equal(t, testPNG(t), img)
	assert.Len(t, ar.Index(), 1)

	for i := 1; i < 16; i++ {
		playTurn(t, o, ar, &gd, fmt.Sprintf("step %d", i))
		want := (i + 1) / model.SummaryInterval
		require.Len(t, gd.Summaries, want, "after %d turns", i+1)
	}

	require.Len(t, gd.Summaries, 2)
	assert.Equal(t, 8, gd.Summaries[0].Age)
	assert.Contains(t, gd.Summaries[0].Content, "up to and including turn 7")
	assert.Equal(t, 16, gd.Summaries[1].Age)
	assert.Equal(t, 2, text.summaries)

	assert.Equal(t, gd, ar.Current())
	seen := map[model.ImageID]bool{}
	for _, turn := range gd.Turns {
		assert.False(t, seen[turn.ImageID], "image ids must be unique")
		seen[turn.ImageID] = true
	}
}

func TestRequestUsesRecall(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	rec := &fakeRecaller{passages: []string{"the key was under the stone"}}
	o.Recall = rec

	gd := gameWithTurns(3)
	req := o.Request(context.Background(), model.TurnInput{PlayerAction: "look"}, &gd)
	assert.False(t, rec.called, "no recall while all turns fit the history")
	assert.NotContains(t, req.System, "under the stone")

	gd = gameWithTurns(12)
	req = o.Request(context.Background(), model.TurnInput{PlayerAction: "find the key"}, &gd)
	assert.True(t, rec.called)
	assert.Equal(t, 4, rec.before)
	assert.Equal(t, "find the key", rec.query)
	assert.Contains(t, req.System, "under the stone")
}

type fakeRecaller struct {
	passages []string
	called   bool
	query    string
	before   int
}

func (f *fakeRecaller) Recall(ctx context.Context, query string, beforeTurn int) ([]string, error) {
	f.called, f.query, f.before = true, query, beforeTurn
	return f.passages, nil
}

func TestImageFormat(t *testing.T) {
	format, err := ImageFormat(testPNG(t))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	_, err = ImageFormat(nil)
	require.ErrorIs(t, err, ErrImageRejected)
	_, err = ImageFormat([]byte("GIF89a"))
	require.ErrorIs(t, err, ErrImageRejected)
}
