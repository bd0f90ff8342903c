// Package game drives narrative turns: it builds model requests from the
// game state, runs the text and image models concurrently, and commits a
// validated result into the archive.
package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/world-weaver/internal/imagegen"
	"github.com/rcliao/world-weaver/internal/llm"
	"github.com/rcliao/world-weaver/internal/model"
)

const tracerName = "github.com/rcliao/world-weaver/internal/game"

// tracer is looked up per span so a provider registered after package
// initialization is honored.
func tracer() trace.Tracer { return otel.Tracer(tracerName) }

// Archive is the storage a committed turn is written to.
type Archive interface {
	AddImage(ctx context.Context, data []byte) (model.ImageID, error)
	Commit(ctx context.Context, data *model.GameData) error
}

// Recaller finds passages of turns before beforeTurn relevant to query.
type Recaller interface {
	Recall(ctx context.Context, query string, beforeTurn int) ([]string, error)
}

// Orchestrator runs turns against a text model and an image model.
type Orchestrator struct {
	Text  llm.Model
	Image imagegen.Model
	// Summary writes summaries; Text is used when nil.
	Summary llm.Model
	// Recall is optional.
	Recall    Recaller
	MaxTokens int
}

// Candidate is a validated turn waiting to be committed.
type Candidate struct {
	Generation uint64
	Turn       model.TurnData
	Image      []byte
}

// Turn holds the handles of one in-flight turn.
type Turn struct {
	Generation uint64
	Input      model.TurnInput
	Image      *Future[[]byte]
	Text       *TextStream
	Completion *Future[*Candidate]
}

// Request builds the text request for the next turn of snapshot.
func (o *Orchestrator) Request(ctx context.Context, in model.TurnInput, snapshot *model.GameData) llm.Request {
	var recall []string
	before := len(snapshot.Turns) - HistorySize
	if o.Recall != nil && before > 0 {
		query := in.String()
		if query == "" && len(snapshot.Turns) > 0 {
			query = snapshot.Turns[len(snapshot.Turns)-1].Output.Text
		}
		var err error
		if recall, err = o.Recall.Recall(ctx, query, before); err != nil {
			log.Printf("game: recall failed, continuing without: %v", err)
			recall = nil
		}
	}
	return BuildRequest(snapshot, in, recall, o.MaxTokens)
}

// BeginTurn starts the text and image requests for the next turn of
// snapshot and returns at once. It does not modify any game state; the
// returned handles are tagged with gen.
func (o *Orchestrator) BeginTurn(ctx context.Context, gen uint64, in model.TurnInput, snapshot model.GameData) *Turn {
	ctx, span := tracer().Start(ctx, "game.BeginTurn")
	span.SetAttributes(
		attribute.Int64("turn.generation", int64(gen)),
		attribute.Int("turn.index", len(snapshot.Turns)),
	)

	t := &Turn{
		Generation: gen,
		Input:      in,
		Image:      newFuture[[]byte](),
		Text:       newTextStream(),
		Completion: newFuture[*Candidate](),
	}
	req := o.Request(ctx, in, &snapshot)
	prompt := ImagePrompt(&snapshot, in)
	log.Printf("game: turn %d request: %d messages, %d system bytes", len(snapshot.Turns), len(req.Messages), len(req.System))

	var output model.TurnOutput
	var image []byte
	var imageCost float64
	var g errgroup.Group

	g.Go(func() error {
		out, err := o.generateText(ctx, req, t.Text)
		if err != nil {
			return &TurnError{Side: SideText, Err: err}
		}
		output = out
		return nil
	})
	g.Go(func() error {
		img, err := o.generateImage(ctx, prompt)
		var data []byte
		if img != nil {
			data = img.Data
		}
		t.Image.resolve(data, err)
		if err != nil {
			return &TurnError{Side: SideImage, Err: err}
		}
		image, imageCost = img.Data, img.Cost
		return nil
	})

	go func() {
		defer span.End()
		if err := g.Wait(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			t.Completion.resolve(nil, err)
			return
		}
		output.ImageCost = imageCost
		t.Completion.resolve(&Candidate{
			Generation: gen,
			Turn:       model.TurnData{Input: in, Output: output},
			Image:      image,
		}, nil)
	}()
	return t
}

func (o *Orchestrator) generateText(ctx context.Context, req llm.Request, stream *TextStream) (model.TurnOutput, error) {
	finder := newStopFinder(EndOfOutput)
	resp, err := o.Text.Generate(ctx, req, func(delta string) {
		if s := finder.push(delta); s != "" {
			stream.push(s)
		}
	})
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrRequestFailed, o.Text.Name(), err)
		stream.close(err)
		return model.TurnOutput{}, err
	}
	if s := finder.flush(); s != "" {
		stream.push(s)
	}
	stream.close(nil)

	out, err := ParseOutput(resp.Text)
	if err != nil {
		return out, err
	}
	out.InputTokens = resp.InputTokens
	out.OutputTokens = resp.OutputTokens
	return out, nil
}

func (o *Orchestrator) generateImage(ctx context.Context, prompt string) (*imagegen.Image, error) {
	img, err := o.Image.Generate(ctx, prompt)
	if errors.Is(err, imagegen.ErrRejected) {
		return nil, fmt.Errorf("%w: %w", ErrImageRejected, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRequestFailed, o.Image.Name(), err)
	}
	if _, err := ImageFormat(img.Data); err != nil {
		return nil, err
	}
	return img, nil
}

// CommitTurn stores the candidate's image, appends its turn to data, writes
// a summary when the turn count reaches a multiple of model.SummaryInterval,
// and commits a snapshot. data is only modified once the snapshot is
// durable; on error it is left as it was.
func (o *Orchestrator) CommitTurn(ctx context.Context, ar Archive, data *model.GameData, c *Candidate) error {
	ctx, span := tracer().Start(ctx, "game.CommitTurn")
	defer span.End()

	if err := validateCandidate(c); err != nil {
		return err
	}

	id, err := ar.AddImage(ctx, c.Image)
	if err != nil {
		return fmt.Errorf("store turn image: %w", err)
	}
	turn := c.Turn
	turn.ImageID = id

	next := data.Clone()
	next.Turns = append(next.Turns, turn)
	span.SetAttributes(attribute.Int("turn.index", len(next.Turns)-1), attribute.Int64("image.id", int64(id)))

	if model.NeedsSummary(len(next.Turns)) {
		s, err := o.Summarize(ctx, &next)
		if err != nil {
			return fmt.Errorf("summarize turns: %w", err)
		}
		next.Summaries = append(next.Summaries, s)
	}

	if err := ar.Commit(ctx, &next); err != nil {
		return fmt.Errorf("commit turn: %w", err)
	}
	*data = next
	return nil
}

func validateCandidate(c *Candidate) error {
	if c == nil {
		return fmt.Errorf("%w: no candidate", ErrValidationFailed)
	}
	if strings.TrimSpace(c.Turn.Output.Text) == "" {
		return fmt.Errorf("%w: empty output text", ErrValidationFailed)
	}
	for i, a := range c.Turn.Output.ProposedActions {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("%w: proposed action %d is empty", ErrValidationFailed, i+1)
		}
	}
	if _, err := ImageFormat(c.Image); err != nil {
		return err
	}
	return nil
}

// Summarize asks for a summary of the last model.SummaryInterval turns of gd.
func (o *Orchestrator) Summarize(ctx context.Context, gd *model.GameData) (model.Summary, error) {
	ctx, span := tracer().Start(ctx, "game.Summarize")
	defer span.End()

	m := o.Summary
	if m == nil {
		m = o.Text
	}
	n := len(gd.Turns)
	log.Printf("game: summarizing turns %d-%d with %s", max(0, n-model.SummaryInterval), n-1, m.Name())

	resp, err := m.Generate(ctx, SummaryRequest(gd, o.MaxTokens), nil)
	if err != nil {
		return model.Summary{}, fmt.Errorf("%w: %s: %w", ErrRequestFailed, m.Name(), err)
	}
	content := strings.TrimSpace(resp.Text)
	if content == "" {
		return model.Summary{}, fmt.Errorf("%w: %s returned an empty summary", ErrRequestFailed, m.Name())
	}
	span.SetAttributes(attribute.Int("summary.age", n))
	return model.Summary{Content: content, Age: n}, nil
}
