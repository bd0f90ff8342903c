// Package session drives one open game: it owns the archive handle, the
// in-memory game state, the turn guard and the orchestrator, and applies
// turn results only while their generation is current.
//
// A Session is not safe for concurrent use. One goroutine drives it; the
// work started by BeginTurn runs elsewhere but never touches the session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/rcliao/world-weaver/internal/archive"
	"github.com/rcliao/world-weaver/internal/game"
	"github.com/rcliao/world-weaver/internal/guard"
	"github.com/rcliao/world-weaver/internal/llm"
	"github.com/rcliao/world-weaver/internal/model"
)

// ErrStale is returned by Apply for a turn issued before the last reset.
var ErrStale = errors.New("stale turn result discarded")

// Archive is the archive handle a session writes to.
type Archive interface {
	game.Archive
	ReadImage(ctx context.Context, id model.ImageID) ([]byte, error)
	Current() model.GameData
	Close() error
}

// Indexer is told about every committed turn.
type Indexer interface {
	RecordTurn(ctx context.Context, saveID string, gd *model.GameData) error
}

// Options configures a session.
type Options struct {
	SaveID string
	// Index is optional. Index failures are logged and do not fail a turn.
	Index Indexer
}

// Session is one open game.
type Session struct {
	ar    Archive
	data  model.GameData
	guard *guard.Guard
	orch  *game.Orchestrator
	opts  Options
}

// Attach wraps an already open archive. The game state is the archive's
// current snapshot.
func Attach(ar Archive, orch *game.Orchestrator, opts Options) *Session {
	gd := ar.Current()
	return &Session{
		ar:    ar,
		data:  gd,
		guard: guard.New(len(gd.Turns)),
		orch:  orch,
		opts:  opts,
	}
}

// New creates the archive at path and commits gd as its first snapshot.
// On failure no archive file is left at path.
func New(ctx context.Context, path string, gd model.GameData, orch *game.Orchestrator, opts Options) (*Session, error) {
	if err := game.CheckWorld(gd.WorldDescription, gd.PlayerCharacter); err != nil {
		log.Printf("session: warning: %v", err)
	}
	ar, err := archive.Init(ctx, path, &gd)
	if err != nil {
		return nil, err
	}
	return Attach(ar, orch, opts), nil
}

// Open opens the archive at path.
func Open(path string, orch *game.Orchestrator, opts Options) (*Session, error) {
	ar, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	return Attach(ar, orch, opts), nil
}

// Data returns a copy of the game state.
func (s *Session) Data() model.GameData { return s.data.Clone() }

// State returns the turn state.
func (s *Session) State() guard.State { return s.guard.State() }

// Generation returns the current generation.
func (s *Session) Generation() uint64 { return s.guard.Generation() }

// BeginTurn starts the next turn against a snapshot of the game state.
func (s *Session) BeginTurn(ctx context.Context, in model.TurnInput) (*game.Turn, error) {
	gen, err := s.guard.Begin()
	if err != nil {
		return nil, err
	}
	return s.orch.BeginTurn(ctx, gen, in, s.data.Clone()), nil
}

// Apply waits for t to complete and commits it. A turn whose generation is
// no longer current is dropped with ErrStale and leaves everything as it
// was. Any other failure resets the guard, making every outstanding turn
// stale.
func (s *Session) Apply(ctx context.Context, t *game.Turn) error {
	// A completion that is already in wins over a cancelled ctx.
	select {
	case <-t.Completion.Done():
	default:
		select {
		case <-t.Completion.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c, err := t.Completion.Wait(context.Background())
	if !s.guard.IsCurrent(t.Generation) {
		log.Printf("session: discarding turn of generation %d (current %d)", t.Generation, s.guard.Generation())
		return ErrStale
	}
	if err != nil {
		s.guard.Fail()
		return err
	}

	if err := s.guard.OutputReady(t.Generation, len(s.data.Turns)+1); err != nil {
		s.guard.Fail()
		return err
	}
	if err := s.orch.CommitTurn(ctx, s.ar, &s.data, c); err != nil {
		s.guard.Fail()
		return err
	}
	if s.guard.State() == guard.AwaitingSummary {
		if err := s.guard.SummaryDone(t.Generation); err != nil {
			return err
		}
	}

	if s.opts.Index != nil {
		if err := s.opts.Index.RecordTurn(ctx, s.opts.SaveID, &s.data); err != nil {
			log.Printf("session: index turn %d: %v", len(s.data.Turns)-1, err)
		}
	}
	return nil
}

// Abort abandons the turn in flight, if any. Its handles become stale.
func (s *Session) Abort() uint64 { return s.guard.Fail() }

// Inspect views committed turn i.
func (s *Session) Inspect(i int) error { return s.guard.Inspect(i, len(s.data.Turns)) }

// ReturnToLatest leaves the view of a past turn.
func (s *Session) ReturnToLatest() error { return s.guard.ReturnToLatest() }

// Viewing returns the inspected turn index, if any.
func (s *Session) Viewing() (int, bool) { return s.guard.Viewing() }

// ImageFor returns the illustration of committed turn i.
func (s *Session) ImageFor(ctx context.Context, i int) ([]byte, error) {
	if i < 0 || i >= len(s.data.Turns) {
		return nil, fmt.Errorf("image for turn %d: out of range [0, %d)", i, len(s.data.Turns))
	}
	return s.ar.ReadImage(ctx, s.data.Turns[i].ImageID)
}

// Prompt returns the text request the next turn would send for in.
func (s *Session) Prompt(ctx context.Context, in model.TurnInput) llm.Request {
	snapshot := s.data.Clone()
	return s.orch.Request(ctx, in, &snapshot)
}

// Archive returns the session's archive handle.
func (s *Session) Archive() Archive { return s.ar }

// Close closes the archive. Turns still in flight are abandoned.
func (s *Session) Close() error {
	s.guard.Fail()
	return s.ar.Close()
}
