// Package guard tracks which turn request is live.
//
// A Guard holds the turn state machine and a generation counter. Every
// request is tagged with the generation current when it was issued; its
// result may only be applied while that tag still matches.
package guard

import (
	"errors"
	"fmt"

	"github.com/rcliao/world-weaver/internal/model"
)

// ErrInvalidTransition is returned when an event is not allowed in the
// current state.
var ErrInvalidTransition = errors.New("invalid state transition")

// State is the turn state.
type State int

const (
	Idle State = iota
	AwaitingOutput
	AwaitingSummary
	Complete
	Viewing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingOutput:
		return "awaiting-output"
	case AwaitingSummary:
		return "awaiting-summary"
	case Complete:
		return "complete"
	case Viewing:
		return "viewing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Guard is not safe for concurrent use; the session goroutine owns it.
type Guard struct {
	state State
	view  int
	gen   uint64
}

// New returns a guard for a game with the given number of committed turns.
func New(turns int) *Guard {
	g := &Guard{state: Idle}
	if turns > 0 {
		g.state = Complete
	}
	return g
}

// State returns the current state.
func (g *Guard) State() State { return g.state }

// Generation returns the current generation.
func (g *Guard) Generation() uint64 { return g.gen }

// Viewing returns the inspected turn index while in the Viewing state.
func (g *Guard) Viewing() (int, bool) {
	if g.state != Viewing {
		return 0, false
	}
	return g.view, true
}

// IsCurrent reports whether a result tagged with gen may be applied.
func (g *Guard) IsCurrent(gen uint64) bool { return gen == g.gen }

// Begin starts a turn and returns the tag for its handles.
func (g *Guard) Begin() (uint64, error) {
	if g.state != Idle && g.state != Complete {
		return 0, g.invalid("begin")
	}
	g.state = AwaitingOutput
	return g.gen, nil
}

// OutputReady records a successful completion for the turn tagged gen.
// turns is the turn count after the new turn is appended.
func (g *Guard) OutputReady(gen uint64, turns int) error {
	if !g.IsCurrent(gen) {
		return fmt.Errorf("output ready: stale generation %d (current %d)", gen, g.gen)
	}
	if g.state != AwaitingOutput {
		return g.invalid("output ready")
	}
	if model.NeedsSummary(turns) {
		g.state = AwaitingSummary
	} else {
		g.state = Complete
	}
	return nil
}

// SummaryDone finishes the summary step for the turn tagged gen.
func (g *Guard) SummaryDone(gen uint64) error {
	if !g.IsCurrent(gen) {
		return fmt.Errorf("summary done: stale generation %d (current %d)", gen, g.gen)
	}
	if g.state != AwaitingSummary {
		return g.invalid("summary done")
	}
	g.state = Complete
	return nil
}

// Fail resets to Complete from any state and advances the generation, so
// every outstanding handle becomes stale.
func (g *Guard) Fail() uint64 {
	g.state = Complete
	g.gen++
	return g.gen
}

// Inspect moves to Viewing turn i of turns.
func (g *Guard) Inspect(i, turns int) error {
	if g.state != Complete && g.state != Viewing {
		return g.invalid("inspect")
	}
	if i < 0 || i >= turns {
		return fmt.Errorf("inspect: turn %d out of range [0, %d)", i, turns)
	}
	g.state = Viewing
	g.view = i
	return nil
}

// ReturnToLatest leaves Viewing.
func (g *Guard) ReturnToLatest() error {
	if g.state != Viewing {
		return g.invalid("return to latest")
	}
	g.state = Complete
	g.view = 0
	return nil
}

func (g *Guard) invalid(event string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, g.state)
}
