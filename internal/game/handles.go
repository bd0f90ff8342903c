package game

import (
	"context"
	"io"
	"sync"
)

// Future resolves exactly once to a value or an error.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the future has resolved.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the future resolves or ctx is done. Waiting on a
// resolved future returns immediately with the same result.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TextStream is the visible narrative text of a turn as it arrives. It is
// finite and read once, by a single reader. The producer never blocks on
// the reader, so an abandoned stream costs only its buffered text.
type TextStream struct {
	mu     sync.Mutex
	chunks []string
	next   int
	closed bool
	err    error
	notify chan struct{}
}

func newTextStream() *TextStream {
	return &TextStream{notify: make(chan struct{}, 1)}
}

func (s *TextStream) push(chunk string) {
	s.mu.Lock()
	s.chunks = append(s.chunks, chunk)
	s.mu.Unlock()
	s.wake()
}

func (s *TextStream) close(err error) {
	s.mu.Lock()
	if !s.closed {
		s.closed, s.err = true, err
	}
	s.mu.Unlock()
	s.wake()
}

func (s *TextStream) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Recv returns the next chunk. It returns io.EOF after the last chunk of a
// successful stream, or the stream's error after the last chunk of a
// failed one.
func (s *TextStream) Recv(ctx context.Context) (string, error) {
	for {
		s.mu.Lock()
		if s.next < len(s.chunks) {
			c := s.chunks[s.next]
			s.chunks[s.next] = ""
			s.next++
			s.mu.Unlock()
			return c, nil
		}
		if s.closed {
			err := s.err
			s.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return "", err
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
