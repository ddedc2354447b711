package server

import (
	"context"
	"sync"
)

type StreamKind int

const (
	PressureStream StreamKind = iota
	SpectrumStream
)

func (k StreamKind) String() string {
	switch k {
	case PressureStream:
		return "pressure"
	case SpectrumStream:
		return "spectrum"
	}
	return "unknown"
}

// Streams keeps at most one loop per kind running. Each loop has its own
// context; switching the stream off or closing the session cancels it.
type Streams struct {
	mu      sync.Mutex
	ctx     context.Context
	tasks   *Tasks
	loop    func(ctx context.Context, kind StreamKind) error
	cancels map[StreamKind]context.CancelFunc
}

func NewStreams(ctx context.Context, tasks *Tasks, loop func(context.Context, StreamKind) error) *Streams {
	return &Streams{
		ctx:     ctx,
		tasks:   tasks,
		loop:    loop,
		cancels: make(map[StreamKind]context.CancelFunc),
	}
}

func (s *Streams) Running(kind StreamKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cancels[kind]
	return ok
}

// Start is a no-op when the stream already runs.
func (s *Streams) Start(kind StreamKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(kind)
}

func (s *Streams) Stop(kind StreamKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(kind)
}

// Toggle flips the stream and reports whether it is now on.
func (s *Streams) Toggle(kind StreamKind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cancels[kind]; ok {
		s.cancelLocked(kind)
		return false, nil
	}
	if err := s.startLocked(kind); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Streams) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for kind := range s.cancels {
		s.cancelLocked(kind)
	}
}

func (s *Streams) startLocked(kind StreamKind) error {
	if _, ok := s.cancels[kind]; ok {
		return nil
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancels[kind] = cancel
	err := s.tasks.Go(kind.String(), func() error {
		defer s.finished(kind, ctx)
		return s.loop(ctx, kind)
	})
	if err != nil {
		cancel()
		delete(s.cancels, kind)
	}
	return err
}

func (s *Streams) cancelLocked(kind StreamKind) {
	if cancel, ok := s.cancels[kind]; ok {
		cancel()
		delete(s.cancels, kind)
	}
}

// finished forgets a loop that returned on its own, unless it was already
// replaced by a newer one.
func (s *Streams) finished(kind StreamKind, ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if cancel, ok := s.cancels[kind]; ok {
		cancel()
		delete(s.cancels, kind)
	}
}
