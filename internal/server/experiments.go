package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/CK6170/Spectro-go/experiment"
	"github.com/CK6170/Spectro-go/protocol"
	"github.com/CK6170/Spectro-go/results"
)

const expQueueSize = 16

type expRequest struct {
	cmd protocol.Command
	// set for EXP_START; a later EXP_STOP cancels it
	ctx context.Context
}

// expQueue delivers a session's experiment commands to the machine one at a
// time, in the order the client sent them. The first scan of a Start runs on
// the worker, so the read loop stays free to receive the Stop behind it.
type expQueue struct {
	s  *Session
	ch chan expRequest
	// requests pushed and not yet handled
	pending atomic.Int32

	mu     sync.Mutex
	gen    context.Context
	cancel context.CancelFunc
}

func newExpQueue(s *Session) *expQueue {
	q := &expQueue{s: s, ch: make(chan expRequest, expQueueSize)}
	q.gen, q.cancel = context.WithCancel(context.Background())
	return q
}

func (q *expQueue) start() error {
	q.mu.Lock()
	ctx := q.gen
	q.mu.Unlock()
	return q.push(expRequest{cmd: protocol.ExpStart, ctx: ctx})
}

// stop withdraws every Start pushed before it, interrupts the acquisition in
// flight and queues the Stop itself.
func (q *expQueue) stop() error {
	q.mu.Lock()
	q.cancel()
	q.gen, q.cancel = context.WithCancel(context.Background())
	q.mu.Unlock()
	q.s.srv.machine.Interrupt()
	return q.push(expRequest{cmd: protocol.ExpStop})
}

func (q *expQueue) push(r expRequest) error {
	q.pending.Add(1)
	select {
	case q.ch <- r:
		return nil
	case <-q.s.ctx.Done():
		q.pending.Add(-1)
		return q.s.ctx.Err()
	}
}

// run is the worker. When the session ends, queued Stops are still
// delivered and queued Starts are dropped.
func (q *expQueue) run() error {
	for {
		select {
		case <-q.s.ctx.Done():
			q.drain()
			return nil
		case r := <-q.ch:
			q.handle(r)
			q.pending.Add(-1)
		}
	}
}

func (q *expQueue) drain() {
	for {
		select {
		case r := <-q.ch:
			if r.cmd == protocol.ExpStop {
				q.handle(r)
			} else {
				q.s.log.Info("session gone, experiment start dropped")
			}
			q.pending.Add(-1)
		default:
			return
		}
	}
}

func (q *expQueue) handle(r expRequest) {
	m := q.s.srv.machine
	switch r.cmd {
	case protocol.ExpStart:
		err := m.StartContext(r.ctx)
		switch {
		case err == nil || errors.Is(err, context.Canceled):
		case errors.Is(err, experiment.ErrRunning) || errors.Is(err, results.ErrExists):
			q.s.sendError(err)
		default:
			q.s.log.Warn("experiment start failed", "error", err)
			q.s.sendError(fmt.Errorf("experiment: %w", err))
		}
	case protocol.ExpStop:
		if err := m.Stop(); err != nil {
			q.s.sendError(err)
		}
	}
}
