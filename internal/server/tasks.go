package server

import (
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrTaskLimit = errors.New("no task slot available")

const (
	spawnAttempts = 3
	spawnBackoff  = 20 * time.Millisecond
)

// Tasks runs the background work of one session on a bounded errgroup so the
// session can join everything it started before it ends.
type Tasks struct {
	g   errgroup.Group
	log *slog.Logger
}

func NewTasks(limit int, log *slog.Logger) *Tasks {
	t := &Tasks{log: log}
	t.g.SetLimit(limit)
	return t
}

// Go starts fn, retrying a full group a few times before giving up.
func (t *Tasks) Go(name string, fn func() error) error {
	task := func() error {
		err := fn()
		if err != nil {
			t.log.Warn("task ended", "task", name, "error", err)
		}
		return err
	}
	for attempt := 1; attempt <= spawnAttempts; attempt++ {
		if t.g.TryGo(task) {
			return nil
		}
		time.Sleep(time.Duration(attempt) * spawnBackoff)
	}
	t.log.Error("task not started", "task", name, "attempts", spawnAttempts)
	return ErrTaskLimit
}

// Wait blocks until every task has returned.
func (t *Tasks) Wait() error {
	return t.g.Wait()
}
