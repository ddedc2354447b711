package serial

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"
)

// Listener hands out one connection per appearance of a tty. With rfcomm the
// node exists only while a handset is connected, so Accept waits for it.
type Listener struct {
	Device string
	Baud   int
	Poll   time.Duration
	Logger *slog.Logger
}

func (l *Listener) Addr() string { return l.Device }

// Accept waits until the device node exists and opens it.
func (l *Listener) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	poll := l.Poll
	if poll <= 0 {
		poll = time.Second
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	waiting := false
	for {
		if _, err := os.Stat(l.Device); err == nil {
			port, err := Open(l.Device, l.Baud)
			if err == nil {
				logger.Info("serial channel open", "device", l.Device)
				return port, nil
			}
			logger.Warn("serial channel", "device", l.Device, "error", err)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		} else if !waiting {
			logger.Info("waiting for serial device", "device", l.Device)
			waiting = true
		}
		t := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (l *Listener) Close() error { return nil }
