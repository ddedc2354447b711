package serial

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestAcceptWaitsForDevice(t *testing.T) {
	l := &Listener{
		Device: filepath.Join(t.TempDir(), "rfcomm0"),
		Baud:   115200,
		Poll:   5 * time.Millisecond,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := l.Accept(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v", err)
	}
}

func TestTestPortMissing(t *testing.T) {
	if TestPort(filepath.Join(t.TempDir(), "nope"), 115200) {
		t.Fatal("missing device should not open")
	}
}
