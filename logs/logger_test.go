package logs

import (
	"bytes"
	"log/slog"
	"path"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := New(buf)
	logger.Info("test", "hello", "world!")
	if isService() {
		t.Skip("terminal handler disabled under systemd")
	}
	if !strings.Contains(buf.String(), "hello=world!") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestSetDebug(t *testing.T) {
	if isService() {
		t.Skip("terminal handler disabled under systemd")
	}
	defer SetLevel(slog.LevelInfo)
	buf := new(bytes.Buffer)
	logger := New(buf)

	logger.Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("got %q", buf.String())
	}
	SetDebug(true)
	logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestJournalKey(t *testing.T) {
	if got := toJournalKey("run.id-2"); got != "RUN_ID_2" {
		t.Fatalf("got %q", got)
	}
}

func isService() bool {
	p, err := getCgroupPath()
	return err == nil && strings.HasSuffix(path.Dir(p), ".service")
}
