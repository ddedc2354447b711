package main

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CK6170/Spectro-go/client"
	"github.com/CK6170/Spectro-go/models"
	"github.com/CK6170/Spectro-go/protocol"
	"github.com/CK6170/Spectro-go/ui"
)

func TestModelStatus(t *testing.T) {
	m := initialModel("", &models.PARAMETERS{})
	m.scr = screenMain
	next, _ := m.Update(eventMsg{connID: m.connID, ev: client.StatusEvent{StatusLine: protocol.StatusLine{
		Settings: models.DefaultSettings(),
		Message:  "Experiment Status: Idle",
	}}})
	view := next.(model).View()
	if !strings.Contains(view, "Experiment Status: Idle") || !strings.Contains(view, "5 scans every 60 s") {
		t.Fatalf("got %q", view)
	}
}

func TestModelIgnoresStaleConnection(t *testing.T) {
	m := initialModel("", &models.PARAMETERS{})
	m.connID = 2
	next, cmd := m.Update(eventMsg{connID: 1, ev: client.PressureEvent{Value: 777}})
	if cmd != nil || next.(model).pressure != 0 {
		t.Fatal("stale event applied")
	}
}

func TestSettingsPrompt(t *testing.T) {
	m := initialModel("", &models.PARAMETERS{})
	m.scr = screenMain
	m.status = &protocol.StatusLine{Settings: models.DefaultSettings()}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'i'}})
	got := next.(model)
	if got.scr != screenPrompt || got.promptCmd != protocol.Settings {
		t.Fatalf("got %v %v", got.scr, got.promptCmd)
	}
	if !strings.HasPrefix(got.promptInput.Value(), "5;60;1000;0;3;;;") {
		t.Fatalf("got %q", got.promptInput.Value())
	}
}

func TestRunScript(t *testing.T) {
	local, remote := net.Pipe()
	sess := client.New("pipe", local, nil)
	out := new(bytes.Buffer)
	ui.Out = out

	go func() {
		r := bufio.NewReader(remote)
		line, _ := r.ReadString('\n')
		if line == "l\n" {
			remote.Write([]byte("l;0;Dr;Pat;5;60;1000;0;3;Experiment Status: Idle\n"))
		}
		remote.Close()
	}()
	if err := runScript(sess, strings.NewReader("l\n")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Experiment Status: Idle") {
		t.Fatalf("got %q", out.String())
	}
}
