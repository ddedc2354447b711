package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/CK6170/Spectro-go/client"
	"github.com/CK6170/Spectro-go/configs"
	"github.com/CK6170/Spectro-go/logs"
	"github.com/CK6170/Spectro-go/models"
	"github.com/CK6170/Spectro-go/protocol"
	"github.com/CK6170/Spectro-go/ui"
)

type screen int

const (
	screenEntry screen = iota
	screenMain
	screenPrompt
)

type model struct {
	scr    screen
	params *models.PARAMETERS

	targetInput textinput.Model
	promptInput textinput.Model
	promptCmd   protocol.Command

	// connection
	sess     *client.Session
	connID   int
	lastErr  error
	infoLine string

	status      *protocol.StatusLine
	pressure    int
	pressureAt  time.Time
	frameLine   string
	experiments []models.IndexEntry
	log         []string
}

const logLines = 8

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func initialModel(target string, p *models.PARAMETERS) model {
	in := textinput.New()
	in.Placeholder = "tcp://host:port or /dev/rfcomm0 (empty = auto-detect)"
	in.Focus()
	in.CharLimit = 256
	in.Width = 60
	in.SetValue(target)
	in.CursorEnd()

	pi := textinput.New()
	pi.CharLimit = 512
	pi.Width = 70

	return model{
		scr:         screenEntry,
		params:      p,
		targetInput: in,
		promptInput: pi,
	}
}

type errMsg struct{ err error }
type connectedMsg struct {
	sess   *client.Session
	connID int
}
type eventMsg struct {
	connID int
	ev     interface{}
}
type closedMsg struct{ connID int }

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.disconnect()
			return m, tea.Quit
		}
		switch m.scr {
		case screenEntry:
			return m.updateEntryKey(msg)
		case screenMain:
			return m.updateMainKey(msg)
		case screenPrompt:
			return m.updatePromptKey(msg)
		}

	case errMsg:
		m.lastErr = msg.err
		return m, nil

	case connectedMsg:
		if msg.connID != m.connID {
			_ = msg.sess.Close()
			return m, nil
		}
		m.sess = msg.sess
		m.scr = screenMain
		m.lastErr = nil
		m.infoLine = "Connected to " + msg.sess.Addr
		return m, tea.Batch(
			waitEvent(m.sess, m.connID),
			m.sendCmd(protocol.ExpStatus, ""),
		)

	case eventMsg:
		if msg.connID != m.connID {
			return m, nil
		}
		m.apply(msg.ev)
		return m, waitEvent(m.sess, m.connID)

	case closedMsg:
		if msg.connID != m.connID {
			return m, nil
		}
		m.sess = nil
		m.scr = screenEntry
		m.targetInput.Focus()
		m.infoLine = "Disconnected"
		return m, nil
	}

	// default: let inputs update
	var cmd tea.Cmd
	switch m.scr {
	case screenEntry:
		m.targetInput, cmd = m.targetInput.Update(msg)
	case screenPrompt:
		m.promptInput, cmd = m.promptInput.Update(msg)
	}
	return m, cmd
}

func (m *model) apply(ev interface{}) {
	switch ev := ev.(type) {
	case client.PressureEvent:
		m.pressure = ev.Value
		m.pressureAt = time.Now()
		return
	case client.FrameEvent:
		m.frameLine = client.Describe(ev)
		return
	case client.StatusEvent:
		st := ev.StatusLine
		m.status = &st
	case client.ListEvent:
		m.experiments = ev.Entries
	case client.ErrorEvent:
		m.lastErr = fmt.Errorf("%s", ev.Text)
	}
	m.log = append(m.log, client.Describe(ev))
	if len(m.log) > logLines {
		m.log = m.log[len(m.log)-logLines:]
	}
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Spectro Console") + "\n")
	b.WriteString(helpStyle.Render("Ctrl+C to quit.") + "\n\n")
	if m.infoLine != "" {
		b.WriteString(okStyle.Render(m.infoLine) + "\n")
	}
	if m.lastErr != nil {
		b.WriteString(errStyle.Render("Error: "+m.lastErr.Error()) + "\n")
	}
	b.WriteString("\n")

	switch m.scr {
	case screenEntry:
		b.WriteString(m.viewEntry())
	case screenMain:
		b.WriteString(m.viewMain())
	case screenPrompt:
		b.WriteString(m.viewMain())
		b.WriteString("\n" + promptTitle(m.promptCmd) + "\n")
		b.WriteString(m.promptInput.View() + "\n")
		b.WriteString(helpStyle.Render("Enter to send, Esc to cancel.") + "\n")
	}
	return b.String()
}

func (m model) viewEntry() string {
	var b strings.Builder
	b.WriteString("Instrument:\n")
	b.WriteString(m.targetInput.View() + "\n\n")
	b.WriteString(helpStyle.Render("Press Enter to connect.") + "\n")
	return b.String()
}

func (m model) viewMain() string {
	var b strings.Builder
	var st strings.Builder
	if m.status == nil {
		st.WriteString("status: unknown")
	} else {
		s := m.status.Settings
		fmt.Fprintf(&st, "%s\n", m.status.Message)
		fmt.Fprintf(&st, "doctor %q  patient %q\n", s.DoctorName, s.PatientName)
		fmt.Fprintf(&st, "%d scans every %d s, %d ms integration, boxcar %d, avg %d",
			s.NumScans, s.TimeBetweenScans, s.IntegrationTime, s.BoxcarWidth, s.AvgPerScan)
	}
	b.WriteString(boxStyle.Render(st.String()) + "\n")

	if !m.pressureAt.IsZero() {
		fmt.Fprintf(&b, "Pressure: %d (%s ago)\n", m.pressure, time.Since(m.pressureAt).Round(time.Second))
	}
	if m.frameLine != "" {
		b.WriteString(m.frameLine + "\n")
	}
	if len(m.experiments) > 0 {
		b.WriteString("\nExperiments:\n")
		for _, e := range m.experiments {
			fmt.Fprintf(&b, "  %s  %s / %s\n", e.ExperimentID, e.DoctorName, e.PatientName)
		}
	}
	if len(m.log) > 0 {
		b.WriteString("\n")
		for _, l := range m.log {
			b.WriteString(helpStyle.Render(l) + "\n")
		}
	}

	b.WriteString("\n")
	var keys []string
	for _, k := range ui.Bindings {
		keys = append(keys, fmt.Sprintf("%c %s", k.Key, k.Help))
	}
	keys = append(keys, "i settings", "n report", "o delete", "x disconnect")
	b.WriteString(helpStyle.Render(strings.Join(keys, " · ")) + "\n")
	return b.String()
}

func promptTitle(cmd protocol.Command) string {
	switch cmd {
	case protocol.Settings:
		return "numScans;timeBetween;integration;boxcar;avg;doctor;patient;id[;start]"
	case protocol.ExpLookup:
		return "Experiment id to show:"
	case protocol.ExpDelete:
		return "Experiment id to delete:"
	}
	return cmd.String()
}

func (m *model) disconnect() {
	m.connID++
	if m.sess != nil {
		_ = m.sess.Send(protocol.Quit, "")
		_ = m.sess.Close()
		m.sess = nil
	}
}

func (m model) updateEntryKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.String() == "enter" {
		m.connID++
		m.infoLine = "Connecting..."
		return m, m.connectCmd(strings.TrimSpace(m.targetInput.Value()), m.connID)
	}
	var cmd tea.Cmd
	m.targetInput, cmd = m.targetInput.Update(k)
	return m, cmd
}

func (m model) updateMainKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(k.Runes) != 1 {
		return m, nil
	}
	r := k.Runes[0]
	if r == 'x' {
		m.disconnect()
		m.scr = screenEntry
		m.targetInput.Focus()
		m.infoLine = "Disconnected"
		return m, nil
	}
	if cmd, ok := ui.NeedsPayload(r); ok {
		m.scr = screenPrompt
		m.promptCmd = cmd
		m.promptInput.SetValue("")
		if cmd == protocol.Settings && m.status != nil {
			s := m.status.Settings
			s.ExperimentID = time.Now().Format("20060102-150405")
			m.promptInput.SetValue(protocol.FormatSettings(s, false))
		}
		m.promptInput.CursorEnd()
		m.promptInput.Focus()
		return m, textinput.Blink
	}
	cmd, ok := ui.CommandForKey(r)
	if !ok {
		return m, nil
	}
	if cmd == protocol.Quit {
		m.disconnect()
		return m, tea.Quit
	}
	return m, m.sendCmd(cmd, "")
}

func (m model) updatePromptKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "esc":
		m.scr = screenMain
		return m, nil
	case "enter":
		m.scr = screenMain
		return m, m.sendCmd(m.promptCmd, strings.TrimSpace(m.promptInput.Value()))
	}
	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(k)
	return m, cmd
}

func (m model) connectCmd(target string, connID int) tea.Cmd {
	p := m.params
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sess, err := client.Connect(ctx, target, p, nil)
		if err != nil {
			return errMsg{err: err}
		}
		return connectedMsg{sess: sess, connID: connID}
	}
}

func (m model) sendCmd(cmd protocol.Command, payload string) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		if sess == nil {
			return errMsg{err: fmt.Errorf("not connected")}
		}
		if err := sess.Send(cmd, payload); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func waitEvent(sess *client.Session, connID int) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sess.Events()
		if !ok {
			return closedMsg{connID: connID}
		}
		return eventMsg{connID: connID, ev: ev}
	}
}

func main() {
	var (
		configPath = flag.String("config", "", "CUE config file (SERIAL section)")
		keys       = flag.Bool("keys", false, "single-key line mode instead of the full screen UI")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()
	target := flag.Arg(0)

	logger := logs.New(os.Stderr)
	logs.SetDebug(*debug)

	var paths []string
	if *configPath != "" {
		paths = append(paths, *configPath)
	}
	p, err := configs.LoadParameters(paths...)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}

	if *keys || !term.IsTerminal(int(os.Stdin.Fd())) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sess, err := client.Connect(ctx, target, p, logger)
		cancel()
		if err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
		defer sess.Close()
		if *keys {
			err = runKeys(sess)
		} else {
			err = runScript(sess, os.Stdin)
		}
		if err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
		return
	}

	prog := tea.NewProgram(initialModel(target, p), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
