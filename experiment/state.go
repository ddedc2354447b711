package experiment

import (
	"fmt"

	"github.com/CK6170/Spectro-go/models"
)

type State int32

const (
	Idle State = iota
	Collecting
	AwaitingInterval
	Finalizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Collecting:
		return "Collecting"
	case AwaitingInterval:
		return "AwaitingInterval"
	case Finalizing:
		return "Finalizing"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type Event int

const (
	Start Event = iota
	// Self is the machine re-entering itself after an internal transition.
	Self
	Timeout
	Stop
)

func (e Event) String() string {
	switch e {
	case Start:
		return "Start"
	case Self:
		return "Self"
	case Timeout:
		return "Timeout"
	case Stop:
		return "Stop"
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// Result summarizes the last experiment that finished normally.
type Result struct {
	ExperimentID string
	Scans        int
	Peaks        []float64
}

type Status struct {
	State         State
	Running       bool
	ReadingsTaken int
	Settings      models.Settings
	Message       string
	LastError     string
	Last          *Result
}

// Observer receives a status snapshot after every visible state change. It is
// called outside the machine lock and may query the machine, but must not
// deliver events synchronously.
type Observer func(Status)

func describe(st Status) string {
	var msg string
	switch st.State {
	case Idle:
		msg = "Idle"
	case Collecting:
		msg = "Taking Measurement"
	case AwaitingInterval:
		msg = fmt.Sprintf("Finished measurement %d/%d with %d second intervals",
			st.ReadingsTaken, st.Settings.NumScans, st.Settings.TimeBetweenScans)
	case Finalizing:
		msg = "Writing Results to File"
	default:
		msg = "In an unknown state"
	}
	msg = "Experiment Status: " + msg
	if st.State == Idle && st.LastError != "" {
		msg += " (last run failed: " + st.LastError + ")"
	}
	return msg
}
