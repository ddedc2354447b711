package client

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/CK6170/Spectro-go/models"
	"github.com/CK6170/Spectro-go/protocol"
	"github.com/CK6170/Spectro-go/results"
)

type PressureEvent struct{ Value int }

type FrameEvent struct {
	Cmd    protocol.Command
	Values []float64
}

type StatusEvent struct{ protocol.StatusLine }

type ListEvent struct {
	Count   int
	Entries []models.IndexEntry
}

type ReportEvent struct{ Lines []string }

type DeleteEvent struct {
	OK  bool
	Err string
}

// ErrorEvent is an error line sent by the instrument.
type ErrorEvent struct{ Text string }

type TextEvent struct{ Text string }

// Decoder turns inbound lines into events. Multi-line replies (lists,
// reports, frames) are buffered until complete.
type Decoder struct {
	frames   map[protocol.Command]*protocol.Assembler
	list     *ListEvent
	listLeft int
	report   []string
}

func NewDecoder() *Decoder {
	return &Decoder{frames: make(map[protocol.Command]*protocol.Assembler)}
}

// Feed consumes one line. ok is false while a multi-line reply is still
// incomplete.
func (d *Decoder) Feed(line string) (ev interface{}, ok bool, err error) {
	if line == "" {
		return nil, false, nil
	}
	if d.listLeft > 0 && line[0] == byte(protocol.ExpList) {
		return d.listRow(line[1:])
	}
	switch c := protocol.Command(line[0]); c {
	case protocol.RequestPressure:
		v, err := protocol.ParsePressure(line)
		if err != nil {
			return nil, false, err
		}
		return PressureEvent{Value: v}, true, nil
	case protocol.Snapshot, protocol.StartStream:
		chunk, err := protocol.ParseChunk(line)
		if err != nil {
			return nil, false, err
		}
		asm := d.frames[c]
		if asm == nil {
			asm = new(protocol.Assembler)
			d.frames[c] = asm
		}
		frame, done, err := asm.Add(chunk)
		if err != nil || !done {
			return nil, false, err
		}
		return FrameEvent{Cmd: c, Values: frame}, true, nil
	case protocol.ExpStatus:
		st, err := protocol.ParseStatus(line)
		if err != nil {
			return nil, false, err
		}
		return StatusEvent{st}, true, nil
	case protocol.ExpList:
		n, err := strconv.Atoi(line[1:])
		if err != nil || n < 0 {
			return nil, false, fmt.Errorf("%w: list count %q", protocol.ErrMalformed, line[1:])
		}
		d.list = &ListEvent{Count: n}
		if n == 0 {
			ev := *d.list
			d.list = nil
			return ev, true, nil
		}
		d.listLeft = n
		return nil, false, nil
	case protocol.ExpLookup:
		if line == protocol.LookupEnd() {
			ev := ReportEvent{Lines: d.report}
			d.report = nil
			return ev, true, nil
		}
		d.report = append(d.report, line[1:])
		return nil, false, nil
	case protocol.ExpDelete:
		body := line[1:]
		if body == "1" {
			return DeleteEvent{OK: true}, true, nil
		}
		msg, _ := strings.CutPrefix(body, "0;")
		return DeleteEvent{Err: msg}, true, nil
	}
	if strings.HasPrefix(line, protocol.ErrorPrefix) {
		return ErrorEvent{Text: strings.TrimPrefix(line, protocol.ErrorPrefix)}, true, nil
	}
	return TextEvent{Text: line}, true, nil
}

func (d *Decoder) listRow(row string) (interface{}, bool, error) {
	d.listLeft--
	entry, err := results.ParseEntry(row)
	if err == nil {
		d.list.Entries = append(d.list.Entries, entry)
	}
	if d.listLeft > 0 {
		return nil, false, err
	}
	ev := *d.list
	d.list = nil
	return ev, true, err
}

// Describe renders an event as one line of console text.
func Describe(ev interface{}) string {
	switch ev := ev.(type) {
	case PressureEvent:
		return fmt.Sprintf("pressure %d", ev.Value)
	case FrameEvent:
		if len(ev.Values) == 0 {
			return fmt.Sprintf("%s frame: empty", ev.Cmd)
		}
		peak := floats.MaxIdx(ev.Values)
		return fmt.Sprintf("%s frame: %d samples, max %.2f at pixel %d", ev.Cmd, len(ev.Values), ev.Values[peak], peak)
	case StatusEvent:
		s := ev.Settings
		return fmt.Sprintf("%s (running=%v scans=%d interval=%ds integration=%dms boxcar=%d avg=%d doctor=%q patient=%q)",
			ev.Message, ev.Running, s.NumScans, s.TimeBetweenScans, s.IntegrationTime, s.BoxcarWidth, s.AvgPerScan, s.DoctorName, s.PatientName)
	case ListEvent:
		var b strings.Builder
		fmt.Fprintf(&b, "%d experiments", ev.Count)
		for _, e := range ev.Entries {
			fmt.Fprintf(&b, "\n  %s  %s / %s  %d scans every %ds", e.ExperimentID, e.DoctorName, e.PatientName, e.NumScans, e.TimeBetweenScans)
		}
		return b.String()
	case ReportEvent:
		return fmt.Sprintf("report: %d lines", len(ev.Lines))
	case DeleteEvent:
		if ev.OK {
			return "deleted"
		}
		return "delete failed: " + ev.Err
	case ErrorEvent:
		return "error: " + ev.Text
	case TextEvent:
		return ev.Text
	}
	return fmt.Sprintf("%v", ev)
}
