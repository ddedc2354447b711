// Package protocol is the byte-level language spoken between the instrument
// daemon and its client: single-byte commands, a settings payload, chunked
// telemetry frames and a status line. Every message travels as one line.
package protocol

import (
	"bytes"
	"fmt"
	"strings"
)

type Command byte

// Command bytes start at 'a' in table order; Quit sits apart.
const (
	MotorOn Command = 'a' + iota
	MotorOff
	LEDOn
	LEDOff
	RequestPressure
	Snapshot
	StartStream
	StopStream
	Settings
	ExpStart
	ExpStop
	ExpStatus
	ExpList
	ExpLookup
	ExpDelete

	Quit Command = 'q'
)

var names = map[Command]string{
	MotorOn:         "MOTOR_ON",
	MotorOff:        "MOTOR_OFF",
	LEDOn:           "LED_ON",
	LEDOff:          "LED_OFF",
	RequestPressure: "REQUEST_PRESSURE",
	Snapshot:        "SNAPSHOT",
	StartStream:     "START_STREAM",
	StopStream:      "STOP_STREAM",
	Settings:        "SETTINGS",
	ExpStart:        "EXP_START",
	ExpStop:         "EXP_STOP",
	ExpStatus:       "EXP_STATUS",
	ExpList:         "EXP_LIST",
	ExpLookup:       "EXP_LOOKUP",
	ExpDelete:       "EXP_DELETE",
	Quit:            "QUIT",
}

func (c Command) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("Command(%q)", byte(c))
}

func (c Command) Valid() bool {
	_, ok := names[c]
	return ok
}

// Request is one inbound command with whatever followed the command byte.
type Request struct {
	Cmd     Command
	Payload string
}

// ParseRequest splits a received line into command and payload.
func ParseRequest(line string) (Request, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Request{}, fmt.Errorf("%w: empty command", ErrMalformed)
	}
	cmd := Command(line[0])
	if !cmd.Valid() {
		return Request{}, fmt.Errorf("%w: unknown command %q", ErrMalformed, line[0])
	}
	return Request{Cmd: cmd, Payload: line[1:]}, nil
}

func (r Request) String() string {
	return string(rune(r.Cmd)) + r.Payload
}

// SplitLines breaks one read from the channel into messages. A read without
// any newline is taken as a single message.
func SplitLines(data []byte) []string {
	var out []string
	for _, part := range bytes.Split(data, []byte{'\n'}) {
		part = bytes.TrimRight(part, "\r")
		if len(part) == 0 {
			continue
		}
		out = append(out, string(part))
	}
	return out
}

// Line terminates msg for the wire.
func Line(msg string) []byte {
	b := make([]byte, 0, len(msg)+1)
	b = append(b, msg...)
	return append(b, '\n')
}
