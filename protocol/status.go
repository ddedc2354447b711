package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CK6170/Spectro-go/models"
)

type StatusLine struct {
	Running  bool
	Settings models.Settings
	Message  string
}

// FormatStatus renders
//
//	l;running;doctor;patient;numScans;timeBetween;integrationTime;boxcarWidth;avgPerScan;message
func FormatStatus(st StatusLine) string {
	running := 0
	if st.Running {
		running = 1
	}
	s := st.Settings
	return fmt.Sprintf("%c;%d;%s;%s;%d;%d;%d;%d;%d;%s", byte(ExpStatus), running,
		clean(s.DoctorName), clean(s.PatientName),
		s.NumScans, s.TimeBetweenScans, s.IntegrationTime, s.BoxcarWidth, s.AvgPerScan,
		strings.NewReplacer("\n", " ", "\r", " ").Replace(st.Message))
}

func ParseStatus(msg string) (StatusLine, error) {
	var st StatusLine
	if !strings.HasPrefix(msg, string(rune(ExpStatus))+";") {
		return st, fmt.Errorf("%w: not a status line", ErrMalformed)
	}
	f := strings.SplitN(msg[2:], ";", 9)
	if len(f) != 9 {
		return st, fmt.Errorf("%w: status has %d fields", ErrMalformed, len(f))
	}
	switch f[0] {
	case "1":
		st.Running = true
	case "0":
	default:
		return st, fmt.Errorf("%w: running flag %q", ErrMalformed, f[0])
	}
	st.Settings.DoctorName = f[1]
	st.Settings.PatientName = f[2]
	dst := []*int{
		&st.Settings.NumScans, &st.Settings.TimeBetweenScans, &st.Settings.IntegrationTime,
		&st.Settings.BoxcarWidth, &st.Settings.AvgPerScan,
	}
	for i, p := range dst {
		v, err := strconv.Atoi(f[3+i])
		if err != nil {
			return StatusLine{}, fmt.Errorf("%w: status field %q", ErrMalformed, f[3+i])
		}
		*p = v
	}
	st.Message = f[8]
	return st, nil
}

func FormatPressure(v int) string { return fmt.Sprintf("%c%d", byte(RequestPressure), v) }

func ParsePressure(msg string) (int, error) {
	if len(msg) < 2 || Command(msg[0]) != RequestPressure {
		return 0, fmt.Errorf("%w: not a pressure reading", ErrMalformed)
	}
	v, err := strconv.Atoi(msg[1:])
	if err != nil {
		return 0, fmt.Errorf("%w: pressure %q", ErrMalformed, msg[1:])
	}
	return v, nil
}

// Replies to the experiment queries.

func ListCount(n int) string     { return fmt.Sprintf("%c%d", byte(ExpList), n) }
func ListRow(row string) string  { return string(rune(ExpList)) + row }
func LookupLine(l string) string { return string(rune(ExpLookup)) + l }
func LookupEnd() string          { return string(rune(ExpLookup)) }
func DeleteOK() string           { return string(rune(ExpDelete)) + "1" }

func DeleteFailed(err error) string {
	return string(rune(ExpDelete)) + "0;" + clean(err.Error())
}

var acks = map[Command]string{
	MotorOn:  "Turning on motor...",
	MotorOff: "Turning off motor...",
	LEDOn:    "Turning on LED...",
	LEDOff:   "Turning off LED...",
}

// Ack is the text line confirming an actuator command.
func Ack(cmd Command) string {
	if a, ok := acks[cmd]; ok {
		return a
	}
	return "OK " + cmd.String()
}

// ErrorPrefix starts every error text line.
const ErrorPrefix = "!"

func ErrorLine(err error) string { return ErrorPrefix + clean(err.Error()) }
