package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/CK6170/Spectro-go/models"
)

var ErrMalformed = errors.New("malformed message")

const settingsFields = 8

// ParseSettings decodes a SETTINGS payload
//
//	numScans;timeBetween;integrationTime;boxcarWidth;avgPerScan;doctor;patient;timestamp[;start]
//
// Nothing is returned unless every field parses and the result validates, so
// a bad payload never half-applies. An empty timestamp gets a random id.
// start reports whether a trailing token asked for the experiment to begin.
func ParseSettings(payload string) (s models.Settings, start bool, err error) {
	fields := strings.Split(strings.TrimRight(payload, "\r\n"), ";")
	if len(fields) < settingsFields {
		return s, false, fmt.Errorf("%w: settings need %d fields, got %d", ErrMalformed, settingsFields, len(fields))
	}
	if len(fields) > settingsFields+1 {
		return s, false, fmt.Errorf("%w: settings have %d fields", ErrMalformed, len(fields))
	}

	ints := make([]int, 5)
	names := [...]string{"numScans", "timeBetweenScans", "integrationTime", "boxcarWidth", "avgPerScan"}
	for i := range ints {
		v, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return models.Settings{}, false, fmt.Errorf("%w: %s %q", ErrMalformed, names[i], fields[i])
		}
		ints[i] = v
	}
	s = models.Settings{
		NumScans:         ints[0],
		TimeBetweenScans: ints[1],
		IntegrationTime:  ints[2],
		BoxcarWidth:      ints[3],
		AvgPerScan:       ints[4],
		DoctorName:       fields[5],
		PatientName:      fields[6],
		ExperimentID:     strings.TrimSpace(fields[7]),
	}
	if s.ExperimentID == "" {
		s.ExperimentID = uuid.NewString()
	}
	if err := s.Validate(); err != nil {
		return models.Settings{}, false, err
	}
	if len(fields) == settingsFields+1 {
		start = strings.TrimSpace(fields[8]) != ""
	}
	return s, start, nil
}

// FormatSettings is the inverse of ParseSettings, without the command byte.
func FormatSettings(s models.Settings, start bool) string {
	p := fmt.Sprintf("%d;%d;%d;%d;%d;%s;%s;%s",
		s.NumScans, s.TimeBetweenScans, s.IntegrationTime, s.BoxcarWidth, s.AvgPerScan,
		clean(s.DoctorName), clean(s.PatientName), clean(s.ExperimentID))
	if start {
		p += ";1"
	}
	return p
}

func clean(s string) string {
	return strings.NewReplacer(";", " ", "\n", " ", "\r", " ").Replace(s)
}
