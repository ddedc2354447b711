package models

import (
	"errors"
	"fmt"
)

const MaxBoxcarWidth = 16

var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the parameter bundle of one experiment. A running experiment
// keeps its own copy, so replacing the session settings never affects it.
type Settings struct {
	NumScans         int    `json:"NUM_SCANS"`
	TimeBetweenScans int    `json:"TIME_BETWEEN_SCANS"`
	IntegrationTime  int    `json:"INTEGRATION_TIME"`
	BoxcarWidth      int    `json:"BOXCAR_WIDTH"`
	AvgPerScan       int    `json:"AVG_PER_SCAN"`
	DoctorName       string `json:"DOCTOR"`
	PatientName      string `json:"PATIENT"`
	ExperimentID     string `json:"EXPERIMENT_ID"`
}

// DefaultSettings are the power-on values: 5 scans, 60 s apart, 1000 ms
// integration, no smoothing, 3 readings per scan.
func DefaultSettings() Settings {
	return Settings{
		NumScans:         5,
		TimeBetweenScans: 60,
		IntegrationTime:  1000,
		BoxcarWidth:      0,
		AvgPerScan:       3,
	}
}

func (s Settings) Validate() error {
	switch {
	case s.NumScans < 1:
		return fmt.Errorf("%w: numScans must be >= 1, got %d", ErrInvalidSettings, s.NumScans)
	case s.TimeBetweenScans < 0:
		return fmt.Errorf("%w: timeBetweenScans must be >= 0, got %d", ErrInvalidSettings, s.TimeBetweenScans)
	case s.IntegrationTime <= 0:
		return fmt.Errorf("%w: integrationTime must be > 0, got %d", ErrInvalidSettings, s.IntegrationTime)
	case s.BoxcarWidth < 0 || s.BoxcarWidth > MaxBoxcarWidth:
		return fmt.Errorf("%w: boxcarWidth must be 0..%d, got %d", ErrInvalidSettings, MaxBoxcarWidth, s.BoxcarWidth)
	case s.AvgPerScan < 1:
		return fmt.Errorf("%w: avgPerScan must be >= 1, got %d", ErrInvalidSettings, s.AvgPerScan)
	}
	return nil
}

// IndexEntry is one row of the experiment INDEX.
type IndexEntry struct {
	ExperimentID     string `json:"experimentId"`
	DoctorName       string `json:"doctor"`
	PatientName      string `json:"patient"`
	NumScans         int    `json:"numScans"`
	TimeBetweenScans int    `json:"timeBetweenScans"`
	IntegrationTime  int    `json:"integrationTime"`
	BoxcarWidth      int    `json:"boxcarWidth"`
	AvgPerScan       int    `json:"avgPerScan"`
}

func (s Settings) IndexEntry() IndexEntry {
	return IndexEntry{
		ExperimentID:     s.ExperimentID,
		DoctorName:       s.DoctorName,
		PatientName:      s.PatientName,
		NumScans:         s.NumScans,
		TimeBetweenScans: s.TimeBetweenScans,
		IntegrationTime:  s.IntegrationTime,
		BoxcarWidth:      s.BoxcarWidth,
		AvgPerScan:       s.AvgPerScan,
	}
}
