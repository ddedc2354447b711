package server

import (
	"time"

	"github.com/CK6170/Spectro-go/models"
)

type APIError struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	OK        bool      `json:"ok"`
	Timestamp time.Time `json:"timestamp"`
	Session   bool      `json:"session"`
	Monitors  int       `json:"monitors"`
}

type StatusResponse struct {
	State          string          `json:"state"`
	Running        bool            `json:"running"`
	ReadingsTaken  int             `json:"readingsTaken"`
	Settings       models.Settings `json:"settings"`
	Message        string          `json:"message"`
	LastError      string          `json:"lastError,omitempty"`
	LastExperiment string          `json:"lastExperiment,omitempty"`
	LastPeaks      []float64       `json:"lastPeaks,omitempty"`
}

type ExperimentsResponse struct {
	Count       int                 `json:"count"`
	Experiments []models.IndexEntry `json:"experiments"`
}

type FrameMessage struct {
	Kind   string    `json:"kind"`
	Values []float64 `json:"values"`
}
