// Package results persists finished experiments: one report file per
// experiment and a shared INDEX whose first line counts the experiments.
package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/CK6170/Spectro-go/spectrum"
)

const IndexName = "INDEX"

var (
	ErrBadID    = errors.New("invalid experiment id")
	ErrNotFound = errors.New("experiment not found")
	ErrExists   = errors.New("experiment id already used")
)

type Store struct {
	dir string

	// serializes INDEX read-increment-rewrite transactions
	mu sync.Mutex
}

// Open uses dir as the results directory, creating it when missing.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("results dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) ReportPath(id string) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id), nil
}

func checkID(id string) error {
	if id == "" || id == "." || id == ".." || id == IndexName ||
		strings.ContainsAny(id, "/\\;\n\r\x00") {
		return fmt.Errorf("%w: %q", ErrBadID, id)
	}
	return nil
}

// CreateReport creates the report file of a new experiment. An id that
// already has a report or an INDEX row is refused with ErrExists.
func (s *Store) CreateReport(id string) (*os.File, error) {
	path, err := s.ReportPath(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rows, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if rowID(row) == id {
			return nil, fmt.Errorf("%w: %s", ErrExists, id)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: %s", ErrExists, id)
	}
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return f, nil
}

// DiscardReport removes a report that will not be completed.
func (s *Store) DiscardReport(id string) error {
	path, err := s.ReportPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Report returns the raw contents of a finished report.
func (s *Store) Report(id string) ([]byte, error) {
	path, err := s.ReportPath(id)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return b, err
}

// WriteReport writes the measurement table: a header, then one row per
// wavelength index holding every scan's intensity at that index. The last
// column carries the peak wavelength of scan r on row r and is empty on rows
// past the last scan.
func WriteReport(w io.Writer, scans []spectrum.Reading, peaks []float64) error {
	if len(scans) != len(peaks) {
		return fmt.Errorf("report: %d scans but %d peaks", len(scans), len(peaks))
	}
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(scans)+1)
	for i := range scans {
		header = append(header, "Reading "+strconv.Itoa(i+1))
	}
	header = append(header, "Result")
	if err := cw.Write(header); err != nil {
		return err
	}

	rows := 0
	for _, s := range scans {
		rows = max(rows, len(s))
	}
	row := make([]string, len(scans)+1)
	for r := 0; r < rows; r++ {
		for i, s := range scans {
			row[i] = ""
			if r < len(s) {
				row[i] = strconv.FormatFloat(s[r], 'f', 2, 64)
			}
		}
		row[len(scans)] = ""
		if r < len(peaks) {
			row[len(scans)] = strconv.FormatFloat(peaks[r], 'f', 2, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
