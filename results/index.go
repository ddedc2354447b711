package results

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CK6170/Spectro-go/models"
)

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, IndexName)
}

// AppendIndex records a finished experiment and returns the new count. The
// count rewrite and the appended row land together or not at all.
func (s *Store) AppendIndex(entry models.IndexEntry) (int, error) {
	if err := checkID(entry.ExperimentID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, rows, err := s.readIndex()
	if err != nil {
		return 0, err
	}
	rows = append(rows, FormatEntry(entry))
	if err := s.writeIndex(rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// List returns the INDEX count line and its rows.
func (s *Store) List() (int, []models.IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, rows, err := s.readIndex()
	if err != nil {
		return 0, nil, err
	}
	entries := make([]models.IndexEntry, 0, len(rows))
	for _, row := range rows {
		e, err := ParseEntry(row)
		if err != nil {
			return 0, nil, err
		}
		entries = append(entries, e)
	}
	return count, entries, nil
}

// Rows returns the raw INDEX rows as stored.
func (s *Store) Rows() (int, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndex()
}

// Delete removes an experiment's report and its INDEX row.
func (s *Store) Delete(id string) error {
	path, err := s.ReportPath(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, rows, err := s.readIndex()
	if err != nil {
		return err
	}
	kept := rows[:0]
	found := false
	for _, row := range rows {
		if rowID(row) == id {
			found = true
			continue
		}
		kept = append(kept, row)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.writeIndex(kept); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) readIndex() (int, []string, error) {
	content, err := os.ReadFile(s.indexPath())
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("read index: %w", err)
	}
	sc := bufio.NewScanner(bytes.NewReader(content))
	if !sc.Scan() {
		return 0, nil, nil
	}
	count, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil {
		return 0, nil, fmt.Errorf("index header %q: %w", sc.Text(), err)
	}
	var rows []string
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			rows = append(rows, line)
		}
	}
	if err := sc.Err(); err != nil {
		return 0, nil, fmt.Errorf("read index: %w", err)
	}
	if count != len(rows) {
		return 0, nil, fmt.Errorf("index header says %d experiments, found %d rows", count, len(rows))
	}
	return count, rows, nil
}

// writeIndex replaces INDEX through a synced temp file and a rename.
func (s *Store) writeIndex(rows []string) error {
	tmp, err := os.CreateTemp(s.dir, IndexName+".*")
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	fmt.Fprintf(bw, "%d\n", len(rows))
	for _, row := range rows {
		bw.WriteString(row)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.indexPath()); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

func FormatEntry(e models.IndexEntry) string {
	return strings.Join([]string{
		e.ExperimentID,
		clean(e.DoctorName),
		clean(e.PatientName),
		strconv.Itoa(e.NumScans),
		strconv.Itoa(e.TimeBetweenScans),
		strconv.Itoa(e.IntegrationTime),
		strconv.Itoa(e.BoxcarWidth),
		strconv.Itoa(e.AvgPerScan),
	}, ";")
}

func clean(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ';', '\n', '\r':
			return ' '
		}
		return r
	}, s)
}

func rowID(row string) string {
	id, _, _ := strings.Cut(row, ";")
	return id
}

func ParseEntry(row string) (models.IndexEntry, error) {
	f := strings.Split(row, ";")
	if len(f) != 8 {
		return models.IndexEntry{}, fmt.Errorf("index row %q: want 8 fields, got %d", row, len(f))
	}
	nums := make([]int, 5)
	for i := range nums {
		v, err := strconv.Atoi(f[3+i])
		if err != nil {
			return models.IndexEntry{}, fmt.Errorf("index row %q: %w", row, err)
		}
		nums[i] = v
	}
	return models.IndexEntry{
		ExperimentID:     f[0],
		DoctorName:       f[1],
		PatientName:      f[2],
		NumScans:         nums[0],
		TimeBetweenScans: nums[1],
		IntegrationTime:  nums[2],
		BoxcarWidth:      nums[3],
		AvgPerScan:       nums[4],
	}, nil
}
