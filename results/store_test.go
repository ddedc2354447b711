package results

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CK6170/Spectro-go/models"
	"github.com/CK6170/Spectro-go/spectrum"
)

func testEntry(id string) models.IndexEntry {
	s := models.DefaultSettings()
	s.ExperimentID = id
	s.DoctorName = "Dr Who"
	s.PatientName = "Amy"
	return s.IndexEntry()
}

func TestWriteReport(t *testing.T) {
	scans := make([]spectrum.Reading, 3)
	for i := range scans {
		scans[i] = make(spectrum.Reading, 1024)
		for j := range scans[i] {
			scans[i][j] = float64(i*10 + j)
		}
	}
	peaks := []float64{550.25, 551, 552.5}

	buf := new(bytes.Buffer)
	if err := WriteReport(buf, scans, peaks); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1+1024 {
		t.Fatalf("got %d records", len(records))
	}
	if got := strings.Join(records[0], ","); got != "Reading 1,Reading 2,Reading 3,Result" {
		t.Fatalf("got %q", got)
	}
	for _, rec := range records[1:] {
		if len(rec) != 4 {
			t.Fatalf("got %v", rec)
		}
	}
	if got := strings.Join(records[1], ","); got != "0.00,10.00,20.00,550.25" {
		t.Fatalf("got %q", got)
	}
	if records[3][3] != "552.50" {
		t.Fatalf("got %q", records[3][3])
	}
	if records[4][3] != "" {
		t.Fatalf("got %q", records[4][3])
	}
}

func TestWriteReportMismatch(t *testing.T) {
	err := WriteReport(new(bytes.Buffer), []spectrum.Reading{{1}}, nil)
	if err == nil {
		t.Fatal("should error")
	}
}

func TestIndexIntegrity(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "experiment_results"))
	if err != nil {
		t.Fatal(err)
	}
	const n = 5
	for i := 0; i < n; i++ {
		count, err := store.AppendIndex(testEntry(fmt.Sprintf("exp-%d", i)))
		if err != nil {
			t.Fatal(err)
		}
		if count != i+1 {
			t.Fatalf("got %d", count)
		}
	}

	content, err := os.ReadFile(filepath.Join(store.Dir(), IndexName))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if lines[0] != "5" {
		t.Fatalf("got header %q", lines[0])
	}
	if len(lines)-1 != n {
		t.Fatalf("got %d rows", len(lines)-1)
	}
	if lines[1] != "exp-0;Dr Who;Amy;5;60;1000;0;3" {
		t.Fatalf("got %q", lines[1])
	}

	count, entries, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if count != n || len(entries) != n || entries[4].ExperimentID != "exp-4" {
		t.Fatalf("got %d %+v", count, entries)
	}
}

func TestIndexDelete(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b", "c"} {
		f, err := store.CreateReport(id)
		if err != nil {
			t.Fatal(err)
		}
		f.Close()
		if _, err := store.AppendIndex(testEntry(id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Delete("b"); err != nil {
		t.Fatal(err)
	}
	count, entries, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 || entries[0].ExperimentID != "a" || entries[1].ExperimentID != "c" {
		t.Fatalf("got %d %+v", count, entries)
	}
	if _, err := store.Report("b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v", err)
	}
	if err := store.Delete("b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestReportIDReuse(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f, err := store.CreateReport("t1")
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("finished\n")
	f.Close()
	if _, err := store.CreateReport("t1"); !errors.Is(err, ErrExists) {
		t.Fatalf("got %v", err)
	}
	if b, _ := store.Report("t1"); string(b) != "finished\n" {
		t.Fatalf("report overwritten: %q", b)
	}

	// an INDEX row alone also claims the id
	if _, err := store.AppendIndex(testEntry("t2")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateReport("t2"); !errors.Is(err, ErrExists) {
		t.Fatalf("got %v", err)
	}

	if err := store.DiscardReport("t1"); err != nil {
		t.Fatal(err)
	}
	f, err = store.CreateReport("t1")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
}

func TestBadIDs(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"", "..", "a/b", IndexName, "x;y"} {
		if _, err := store.CreateReport(id); !errors.Is(err, ErrBadID) {
			t.Fatalf("%q: got %v", id, err)
		}
	}
}

func TestEntryRoundTrip(t *testing.T) {
	e := testEntry("2018-10-01T12:00:00")
	e.DoctorName = "semi;colon"
	got, err := ParseEntry(FormatEntry(e))
	if err != nil {
		t.Fatal(err)
	}
	if got.DoctorName != "semi colon" || got.AvgPerScan != 3 || got.ExperimentID != e.ExperimentID {
		t.Fatalf("got %+v", got)
	}
}
