package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func TestMonitorAPI(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var health HealthResponse
	if code := getJSON(t, ts.URL+"/api/health", &health); code != 200 || !health.OK || health.Session {
		t.Fatalf("got %d %+v", code, health)
	}

	var status StatusResponse
	if code := getJSON(t, ts.URL+"/api/status", &status); code != 200 || status.State != "Idle" || status.Settings.NumScans != 5 {
		t.Fatalf("got %d %+v", code, status)
	}

	var list ExperimentsResponse
	if code := getJSON(t, ts.URL+"/api/experiments", &list); code != 200 || list.Count != 0 || list.Experiments == nil {
		t.Fatalf("got %d %+v", code, list)
	}

	var apiErr APIError
	if code := getJSON(t, ts.URL+"/api/experiments/report?id=nope", &apiErr); code != 404 {
		t.Fatalf("got %d", code)
	}
	if code := getJSON(t, ts.URL+"/api/experiments/report?id=..", &apiErr); code != 400 {
		t.Fatalf("got %d", code)
	}
}

func TestMonitorReport(t *testing.T) {
	srv, _ := newTestServer(t)
	if err := srv.Machine().Load(testSettings("mon-1")); err != nil {
		t.Fatal(err)
	}
	if err := srv.Machine().Start(); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var list ExperimentsResponse
	getJSON(t, ts.URL+"/api/experiments", &list)
	if list.Count != 1 || list.Experiments[0].ExperimentID != "mon-1" {
		t.Fatalf("got %+v", list)
	}
	resp, err := http.Get(ts.URL + "/api/experiments/report?id=mon-1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 || resp.Header.Get("Content-Type") != "text/csv" {
		t.Fatalf("got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	var status StatusResponse
	getJSON(t, ts.URL+"/api/status", &status)
	if status.LastExperiment != "mon-1" || len(status.LastPeaks) != 1 {
		t.Fatalf("got %+v", status)
	}
}

func TestTelemetrySocket(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/telemetry", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	var msg struct {
		Type string         `json:"type"`
		Data StatusResponse `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != string(TelemetryStatus) || msg.Data.State != "Idle" {
		t.Fatalf("got %+v", msg)
	}

	srv.Machine().Load(testSettings("ws-1"))
	if err := srv.Machine().Start(); err != nil {
		t.Fatal(err)
	}
	states := []string{}
	for len(states) < 3 {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatal(err)
		}
		states = append(states, msg.Data.State)
	}
	if strings.Join(states, ",") != "Collecting,Finalizing,Idle" {
		t.Fatalf("got %v", states)
	}
}

func TestTelemetryPressureAndDetach(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/telemetry", nil)
	if err != nil {
		t.Fatal(err)
	}
	var msg struct {
		Type TelemetryKind   `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != TelemetryStatus {
		t.Fatalf("got %v %+v", err, msg)
	}
	if n := srv.hub.Len(); n != 1 {
		t.Fatalf("got %d monitors", n)
	}

	srv.hub.Publish(TelemetryPressure, 777)
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != TelemetryPressure || string(msg.Data) != "777" {
		t.Fatalf("got %s %s", msg.Type, msg.Data)
	}

	conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for srv.hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("closed monitor never dropped")
		}
		srv.hub.Publish(TelemetryPressure, 777)
		time.Sleep(5 * time.Millisecond)
	}
}
