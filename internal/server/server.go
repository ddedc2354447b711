// Package server runs the instrument side of the command channel: it accepts
// one client at a time, dispatches its commands, streams telemetry and owns
// the experiment state machine, which outlives any single connection. A
// read-only HTTP monitor mirrors status and telemetry.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/CK6170/Spectro-go/experiment"
	"github.com/CK6170/Spectro-go/hardware"
	"github.com/CK6170/Spectro-go/models"
	"github.com/CK6170/Spectro-go/peakfit"
	"github.com/CK6170/Spectro-go/results"
)

const (
	DefaultPressureInterval = time.Duration(models.DefaultPressureMS) * time.Millisecond
	// both streams, snapshots and the experiment worker
	sessionTaskLimit = 8
)

type Config struct {
	Rig      *hardware.Rig
	Fitter   peakfit.Fitter
	Store    *results.Store
	Defaults models.Settings
	Logger   *slog.Logger

	PressureInterval time.Duration
	// Scheduler and IntervalUnit are handed to the experiment machine.
	Scheduler    experiment.Scheduler
	IntervalUnit time.Duration
}

type Server struct {
	mux *http.ServeMux
	hub *WSHub
	log *slog.Logger

	rig      *hardware.Rig
	store    *results.Store
	machine  *experiment.Machine
	pressure time.Duration

	mu  sync.Mutex
	cur *Session
}

func New(cfg Config) (*Server, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		mux:      http.NewServeMux(),
		hub:      NewWSHub(),
		log:      log.With("component", "server"),
		rig:      cfg.Rig,
		store:    cfg.Store,
		pressure: cfg.PressureInterval,
	}
	if s.pressure <= 0 {
		s.pressure = DefaultPressureInterval
	}
	s.machine = experiment.New(experiment.Config{
		Spectrometer: cfg.Rig.Spectrometer,
		Indicator:    cfg.Rig.LED,
		Fitter:       cfg.Fitter,
		Store:        cfg.Store,
		Scheduler:    cfg.Scheduler,
		IntervalUnit: cfg.IntervalUnit,
		Observer:     s.notify,
		Logger:       log,
	})
	if err := s.machine.Load(cfg.Defaults); err != nil {
		return nil, err
	}

	// Monitor API
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/experiments", s.handleExperiments)
	s.mux.HandleFunc("/api/experiments/report", s.handleReport)

	// WS
	s.mux.HandleFunc("/ws/telemetry", s.handleWSTelemetry)

	return s, nil
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Machine() *experiment.Machine { return s.machine }

// Serve accepts channels from l until ctx ends, running one session at a
// time. An experiment keeps running between sessions.
func (s *Server) Serve(ctx context.Context, l Listener) error {
	s.log.Info("accepting command channels", "addr", l.Addr())
	for {
		conn, err := l.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Error("accept", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if err := s.ServeConn(ctx, conn); err != nil {
			s.log.Warn("session ended", "error", err)
		}
	}
}

// ServeConn runs a session on conn and closes it.
func (s *Server) ServeConn(ctx context.Context, conn io.ReadWriteCloser) error {
	sess := newSession(ctx, s, conn)
	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.cur == sess {
			s.cur = nil
		}
		s.mu.Unlock()
	}()

	s.log.Info("session started")
	err := sess.Run()
	if errors.Is(err, io.EOF) {
		err = nil
	}
	s.log.Info("session closed")
	return err
}

func (s *Server) session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// notify is the experiment observer.
func (s *Server) notify(st experiment.Status) {
	s.log.Debug("experiment status", "state", st.State, "readings", st.ReadingsTaken)
	if sess := s.session(); sess != nil {
		sess.pushStatus(st)
	}
	s.hub.Publish(TelemetryStatus, s.statusResponse(st))
}
