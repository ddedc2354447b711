// Package experiment drives a timed series of spectrometer scans through a
// small event driven state machine and persists the finished run.
package experiment

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/CK6170/Spectro-go/hardware"
	"github.com/CK6170/Spectro-go/models"
	"github.com/CK6170/Spectro-go/peakfit"
	"github.com/CK6170/Spectro-go/results"
	"github.com/CK6170/Spectro-go/spectrum"
)

var ErrRunning = errors.New("experiment already running")

type Config struct {
	Spectrometer hardware.Spectrometer
	// Indicator is lit while readings are being acquired. Optional.
	Indicator hardware.Switch
	Fitter    peakfit.Fitter
	Store     *results.Store
	Scheduler Scheduler
	Observer  Observer
	Logger    *slog.Logger
	// IntervalUnit scales TimeBetweenScans. Defaults to one second.
	IntervalUnit time.Duration
}

type run struct {
	id          uint64
	timer       uint64 // interval timers armed so far
	settings    models.Settings
	wavelengths spectrum.Wavelengths
	scans       []spectrum.Reading
	report      *os.File
	ctx         context.Context
	cancel      context.CancelFunc
}

type Machine struct {
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	loaded   bool
	settings models.Settings
	state    State
	cur      *run
	nextID   uint64
	lastErr  string
	last     *Result
	pending  []Status
	// request context of the event being dispatched
	req context.Context

	// taken while holding mu and released after the observer ran, so
	// snapshots reach the observer in transition order
	notifyMu sync.Mutex

	// mirrors state for Stop, which must interrupt a blocked acquisition
	// without waiting for mu
	phase  atomic.Int32
	ctlMu  sync.Mutex
	cancel context.CancelFunc

	// last published status, readable while a scan holds mu
	snap atomic.Pointer[Status]
}

func New(cfg Config) *Machine {
	if cfg.Scheduler == nil {
		cfg.Scheduler = TimerScheduler{}
	}
	if cfg.IntervalUnit <= 0 {
		cfg.IntervalUnit = time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Machine{cfg: cfg, log: log.With("component", "experiment")}
}

// Load installs the settings used by the next Start. A running experiment
// keeps the copy it started with.
func (m *Machine) Load(s models.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.settings = s
	m.loaded = true
	m.publishLocked()
	m.mu.Unlock()
	return nil
}

func (m *Machine) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Settings returns the settings the next Start will use.
func (m *Machine) Settings() models.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

func (m *Machine) Start() error { return m.StartContext(context.Background()) }
func (m *Machine) Stop() error  { return m.Handle(Stop) }

// Status returns the last published status without waiting for a scan in
// progress.
func (m *Machine) Status() Status {
	if st := m.snap.Load(); st != nil {
		return *st
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// LastResult returns the summary of the last experiment that finished
// normally, or nil.
func (m *Machine) LastResult() *Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Handle delivers one external event. Events are processed one at a time;
// Stop additionally cancels any acquisition in flight so it is not delayed
// by a slow spectrometer.
func (m *Machine) Handle(ev Event) error {
	return m.handle(context.Background(), ev)
}

// StartContext delivers Start on behalf of a request. Cancelling ctx before
// the first scan is committed aborts the run the way Stop does; a ctx that is
// already done starts nothing.
func (m *Machine) StartContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.handle(ctx, Start)
}

func (m *Machine) handle(req context.Context, ev Event) error {
	switch ev {
	case Self:
		panic("experiment: Self cannot be delivered externally")
	case Stop:
		m.Interrupt()
	}
	m.mu.Lock()
	if !m.loaded && ev != Stop {
		m.mu.Unlock()
		panic("experiment: " + ev.String() + " delivered before Load")
	}
	// withdrawn while waiting for the lock
	if err := req.Err(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.req = req
	err := m.dispatchLocked(ev)
	m.req = nil
	m.unlockAndNotify()
	return err
}

// Interrupt cancels the acquisition or wait of the current run without
// waiting for the machine, so a Stop delivered later takes effect at once. A
// run already writing its results is left alone.
func (m *Machine) Interrupt() {
	if State(m.phase.Load()) == Finalizing {
		return
	}
	m.ctlMu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.ctlMu.Unlock()
}

// fire is interval timer n of run id. Only the timer armed last for the
// current run may deliver Timeout.
func (m *Machine) fire(id, n uint64) {
	m.mu.Lock()
	if m.cur == nil || m.cur.id != id || m.cur.timer != n || m.state != AwaitingInterval {
		m.mu.Unlock()
		return
	}
	err := m.dispatchLocked(Timeout)
	m.unlockAndNotify()
	if err != nil {
		m.log.Warn("scan after interval failed", "error", err)
	}
}

func (m *Machine) dispatchLocked(ev Event) error {
	switch m.state {
	case Idle:
		if ev == Start {
			return m.startLocked()
		}
	case Collecting:
		switch ev {
		case Self:
			return m.collectLocked()
		case Stop:
			m.abortLocked()
		case Start:
			return ErrRunning
		}
	case AwaitingInterval:
		switch ev {
		case Timeout:
			m.enterLocked(Collecting)
			return m.dispatchLocked(Self)
		case Stop:
			m.abortLocked()
		case Start:
			return ErrRunning
		}
	case Finalizing:
		switch ev {
		case Self:
			return m.finalizeLocked()
		case Start:
			return ErrRunning
		}
	}
	return nil
}

func (m *Machine) startLocked() error {
	s := m.settings
	if s.ExperimentID == "" {
		s.ExperimentID = uuid.NewString()
	}
	if err := m.cfg.Spectrometer.SetIntegrationTime(s.IntegrationTime); err != nil {
		return fmt.Errorf("set integration time: %w", err)
	}
	wl, err := m.cfg.Spectrometer.Wavelengths()
	if err != nil {
		return fmt.Errorf("wavelength table: %w", err)
	}
	report, err := m.cfg.Store.CreateReport(s.ExperimentID)
	if err != nil {
		return err
	}

	m.nextID++
	ctx, cancel := context.WithCancel(context.Background())
	m.cur = &run{
		id:          m.nextID,
		settings:    s,
		wavelengths: wl,
		scans:       make([]spectrum.Reading, 0, s.NumScans),
		report:      report,
		ctx:         ctx,
		cancel:      cancel,
	}
	m.ctlMu.Lock()
	m.cancel = cancel
	m.ctlMu.Unlock()
	m.lastErr = ""
	if m.req != nil {
		stop := context.AfterFunc(m.req, cancel)
		defer stop()
	}

	m.log.Info("experiment started", "id", s.ExperimentID, "scans", s.NumScans,
		"interval", s.TimeBetweenScans, "avg", s.AvgPerScan)
	m.enterLocked(Collecting)
	err = m.dispatchLocked(Self)
	// withdrawn after the first read returned
	if m.req != nil && m.req.Err() != nil && m.state == AwaitingInterval && m.cur.id == m.nextID {
		m.abortLocked()
	}
	return err
}

func (m *Machine) collectLocked() error {
	r := m.cur
	m.indicator(true)
	readings := make([]spectrum.Reading, 0, r.settings.AvgPerScan)
	for i := 0; i < r.settings.AvgPerScan; i++ {
		raw, err := m.cfg.Spectrometer.Read(r.ctx)
		if err == nil && len(raw) != len(r.wavelengths) {
			err = fmt.Errorf("reading has %d pixels, wavelength table has %d", len(raw), len(r.wavelengths))
		}
		if err != nil {
			m.indicator(false)
			if r.ctx.Err() != nil {
				m.abortLocked()
				return nil
			}
			err = fmt.Errorf("scan %d: %w", len(r.scans)+1, err)
			m.failLocked(err)
			return err
		}
		readings = append(readings, spectrum.Boxcar(r.settings.BoxcarWidth, raw))
	}
	m.indicator(false)
	r.scans = append(r.scans, spectrum.Accumulate(readings))
	m.log.Debug("scan collected", "id", r.settings.ExperimentID, "scan", len(r.scans))

	if len(r.scans) < r.settings.NumScans {
		m.enterLocked(AwaitingInterval)
		r.timer++
		id, n := r.id, r.timer
		d := time.Duration(r.settings.TimeBetweenScans) * m.cfg.IntervalUnit
		m.cfg.Scheduler.Schedule(r.ctx, d, func() { m.fire(id, n) })
		return nil
	}
	m.enterLocked(Finalizing)
	return m.dispatchLocked(Self)
}

func (m *Machine) finalizeLocked() error {
	r := m.cur
	// a Stop arriving now must not tear the report apart
	ctx := context.WithoutCancel(r.ctx)

	peaks := make([]float64, len(r.scans))
	for i, scan := range r.scans {
		low, high, _ := spectrum.SelectWindow(r.wavelengths, scan)
		p, err := m.cfg.Fitter.Fit(ctx, spectrum.Restrict(r.wavelengths, scan, low, high))
		if err != nil {
			err = fmt.Errorf("peak fit of scan %d: %w", i+1, err)
			m.failLocked(err)
			return err
		}
		peaks[i] = p
	}

	bw := bufio.NewWriter(r.report)
	err := results.WriteReport(bw, r.scans, peaks)
	if err == nil {
		err = bw.Flush()
	}
	if err == nil {
		err = r.report.Sync()
	}
	if cerr := r.report.Close(); err == nil {
		err = cerr
	}
	r.report = nil
	if err != nil {
		err = fmt.Errorf("write report: %w", err)
		m.failLocked(err)
		return err
	}
	n, err := m.cfg.Store.AppendIndex(r.settings.IndexEntry())
	if err != nil {
		err = fmt.Errorf("update index: %w", err)
		m.failLocked(err)
		return err
	}

	m.last = &Result{ExperimentID: r.settings.ExperimentID, Scans: len(r.scans), Peaks: peaks}
	m.log.Info("experiment finished", "id", r.settings.ExperimentID, "peaks", peaks, "indexed", n)
	m.releaseLocked(false)
	m.enterLocked(Idle)
	return nil
}

func (m *Machine) abortLocked() {
	m.log.Info("experiment stopped", "id", m.cur.settings.ExperimentID, "scans", len(m.cur.scans))
	m.releaseLocked(true)
	m.enterLocked(Idle)
}

func (m *Machine) failLocked(err error) {
	m.log.Error("experiment failed", "id", m.cur.settings.ExperimentID, "error", err)
	m.lastErr = err.Error()
	m.releaseLocked(true)
	m.enterLocked(Idle)
}

// releaseLocked ends the current run, dropping its report when discard is set.
func (m *Machine) releaseLocked(discard bool) {
	r := m.cur
	r.cancel()
	if r.report != nil {
		r.report.Close()
		r.report = nil
	}
	if discard {
		if err := m.cfg.Store.DiscardReport(r.settings.ExperimentID); err != nil {
			m.log.Warn("discard report", "id", r.settings.ExperimentID, "error", err)
		}
	}
	m.ctlMu.Lock()
	m.cancel = nil
	m.ctlMu.Unlock()
	m.cur = nil
}

func (m *Machine) enterLocked(s State) {
	m.state = s
	st := m.publishLocked()
	m.phase.Store(int32(s))
	m.pending = append(m.pending, st)
}

func (m *Machine) publishLocked() Status {
	st := m.statusLocked()
	m.snap.Store(&st)
	return st
}

func (m *Machine) statusLocked() Status {
	st := Status{
		State:     m.state,
		Running:   m.state != Idle,
		Settings:  m.settings,
		LastError: m.lastErr,
		Last:      m.last,
	}
	if m.cur != nil {
		st.Settings = m.cur.settings
		st.ReadingsTaken = len(m.cur.scans)
	}
	st.Message = describe(st)
	return st
}

func (m *Machine) unlockAndNotify() {
	pending := m.pending
	m.pending = nil
	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()
	if m.cfg.Observer == nil {
		return
	}
	for _, st := range pending {
		m.cfg.Observer(st)
	}
}

func (m *Machine) indicator(on bool) {
	if m.cfg.Indicator == nil {
		return
	}
	var err error
	if on {
		err = m.cfg.Indicator.On()
	} else {
		err = m.cfg.Indicator.Off()
	}
	if err != nil {
		m.log.Warn("indicator", "on", on, "error", err)
	}
}
