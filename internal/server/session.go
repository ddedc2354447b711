package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/CK6170/Spectro-go/experiment"
	"github.com/CK6170/Spectro-go/hardware"
	"github.com/CK6170/Spectro-go/protocol"
	"github.com/CK6170/Spectro-go/spectrum"
)

var errQuit = errors.New("client quit")

// Session is one connected client.
type Session struct {
	srv  *Server
	conn io.ReadWriteCloser
	log  *slog.Logger

	// one message per write, never interleaved
	wmu    sync.Mutex
	closed bool

	ctx     context.Context
	cancel  context.CancelFunc
	tasks   *Tasks
	streams *Streams
	exp     *expQueue
}

func newSession(ctx context.Context, srv *Server, conn io.ReadWriteCloser) *Session {
	s := &Session{
		srv:   srv,
		conn:  conn,
		log:   srv.log.With("component", "session"),
		tasks: NewTasks(sessionTaskLimit, srv.log),
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.streams = NewStreams(s.ctx, s.tasks, s.streamLoop)
	s.exp = newExpQueue(s)
	return s
}

// Run reads commands until the client quits, the channel fails or the
// session context ends. Every background task of the session has returned
// when Run does.
func (s *Session) Run() error {
	ctx := s.ctx
	stop := context.AfterFunc(ctx, s.close)
	defer func() {
		stop()
		s.cancel()
		s.streams.StopAll()
		s.close()
		_ = s.tasks.Wait()
	}()

	if err := s.tasks.Go("experiment commands", s.exp.run); err != nil {
		return err
	}

	buf := make([]byte, 4096)
	for {
		n, err := s.conn.Read(buf)
		for _, line := range protocol.SplitLines(buf[:n]) {
			if derr := s.dispatch(ctx, line); derr != nil {
				if errors.Is(derr, errQuit) || ctx.Err() != nil {
					return nil
				}
				return derr
			}
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (s *Session) close() {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if !s.closed {
		s.closed = true
		_ = s.conn.Close()
	}
}

// send writes one message. A failed write ends the session.
func (s *Session) send(msg string) error {
	s.wmu.Lock()
	if s.closed {
		s.wmu.Unlock()
		return os.ErrClosed
	}
	_, err := s.conn.Write(protocol.Line(msg))
	s.wmu.Unlock()
	if err != nil {
		s.log.Warn("write failed, closing session", "error", err)
		s.cancel()
		s.close()
	}
	return err
}

func (s *Session) sendError(err error) error {
	return s.send(protocol.ErrorLine(err))
}

func (s *Session) dispatch(ctx context.Context, line string) error {
	req, err := protocol.ParseRequest(line)
	if err != nil {
		s.log.Warn("bad command", "line", line, "error", err)
		return s.sendError(err)
	}
	s.log.Debug("command", "cmd", req.Cmd, "payload", req.Payload)

	rig := s.srv.rig
	switch req.Cmd {
	case protocol.MotorOn:
		return s.actuate(req.Cmd, rig.MotorOn)
	case protocol.MotorOff:
		return s.actuate(req.Cmd, rig.MotorOff)
	case protocol.LEDOn:
		return s.actuate(req.Cmd, rig.LEDOn)
	case protocol.LEDOff:
		return s.actuate(req.Cmd, rig.LEDOff)
	case protocol.RequestPressure:
		_, err := s.streams.Toggle(PressureStream)
		return s.reportErr(err)
	case protocol.Snapshot:
		return s.reportErr(s.tasks.Go("snapshot", func() error {
			return s.sendFrame(ctx, protocol.Snapshot)
		}))
	case protocol.StartStream:
		return s.reportErr(s.streams.Start(SpectrumStream))
	case protocol.StopStream:
		s.streams.Stop(SpectrumStream)
	case protocol.Settings:
		return s.applySettings(req.Payload)
	case protocol.ExpStart:
		return s.reportErr(s.exp.start())
	case protocol.ExpStop:
		return s.reportErr(s.exp.stop())
	case protocol.ExpStatus:
		return s.pushStatus(s.srv.machine.Status())
	case protocol.ExpList:
		return s.listExperiments()
	case protocol.ExpLookup:
		return s.lookupExperiment(req.Payload)
	case protocol.ExpDelete:
		return s.deleteExperiment(req.Payload)
	case protocol.Quit:
		return errQuit
	}
	return nil
}

// reportErr turns a failed command into an error line; only a failed write
// ends the session.
func (s *Session) reportErr(err error) error {
	if err == nil {
		return nil
	}
	return s.sendError(err)
}

func (s *Session) actuate(cmd protocol.Command, fn func() error) error {
	if err := fn(); err != nil {
		return s.sendError(err)
	}
	return s.send(protocol.Ack(cmd))
}

func (s *Session) applySettings(payload string) error {
	settings, start, err := protocol.ParseSettings(payload)
	if err != nil {
		s.log.Warn("settings rejected", "error", err)
		return s.sendError(err)
	}
	m := s.srv.machine
	if err := m.Load(settings); err != nil {
		return s.sendError(err)
	}
	if !m.Status().Running {
		if err := s.srv.rig.Spectrometer.SetIntegrationTime(settings.IntegrationTime); err != nil {
			s.log.Warn("integration time", "error", err)
		}
	}
	s.log.Info("settings loaded", "id", settings.ExperimentID, "scans", settings.NumScans)
	if start {
		return s.reportErr(s.exp.start())
	}
	return s.pushStatus(m.Status())
}

func (s *Session) pushStatus(st experiment.Status) error {
	return s.send(protocol.FormatStatus(protocol.StatusLine{
		Running:  st.Running,
		Settings: st.Settings,
		Message:  st.Message,
	}))
}

func (s *Session) listExperiments() error {
	count, rows, err := s.srv.store.Rows()
	if err != nil {
		return s.sendError(err)
	}
	if err := s.send(protocol.ListCount(count)); err != nil {
		return err
	}
	for _, row := range rows {
		if err := s.send(protocol.ListRow(row)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) lookupExperiment(id string) error {
	raw, err := s.srv.store.Report(id)
	if err != nil {
		if err := s.sendError(err); err != nil {
			return err
		}
		return s.send(protocol.LookupEnd())
	}
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		if err := s.send(protocol.LookupLine(sc.Text())); err != nil {
			return err
		}
	}
	return s.send(protocol.LookupEnd())
}

func (s *Session) deleteExperiment(id string) error {
	if st := s.srv.machine.Status(); st.Running && st.Settings.ExperimentID == id {
		return s.send(protocol.DeleteFailed(experiment.ErrRunning))
	}
	if err := s.srv.store.Delete(id); err != nil {
		return s.send(protocol.DeleteFailed(err))
	}
	s.log.Info("experiment deleted", "id", id)
	return s.send(protocol.DeleteOK())
}

func (s *Session) streamLoop(ctx context.Context, kind StreamKind) error {
	switch kind {
	case PressureStream:
		return s.pressureLoop(ctx)
	case SpectrumStream:
		for ctx.Err() == nil {
			if err := s.sendFrame(ctx, protocol.StartStream); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
	return nil
}

func (s *Session) pressureLoop(ctx context.Context) error {
	sensor := s.srv.rig.Pressure
	if sensor == nil {
		s.sendError(fmt.Errorf("pressure: %w", hardware.ErrNotInitialized))
		return hardware.ErrNotInitialized
	}
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		v, err := sensor.ReadPressure()
		if err != nil {
			s.sendError(fmt.Errorf("pressure: %w", err))
			return err
		}
		if err := s.send(protocol.FormatPressure(v)); err != nil {
			return err
		}
		s.srv.hub.Publish(TelemetryPressure, v)
		t.Reset(s.srv.pressure)
	}
}

// sendFrame acquires one reading, smooths it with the loaded boxcar width
// and pushes it as a chunked frame.
func (s *Session) sendFrame(ctx context.Context, cmd protocol.Command) error {
	reading, err := s.srv.rig.Spectrometer.Read(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.sendError(fmt.Errorf("spectrum: %w", err))
		}
		return err
	}
	smoothed := spectrum.Boxcar(s.srv.machine.Settings().BoxcarWidth, reading)
	for _, chunk := range protocol.EncodeFrame(cmd, smoothed) {
		if err := s.send(chunk); err != nil {
			return err
		}
	}
	s.srv.hub.Publish(TelemetryFrame, FrameMessage{Kind: cmd.String(), Values: smoothed})
	return nil
}
