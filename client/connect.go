// Package client is the handset side of the command channel.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/CK6170/Spectro-go/models"
	"github.com/CK6170/Spectro-go/protocol"
	serialpkg "github.com/CK6170/Spectro-go/serial"
)

type Session struct {
	Addr string

	conn   io.ReadWriteCloser
	log    *slog.Logger
	wmu    sync.Mutex
	events chan interface{}
	done   chan struct{}
	once   sync.Once
}

// Connect opens target: "tcp://host:port" or host:port dials TCP, anything
// else is a tty path. An empty target falls back to the configured port and
// then to auto-detection.
func Connect(ctx context.Context, target string, p *models.PARAMETERS, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	target = strings.TrimSpace(target)
	if target == "" && p != nil && p.SERIAL != nil {
		target = p.SERIAL.PORT
	}
	baud := models.DefaultBaudRate
	if p != nil && p.SERIAL != nil && p.SERIAL.BAUDRATE > 0 {
		baud = p.SERIAL.BAUDRATE
	}

	if addr, ok := strings.CutPrefix(target, "tcp://"); ok || (strings.Contains(target, ":") && !strings.HasPrefix(target, "/")) {
		if !ok {
			addr = target
		}
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return New(addr, conn, log), nil
	}

	if target == "" {
		target = serialpkg.AutoDetectPort(baud)
		if target == "" {
			return nil, fmt.Errorf("could not auto-detect serial port")
		}
	}
	port, err := serialpkg.Open(target, baud)
	if err != nil {
		return nil, err
	}
	return New(target, port, log), nil
}

// New starts decoding conn. Events are delivered until the channel closes.
func New(addr string, conn io.ReadWriteCloser, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		Addr:   addr,
		conn:   conn,
		log:    log.With("component", "client"),
		events: make(chan interface{}, 256),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *Session) Events() <-chan interface{} { return s.events }

// Send writes one command line.
func (s *Session) Send(cmd protocol.Command, payload string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.conn.Write(protocol.Line(string(rune(cmd)) + payload))
	return err
}

// SendLine writes a raw command line as typed by a user.
func (s *Session) SendLine(line string) error {
	req, err := protocol.ParseRequest(line)
	if err != nil {
		return err
	}
	return s.Send(req.Cmd, req.Payload)
}

func (s *Session) SendSettings(settings models.Settings, start bool) error {
	return s.Send(protocol.Settings, protocol.FormatSettings(settings, start))
}

func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *Session) readLoop() {
	defer close(s.events)
	dec := NewDecoder()
	sc := bufio.NewScanner(s.conn)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		ev, ok, err := dec.Feed(sc.Text())
		if err != nil {
			s.log.Warn("undecodable message", "line", sc.Text(), "error", err)
		}
		if !ok {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
	if err := sc.Err(); err != nil {
		s.log.Debug("channel closed", "error", err)
	}
}
