package server

import (
	"context"
	"io"
	"net"
)

// Listener yields command channels, one at a time.
type Listener interface {
	Accept(ctx context.Context) (io.ReadWriteCloser, error)
	Addr() string
	Close() error
}

// TCPListener serves the command channel over TCP for bench use.
type TCPListener struct {
	ln net.Listener
}

func ListenTCP(addr string) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPListener{ln: ln}, nil
}

func (l *TCPListener) Addr() string { return l.ln.Addr().String() }

func (l *TCPListener) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := l.ln.Accept()
		ch <- result{c, err}
	}()
	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		// unblock Accept; the listener is not reusable after this
		l.ln.Close()
		if r := <-ch; r.conn != nil {
			r.conn.Close()
		}
		return nil, ctx.Err()
	}
}

func (l *TCPListener) Close() error { return l.ln.Close() }
