package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// ChunkSize is the number of samples per telemetry chunk.
const ChunkSize = 8

// EncodeFrame splits values into chunk messages "[cmd][start];v0;...;v7".
// Every chunk ends in ';' except the last one of the frame.
func EncodeFrame(cmd Command, values []float64) []string {
	out := make([]string, 0, (len(values)+ChunkSize-1)/ChunkSize)
	var b strings.Builder
	for start := 0; start < len(values); start += ChunkSize {
		end := min(start+ChunkSize, len(values))
		b.Reset()
		b.WriteByte(byte(cmd))
		b.WriteString(strconv.Itoa(start))
		for _, v := range values[start:end] {
			b.WriteByte(';')
			b.WriteString(strconv.FormatFloat(v, 'f', 2, 64))
		}
		if end < len(values) {
			b.WriteByte(';')
		}
		out = append(out, b.String())
	}
	return out
}

type Chunk struct {
	Cmd    Command
	Start  int
	Values []float64
	// Last is set on the chunk that closes a frame.
	Last bool
}

func ParseChunk(msg string) (Chunk, error) {
	if len(msg) < 2 {
		return Chunk{}, fmt.Errorf("%w: short chunk %q", ErrMalformed, msg)
	}
	c := Chunk{Cmd: Command(msg[0])}
	body := msg[1:]
	c.Last = !strings.HasSuffix(body, ";")
	body = strings.TrimSuffix(body, ";")
	fields := strings.Split(body, ";")
	start, err := strconv.Atoi(fields[0])
	if err != nil || start < 0 {
		return Chunk{}, fmt.Errorf("%w: chunk index %q", ErrMalformed, fields[0])
	}
	c.Start = start
	if len(fields)-1 > ChunkSize {
		return Chunk{}, fmt.Errorf("%w: chunk carries %d values", ErrMalformed, len(fields)-1)
	}
	c.Values = make([]float64, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Chunk{}, fmt.Errorf("%w: chunk value %q", ErrMalformed, f)
		}
		c.Values = append(c.Values, v)
	}
	return c, nil
}

// Assembler rebuilds frames from chunks. Chunks must arrive in order; a gap
// drops the partial frame.
type Assembler struct {
	buf []float64
}

// Add consumes one chunk and returns the frame once its last chunk arrived.
func (a *Assembler) Add(c Chunk) ([]float64, bool, error) {
	if c.Start == 0 {
		a.buf = a.buf[:0]
	}
	if want := len(a.buf); c.Start != want {
		a.buf = a.buf[:0]
		return nil, false, fmt.Errorf("%w: chunk at %d, expected %d", ErrMalformed, c.Start, want)
	}
	a.buf = append(a.buf, c.Values...)
	if !c.Last {
		return nil, false, nil
	}
	frame := make([]float64, len(a.buf))
	copy(frame, a.buf)
	a.buf = a.buf[:0]
	return frame, true, nil
}
