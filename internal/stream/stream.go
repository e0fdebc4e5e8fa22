// Package stream decodes server-sent event responses from the proxy into an
// ordered, finite sequence of fragments.
//
// The payload is newline-delimited "data: "-prefixed JSON records terminated
// by a literal [DONE] record. Decoding is pull-based and one-shot: each
// Stream is consumed exactly once, in order.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/waddleai/waddle-go/internal/api"
)

const doneSentinel = "[DONE]"

var dataPrefix = []byte("data:")

// Fragment is one incremental piece of an assistant response. A non-empty
// FinishReason marks the logical end of the turn.
type Fragment struct {
	Delta        string
	FinishReason string
}

// Stream is a forward-only iterator over decoded fragments.
//
//	for s.Next() {
//		use(s.Current())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream struct {
	ctx     context.Context
	body    io.ReadCloser
	buf     []byte
	readBuf [4096]byte
	cur     Fragment
	err     error
	done    bool
	eof     bool
}

// New wraps a response body. The context is observed between reads, so
// cancelling it stops the iteration at the next suspension point.
func New(ctx context.Context, body io.ReadCloser) *Stream {
	return &Stream{ctx: ctx, body: body}
}

// Next advances to the next fragment. It returns false when the sentinel was
// seen, the body is exhausted, the context was cancelled, or a read failed;
// Err distinguishes failure from normal termination.
func (s *Stream) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	for {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			s.close()
			return false
		}

		line, ok := s.nextLine()
		if !ok {
			if s.eof {
				s.done = true
				s.close()
				return false
			}
			n, err := s.body.Read(s.readBuf[:])
			if n > 0 {
				s.buf = append(s.buf, s.readBuf[:n]...)
			}
			if err == io.EOF {
				s.eof = true
			} else if err != nil {
				s.err = err
				s.close()
				return false
			}
			continue
		}

		frag, terminal, ok := decodeLine(line)
		if terminal {
			// No further lines are processed even if buffered.
			s.done = true
			s.close()
			return false
		}
		if !ok {
			continue
		}
		s.cur = frag
		return true
	}
}

// nextLine pops one complete line off the buffer. A record is never parsed
// from an incomplete line; trailing partial data waits for the next read,
// except at EOF where the remainder is flushed as a final line.
func (s *Stream) nextLine() ([]byte, bool) {
	if i := bytes.IndexByte(s.buf, '\n'); i >= 0 {
		line := s.buf[:i]
		s.buf = s.buf[i+1:]
		return bytes.TrimSuffix(line, []byte("\r")), true
	}
	if s.eof && len(s.buf) > 0 {
		line := s.buf
		s.buf = nil
		return bytes.TrimSuffix(line, []byte("\r")), true
	}
	return nil, false
}

// decodeLine parses one complete line. terminal reports the [DONE] sentinel;
// ok reports whether a fragment was produced. Non-data lines (keep-alives,
// comments) and malformed records produce neither.
func decodeLine(line []byte) (frag Fragment, terminal, ok bool) {
	if !bytes.HasPrefix(line, dataPrefix) {
		return Fragment{}, false, false
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if string(payload) == doneSentinel {
		return Fragment{}, true, false
	}
	var chunk api.ChatChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		// A malformed record must not kill an otherwise healthy stream.
		slog.Debug("skipping malformed stream record", "error", err)
		return Fragment{}, false, false
	}
	return Fragment{Delta: chunk.DeltaText(), FinishReason: chunk.Finish()}, false, true
}

// Current returns the fragment produced by the last successful Next.
func (s *Stream) Current() Fragment { return s.cur }

// Err returns the terminal error, if any. Context cancellation surfaces here
// unwrapped so callers can tell it apart from failures.
func (s *Stream) Err() error { return s.err }

// Close releases the underlying connection. Safe to call more than once.
func (s *Stream) Close() error {
	s.close()
	return nil
}

func (s *Stream) close() {
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
}
