package gateway

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"sync/atomic"
	"time"
)

// ErrAborted is returned by Sink.Write once the client has gone away.
var ErrAborted = errors.New("client disconnected")

// Sink paces producers to the client's consumption rate.
//
// Status and headers are staged with Prepare and only reach the client with
// the first Write (or Commit), so a source that fails before producing a byte
// can be replaced by another one after Reset.
//
// Every Write blocks until the transport has taken the bytes and flushes them;
// a write stalled for longer than the stall timeout fails and aborts the sink.
type Sink struct {
	w     http.ResponseWriter
	rc    *http.ResponseController
	ctx   context.Context
	stall time.Duration

	status    int
	header    http.Header
	committed bool
	written   int64
	bodyless  bool

	aborted atomic.Bool
}

// NewSink wraps the response to r. Cancellation of the request context marks
// the sink aborted.
func NewSink(w http.ResponseWriter, r *http.Request, stall time.Duration) *Sink {
	return &Sink{
		w:        w,
		rc:       http.NewResponseController(w),
		ctx:      r.Context(),
		stall:    stall,
		bodyless: r.Method == http.MethodHead,
	}
}

// Prepare stages a status and returns a header set seeded from base.
// It may be called again until the sink is committed.
func (s *Sink) Prepare(status int, base http.Header) http.Header {
	s.status = status
	s.header = maps.Clone(base)
	if s.header == nil {
		s.header = make(http.Header)
	}
	return s.header
}

// Reset drops the staged response. It reports false once bytes are committed.
func (s *Sink) Reset() bool {
	if s.committed {
		return false
	}
	s.status = 0
	s.header = nil
	return true
}

// Commit sends the staged status and headers.
func (s *Sink) Commit() error {
	if s.committed {
		return nil
	}
	if s.Aborted() {
		return ErrAborted
	}
	if s.status == 0 {
		return errors.New("sink: commit without a prepared status")
	}

	dst := s.w.Header()
	for k, v := range s.header {
		dst[k] = v
	}
	s.w.WriteHeader(s.status)
	s.committed = true
	return nil
}

// Write commits on first use, then writes p and flushes it.
// On a HEAD request the body is discarded and http.ErrBodyNotAllowed returned,
// which producers treat as a stop signal.
func (s *Sink) Write(p []byte) (int, error) {
	if err := s.Commit(); err != nil {
		return 0, err
	}
	if s.bodyless {
		return 0, http.ErrBodyNotAllowed
	}
	if len(p) == 0 {
		return 0, nil
	}

	if s.stall > 0 {
		if err := s.rc.SetWriteDeadline(time.Now().Add(s.stall)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			s.aborted.Store(true)
			return 0, fmt.Errorf("%w: %w", ErrAborted, err)
		}
	}

	n, err := s.w.Write(p)
	s.written += int64(n)
	if err != nil {
		s.aborted.Store(true)
		return n, fmt.Errorf("%w: %w", ErrAborted, err)
	}

	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.aborted.Store(true)
		return n, fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return n, nil
}

// Finish clears the per-write deadline so it does not leak into the next
// request on a kept-alive connection.
func (s *Sink) Finish() {
	if s.stall > 0 && s.committed {
		_ = s.rc.SetWriteDeadline(time.Time{})
	}
}

// Aborted reports whether the client disconnected or a write failed.
func (s *Sink) Aborted() bool {
	return s.aborted.Load() || s.ctx.Err() != nil
}

func (s *Sink) Committed() bool { return s.committed }

// Bodyless reports whether the response carries headers only (HEAD).
func (s *Sink) Bodyless() bool { return s.bodyless }

// Written is the number of body bytes accepted by the transport.
func (s *Sink) Written() int64 { return s.written }
