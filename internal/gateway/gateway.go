package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

// ExhaustedMessage is the body of the 404 sent when no source could serve a file.
const ExhaustedMessage = "File no longer available on Telegram. It may be too large for Bot API (>20MB). Try re-sending it to the bot."

const defaultCounterTimeout = 5 * time.Second

// Outcome is the terminal state of one Serve call.
type Outcome int

const (
	OutcomeServed Outcome = iota
	OutcomeNotFound
	OutcomeUnsatisfiable
	OutcomeExhausted
	OutcomeInternal
	// OutcomeClientGone: the client disconnected, nothing more to do.
	OutcomeClientGone
	// OutcomeFault: the upstream failed after the response was committed.
	// The caller must abort the connection.
	OutcomeFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeServed:
		return "served"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnsatisfiable:
		return "unsatisfiable"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeInternal:
		return "internal"
	case OutcomeClientGone:
		return "client_gone"
	case OutcomeFault:
		return "fault"
	default:
		return "unknown"
	}
}

const (
	SourceBulk   = "bulk"
	SourceDirect = "direct"
)

// Result describes how a request was answered.
type Result struct {
	Outcome Outcome
	Source  string
	Bytes   int64
	Err     error
}

// Gateway serves file records over HTTP from the bulk source when it can,
// and from the direct source otherwise.
type Gateway struct {
	Files  domain.FilesRepo
	Bulk   *Chunked
	Direct *Direct
	Log    *log.Logger

	// CounterTimeout bounds the background download counter update.
	CounterTimeout time.Duration
	// WriteStall is the longest a single write to the client may block.
	WriteStall time.Duration

	counters sync.WaitGroup
}

// Serve answers r with the file id. It writes every status itself except the
// abort of a faulted stream, which is left to the caller (see OutcomeFault).
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, id string, mode Mode) Result {
	ctx := r.Context()

	rec, err := g.Files.GetFile(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return Result{Outcome: OutcomeNotFound, Err: err}
		}
		g.Log.Printf("lookup %s: %v", id, err)
		http.Error(w, "Failed to serve file", http.StatusInternalServerError)
		return Result{Outcome: OutcomeInternal, Err: err}
	}

	g.countDownload(ctx, rec.ID)

	rangeHeader := r.Header.Get("Range")
	var rng *Range
	if rangeHeader != "" && rec.SizeBytes > 0 {
		parsed, err := ParseRange(rangeHeader, rec.SizeBytes)
		switch {
		case err == nil:
			rng = &parsed
		case errors.Is(err, domain.ErrUnsatisfiable):
			w.Header().Set("Content-Range", UnsatisfiedRange(rec.SizeBytes))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return Result{Outcome: OutcomeUnsatisfiable, Err: err}
		}
	}

	sink := NewSink(w, r, g.WriteStall)
	defer sink.Finish()
	base := baseHeaders(rec, mode)

	if g.Bulk.Ready() && rec.HasSource() {
		err := g.serveBulk(ctx, sink, rec, rng, base)
		if err == nil {
			return Result{Outcome: OutcomeServed, Source: SourceBulk, Bytes: sink.Written()}
		}
		if res, done := g.terminal(sink, SourceBulk, err); done {
			return res
		}
		g.Log.Printf("bulk source failed for %s, falling back to direct: %v", rec.ID, err)
		sink.Reset()
	}

	err = g.Direct.Serve(ctx, sink, rec, rangeHeader, base)
	if err == nil {
		return Result{Outcome: OutcomeServed, Source: SourceDirect, Bytes: sink.Written()}
	}
	if res, done := g.terminal(sink, SourceDirect, err); done {
		return res
	}

	g.Log.Printf("no source could serve %s: %v", rec.ID, err)
	http.Error(w, ExhaustedMessage, http.StatusNotFound)
	return Result{Outcome: OutcomeExhausted, Err: fmt.Errorf("%w: %w", domain.ErrUpstreamExhausted, err)}
}

// terminal reports whether err ends the request: the client is gone, or bytes
// are already on the wire and no other source may take over.
func (g *Gateway) terminal(sink *Sink, source string, err error) (Result, bool) {
	switch {
	case sink.Aborted() || errors.Is(err, ErrAborted):
		return Result{Outcome: OutcomeClientGone, Source: source, Bytes: sink.Written()}, true
	case sink.Committed():
		if !errors.Is(err, domain.ErrStreamFault) {
			err = fmt.Errorf("%w: %w", domain.ErrStreamFault, err)
		}
		return Result{Outcome: OutcomeFault, Source: source, Bytes: sink.Written(), Err: err}, true
	}
	return Result{}, false
}

func (g *Gateway) serveBulk(ctx context.Context, sink *Sink, rec domain.FileRecord, rng *Range, base http.Header) error {
	var offset, limit int64

	if rng != nil {
		h := sink.Prepare(http.StatusPartialContent, base)
		h.Set("Content-Range", rng.ContentRange(rec.SizeBytes))
		h.Set("Content-Length", strconv.FormatInt(rng.Length(), 10))
		offset, limit = rng.Start, rng.Length()
	} else {
		h := sink.Prepare(http.StatusOK, base)
		if rec.SizeBytes > 0 {
			h.Set("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
		}
	}

	// HEAD is answered from the record, without opening the block stream.
	if sink.Bodyless() {
		return sink.Commit()
	}

	var writeErr error
	ok := g.Bulk.Stream(ctx, *rec.Source, offset, limit, func(b []byte) bool {
		if _, err := sink.Write(b); err != nil {
			writeErr = err
			return false
		}
		return true
	})

	switch {
	case errors.Is(writeErr, http.ErrBodyNotAllowed):
		return nil
	case writeErr != nil:
		return writeErr
	case !ok:
		return fmt.Errorf("%w: bulk transfer of chat=%d msg=%d failed",
			domain.ErrUpstreamUnavailable, rec.Source.ChatID, rec.Source.MessageID)
	}
	return sink.Commit()
}

// countDownload bumps the counter in the background. Failures are only logged.
func (g *Gateway) countDownload(ctx context.Context, id string) {
	timeout := g.CounterTimeout
	if timeout <= 0 {
		timeout = defaultCounterTimeout
	}
	ctx = context.WithoutCancel(ctx)

	g.counters.Add(1)
	go func() {
		defer g.counters.Done()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := g.Files.IncrementDownloads(ctx, id); err != nil {
			g.Log.Printf("increment downloads of %s: %v", id, err)
		}
	}()
}

// Wait blocks until pending counter updates have finished.
func (g *Gateway) Wait() {
	g.counters.Wait()
}
