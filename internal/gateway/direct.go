package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

const defaultBufSize = 64 << 10

// Direct proxies a file from the short-lived URL a DirectSource resolves.
type Direct struct {
	Source domain.DirectSource
	// ResolveTimeout bounds URL resolution. The transfer itself is unbounded.
	ResolveTimeout time.Duration
	BufSize        int
	Log            *log.Logger
}

// Serve resolves rec's handle and streams the upstream answer through sink.
// rangeHeader is forwarded unchanged; base holds the headers every answer carries.
//
// A nil error means the response was served. Errors wrapping
// domain.ErrUpstreamUnavailable leave the sink uncommitted; ErrAborted means
// the client went away; domain.ErrStreamFault means the upstream failed after
// the response was committed.
func (d *Direct) Serve(ctx context.Context, sink *Sink, rec domain.FileRecord, rangeHeader string, base http.Header) error {
	if d == nil || d.Source == nil {
		return fmt.Errorf("%w: direct source disabled", domain.ErrUpstreamUnavailable)
	}

	url, err := d.resolve(ctx, rec.FileID)
	if err != nil {
		return fmt.Errorf("%w: resolve: %w", domain.ErrUpstreamUnavailable, err)
	}

	resp, err := d.Source.Fetch(ctx, url, rangeHeader)
	if err != nil {
		// the cached path may point at a file Telegram has since expired
		d.Source.Invalidate(context.WithoutCancel(ctx), rec.FileID)
		return fmt.Errorf("%w: fetch: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	h := sink.Prepare(resp.StatusCode, base)
	switch resp.StatusCode {
	case http.StatusPartialContent:
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			h.Set("Content-Range", cr)
		}
		if cl := upstreamLength(resp); cl != "" {
			h.Set("Content-Length", cl)
		}
	case http.StatusOK:
		if cl := upstreamLength(resp); cl != "" {
			h.Set("Content-Length", cl)
		} else if rec.SizeBytes > 0 {
			h.Set("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
		}
	default:
		sink.Reset()
		return fmt.Errorf("%w: upstream status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	return d.copy(sink, resp.Body)
}

func (d *Direct) resolve(ctx context.Context, fileID string) (string, error) {
	if d.ResolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.ResolveTimeout)
		defer cancel()
	}
	return d.Source.Resolve(ctx, fileID)
}

func (d *Direct) copy(sink *Sink, body io.Reader) error {
	size := d.BufSize
	if size <= 0 {
		size = defaultBufSize
	}
	buf := make([]byte, size)

	for {
		if sink.Aborted() {
			return ErrAborted
		}

		n, rerr := body.Read(buf)
		if n > 0 {
			if _, err := sink.Write(buf[:n]); err != nil {
				if errors.Is(err, http.ErrBodyNotAllowed) {
					return nil
				}
				return err
			}
		}

		switch {
		case rerr == io.EOF:
			if err := sink.Commit(); err != nil {
				return err
			}
			return nil
		case rerr != nil:
			if sink.Aborted() {
				return ErrAborted
			}
			if !sink.Committed() {
				sink.Reset()
				return fmt.Errorf("%w: read body: %w", domain.ErrUpstreamUnavailable, rerr)
			}
			return fmt.Errorf("%w: read body after %d bytes: %w", domain.ErrStreamFault, sink.Written(), rerr)
		}
	}
}

func upstreamLength(resp *http.Response) string {
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		return cl
	}
	if resp.ContentLength >= 0 {
		return strconv.FormatInt(resp.ContentLength, 10)
	}
	return ""
}
