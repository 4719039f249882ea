package gateway

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"time"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

// Chunked turns the aligned block stream of a BulkSource into an exact,
// unaligned byte range.
type Chunked struct {
	Source    domain.BulkSource
	BlockSize int64
	Workers   int
	// ResolveTimeout bounds Source.Blocks, which resolves the media before
	// any block is read. Zero means no limit.
	ResolveTimeout time.Duration
	Log            *log.Logger
}

// Ready reports whether the bulk source can currently be used.
func (c *Chunked) Ready() bool {
	return c != nil && c.Source != nil && c.Source.Ready()
}

// Stream delivers bytes [offset, offset+limit) of the media at loc to onChunk,
// in order. limit <= 0 means up to the end of the media.
//
// onChunk returning false stops the transfer and Stream returns true.
// Stream returns false when the source is not ready, the message or its media
// cannot be resolved, a block read fails, or the media ends before limit bytes.
func (c *Chunked) Stream(ctx context.Context, loc domain.SourceLocation, offset, limit int64, onChunk func([]byte) bool) bool {
	if !c.Ready() {
		return false
	}
	if offset < 0 {
		offset = 0
	}

	b := c.BlockSize
	aligned := offset / b * b
	skip := offset - aligned

	req := domain.BlockRequest{BlockSize: b, Workers: c.Workers, Offset: aligned}
	if limit > 0 {
		req.Limit = alignUp(skip+limit, b)
	}

	blocks, err := c.open(ctx, loc, req)
	if err != nil {
		c.Log.Printf("open chat=%d msg=%d offset=%d: %v", loc.ChatID, loc.MessageID, aligned, err)
		return false
	}

	remaining := limit
	first := true
	for block, err := range blocks {
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.Log.Printf("read chat=%d msg=%d: %v", loc.ChatID, loc.MessageID, err)
			}
			return false
		}

		if first {
			first = false
			if int64(len(block)) <= skip {
				block = nil
			} else {
				block = block[skip:]
			}
		}
		if limit > 0 && int64(len(block)) > remaining {
			block = block[:remaining]
		}
		if len(block) == 0 {
			continue
		}

		if !onChunk(block) {
			return true
		}
		if limit > 0 {
			remaining -= int64(len(block))
			if remaining == 0 {
				return true
			}
		}
	}

	if limit > 0 {
		c.Log.Printf("chat=%d msg=%d ended %d bytes short of the requested range", loc.ChatID, loc.MessageID, remaining)
		return false
	}
	return true
}

// open calls Source.Blocks, cancelling it when it outlives ResolveTimeout.
// The returned blocks keep reading on ctx once open has returned in time.
func (c *Chunked) open(ctx context.Context, loc domain.SourceLocation, req domain.BlockRequest) (iter.Seq2[[]byte, error], error) {
	if c.ResolveTimeout <= 0 {
		return c.Source.Blocks(ctx, loc, req)
	}

	ctx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(c.ResolveTimeout, cancel)

	blocks, err := c.Source.Blocks(ctx, loc, req)
	if !timer.Stop() {
		return nil, fmt.Errorf("%w: resolving media took longer than %s", domain.ErrUpstreamUnavailable, c.ResolveTimeout)
	}
	if err != nil {
		cancel()
		return nil, err
	}
	return func(yield func([]byte, error) bool) {
		defer cancel()
		blocks(yield)
	}, nil
}

func alignUp(n, b int64) int64 {
	return (n + b - 1) / b * b
}
