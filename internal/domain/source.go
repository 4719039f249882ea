package domain

import (
	"context"
	"iter"
	"net/http"
)

// BlockRequest asks the bulk source for aligned blocks.
// Offset must be a multiple of BlockSize. Limit <= 0 reads to the end.
type BlockRequest struct {
	BlockSize int64
	Workers   int
	Offset    int64
	Limit     int64
}

// BulkSource streams a message's media as fixed-size blocks in offset order.
//
// Blocks resolves the message before returning; a missing message or media is
// reported there, wrapped in ErrUpstreamUnavailable. Breaking out of the
// returned iterator stops all outstanding fetches.
type BulkSource interface {
	Ready() bool
	Blocks(ctx context.Context, loc SourceLocation, req BlockRequest) (iter.Seq2[[]byte, error], error)
}

// DirectSource resolves a file handle into a short-lived URL and fetches it.
type DirectSource interface {
	Resolve(ctx context.Context, fileID string) (string, error)
	Fetch(ctx context.Context, url, rangeHeader string) (*http.Response, error)
	// Invalidate drops any cached resolution for fileID.
	Invalidate(ctx context.Context, fileID string)
}
