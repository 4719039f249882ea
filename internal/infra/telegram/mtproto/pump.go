package mtproto

import (
	"context"
	"iter"
)

// blockFetcher reads limit bytes at offset. A short or empty result marks the end.
type blockFetcher func(ctx context.Context, offset int64, limit int) ([]byte, error)

type blockResult struct {
	data []byte
	err  error
}

// orderedBlocks fetches [start, end) in blockSize pieces with up to workers
// requests in flight and yields them in offset order. end < 0 reads until the
// first short block.
//
// Stopping the iteration cancels every outstanding fetch.
func orderedBlocks(ctx context.Context, fetch blockFetcher, start, end, blockSize int64, workers int) iter.Seq2[[]byte, error] {
	if workers < 1 {
		workers = 1
	}
	return func(yield func([]byte, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		// slots are queued in offset order; each is filled by its own fetch
		pending := make(chan chan blockResult, workers-1)
		sem := make(chan struct{}, workers)

		go func() {
			defer close(pending)
			for off := start; end < 0 || off < end; off += blockSize {
				if ctx.Err() != nil {
					return
				}
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					return
				}
				slot := make(chan blockResult, 1)
				go func(off int64) {
					defer func() { <-sem }()
					data, err := fetch(ctx, off, int(blockSize))
					slot <- blockResult{data: data, err: err}
				}(off)
				select {
				case pending <- slot:
				case <-ctx.Done():
					return
				}
			}
		}()

		for slot := range pending {
			var res blockResult
			select {
			case res = <-slot:
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			}
			if res.err != nil {
				yield(nil, res.err)
				return
			}
			if len(res.data) == 0 {
				return
			}
			if !yield(res.data, nil) {
				return
			}
			if end < 0 && int64(len(res.data)) < blockSize {
				return
			}
		}
		// the producer also stops on cancellation, which must not look like EOF
		if err := ctx.Err(); err != nil {
			yield(nil, err)
		}
	}
}
