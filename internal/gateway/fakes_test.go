package gateway

import (
	"context"
	"errors"
	"io"
	"iter"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

var errBoom = errors.New("boom")

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func testData(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}

// fakeBulk serves data as aligned blocks the way the MTProto pump does.
type fakeBulk struct {
	data    []byte
	ready   bool
	openErr error
	failAt  int64 // block offset whose read fails, when fail is set
	fail    bool

	reads atomic.Int32
	mu    sync.Mutex
	reqs  []domain.BlockRequest
}

func (f *fakeBulk) Ready() bool { return f.ready }

func (f *fakeBulk) Blocks(ctx context.Context, _ domain.SourceLocation, req domain.BlockRequest) (iter.Seq2[[]byte, error], error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	if f.openErr != nil {
		return nil, f.openErr
	}
	if req.BlockSize <= 0 || req.Offset%req.BlockSize != 0 {
		return nil, errors.New("unaligned block request")
	}
	end := int64(len(f.data))
	if req.Limit > 0 && req.Offset+req.Limit < end {
		end = req.Offset + req.Limit
	}

	return func(yield func([]byte, error) bool) {
		for off := req.Offset; off < end; off += req.BlockSize {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if f.fail && off >= f.failAt {
				yield(nil, errBoom)
				return
			}
			f.reads.Add(1)
			if !yield(f.data[off:min(off+req.BlockSize, end)], nil) {
				return
			}
		}
	}, nil
}

func (f *fakeBulk) lastRequest() domain.BlockRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

// scriptedBulk yields a fixed list of blocks regardless of the request.
type scriptedBulk struct {
	blocks [][]byte
}

func (s *scriptedBulk) Ready() bool { return true }

func (s *scriptedBulk) Blocks(context.Context, domain.SourceLocation, domain.BlockRequest) (iter.Seq2[[]byte, error], error) {
	return func(yield func([]byte, error) bool) {
		for _, b := range s.blocks {
			if !yield(b, nil) {
				return
			}
		}
	}, nil
}

// stalledBulk never finishes resolving media until its context ends.
type stalledBulk struct {
	opens atomic.Int32
}

func (s *stalledBulk) Ready() bool { return true }

func (s *stalledBulk) Blocks(ctx context.Context, _ domain.SourceLocation, _ domain.BlockRequest) (iter.Seq2[[]byte, error], error) {
	s.opens.Add(1)
	<-ctx.Done()
	return nil, ctx.Err()
}

// slowBulk opens at once and then yields each block after delay.
type slowBulk struct {
	data  []byte
	delay time.Duration
}

func (s *slowBulk) Ready() bool { return true }

func (s *slowBulk) Blocks(ctx context.Context, _ domain.SourceLocation, req domain.BlockRequest) (iter.Seq2[[]byte, error], error) {
	return func(yield func([]byte, error) bool) {
		for off := req.Offset; off < int64(len(s.data)); off += req.BlockSize {
			select {
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			case <-time.After(s.delay):
			}
			if !yield(s.data[off:min(off+req.BlockSize, int64(len(s.data)))], nil) {
				return
			}
		}
	}, nil
}

// fakeDirect resolves every handle to url and fetches it over HTTP.
type fakeDirect struct {
	url        string
	resolveErr error

	resolves    atomic.Int32
	fetches     atomic.Int32
	invalidated atomic.Int32
}

func (f *fakeDirect) Resolve(context.Context, string) (string, error) {
	f.resolves.Add(1)
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return f.url, nil
}

func (f *fakeDirect) Fetch(ctx context.Context, url, rangeHeader string) (*http.Response, error) {
	f.fetches.Add(1)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, errors.New(resp.Status)
	}
	return resp, nil
}

func (f *fakeDirect) Invalidate(context.Context, string) { f.invalidated.Add(1) }

// fakeFiles is an in-memory FilesRepo.
type fakeFiles struct {
	mu        sync.Mutex
	records   map[string]domain.FileRecord
	getErr    error
	incrErr   error
	downloads map[string]int
}

func newFakeFiles(recs ...domain.FileRecord) *fakeFiles {
	f := &fakeFiles{records: map[string]domain.FileRecord{}, downloads: map[string]int{}}
	for _, r := range recs {
		f.records[r.ID] = r
	}
	return f
}

func (f *fakeFiles) GetFile(_ context.Context, id string) (domain.FileRecord, error) {
	if f.getErr != nil {
		return domain.FileRecord{}, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return domain.FileRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeFiles) IncrementDownloads(_ context.Context, id string) error {
	if f.incrErr != nil {
		return f.incrErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads[id]++
	return nil
}

func (f *fakeFiles) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads[id]
}
