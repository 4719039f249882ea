package redisx

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

// Records is a read-through cache in front of a FilesRepo.
// Records are immutable apart from the download counter, so a short TTL is
// enough to keep that counter roughly current.
type Records struct {
	Repo   domain.FilesRepo
	Cache  domain.Cache
	TTL    time.Duration
	Logger *log.Logger
}

func (r *Records) GetFile(ctx context.Context, id string) (domain.FileRecord, error) {
	key := domain.CacheKeyFile(id)

	b, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Printf("record cache get %s failed, reading store: %v", id, err)
	} else if b != nil {
		var rec domain.FileRecord
		if err := json.Unmarshal(b, &rec); err == nil {
			return rec, nil
		}
		r.Logger.Printf("record cache entry %s is corrupt, dropping", id)
		_ = r.Cache.Del(ctx, key)
	}

	rec, err := r.Repo.GetFile(ctx, id)
	if err != nil {
		return domain.FileRecord{}, err
	}
	if buf, err := json.Marshal(rec); err == nil {
		_ = r.Cache.Set(ctx, key, buf, int(r.TTL.Seconds()))
	}
	return rec, nil
}

func (r *Records) IncrementDownloads(ctx context.Context, id string) error {
	return r.Repo.IncrementDownloads(ctx, id)
}
