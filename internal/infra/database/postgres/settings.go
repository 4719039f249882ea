package postgres

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

func (r *PGRepo) GetSetting(ctx context.Context, key string) (string, error) {
	q := r.qb().Select("value").From(r.table("settings")).Where(sq.Eq{"key": key})
	sqlStr, args, _ := q.ToSql()
	r.logSQL("GetSetting", sqlStr, args)

	start := time.Now()
	var value string
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("GetSetting %q not set (%s)", key, time.Since(start))
			return "", domain.ErrNotFound
		}
		r.logger.Printf("GetSetting %q error after %s: %v", key, time.Since(start), err)
		return "", err
	}
	// values may be credentials, only the size is logged
	r.logger.Printf("GetSetting %q ok in %s (%d bytes)", key, time.Since(start), len(value))
	return value, nil
}

func (r *PGRepo) SetSetting(ctx context.Context, key, value string) error {
	q := r.qb().Insert(r.table("settings")).
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value")
	sqlStr, args, _ := q.ToSql()
	r.logSQL("SetSetting", sqlStr, args)

	start := time.Now()
	if _, err := r.pool.Exec(ctx, sqlStr, args...); err != nil {
		r.logger.Printf("SetSetting %q error after %s: %v", key, time.Since(start), err)
		return err
	}
	r.logger.Printf("SetSetting %q ok in %s", key, time.Since(start))
	return nil
}
