package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

var fileColumns = []string{
	"id", "file_id", "file_unique_id", "file_name", "file_size", "mime_type", "file_type",
	"thumbnail_file_id", "sender_name", "sender_id", "chat_id", "message_id",
	"duration", "width", "height", "downloads", "created_at",
}

// fileRow mirrors the nullable columns of files.
type fileRow struct {
	rec       domain.FileRecord
	thumb     *string
	sender    *string
	senderID  *int64
	chatID    *int64
	messageID *int32
	duration  *int32
	width     *int32
	height    *int32
}

func (fr *fileRow) dest() []any {
	return []any{
		&fr.rec.ID, &fr.rec.FileID, &fr.rec.FileUniqueID, &fr.rec.Name, &fr.rec.SizeBytes,
		&fr.rec.MIME, &fr.rec.Type, &fr.thumb, &fr.sender, &fr.senderID, &fr.chatID, &fr.messageID,
		&fr.duration, &fr.width, &fr.height, &fr.rec.Downloads, &fr.rec.CreatedAt,
	}
}

func (fr *fileRow) record() domain.FileRecord {
	rec := fr.rec
	if fr.thumb != nil {
		rec.ThumbnailFileID = *fr.thumb
	}
	if fr.sender != nil {
		rec.SenderName = *fr.sender
	}
	if fr.senderID != nil {
		rec.SenderID = *fr.senderID
	}
	if fr.chatID != nil && fr.messageID != nil {
		rec.Source = &domain.SourceLocation{ChatID: *fr.chatID, MessageID: int(*fr.messageID)}
	}
	if fr.duration != nil {
		rec.Duration = int(*fr.duration)
	}
	if fr.width != nil {
		rec.Width = int(*fr.width)
	}
	if fr.height != nil {
		rec.Height = int(*fr.height)
	}
	return rec
}

func (r *PGRepo) GetFile(ctx context.Context, id string) (domain.FileRecord, error) {
	q := r.qb().Select(fileColumns...).From(r.table("files")).Where(sq.Eq{"id": id})
	sqlStr, args, _ := q.ToSql()
	r.logSQL("GetFile", sqlStr, args)

	start := time.Now()
	var fr fileRow
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(fr.dest()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("GetFile not found in %s id=%s", time.Since(start), id)
			return domain.FileRecord{}, domain.ErrNotFound
		}
		r.logger.Printf("GetFile scan error after %s: %v", time.Since(start), err)
		return domain.FileRecord{}, fmt.Errorf("get file %s: %w", id, err)
	}
	r.logger.Printf("GetFile ok in %s id=%s", time.Since(start), id)
	return fr.record(), nil
}

// CreateFile inserts the record or refreshes an existing one with the same id.
func (r *PGRepo) CreateFile(ctx context.Context, f domain.FileRecord) (domain.FileRecord, error) {
	if f.MIME == "" {
		f.MIME = "application/octet-stream"
	}
	if f.Type == "" {
		f.Type = "document"
	}
	var chatID, messageID any
	if f.Source != nil {
		chatID, messageID = f.Source.ChatID, f.Source.MessageID
	}

	q := r.qb().Insert(r.table("files")).
		Columns(fileColumns[:15]...).
		Values(
			f.ID, f.FileID, f.FileUniqueID, f.Name, f.SizeBytes, f.MIME, f.Type,
			nullString(f.ThumbnailFileID), nullString(f.SenderName), nullInt(f.SenderID),
			chatID, messageID,
			nullInt(int64(f.Duration)), nullInt(int64(f.Width)), nullInt(int64(f.Height)),
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			file_id = EXCLUDED.file_id,
			file_name = EXCLUDED.file_name,
			file_size = EXCLUDED.file_size,
			mime_type = EXCLUDED.mime_type,
			chat_id = EXCLUDED.chat_id,
			message_id = EXCLUDED.message_id
			RETURNING ` + strings.Join(fileColumns, ", "))

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CreateFile", sqlStr, args)

	start := time.Now()
	var fr fileRow
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(fr.dest()...); err != nil {
		r.logger.Printf("CreateFile error after %s: %v", time.Since(start), err)
		return domain.FileRecord{}, fmt.Errorf("create file %s: %w", f.ID, err)
	}
	r.logger.Printf("CreateFile ok in %s id=%s name=%q", time.Since(start), fr.rec.ID, fr.rec.Name)
	return fr.record(), nil
}

func (r *PGRepo) IncrementDownloads(ctx context.Context, id string) error {
	q := r.qb().Update(r.table("files")).
		Set("downloads", sq.Expr("downloads + 1")).
		Where(sq.Eq{"id": id})
	sqlStr, args, _ := q.ToSql()
	r.logSQL("IncrementDownloads", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		r.logger.Printf("IncrementDownloads exec error after %s: %v", time.Since(start), err)
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.Printf("IncrementDownloads no rows in %s id=%s", time.Since(start), id)
		return domain.ErrNotFound
	}
	r.logger.Printf("IncrementDownloads ok in %s id=%s", time.Since(start), id)
	return nil
}

func (r *PGRepo) Stats(ctx context.Context) (domain.Stats, error) {
	q := r.qb().Select(
		"COUNT(*)",
		"COALESCE(SUM(file_size), 0)::bigint",
		"COALESCE(SUM(downloads), 0)::bigint",
	).From(r.table("files"))
	sqlStr, args, _ := q.ToSql()
	r.logSQL("Stats", sqlStr, args)

	start := time.Now()
	var s domain.Stats
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&s.TotalFiles, &s.TotalSize, &s.TotalDownloads); err != nil {
		r.logger.Printf("Stats scan error after %s: %v", time.Since(start), err)
		return domain.Stats{}, err
	}
	r.logger.Printf("Stats ok in %s files=%d", time.Since(start), s.TotalFiles)
	return s, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
