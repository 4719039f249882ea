//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

func startPostgres(t *testing.T) *PGRepo {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "filelink",
			"POSTGRES_PASSWORD": "filelink",
			"POSTGRES_DB":       "filelink",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://filelink:filelink@%s:%s/filelink?sslmode=disable", host, port.Port())
	repo, err := NewPGRepo(ctx, log.New(io.Discard, "", 0), Options{DSN: dsn, Schema: "filelink", MaxConns: 4})
	if err != nil {
		t.Fatalf("NewPGRepo: %v", err)
	}
	t.Cleanup(repo.Close)
	return repo
}

func TestFilesRoundTrip(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	created, err := repo.CreateFile(ctx, domain.FileRecord{
		ID:           "a1b2c3d4e5f60718",
		FileID:       "BQACAgIAAxkBAAIB",
		FileUniqueID: "AgADBQAC",
		Name:         "movie.mp4",
		SizeBytes:    3 << 30,
		MIME:         "video/mp4",
		Type:         "video",
		Source:       &domain.SourceLocation{ChatID: -1001234567890, MessageID: 42},
		Duration:     5400,
	})
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if created.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}

	got, err := repo.GetFile(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if got.SizeBytes != 3<<30 || got.MIME != "video/mp4" || got.Duration != 5400 {
		t.Errorf("GetFile = %+v", got)
	}
	if !got.HasSource() || got.Source.ChatID != -1001234567890 || got.Source.MessageID != 42 {
		t.Errorf("Source = %+v", got.Source)
	}

	legacy, err := repo.CreateFile(ctx, domain.FileRecord{
		ID: "legacy0000000001", FileID: "f", FileUniqueID: "u", Name: "old.pdf", SizeBytes: 10,
	})
	if err != nil {
		t.Fatalf("CreateFile legacy: %v", err)
	}
	if legacy.HasSource() {
		t.Error("legacy record should have no source location")
	}
	if legacy.MIME != "application/octet-stream" || legacy.Type != "document" {
		t.Errorf("defaults not applied: %+v", legacy)
	}

	if _, err := repo.GetFile(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetFile(missing) error = %v, want ErrNotFound", err)
	}
}

func TestIncrementDownloadsAndStats(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	for i, size := range []int64{100, 250} {
		id := fmt.Sprintf("file%012d", i)
		if _, err := repo.CreateFile(ctx, domain.FileRecord{ID: id, FileID: "f", FileUniqueID: id, Name: "x", SizeBytes: size}); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := repo.IncrementDownloads(ctx, "file000000000000"); err != nil {
			t.Fatalf("IncrementDownloads: %v", err)
		}
	}
	if err := repo.IncrementDownloads(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("IncrementDownloads(nope) error = %v, want ErrNotFound", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := domain.Stats{TotalFiles: 2, TotalSize: 350, TotalDownloads: 3}
	if stats != want {
		t.Errorf("Stats = %+v, want %+v", stats, want)
	}
}

func TestSettings(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	if _, err := repo.GetSetting(ctx, "mtproto_session"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetSetting on empty table error = %v, want ErrNotFound", err)
	}
	if err := repo.SetSetting(ctx, "mtproto_session", "v1"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := repo.SetSetting(ctx, "mtproto_session", "v2"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	got, err := repo.GetSetting(ctx, "mtproto_session")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if got != "v2" {
		t.Errorf("GetSetting = %q, want v2", got)
	}
}
