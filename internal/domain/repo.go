package domain

import "context"

// FilesRepo is what the streaming path needs from the metadata store.
type FilesRepo interface {
	GetFile(ctx context.Context, id string) (FileRecord, error)
	IncrementDownloads(ctx context.Context, id string) error
}

// FilesCatalog adds registration and aggregates on top of FilesRepo.
type FilesCatalog interface {
	FilesRepo
	CreateFile(ctx context.Context, f FileRecord) (FileRecord, error)
	Stats(ctx context.Context) (Stats, error)
}

// SettingsRepo stores single string values by key.
// GetSetting returns ErrNotFound for a missing key.
type SettingsRepo interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}
