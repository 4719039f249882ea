package domain

import "time"

// SourceLocation points at the Telegram message that carries the file.
type SourceLocation struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// FileRecord is the metadata of a registered file. The bytes stay in Telegram.
type FileRecord struct {
	ID           string `json:"id"`
	FileID       string `json:"file_id"` // Bot API handle, resolvable through getFile
	FileUniqueID string `json:"file_unique_id"`
	Name         string `json:"file_name"`
	SizeBytes    int64  `json:"file_size"` // 0 when unknown
	MIME         string `json:"mime_type"`
	Type         string `json:"file_type"`

	ThumbnailFileID string `json:"thumbnail_file_id,omitempty"`
	SenderName      string `json:"sender_name,omitempty"`
	SenderID        int64  `json:"sender_id,omitempty"`

	// nil for records registered before bulk transfer existed
	Source *SourceLocation `json:"source,omitempty"`

	Duration int `json:"duration,omitempty"`
	Width    int `json:"width,omitempty"`
	Height   int `json:"height,omitempty"`

	Downloads int64     `json:"downloads"`
	CreatedAt time.Time `json:"created_at"`
}

// HasSource reports whether the bulk-transfer path may be attempted.
func (f FileRecord) HasSource() bool {
	return f.Source != nil && f.Source.ChatID != 0 && f.Source.MessageID != 0
}

// Stats is the aggregate shown on the landing page.
type Stats struct {
	TotalFiles     int64 `json:"totalFiles"`
	TotalSize      int64 `json:"totalSize"`
	TotalDownloads int64 `json:"totalDownloads"`
}

// BotInfo describes the bot account files are sent to.
type BotInfo struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}
