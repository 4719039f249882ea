package file

import (
	"context"
	"log"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
	"github.com/kakarotoncloud/Filetolink/internal/gateway"
)

// StatsReader is the aggregate side of the metadata store.
type StatsReader interface {
	Stats(ctx context.Context) (domain.Stats, error)
}

type Handler struct {
	Log     *log.Logger
	Gateway *gateway.Gateway
	Files   domain.FilesRepo
	Stats   StatsReader
	Bot     domain.BotInfo
}
