package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/kakarotoncloud/Filetolink/internal/config"
	"github.com/kakarotoncloud/Filetolink/internal/domain"
	"github.com/kakarotoncloud/Filetolink/internal/gateway"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web/v1/file"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web/v1/health"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Gateway *gateway.Gateway
	Files   domain.FilesRepo
	Stats   file.StatsReader
	Bot     domain.BotInfo

	DB    health.Pinger
	Cache health.Pinger
	Bulk  health.Readier // nil when bulk transfer is disabled
}

type Server struct {
	log    *log.Logger
	server *http.Server
	cfg    *config.Config
}

func New(logger *log.Logger, cfg *config.Config, deps Deps) *Server {
	healthLog := log.New(logger.Writer(), logger.Prefix()+"[health] ", logger.Flags())
	fileLog := log.New(logger.Writer(), logger.Prefix()+"[file] ", logger.Flags())

	healthHandler := &health.Handler{DB: deps.DB, Cache: deps.Cache, Bulk: deps.Bulk, Log: healthLog}
	fileHandler := &file.Handler{
		Log:     fileLog,
		Gateway: deps.Gateway,
		Files:   deps.Files,
		Stats:   deps.Stats,
		Bot:     deps.Bot,
	}

	// No WriteTimeout: a download may legitimately take hours.
	// Dead clients are detected per write by the gateway sink.
	srv := &http.Server{
		Addr:              cfg.AppPort,
		Handler:           newRouter(healthHandler, fileHandler, logger),
		ReadTimeout:       10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{server: srv, cfg: cfg, log: logger}
}

// Run serves until Close is called.
func (ws *Server) Run() error {
	ws.log.Printf("started on %s", ws.server.Addr)
	if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ws *Server) Close(ctx context.Context) {
	if err := ws.server.Shutdown(ctx); err != nil {
		ws.log.Printf("forced to shutdown: %v", err)
		// cut the downloads still in flight
		_ = ws.server.Close()
	}
	ws.log.Println("exited gracefully")
}
