package web

import (
	"log"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/kakarotoncloud/Filetolink/internal/docs"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web/mw"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web/v1/file"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web/v1/health"
)

func newRouter(hh *health.Handler, fh *file.Handler, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /v1/healthz", hh.Liveness)
	mux.HandleFunc("GET /v1/readyz", hh.Readiness)

	// files; GET patterns also match HEAD
	mux.HandleFunc("GET /dl/{id}", fh.Download)
	mux.HandleFunc("GET /stream/{id}", fh.Stream)

	// json api
	mux.HandleFunc("GET /api/file/{id}", fh.GetFile)
	mux.HandleFunc("GET /api/stats", fh.GetStats)
	mux.HandleFunc("GET /api/bot-info", fh.GetBotInfo)

	// swagger
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	return mw.WithRequestID(mw.Logging(logger)(mux))
}
