package health

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web/logx"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web/mw"
	v1 "github.com/kakarotoncloud/Filetolink/internal/transport/web/v1"
)

type Pinger interface {
	Ping(context.Context) error
}

// Readier is the bulk-transfer client. Not being ready is a normal state.
type Readier interface {
	Ready() bool
}

type Handler struct {
	Log   *log.Logger
	DB    Pinger
	Cache Pinger
	Bulk  Readier // may be nil when bulk transfer is disabled
}

// Readiness payload.
type Status struct {
	Status       string `json:"status"`
	BulkTransfer bool   `json:"bulk_transfer"`
}

// Liveness godoc
// @Summary      Liveness probe
// @Description  Whether the process is up; does not touch the database or cache
// @Tags         health
// @Produce      json
// @Success      200  {object}  domain.APIEnvelope{data=string}
// @Router       /v1/healthz [get]
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	const op = "health.liveness"
	reqID := mw.RequestIDFromCtx(r.Context())

	logx.Info(h.Log, reqID, op, "ok")
	v1.WriteOKData(w, r, "ok")
}

// Readiness godoc
// @Summary      Readiness probe
// @Description  Pings PostgreSQL and Redis and reports whether MTProto bulk transfer is available
// @Tags         health
// @Produce      json
// @Success      200  {object}  domain.APIEnvelope{data=health.Status}
// @Failure      500  {object}  domain.APIEnvelope
// @Router       /v1/readyz [get]
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	const op = "health.readiness"
	reqID := mw.RequestIDFromCtx(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		logx.Error(h.Log, reqID, op, "db ping failed", err)
		v1.WriteDomainError(w, r, domain.ErrUnexpected)
		return
	}

	if err := h.Cache.Ping(ctx); err != nil {
		logx.Error(h.Log, reqID, op, "cache ping failed", err)
		v1.WriteDomainError(w, r, domain.ErrUnexpected)
		return
	}

	st := Status{Status: "ready", BulkTransfer: h.Bulk != nil && h.Bulk.Ready()}
	logx.Info(h.Log, reqID, op, "ready", "bulk_transfer", st.BulkTransfer)
	v1.WriteOKData(w, r, st)
}
