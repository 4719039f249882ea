package file

import (
	"errors"
	"net/http"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web/logx"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web/mw"
	v1 "github.com/kakarotoncloud/Filetolink/internal/transport/web/v1"
)

// GetFile godoc
// @Summary     File metadata
// @Tags        api
// @Produce     json
// @Param       id path string true "file id"
// @Success     200 {object} domain.APIEnvelope{data=domain.FileRecord}
// @Failure     404 {object} domain.APIEnvelope
// @Failure     500 {object} domain.APIEnvelope
// @Router      /api/file/{id} [get]
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_file"
	reqID := mw.RequestIDFromCtx(r.Context())
	id := r.PathValue("id")

	if !domain.ValidFileID(id) {
		logx.Error(h.Log, reqID, op, "bad id", domain.ErrNotFound, "id", id)
		v1.WriteDomainError(w, r, domain.ErrNotFound)
		return
	}

	rec, err := h.Files.GetFile(r.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logx.Error(h.Log, reqID, op, "lookup failed", err, "id", id)
		}
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "id", id)
	v1.WriteOKData(w, r, rec)
}

// GetStats godoc
// @Summary     Totals across all files
// @Description Zeros when the store is unavailable.
// @Tags        api
// @Produce     json
// @Success     200 {object} domain.APIEnvelope{data=domain.Stats}
// @Router      /api/stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.stats"
	reqID := mw.RequestIDFromCtx(r.Context())

	st, err := h.Stats.Stats(r.Context())
	if err != nil {
		logx.Error(h.Log, reqID, op, "stats failed, answering zeros", err)
		st = domain.Stats{}
	}
	v1.WriteOKData(w, r, st)
}

// GetBotInfo godoc
// @Summary     Bot account files are sent to
// @Tags        api
// @Produce     json
// @Success     200 {object} domain.APIEnvelope{data=domain.BotInfo}
// @Router      /api/bot-info [get]
func (h *Handler) GetBotInfo(w http.ResponseWriter, r *http.Request) {
	v1.WriteOKData(w, r, h.Bot)
}
