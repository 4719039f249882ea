package file

import (
	"net/http"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
	"github.com/kakarotoncloud/Filetolink/internal/gateway"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web/logx"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web/mw"
)

// Download godoc
// @Summary     Download a file
// @Description Streams the file as an attachment. Supports a single "bytes=start-end" range.
// @Tags        files
// @Produce     octet-stream
// @Param       id    path   string true  "file id"
// @Param       Range header string false "bytes=start-end"
// @Success     200 {file} binary
// @Success     206 {file} binary
// @Failure     404 {string} string "File not found, or no source could serve it"
// @Failure     416 {string} string "empty body, Content-Range: bytes */size"
// @Failure     500 {string} string "Failed to serve file"
// @Router      /dl/{id} [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, gateway.ModeDownload, "file.download")
}

// Stream godoc
// @Summary     Stream a file inline
// @Description Same as /dl/{id} with Content-Disposition inline, for media players.
// @Tags        files
// @Produce     octet-stream
// @Param       id    path   string true  "file id"
// @Param       Range header string false "bytes=start-end"
// @Success     200 {file} binary
// @Success     206 {file} binary
// @Failure     404 {string} string "File not found, or no source could serve it"
// @Failure     416 {string} string "empty body, Content-Range: bytes */size"
// @Failure     500 {string} string "Failed to serve file"
// @Router      /stream/{id} [get]
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, gateway.ModeStream, "file.stream")
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, mode gateway.Mode, op string) {
	reqID := mw.RequestIDFromCtx(r.Context())
	id := r.PathValue("id")
	logx.Info(h.Log, reqID, op, "start", "id", id, "range", r.Header.Get("Range"))

	if !domain.ValidFileID(id) {
		logx.Error(h.Log, reqID, op, "bad id", domain.ErrNotFound, "id", id)
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	res := h.Gateway.Serve(w, r, id, mode)

	kv := []any{"id", id, "outcome", res.Outcome, "source", res.Source, "bytes", res.Bytes}
	switch res.Outcome {
	case gateway.OutcomeServed, gateway.OutcomeClientGone:
		logx.Info(h.Log, reqID, op, "done", kv...)
	case gateway.OutcomeNotFound, gateway.OutcomeUnsatisfiable:
		logx.Info(h.Log, reqID, op, "rejected", kv...)
	case gateway.OutcomeFault:
		logx.Error(h.Log, reqID, op, "stream broken after headers, closing connection", res.Err, kv...)
		panic(http.ErrAbortHandler)
	default:
		logx.Error(h.Log, reqID, op, "failed", res.Err, kv...)
	}
}
