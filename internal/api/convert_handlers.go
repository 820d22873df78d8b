package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/database"
)

type convertRequest struct {
	FileID       string `json:"fileId"`
	TargetFolder string `json:"targetFolder"`
}

// handleConvert converts a single stored message on demand. When no
// target folder is given the result lands in today's date folder, same
// as the nightly batch.
func (h *Handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid JSON body")
		return
	}
	if req.FileID == "" {
		h.badRequest(w, "missing fileId")
		return
	}

	res, err := h.pipeline.ConvertAndUpload(r.Context(), req.FileID, req.TargetFolder)
	if err != nil {
		h.logger.Error("conversion failed", "file_id", req.FileID, "error", err)
		h.writeError(w, err)
		return
	}

	h.scrubResult(res)
	h.writeJSON(w, http.StatusOK, res)
}

// handleBatch runs the full daily conversion over today's folder.
func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	report, err := h.batch.RunToday(r.Context())
	if err != nil {
		h.logger.Error("batch run failed", "error", err)
		h.writeError(w, err)
		return
	}

	h.scrubReport(report)
	h.writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"report":  report,
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeJSON(w, http.StatusOK, envelope{
			"success": true,
			"records": []database.ConversionRecord{},
		})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("history query failed", "error", err)
		h.writeError(w, err)
		return
	}
	if records == nil {
		records = []database.ConversionRecord{}
	}

	h.writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"records": records,
	})
}
