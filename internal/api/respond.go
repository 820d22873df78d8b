package api

import (
	"encoding/json"
	"net/http"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/errs"
	"github.com/CarlosOrtiz/mail-pdf-backend/pkg/models"
)

type envelope map[string]any

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps a pipeline error onto an HTTP status and the standard
// error envelope. The raw remote detail is only exposed in staging.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)

	detail := &models.ErrorDetail{
		Kind:    string(kind),
		Message: err.Error(),
	}
	if h.cfg.Staging() {
		detail.Detail = errs.DetailOf(err)
	}

	h.writeJSON(w, statusFor(kind), envelope{
		"success": false,
		"error":   detail,
	})
}

func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindAuthUnavailable, errs.KindReauthRequired, errs.KindUnauthorized:
		return http.StatusUnauthorized
	case errs.KindMalformedMessage:
		return http.StatusUnprocessableEntity
	case errs.KindBatchInProgress:
		return http.StatusConflict
	case errs.KindRemoteStore, errs.KindFolderResolutionFailed, errs.KindBatchListingFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, envelope{
		"success": false,
		"error":   &models.ErrorDetail{Kind: "bad_request", Message: msg},
	})
}

// scrubResult drops remote diagnostics from a conversion result outside
// staging.
func (h *Handler) scrubResult(res *models.ConversionResult) {
	if h.cfg.Staging() || res == nil || res.Error == nil {
		return
	}
	res.Error.Detail = ""
}

func (h *Handler) scrubReport(report *models.BatchReport) {
	if report == nil {
		return
	}
	for i := range report.Results {
		h.scrubResult(&report.Results[i])
	}
}
