package api

import (
	"net/http"

	"github.com/CarlosOrtiz/mail-pdf-backend/pkg/models"
)

func (h *Handler) handleListRoot(w http.ResponseWriter, r *http.Request) {
	items, err := h.drive.ListRoot(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeItems(w, items)
}

func (h *Handler) handleListFolder(w http.ResponseWriter, r *http.Request) {
	items, err := h.drive.ListChildren(r.Context(), r.PathValue("folderId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeItems(w, items)
}

func (h *Handler) handleFile(w http.ResponseWriter, r *http.Request) {
	item, _, err := h.drive.Get(r.Context(), r.PathValue("fileId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope{"success": true, "file": item})
}

// handleDownloadURL hands out the short-lived pre-authenticated download
// link instead of proxying the content through this service.
func (h *Handler) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	item, downloadURL, err := h.drive.Get(r.Context(), r.PathValue("fileId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope{
		"success":     true,
		"name":        item.Name,
		"size":        item.Size,
		"downloadUrl": downloadURL,
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.badRequest(w, "missing query parameter q")
		return
	}

	items, err := h.drive.Search(r.Context(), query)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeItems(w, items)
}

// handleVerifyToken makes a cheap drive call to check whether the stored
// credential is still accepted.
func (h *Handler) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	if err := h.drive.Probe(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope{"success": true, "valid": true})
}

func (h *Handler) writeItems(w http.ResponseWriter, items []models.RemoteItem) {
	if items == nil {
		items = []models.RemoteItem{}
	}
	h.writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"count":   len(items),
		"items":   items,
	})
}
