package api

import (
	"encoding/json"
	"net/http"
)

// handleLogin redirects the browser to the Microsoft consent page.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.creds.AuthURL(), http.StatusFound)
}

// handleCallback exchanges the authorization code delivered by Microsoft
// for an access/refresh token pair.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if errCode := r.URL.Query().Get("error"); errCode != "" {
		h.badRequest(w, "authorization denied: "+errCode)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.badRequest(w, "missing authorization code")
		return
	}

	tok, err := h.creds.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("code exchange failed", "error", err)
		h.writeError(w, err)
		return
	}

	h.logger.Info("authenticated via browser flow")
	h.writeJSON(w, http.StatusOK, envelope{
		"success":      true,
		"message":      "authenticated, tokens stored",
		"expiresIn":    tok.ExpiresIn,
		"refreshToken": tok.RefreshToken,
	})
}

// handleRefresh forces a token refresh. An optional body refresh token
// replaces the stored one first, which is how a fresh token is seeded
// after the old grant was revoked.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if r.Body != nil {
		// body is optional, decode errors on an empty body are fine
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if body.RefreshToken != "" {
		h.creds.UseRefreshToken(body.RefreshToken)
	}

	if err := h.creds.Refresh(r.Context()); err != nil {
		h.logger.Error("token refresh failed", "error", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "token refreshed",
	})
}
