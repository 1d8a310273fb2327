package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
)

const (
	csrfFormField = "csrf_token"
	csrfHeader    = "X-CSRF-Token"
)

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// csrfMiddleware rejects requests whose form field or header token does not
// match the token kept in the signed session cookie.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := h.csrfToken(r)
		if want == "" {
			slog.Warn("CSRF session token missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		got := r.Header.Get(csrfHeader)
		if got == "" {
			got = r.PostFormValue(csrfFormField)
		}
		if got == "" {
			slog.Warn("CSRF request token missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		if len(got) != len(want) || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			slog.Warn("CSRF token mismatch")
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
