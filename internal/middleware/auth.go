package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkordes/mileage-tracker/internal/auth"
)

// TokenParser verifies a bearer token and returns its claims.
type TokenParser interface {
	Parse(token string) (auth.Claims, error)
}

// SessionResumer accepts or rejects a token generation for a user.
type SessionResumer interface {
	Resume(userID string, generation int) bool
}

// RequireAuth rejects requests without a valid bearer token with 401. On
// success the token subject is stored in the request context, where
// auth.UserIDFrom finds it.
//
// Tokens issued before the user's last sign-out are rejected.
func RequireAuth(tokens TokenParser, sessions SessionResumer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			if !sessions.Resume(claims.Subject, claims.Generation) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "session has been signed out")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), claims.Subject)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes the API's standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error errorDetail `json:"error"`
	}{errorDetail{Code: code, Message: message}})
}
