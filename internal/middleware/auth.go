package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/todolists/todolists-go/internal/apperr"
	"github.com/todolists/todolists-go/internal/session"
)

// MsgNoToken is the body message for requests without a bearer token.
const MsgNoToken = "Access denied. No token provided."

// TokenValidator checks a bearer token and returns the identity bound to it.
type TokenValidator interface {
	Validate(token string) (session.Identity, error)
}

// RequireSession returns middleware that admits only requests carrying a valid
// bearer token and places the caller's session.Identity in the request context.
func RequireSession(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, MsgNoToken)
				return
			}

			id, err := tokens.Validate(token)
			if err != nil {
				writeJSONError(w, apperr.KindOf(err).Status(), apperr.MessageOf(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), id)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
