package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielmvs/fleetsync/internal/common"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserID returns the authenticated account ID stored by authMiddleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// authMiddleware requires a valid bearer token. Expired tokens answer with a
// distinguishable error body so clients know to refresh rather than re-login.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, common.ErrorUnauthorized)
			return
		}

		userID, err := s.users.VerifyAccessToken(token)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, common.ErrTokenExpired)
				return
			}
			writeError(w, http.StatusUnauthorized, common.ErrorUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
