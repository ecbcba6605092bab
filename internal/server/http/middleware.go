package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/equiplookup/internal/common"
	"github.com/dmitrijs2005/equiplookup/internal/logging"
	"github.com/dmitrijs2005/equiplookup/internal/server/auth"
	"github.com/go-chi/chi/v5/middleware"
)

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requestLogContext tags every log record of a request with its id.
func requestLogContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWith(r.Context(), "request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}
		claims, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrTokenExpired):
				writeError(w, http.StatusUnauthorized, common.ErrTokenExpired.Error())
			case errors.Is(err, common.ErrSessionRevoked):
				writeError(w, http.StatusUnauthorized, common.ErrSessionRevoked.Error())
			case errors.Is(err, common.ErrInvalidToken):
				writeError(w, http.StatusUnauthorized, "invalid token")
			default:
				s.logger.Error(r.Context(), "authenticate failed", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		ctx = logging.ContextWith(ctx, "user_id", claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin re-reads the caller's role on every request.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := s.auth.GetUser(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			s.logger.Error(r.Context(), "role lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
