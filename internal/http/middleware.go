package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/zsiskos/roadstartire/internal/auth"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/repository"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userKey
)

type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

type UserLoader interface {
	GetProfile(ctx context.Context, userID int64) (*domain.User, error)
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware validates the bearer token and loads the caller. The
// account must still be active: staff deactivating a user, or the user
// editing their profile, locks out tokens issued before.
func AuthMiddleware(tokens TokenParser, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
				return
			}

			claims, err := tokens.Parse(token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthenticated", auth.ErrInvalidToken.Error())
				return
			}

			user, err := users.GetProfile(r.Context(), claims.UserID)
			if errors.Is(err, repository.ErrUserNotFound) {
				respondError(w, http.StatusUnauthorized, "unauthenticated", "user no longer exists")
				return
			}
			if err != nil {
				mapServiceError(w, r, err)
				return
			}
			if !user.IsActive {
				respondError(w, http.StatusForbidden, "account_inactive", "account is not active")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStaff must run after AuthMiddleware.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := getUserFromContext(r.Context())
		if user == nil || !user.IsStaff {
			respondError(w, http.StatusForbidden, "permission_denied", "staff only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken also accepts ?token= since browsers cannot set headers on
// websocket handshakes.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func getUserFromContext(ctx context.Context) *domain.User {
	if user, ok := ctx.Value(userKey).(*domain.User); ok {
		return user
	}
	return nil
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
