package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "userID"

// devUserHeader carries the caller id when DEV_AUTH is on.
const devUserHeader = "X-User-ID"

// Authenticator resolves the caller from Supabase-issued access tokens.
type Authenticator struct {
	secret  []byte
	devAuth bool
	logger  *zap.Logger
}

// NewAuthenticator verifies HS256 tokens signed with secret. With devAuth a
// request without a bearer token may name its user in X-User-ID.
func NewAuthenticator(secret string, devAuth bool, logger *zap.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), devAuth: devAuth, logger: logger}
}

// ValidateToken returns the token subject.
func (a *Authenticator) ValidateToken(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", &domain.ErrUnauthorized{Message: "token verification is not configured"}
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}
	if claims.Subject == "" {
		return "", &domain.ErrUnauthorized{Message: "token has no subject"}
	}
	return claims.Subject, nil
}

// Middleware rejects unauthenticated requests and injects the user id.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if a.devAuth {
				if userID := strings.TrimSpace(r.Header.Get(devUserHeader)); userID != "" {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
					return
				}
			}
			a.logger.Warn("auth: missing token",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			a.logger.Warn("auth: invalid token format",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			writeError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		userID, err := a.ValidateToken(parts[1])
		if err != nil {
			a.logger.Warn("auth: invalid or expired token",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}
