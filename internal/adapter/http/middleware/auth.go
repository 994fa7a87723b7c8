package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ContextKey is the type of keys this package stores in request contexts.
type ContextKey string

// UserIDCtxKey holds the authenticated user id.
const UserIDCtxKey = ContextKey("user_id")

var (
	ErrTokenMissing   = errors.New("authorization token is not provided")
	ErrTokenMalformed = errors.New("authorization token format is invalid, expected 'Bearer <token>'")
	ErrTokenInvalid   = errors.New("invalid or expired token")
	ErrTokenNoSubject = errors.New("token does not carry a user id")
)

// Claims is the token payload issued by the user service.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTAuth rejects requests without a valid HS256 bearer token and stores the
// token's user id in the request context.
func JWTAuth(jwtSecret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := authenticate(r.Header.Get("Authorization"), jwtSecret)
			if err != nil {
				log.Debug("Rejected unauthenticated request", zap.String("path", r.URL.Path), zap.Error(err))
				unauthorized(w, publicReason(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// authenticate returns the user id carried by a valid bearer token.
func authenticate(header, jwtSecret string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) == 0 {
		return "", ErrTokenMissing
	}
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrTokenMalformed
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return "", ErrTokenInvalid
	}
	if claims.UserID == "" {
		return "", ErrTokenNoSubject
	}
	return claims.UserID, nil
}

// publicReason strips parser detail from the message sent to clients.
func publicReason(err error) string {
	for _, known := range []error{ErrTokenMissing, ErrTokenMalformed, ErrTokenInvalid, ErrTokenNoSubject} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ErrTokenInvalid.Error()
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="marketplace"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDCtxKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok && userID != ""
}
