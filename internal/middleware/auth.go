package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/addisrent/addisrent/internal/model"
)

const (
	UserIDKey        contextKey = "user_id"
	RoleKey          contextKey = "role"
	TrustLevelKey    contextKey = "trust_level"
	PhoneVerifiedKey contextKey = "phone_verified"
)

// Claims is the JWT payload issued by the identity service. TrustLevel
// and PhoneVerified are stamped at token issue time; the policy guard
// treats them as a floor, not live state.
type Claims struct {
	UserID        string `json:"userId"`
	Role          string `json:"role"`
	TrustLevel    string `json:"trustLevel"`
	PhoneVerified bool   `json:"phoneVerified"`
	jwt.RegisteredClaims
}

// Auth validates the bearer token and stashes the claims in the
// request context.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, r, "authorization header required")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, r, "invalid authorization header format")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, r, "invalid or expired token")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			ctx = context.WithValue(ctx, TrustLevelKey, claims.TrustLevel)
			ctx = context.WithValue(ctx, PhoneVerifiedKey, claims.PhoneVerified)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IssueToken mints a token for a user, used by tests and local tooling.
func IssueToken(secret []byte, userID string, role model.UserRole, trustLevel model.TrustLevel, phoneVerified bool, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:        userID,
		Role:          string(role),
		TrustLevel:    string(trustLevel),
		PhoneVerified: phoneVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

func GetRole(ctx context.Context) model.UserRole {
	if role, ok := ctx.Value(RoleKey).(string); ok {
		return model.UserRole(role)
	}
	return ""
}

func GetTrustLevel(ctx context.Context) model.TrustLevel {
	if lvl, ok := ctx.Value(TrustLevelKey).(string); ok {
		return model.TrustLevel(lvl)
	}
	return ""
}

func GetPhoneVerified(ctx context.Context) bool {
	v, _ := ctx.Value(PhoneVerifiedKey).(bool)
	return v
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":       "unauthorized",
			"message":    message,
			"request_id": GetRequestID(r.Context()),
		},
	})
}
