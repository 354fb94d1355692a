package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/addisrent/addisrent/internal/model"
)

// Policy is a declarative access rule evaluated against the claims in
// the request context. Zero-valued fields are not enforced.
type Policy struct {
	RequiredRoles         []model.UserRole
	RequiredTrustLevel    model.TrustLevel
	RequiresPhoneVerified bool
}

// Require guards a route with a policy. It assumes Auth ran earlier in
// the chain; a request with no user in context is rejected outright.
func Require(p Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if GetUserID(ctx) == "" {
				unauthorized(w, r, "authentication required")
				return
			}

			if len(p.RequiredRoles) > 0 && !roleAllowed(GetRole(ctx), p.RequiredRoles) {
				forbidden(w, r, "role not permitted for this operation")
				return
			}

			if p.RequiredTrustLevel != "" {
				have := GetTrustLevel(ctx)
				if !have.Valid() || have.Index() < p.RequiredTrustLevel.Index() {
					forbidden(w, r, "trust level too low for this operation")
					return
				}
			}

			if p.RequiresPhoneVerified && !GetPhoneVerified(ctx) {
				forbidden(w, r, "phone verification required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func roleAllowed(have model.UserRole, allowed []model.UserRole) bool {
	if have == model.RoleAdmin {
		return true
	}
	for _, role := range allowed {
		if have == role {
			return true
		}
	}
	return false
}

func forbidden(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":       "forbidden",
			"message":    message,
			"request_id": GetRequestID(r.Context()),
		},
	})
}
