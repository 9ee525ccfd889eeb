package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
	"github.com/oksasatya/kcal-diary-bot/pkg/response"
)

const (
	CtxSubjectKey = "subject"
	RoleAdmin     = "admin"
	// RoleTransport is held by the chat adapter that forwards user events.
	RoleTransport = "transport"
)

// AdminAuth validates the bearer access token and requires the admin role.
// On success the token subject is stored under CtxSubjectKey.
func AdminAuth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return RequireRole(jwt, RoleAdmin)
}

// TransportAuth guards the chat endpoints. Admin tokens pass too.
func TransportAuth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return RequireRole(jwt, RoleTransport, RoleAdmin)
}

// RequireRole answers 401 without a valid bearer token and 403 when its role is not listed.
func RequireRole(jwt *helpers.JWTManager, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Abort(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(strings.TrimSpace(token))
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "invalid access token", err.Error())
			return
		}
		if !slices.Contains(roles, claims.Role) {
			response.Abort(c, http.StatusForbidden, "role not permitted", nil)
			return
		}
		c.Set(CtxSubjectKey, claims.Subject)
		c.Next()
	}
}
