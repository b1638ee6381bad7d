package middleware

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"telemed-server/internal/models"
	"telemed-server/internal/utils"
)

// Identity is the caller decoded from a verified access token.
type Identity struct {
	UserID string
	Name   string
	Role   models.Role
}

const identityKey = "identity"

// AuthMiddleware verifies the bearer token and stores the caller's Identity
// on the context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(token, secret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}
		if !knownRole(claims.Role) {
			utils.Unauthorized(c, "Invalid token: unknown role")
			c.Abort()
			return
		}

		SetIdentity(c, Identity{UserID: claims.UserID, Name: claims.Name, Role: claims.Role})
		c.Next()
	}
}

// RoleAuthMiddleware admits only the listed roles. It runs after AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			utils.InternalServerError(c, "Caller identity missing from request context")
			c.Abort()
			return
		}
		if !slices.Contains(allowedRoles, id.Role) {
			utils.Forbidden(c, "You do not have permission to access this resource.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// SetIdentity attaches the caller to the request context.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

// IdentityFrom returns the caller stored by AuthMiddleware.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok && id.UserID != ""
}

func GetUserIDFromContext(c *gin.Context) (string, bool) {
	id, ok := IdentityFrom(c)
	return id.UserID, ok
}

// GetUserNameFromContext returns the display name carried in the token.
func GetUserNameFromContext(c *gin.Context) string {
	id, _ := IdentityFrom(c)
	return id.Name
}

func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	id, ok := IdentityFrom(c)
	return id.Role, ok
}

// bearerToken extracts the token from "Bearer <token>"; the scheme is
// case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func knownRole(r models.Role) bool {
	switch r {
	case models.RoleAdmin, models.RoleDoctor, models.RolePatient:
		return true
	}
	return false
}
