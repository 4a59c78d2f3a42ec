package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/casevault/pkg/configs"
)

// Role 请求方角色，数值越大权限越高.
type Role int

const (
	RoleNone Role = iota
	RoleFocalPerson
	RoleDirector
	RoleSystemAdmin
)

// String 返回角色的字符串表示.
func (r Role) String() string {
	switch r {
	case RoleFocalPerson:
		return "focal_person"
	case RoleDirector:
		return "director"
	case RoleSystemAdmin:
		return "system_admin"
	case RoleNone:
		fallthrough
	default:
		return "none"
	}
}

const roleContextKey = "role"

type roleKey struct{}

// ParseRole 解析角色名，未知值为 RoleNone.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "focal_person":
		return RoleFocalPerson
	case "director":
		return RoleDirector
	case "system_admin":
		return RoleSystemAdmin
	default:
		return RoleNone
	}
}

// RoleMiddleware 解析 auth.role_header 并注入到 gin.Context 和 request.Context.
// 请求未携带该头时使用 auth.default_role.
func RoleMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	fallback := ParseRole(conf.DefaultRole)

	header := conf.RoleHeader
	if header == "" {
		header = "X-Role"
	}

	return func(c *gin.Context) {
		r := fallback
		if h := c.GetHeader(header); h != "" {
			r = ParseRole(h)
		}

		c.Set(roleContextKey, r)
		ctx := context.WithValue(c.Request.Context(), roleKey{}, r)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetRole 从 gin.Context 获取当前请求角色.
func GetRole(c *gin.Context) Role {
	if v, ok := c.Get(roleContextKey); ok {
		if r, ok2 := v.(Role); ok2 {
			return r
		}
	}

	return RoleFromContext(c.Request.Context())
}

// RoleFromContext 从 request context 获取角色，供下游 service 使用.
func RoleFromContext(ctx context.Context) Role {
	if r, ok := ctx.Value(roleKey{}).(Role); ok {
		return r
	}

	return RoleNone
}

// RequireMinRole 要求最小角色，不满足则返回 403.
func RequireMinRole(minRole Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) < minRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "This action requires the " + minRole.String() + " role.",
			})

			return
		}

		c.Next()
	}
}
