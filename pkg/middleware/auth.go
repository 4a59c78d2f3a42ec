package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/casevault/pkg/configs"
)

const userContextKey = "user"

// AuthMiddleware 基于 oauth2-proxy 注入的请求头做统一身份认证校验.
//   - 优先要求存在 X-Auth-Request-Email 或 X-Forwarded-Email
//   - 支持通过配置跳过某些路径（如 /metrics, /api/v1/health）
//   - 开发模式可允许 query user 兜底（由 configs.auth.dev_allow_query 控制）.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := requestEmail(c)
		if email == "" && conf.DevAllowQuery {
			email = strings.TrimSpace(c.Query("user"))
		}

		if email != "" {
			c.Set(userContextKey, email)
		}

		if !conf.Enabled || isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
			return
		}

		c.Next()
	}
}

// GetUser 返回认证后的用户邮箱，未认证时为空串.
func GetUser(c *gin.Context) string {
	if v := c.GetString(userContextKey); v != "" {
		return v
	}

	return requestEmail(c)
}

func requestEmail(c *gin.Context) string {
	email := strings.TrimSpace(c.GetHeader("X-Auth-Request-Email"))
	if email == "" {
		email = strings.TrimSpace(c.GetHeader("X-Forwarded-Email"))
	}

	return email
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
