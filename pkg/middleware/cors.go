package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/casevault/pkg/configs"
)

// CORSMiddleware 允许浏览器前端跨域调用附件接口.
// 身份与角色头需要显式放行，下载响应暴露 Content-Disposition 与 ETag.
func CORSMiddleware(server configs.ServerConfig, auth configs.AuthConfig) gin.HandlerFunc {
	roleHeader := auth.RoleHeader
	if roleHeader == "" {
		roleHeader = "X-Role"
	}

	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "If-None-Match",
			roleHeader, "X-Auth-Request-Email", "X-Forwarded-Email",
		},
		ExposeHeaders: []string{"Content-Disposition", "Content-Length", "ETag", "Retry-After"},
		MaxAge:        corsMaxAge(server.Debug),
	})
}

func corsMaxAge(debug bool) time.Duration {
	if debug {
		return 0
	}

	return 12 * time.Hour
}
