// Package middleware 提供 HTTP 中间件：认证、角色、限流、熔断、追踪、监控与请求日志.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/casevault/pkg/configs"
)

// Standard 返回全局中间件链，顺序即执行顺序.
func Standard(cfg *configs.AppConfig) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{
		gin.Recovery(),
		CORSMiddleware(cfg.Server, cfg.Auth),
		TracingMiddleware(),
		GinLoggerMiddleware(),
	}

	if cfg.Metrics.Enabled {
		chain = append(chain, PrometheusMiddleware())
	}

	return append(chain,
		AuthMiddleware(cfg.Auth),
		RoleMiddleware(cfg.Auth),
		RateLimitMiddleware(cfg.RateLimit),
		CircuitBreakerMiddleware(cfg.CircuitBreaker),
	)
}
