package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	ctxPkg "github.com/yeisme/casevault/pkg/context"
	"github.com/yeisme/casevault/pkg/log"
)

// GinLoggerMiddleware 每个请求一条访问日志，级别随状态码升高.
// 查询串可能包含证据文件名，不写入日志.
func GinLoggerMiddleware() gin.HandlerFunc {
	base := log.Component("http")

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		l := ctxPkg.WithTraceContext(c.Request.Context(), base)

		var ev *zerolog.Event

		switch {
		case status >= http.StatusInternalServerError:
			ev = l.Error()
		case status >= http.StatusBadRequest:
			ev = l.Warn()
		case strings.Contains(c.FullPath(), "/health/"):
			ev = l.Debug()
		default:
			ev = l.Info()
		}

		ev = ev.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", c.FullPath()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if user := GetUser(c); user != "" {
			ev = ev.Str("user", user).Stringer("role", GetRole(c))
		}

		if len(c.Errors) > 0 {
			ev = ev.Str("error", c.Errors.String())
		}

		ev.Msg("request")
	}
}
