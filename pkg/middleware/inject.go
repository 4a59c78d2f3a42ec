package middleware

import (
	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/casevault/pkg/context"
	"github.com/yeisme/casevault/pkg/internal/storage"
	"github.com/yeisme/casevault/pkg/scheduler"
)

// InjectMiddleware 把存储管理器和调度器放进 request.Context，sched 可为 nil.
func InjectMiddleware(manager *storage.Manager, sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxPkg.WithStorageManager(c.Request.Context(), manager)
		if sched != nil {
			ctx = ctxPkg.WithScheduler(ctx, sched)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
