// Package api 组装 HTTP 引擎：全局中间件、存储与调度器注入以及路由.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/router"
	"github.com/yeisme/casevault/pkg/internal/storage"
	"github.com/yeisme/casevault/pkg/middleware"
	"github.com/yeisme/casevault/pkg/scheduler"
)

// NewEngine 创建配置好的 gin 引擎，sched 可为 nil.
func NewEngine(cfg *configs.AppConfig, manager *storage.Manager, sched *scheduler.Scheduler) *gin.Engine {
	e := gin.New()
	e.MaxMultipartMemory = 32 << 20

	e.Use(middleware.Standard(cfg)...)
	e.Use(middleware.InjectMiddleware(manager, sched))

	RegisterGroup(e, cfg)

	return e
}

// RegisterGroup 注册 API 路由组到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine, cfg *configs.AppConfig) *gin.Engine {
	router.Setup(e, cfg)

	return e
}
