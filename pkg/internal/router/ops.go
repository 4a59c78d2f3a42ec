package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/casevault/pkg/internal/handle"
	"github.com/yeisme/casevault/pkg/middleware"
)

// RegisterOpsRoutes 注册运维路由.
//
//	GET    /health/{db,blob,mq,kv}        各依赖的探活，auth.skip_paths 默认放行
//	GET    /scheduler/jobs                定时任务快照
//	POST   /scheduler/jobs/stop           停止全部任务
//	DELETE /scheduler/jobs/:id            移除任务
//	GET    /scheduler/queue/waiting       等待执行的任务数
//	POST   /scheduler/sweep               立即清理孤儿文件
//
// scheduler 下的路由要求 system_admin.
func RegisterOpsRoutes(g *gin.RouterGroup) {
	health := g.Group("/health")
	health.GET("/db", handle.HealthDB)
	health.GET("/blob", handle.HealthBlob)
	health.GET("/mq", handle.HealthMQ)
	health.GET("/kv", handle.HealthKV)

	sched := g.Group("/scheduler", middleware.RequireMinRole(middleware.RoleSystemAdmin))
	sched.GET("/jobs", handle.SchedulerJobs)
	sched.POST("/jobs/stop", handle.SchedulerStopJobs)
	sched.DELETE("/jobs/:id", handle.SchedulerRemoveJob)
	sched.GET("/queue/waiting", handle.SchedulerQueueWaiting)
	sched.POST("/sweep", handle.RunOrphanSweep)
}
