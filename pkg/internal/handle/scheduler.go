package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yeisme/casevault/pkg/configs"
	ctxPkg "github.com/yeisme/casevault/pkg/context"
	"github.com/yeisme/casevault/pkg/internal/service"
	"github.com/yeisme/casevault/pkg/scheduler"
)

// schedulerOrAbort 取出调度器，未启用时返回 503.
func schedulerOrAbort(c *gin.Context) *scheduler.Scheduler {
	sched := ctxPkg.GetScheduler(c.Request.Context())
	if sched == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Scheduler is not running."})
	}

	return sched
}

// SchedulerJobs 返回所有调度器任务信息.
//
//	@Summary	定时任务列表
//	@Tags		调度器
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/api/v1/scheduler/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched := schedulerOrAbort(c)
	if sched == nil {
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos()})
}

// SchedulerStopJobs 停止所有任务.
//
//	@Summary	停止全部定时任务
//	@Tags		调度器
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/api/v1/scheduler/jobs/stop [post]
func SchedulerStopJobs(c *gin.Context) {
	sched := schedulerOrAbort(c)
	if sched == nil {
		return
	}

	if err := sched.StopJobs(); err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "jobs stopped"})
}

// SchedulerRemoveJob 根据 id 删除任务.
//
//	@Summary	删除定时任务
//	@Tags		调度器
//	@Produce	json
//	@Param		id	path		string	true	"任务ID"
//	@Success	200	{object}	map[string]string
//	@Router		/api/v1/scheduler/jobs/{id} [delete]
func SchedulerRemoveJob(c *gin.Context) {
	sched := schedulerOrAbort(c)
	if sched == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abort(c, service.NewValidationError("id", "is invalid"))
		return
	}

	if err := sched.RemoveJob(id); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			abort(c, &service.NotFoundError{Message: "Job not found"})
			return
		}

		abort(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job removed"})
}

// SchedulerQueueWaiting 返回队列中等待的任务数.
//
//	@Summary	等待中的任务数
//	@Tags		调度器
//	@Produce	json
//	@Success	200	{object}	map[string]int
//	@Router		/api/v1/scheduler/queue/waiting [get]
func SchedulerQueueWaiting(c *gin.Context) {
	sched := schedulerOrAbort(c)
	if sched == nil {
		return
	}

	c.JSON(http.StatusOK, gin.H{"waiting": sched.JobsWaitingInQueue()})
}

// RunOrphanSweep 立即执行一次孤儿文件清理.
//
//	@Summary	执行孤儿文件清理
//	@Tags		调度器
//	@Produce	json
//	@Success	200	{object}	service.SweepReport
//	@Failure	500	{object}	types.ErrorResponse
//	@Router		/api/v1/scheduler/sweep [post]
func RunOrphanSweep(c *gin.Context) {
	d := service.DepsFromContext(c.Request.Context())

	report, err := service.NewSweeper(d, configs.GetConfig().Jobs.OrphanGrace).Run(requestContext(c))
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
