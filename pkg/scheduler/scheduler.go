// Package scheduler 封装 gocron/v2，为维护任务提供按名称管理、单例执行与运行统计.
//
// 同一任务不会并发执行：上一轮未结束时，本轮触发被跳过并等待下一次调度.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yeisme/casevault/pkg/log"
	"github.com/yeisme/casevault/pkg/metrics"
)

// ErrJobNotFound 任务不存在.
var ErrJobNotFound = errors.New("scheduler: job not found")

// Task 定时任务函数，返回的错误计入失败统计.
type Task func(ctx context.Context) error

// JobStatus 任务状态.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled"
	StatusRunning   JobStatus = "running"
	StatusFailed    JobStatus = "failed"
)

// JobInfo 任务快照.
type JobInfo struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	CronExpr     string        `json:"cron_expr"`
	Status       JobStatus     `json:"status"`
	NextRun      *time.Time    `json:"next_run,omitempty"`
	LastRun      *time.Time    `json:"last_run,omitempty"`
	LastDuration time.Duration `json:"last_duration_ns"`
	LastError    string        `json:"last_error,omitempty"`
	Runs         int           `json:"runs"`
	Failures     int           `json:"failures"`
	CreatedAt    time.Time     `json:"created_at"`
}

type entry struct {
	job  gocron.Job
	info JobInfo
}

// Scheduler 定时任务调度器.
type Scheduler struct {
	cron gocron.Scheduler
	l    zerolog.Logger

	mu     sync.RWMutex
	byName map[string]*entry
	byID   map[uuid.UUID]string
}

// NewScheduler 创建调度器，调用 Start 后开始触发任务.
func NewScheduler() (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		cron:   cron,
		l:      log.Component("scheduler"),
		byName: make(map[string]*entry),
		byID:   make(map[uuid.UUID]string),
	}, nil
}

// AddCron 以 cron 表达式注册任务，六段表达式视为带秒.
// ctx 作为每次执行的基础上下文.
func (s *Scheduler) AddCron(ctx context.Context, name, cronExpr string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[name]; ok {
		return fmt.Errorf("scheduler: job %q already exists", name)
	}

	withSeconds := len(strings.Fields(cronExpr)) == 6

	j, err := s.cron.NewJob(
		gocron.CronJob(cronExpr, withSeconds),
		gocron.NewTask(func(ctx context.Context) { s.run(ctx, name, task) }, ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduler: add %q: %w", name, err)
	}

	s.byName[name] = &entry{
		job: j,
		info: JobInfo{
			ID:        j.ID().String(),
			Name:      name,
			CronExpr:  cronExpr,
			Status:    StatusScheduled,
			CreatedAt: time.Now(),
		},
	}
	s.byID[j.ID()] = name

	s.l.Info().Str("job", name).Str("cron", cronExpr).Msg("cron job registered")

	return nil
}

// run 执行任务并记录统计，panic 按失败处理.
func (s *Scheduler) run(ctx context.Context, name string, task Task) {
	start := time.Now()
	s.mark(name, func(info *JobInfo) { info.Status = StatusRunning })

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()

		return task(ctx)
	}()

	elapsed := time.Since(start)

	s.mark(name, func(info *JobInfo) {
		info.Runs++
		info.LastRun = &start
		info.LastDuration = elapsed
		info.Status = StatusScheduled
		info.LastError = ""

		if err != nil {
			info.Failures++
			info.Status = StatusFailed
			info.LastError = err.Error()
		}
	})

	metrics.JobRuns.WithLabelValues(name, metrics.Result(err)).Inc()
	metrics.JobDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		s.l.Error().Err(err).Str("job", name).Dur("elapsed", elapsed).Msg("job failed")
		return
	}

	s.l.Debug().Str("job", name).Dur("elapsed", elapsed).Msg("job finished")
}

func (s *Scheduler) mark(name string, fn func(*JobInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.byName[name]; ok {
		fn(&e.info)
	}
}

// RunNow 立即触发一次任务，不影响原有调度.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	e, ok := s.byName[name]
	s.mu.RUnlock()

	if !ok {
		return ErrJobNotFound
	}

	return e.job.RunNow()
}

// RemoveJob 按 ID 移除任务.
func (s *Scheduler) RemoveJob(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.byID[id]
	if !ok {
		return ErrJobNotFound
	}

	if err := s.cron.RemoveJob(id); err != nil {
		return err
	}

	delete(s.byID, id)
	delete(s.byName, name)

	s.l.Info().Str("job", name).Msg("job removed")

	return nil
}

// GetJobInfos 返回按名称排序的任务快照.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.byName))

	for _, e := range s.byName {
		info := e.info
		if next, err := e.job.NextRun(); err == nil && !next.IsZero() {
			info.NextRun = &next
		}

		out = append(out, info)
	}

	slices.SortFunc(out, func(a, b JobInfo) int { return strings.Compare(a.Name, b.Name) })

	return out
}

// JobsWaitingInQueue 等待执行的任务数.
func (s *Scheduler) JobsWaitingInQueue() int {
	return s.cron.JobsWaitingInQueue()
}

// StopJobs 停止触发全部任务，调度器本身保持可用.
func (s *Scheduler) StopJobs() error {
	return s.cron.StopJobs()
}

// Start 开始调度.
func (s *Scheduler) Start() {
	s.l.Info().Int("jobs", len(s.GetJobInfos())).Msg("scheduler started")
	s.cron.Start()
}

// Stop 关闭调度器并等待运行中的任务结束.
func (s *Scheduler) Stop() error {
	s.l.Info().Msg("scheduler stopping")
	return s.cron.Shutdown()
}
