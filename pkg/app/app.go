// Package app 提供应用程序的初始化、运行与优雅退出.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/casevault/pkg/api"
	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/jobs"
	"github.com/yeisme/casevault/pkg/internal/storage"
	"github.com/yeisme/casevault/pkg/log"
	"github.com/yeisme/casevault/pkg/metrics"
	"github.com/yeisme/casevault/pkg/queue"
	"github.com/yeisme/casevault/pkg/scheduler"
	"github.com/yeisme/casevault/pkg/tracing"
)

// App 一个完整的 HTTP 服务实例.
type App struct {
	Engine  *gin.Engine
	config  *configs.AppConfig
	manager *storage.Manager
	sched   *scheduler.Scheduler
	l       *zerolog.Logger
}

// NewApp 加载配置并初始化追踪、监控、存储、调度器与路由.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()
	l := log.Logger()

	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	var sched *scheduler.Scheduler

	if config.Jobs.Enabled {
		if sched, err = scheduler.NewScheduler(); err != nil {
			_ = manager.Close()
			return nil, fmt.Errorf("init scheduler: %w", err)
		}

		if err := jobs.RegisterCronJobs(sched, manager, config.Jobs); err != nil {
			_ = sched.Stop()
			_ = manager.Close()

			return nil, err
		}
	}

	engine := api.NewEngine(config, manager, sched)

	if err := metrics.StartMetricsServer(config.Metrics, engine); err != nil {
		return nil, fmt.Errorf("start metrics: %w", err)
	}

	return &App{
		Engine:  engine,
		config:  config,
		manager: manager,
		sched:   sched,
		l:       l,
	}, nil
}

// Run 启动服务并阻塞，ctx 取消后在 server.timeout 内优雅退出.
func (a *App) Run(ctx context.Context) error {
	if a.sched != nil {
		a.sched.Start()
	}

	if mq := a.manager.GetMQClient(); mq != nil && a.config.Events.Audit {
		queue.RegisterAudit(mq, *a.l)

		go func() {
			if err := mq.Run(ctx); err != nil {
				a.l.Error().Err(err).Msg("mq router stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:              a.config.Server.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.ReadHeaderTimeoutDuration(),
		ReadTimeout:       a.config.Server.ReadTimeoutDuration(),
	}

	errCh := make(chan error, 1)

	go func() {
		a.l.Info().Str("addr", srv.Addr).Str("version", configs.AppVersion).Msg("casevault listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		a.close(context.Background())
		return err
	case <-ctx.Done():
	}

	a.l.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.GetTimeoutDuration())
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	a.close(shutdownCtx)

	return err
}

// close 依次停止调度器、追踪与存储.
func (a *App) close(ctx context.Context) {
	if a.sched != nil {
		if err := a.sched.Stop(); err != nil {
			a.l.Warn().Err(err).Msg("stop scheduler failed")
		}
	}

	if err := tracing.ShutdownTracer(ctx); err != nil {
		a.l.Warn().Err(err).Msg("shutdown tracer failed")
	}

	if err := a.manager.Close(); err != nil {
		a.l.Warn().Err(err).Msg("close storage failed")
	}
}
