// Package metrics 持有 casevault 的 Prometheus 指标与独立注册表.
//
// 指标变量在包初始化时创建，InitMetrics 按 metrics.enabled 决定是否注册；
// 未注册时各指标仍可安全调用，只是不会被导出.
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 向 DefaultServeMux 注册 /debug/pprof
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/casevault/pkg/configs"
)

const namespace = "casevault"

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
}

// HTTP.
var (
	RequestCounter    = counter("http_requests_total", "HTTP requests by method, route and status", "method", "endpoint", "status")
	RequestDuration   = histogram("http_request_duration_seconds", "HTTP request latency by route", prometheus.DefBuckets, "method", "endpoint")
	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "http_in_flight_requests", Help: "Requests currently being served"})
)

// 附件账本.
var (
	// AttachmentOps 按记录类型、操作与结果计数.
	AttachmentOps   = counter("attachment_operations_total", "Evidence attachment operations", "kind", "op", "result")
	AttachmentBytes = counter("attachment_uploaded_bytes_total", "Bytes written to the blob store by uploads", "kind")
	// LedgerConflicts 条件更新失败后重放的次数.
	LedgerConflicts = counter("ledger_conflicts_total", "Ledger writes re-applied after a version conflict", "kind")
	// SweepDeleted reason 为 owner_missing 或 unreferenced.
	SweepDeleted = counter("orphan_sweep_deleted_total", "Blobs removed by the orphan sweep", "kind", "reason")
)

// 定时任务.
var (
	JobRuns     = counter("job_runs_total", "Scheduled job executions", "job", "result")
	JobDuration = histogram("job_duration_seconds", "Scheduled job duration", []float64{0.05, 0.25, 1, 5, 30, 120, 600}, "job")
)

var (
	registry = prometheus.NewRegistry()
	initOnce sync.Once
)

// InitMetrics 注册全部指标，只生效一次.
func InitMetrics(cfg configs.MetricsConfig) error {
	if !cfg.Enabled {
		return nil
	}

	initOnce.Do(func() {
		if cfg.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		build := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "build_info",
			Help:        "Always 1, labelled with the configured build labels",
			ConstLabels: cfg.Labels,
		})
		build.Set(1)

		registry.MustRegister(
			RequestCounter, RequestDuration, ActiveConnections,
			AttachmentOps, AttachmentBytes, LedgerConflicts, SweepDeleted,
			JobRuns, JobDuration,
			build,
		)
	})

	return nil
}

// StartMetricsServer 在 e 上挂载 metrics.path，metrics.pprof 打开时一并挂载 pprof.
func StartMetricsServer(cfg configs.MetricsConfig, e *gin.Engine) error {
	if !cfg.Enabled {
		return nil
	}

	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}

	e.GET(path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	if cfg.Pprof {
		e.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 返回 casevault 的注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}

// Result 把 err 折叠为 ok 或 error 标签.
func Result(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
