// Package log 提供全局 zerolog 日志.
//
// stderr 按 log.format 输出 console 或 JSON，log.enable_file 打开时额外写入 lumberjack 轮转的 JSON 文件.
// 每条日志带有 app 与 version 字段.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yeisme/casevault/pkg/configs"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init 初始化全局 logger，重复调用无效.
func Init() {
	initOnce.Do(setup)
}

func setup() {
	cfg := configs.GetConfig()

	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil || cfg.Log.Level == "" {
		if cfg.Log.Level != "" {
			fmt.Fprintf(os.Stderr, "invalid log level %q, using info\n", cfg.Log.Level)
		}

		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger = New(Writers(cfg.Log)...).With().
		Str("app", "casevault").
		Str("version", configs.AppVersion).
		Logger()

	if cfg.Server.Debug {
		logger = logger.With().Caller().Logger()

		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Logger = logger
}

// Writers 按配置构造输出端.
func Writers(cfg configs.LogConfig) []io.Writer {
	var out []io.Writer

	if strings.EqualFold(cfg.Format, "json") {
		out = append(out, os.Stderr)
	} else {
		out = append(out, zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
			w.TimeFormat = time.TimeOnly
		}))
	}

	if cfg.EnableFile && cfg.FilePath != "" {
		out = append(out, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}

	return out
}

// New 创建写入 writers 的 logger，没有 writer 时丢弃输出.
func New(writers ...io.Writer) zerolog.Logger {
	switch len(writers) {
	case 0:
		return zerolog.Nop()
	case 1:
		return zerolog.New(writers[0]).With().Timestamp().Logger()
	default:
		return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	}
}

// Logger 返回全局 logger，首次调用时初始化.
func Logger() *zerolog.Logger {
	initOnce.Do(setup)

	return &logger
}

// Component 返回带 component 字段的子 logger.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// GinWriter 把 gin 的文本输出转为 zerolog 事件.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

// NewGinWriter 创建 GinWriter，level 为默认级别.
func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}

	level := w.level
	if strings.HasPrefix(msg, "[WARNING]") || strings.Contains(msg, "[GIN-debug] [WARNING]") {
		level = zerolog.WarnLevel
	}

	w.logger.WithLevel(level).Str("source", "gin").Msg(msg)

	return len(p), nil
}
