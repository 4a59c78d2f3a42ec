package mq

import (
	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// watermillLogger 让 watermill 路由与 pub/sub 写入应用 zerolog.
// watermill 的 Info 级别非常频繁，降为 Debug 输出.
type watermillLogger struct {
	l zerolog.Logger
}

// NewLoggerAdapter 包装 zerolog 为 watermill.LoggerAdapter.
func NewLoggerAdapter(l *zerolog.Logger) watermill.LoggerAdapter {
	return watermillLogger{l: l.With().Str("component", "mq").Logger()}
}

func (w watermillLogger) log(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	if len(fields) > 0 {
		ev = ev.Fields(map[string]any(fields))
	}

	ev.Msg(msg)
}

func (w watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.log(w.l.Error().Err(err), msg, fields)
}

func (w watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.log(w.l.Debug(), msg, fields)
}

func (w watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.log(w.l.Trace(), msg, fields)
}

func (w watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.log(w.l.Trace(), msg, fields)
}

func (w watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{l: w.l.With().Fields(map[string]any(fields)).Logger()}
}
