// Package queue 定义证据附件的领域事件.
//
// 账本提交之后发布事件，发布失败只记录日志，不影响请求结果.
// 每条消息的 payload 是一个 JSON 信封：
//
//	{
//	  "header":  {"topic": "cv.attachment.stored", "producer": "casevault", "actor": "worker@example.org",
//	              "trace_id": "…", "occurred_at": "2025-01-02T03:04:05.123456Z", "version": "v1"},
//	  "payload": {"owner": {"kind": "cases", "id": 42}, "attachments": [...], "total_files": 3}
//	}
//
// header 中的字段同时写入 watermill metadata，消费者不解码 payload 也能路由和过滤.
// 消费者应忽略未知字段，负载结构变化时提升 version.
package queue

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/bytedance/sonic"
)

// PayloadVersionV1 当前负载版本.
const PayloadVersionV1 = "v1"

// Option 修改事件头.
type Option func(*EventHeader)

// WithTraceID 关联的 trace，同时作为 watermill 的 correlation id.
func WithTraceID(id string) Option { return func(h *EventHeader) { h.TraceID = id } }

// WithProducer 生产者标识.
func WithProducer(p string) Option { return func(h *EventHeader) { h.Producer = p } }

// WithActor 触发事件的用户.
func WithActor(a string) Option { return func(h *EventHeader) { h.Actor = a } }

// NewEventHeader 以当前 UTC 时间创建事件头.
func NewEventHeader(topic string, opts ...Option) EventHeader {
	h := EventHeader{Topic: topic, OccurredAt: time.Now().UTC(), Version: PayloadVersionV1}
	for _, opt := range opts {
		opt(&h)
	}

	return h
}

// NewWatermillMessage 封装信封并设置 metadata，消息 ID 为 ULID，按时间有序.
func NewWatermillMessage[T any](topic string, payload T, opts ...Option) (*message.Message, error) {
	h := NewEventHeader(topic, opts...)

	body, err := sonic.Marshal(Message[T]{Header: h, Payload: payload})
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewULID(), body)

	md := map[string]string{
		"topic":       h.Topic,
		"producer":    h.Producer,
		"actor":       h.Actor,
		"trace_id":    h.TraceID,
		"version":     h.Version,
		"occurred_at": h.OccurredAt.Format(time.RFC3339Nano),
	}
	for k, v := range md {
		if v != "" {
			msg.Metadata.Set(k, v)
		}
	}

	if h.TraceID != "" {
		middleware.SetCorrelationID(h.TraceID, msg)
	}

	return msg, nil
}

// ParseWatermillMessage 解码信封.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	var m Message[T]

	err := sonic.Unmarshal(msg.Payload, &m)

	return m, err
}
