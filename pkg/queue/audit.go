package queue

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
)

// AuditEntry 审计日志记录的字段.
type AuditEntry struct {
	Header  EventHeader     `json:"header"`
	Payload json.RawMessage `json:"payload"`
}

// NewAuditHandler 返回把附件事件写入日志的消费者，解析失败的消息直接丢弃.
func NewAuditHandler(l zerolog.Logger) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var entry AuditEntry
		if err := sonic.Unmarshal(msg.Payload, &entry); err != nil {
			l.Warn().Err(err).Str("uuid", msg.UUID).Msg("drop malformed attachment event")
			return nil
		}

		l.Info().
			Str("uuid", msg.UUID).
			Str("topic", entry.Header.Topic).
			Str("actor", entry.Header.Actor).
			Str("trace_id", entry.Header.TraceID).
			Time("occurred_at", entry.Header.OccurredAt).
			RawJSON("payload", entry.Payload).
			Msg("attachment audit")

		return nil
	}
}

// Consumer 可注册消费者的 MQ 客户端.
type Consumer interface {
	AddConsumer(name, topic string, h message.NoPublishHandlerFunc)
}

// RegisterAudit 为所有附件主题注册审计消费者.
func RegisterAudit(c Consumer, l zerolog.Logger) {
	h := NewAuditHandler(l)
	for _, topic := range AttachmentTopics {
		c.AddConsumer("audit."+topic, topic, h)
	}
}
