package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// PublishAttachmentStored 发布 cv.attachment.stored 事件.
func PublishAttachmentStored(ctx context.Context, pub message.Publisher, payload AttachmentStoredPayload, opts ...Option) error {
	return publish(ctx, pub, TopicAttachmentStored, payload, opts...)
}

// PublishAttachmentRemoved 发布 cv.attachment.removed 事件.
func PublishAttachmentRemoved(ctx context.Context, pub message.Publisher, payload AttachmentRemovedPayload, opts ...Option) error {
	return publish(ctx, pub, TopicAttachmentRemoved, payload, opts...)
}

// PublishAttachmentPurged 发布 cv.attachment.purged 事件.
func PublishAttachmentPurged(ctx context.Context, pub message.Publisher, payload AttachmentPurgedPayload, opts ...Option) error {
	return publish(ctx, pub, TopicAttachmentPurged, payload, opts...)
}

// ParseAttachmentStored 将 Watermill 消息解析为强类型 Envelope.
func ParseAttachmentStored(msg *message.Message) (Message[AttachmentStoredPayload], error) {
	return ParseWatermillMessage[AttachmentStoredPayload](msg)
}

// ParseAttachmentRemoved 将 Watermill 消息解析为强类型 Envelope.
func ParseAttachmentRemoved(msg *message.Message) (Message[AttachmentRemovedPayload], error) {
	return ParseWatermillMessage[AttachmentRemovedPayload](msg)
}

// ParseAttachmentPurged 将 Watermill 消息解析为强类型 Envelope.
func ParseAttachmentPurged(msg *message.Message) (Message[AttachmentPurgedPayload], error) {
	return ParseWatermillMessage[AttachmentPurgedPayload](msg)
}

// publish 消息带上 ctx，NATS 与 Redis 传输据此控制超时.
func publish[T any](ctx context.Context, pub message.Publisher, topic string, payload T, opts ...Option) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	msg.SetContext(ctx)

	return pub.Publish(topic, msg)
}
