package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/storage/mq"
)

func newGoChannelClient(t *testing.T) *mq.Client {
	t.Helper()

	cfg := configs.Default().MQ
	cfg.Type = configs.MQTypeGoChannel

	c, err := mq.New(context.Background(), &cfg, false)
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestRegisteredTypes(t *testing.T) {
	types := mq.GetRegisteredMQTypes()
	assert.Contains(t, types, configs.MQTypeGoChannel)
	assert.Contains(t, types, configs.MQTypeNATS)
	assert.Contains(t, types, configs.MQTypeRedis)
}

func TestUnsupportedType(t *testing.T) {
	cfg := configs.MQConfig{Type: "kafka"}

	_, err := mq.New(context.Background(), &cfg, false)
	assert.Error(t, err)
}

func TestGoChannelPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := newGoChannelClient(t)

	ch, err := c.Subscribe(ctx, "cv.attachment.stored")
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"ok":true}`))
	require.NoError(t, c.Publish(ctx, "cv.attachment.stored", msg))

	select {
	case got := <-ch:
		assert.Equal(t, msg.UUID, got.UUID)
		assert.JSONEq(t, `{"ok":true}`, string(got.Payload))
		got.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestConsumerRouter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := newGoChannelClient(t)
	received := make(chan string, 1)

	c.AddConsumer("test-consumer", "cv.attachment.removed", func(m *message.Message) error {
		received <- string(m.Payload)
		return nil
	})

	go func() { _ = c.Run(ctx) }()

	select {
	case <-c.Running():
	case <-ctx.Done():
		t.Fatal("router did not start")
	}

	require.NoError(t, c.Publish(ctx, "cv.attachment.removed",
		message.NewMessage(watermill.NewUUID(), []byte("removed"))))

	select {
	case p := <-received:
		assert.Equal(t, "removed", p)
	case <-ctx.Done():
		t.Fatal("consumer not invoked")
	}

	require.NoError(t, c.HealthCheck(ctx))
}
