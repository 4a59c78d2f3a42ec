package queue_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/casevault/pkg/queue"
)

func TestNewWatermillMessageEnvelope(t *testing.T) {
	payload := queue.AttachmentRemovedPayload{
		Owner:          queue.OwnerRef{Kind: "cases", ID: 42},
		Filename:       "1700000000_01HF_report.pdf",
		Key:            "cases/42/1700000000_01HF_report.pdf",
		RemainingFiles: 1,
	}

	msg, err := queue.NewWatermillMessage(queue.TopicAttachmentRemoved, payload,
		queue.WithProducer("casevault"),
		queue.WithActor("worker@example.org"),
		queue.WithTraceID("trace-1"),
	)
	require.NoError(t, err)

	assert.Equal(t, queue.TopicAttachmentRemoved, msg.Metadata.Get("topic"))
	assert.Equal(t, "worker@example.org", msg.Metadata.Get("actor"))
	assert.Equal(t, "trace-1", msg.Metadata.Get("trace_id"))
	assert.Equal(t, "trace-1", middleware.MessageCorrelationID(msg))

	env, err := queue.ParseAttachmentRemoved(msg)
	require.NoError(t, err)
	assert.Equal(t, payload, env.Payload)
	assert.Equal(t, queue.PayloadVersionV1, env.Header.Version)
	assert.Equal(t, "casevault", env.Header.Producer)
	assert.WithinDuration(t, time.Now(), env.Header.OccurredAt, time.Minute)
}

func TestPublishAttachmentStored(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer func() { _ = pubsub.Close() }()

	ch, err := pubsub.Subscribe(ctx, queue.TopicAttachmentStored)
	require.NoError(t, err)

	payload := queue.AttachmentStoredPayload{
		Owner:       queue.OwnerRef{Kind: "incidents", ID: 7},
		Attachments: []queue.AttachmentRef{{Filename: "a.txt", Key: "incidents/7/a.txt", Size: 3}},
		TotalFiles:  1,
	}
	require.NoError(t, queue.PublishAttachmentStored(ctx, pubsub, payload))

	select {
	case m := <-ch:
		env, err := queue.ParseAttachmentStored(m)
		require.NoError(t, err)
		assert.Equal(t, payload, env.Payload)
		assert.Equal(t, queue.TopicAttachmentStored, env.Header.Topic)
		m.Ack()
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}
}

type recordingConsumer struct {
	topics []string
}

func (r *recordingConsumer) AddConsumer(_ string, topic string, _ message.NoPublishHandlerFunc) {
	r.topics = append(r.topics, topic)
}

func TestAuditHandler(t *testing.T) {
	var buf bytes.Buffer

	l := zerolog.New(&buf)
	h := queue.NewAuditHandler(l)

	msg, err := queue.NewWatermillMessage(queue.TopicAttachmentPurged, queue.AttachmentPurgedPayload{
		Owner:   queue.OwnerRef{Kind: "cases", ID: 1},
		Prefix:  "cases/1/",
		Deleted: 2,
	}, queue.WithActor("director@example.org"))
	require.NoError(t, err)

	require.NoError(t, h(msg))
	assert.Contains(t, buf.String(), `"topic":"cv.attachment.purged"`)
	assert.Contains(t, buf.String(), `"actor":"director@example.org"`)
	assert.Contains(t, buf.String(), `"prefix":"cases/1/"`)

	buf.Reset()
	require.NoError(t, h(message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	assert.Contains(t, buf.String(), "drop malformed attachment event")

	rc := &recordingConsumer{}
	queue.RegisterAudit(rc, l)
	assert.ElementsMatch(t, queue.AttachmentTopics, rc.topics)
}
