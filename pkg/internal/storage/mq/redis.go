package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/casevault/pkg/configs"
)

// ErrSubscriberClosed 订阅者已关闭.
var ErrSubscriberClosed = errors.New("redis subscriber closed")

// redisFrame Pub/Sub 上传输的消息，保留 watermill 的 UUID 与 metadata.
type redisFrame struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

func encodeFrame(msg *message.Message) ([]byte, error) {
	return sonic.Marshal(redisFrame{UUID: msg.UUID, Metadata: msg.Metadata, Payload: msg.Payload})
}

func decodeFrame(raw string) (*message.Message, error) {
	var f redisFrame
	if err := sonic.UnmarshalString(raw, &f); err != nil {
		return nil, err
	}

	if f.UUID == "" {
		f.UUID = watermill.NewUUID()
	}

	msg := message.NewMessage(f.UUID, f.Payload)
	for k, v := range f.Metadata {
		msg.Metadata.Set(k, v)
	}

	return msg, nil
}

type redisPublisher struct {
	client *redis.Client
}

func (p *redisPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		frame, err := encodeFrame(msg)
		if err != nil {
			return fmt.Errorf("encode %s: %w", msg.UUID, err)
		}

		if err := p.client.Publish(msg.Context(), topic, frame).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
	}

	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}

// redisSubscriber 每个 topic 一条 PubSub 连接.
// Pub/Sub 没有重投，消息在 ack 或 nack 之后才读取下一条，nack 的消息被丢弃.
type redisSubscriber struct {
	client *redis.Client
	logger watermill.LoggerAdapter
	buffer int

	mu     sync.Mutex
	subs   []*redis.PubSub
	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

func (s *redisSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSubscriberClosed
	}

	ps := s.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	s.subs = append(s.subs, ps)
	out := make(chan *message.Message, s.buffer)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(out)

		s.pump(ctx, topic, ps.Channel(), out)
	}()

	return out, nil
}

func (s *redisSubscriber) pump(ctx context.Context, topic string, in <-chan *redis.Message, out chan<- *message.Message) {
	fields := watermill.LogFields{"topic": topic}

	for {
		var raw *redis.Message

		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}

			raw = m
		}

		msg, err := decodeFrame(raw.Payload)
		if err != nil {
			s.logger.Error("drop undecodable redis message", err, fields)
			continue
		}

		msg.SetContext(ctx)

		select {
		case out <- msg:
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}

		select {
		case <-msg.Acked():
		case <-msg.Nacked():
			s.logger.Info("redis message nacked and dropped", fields.Add(watermill.LogFields{"uuid": msg.UUID}))
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *redisSubscriber) Close() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	close(s.done)

	errs := make([]error, 0, len(s.subs)+1)
	for _, ps := range s.subs {
		errs = append(errs, ps.Close())
	}

	s.mu.Unlock()

	s.wg.Wait()

	errs = append(errs, s.client.Close())

	return errors.Join(errs...)
}

func redisFactory(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	opts := func(name string) *redis.Options {
		return &redis.Options{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			ClientName: name,
		}
	}

	pub := redis.NewClient(opts("casevault-mq-pub"))
	if err := pub.Ping(ctx).Err(); err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	buffer := int(cfg.Common.ChannelBuffer)
	if buffer <= 0 {
		buffer = configs.DefaultChannelBuffer
	}

	return &redisPublisher{client: pub}, &redisSubscriber{
		client: redis.NewClient(opts("casevault-mq-sub")),
		logger: logger,
		buffer: buffer,
		done:   make(chan struct{}),
	}, nil
}

func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}
