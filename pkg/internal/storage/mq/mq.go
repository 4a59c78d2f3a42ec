// Package mq 提供基于 Watermill 库的统一消息队列操作接口。
// 支持发布/订阅模式，并通过工厂模式抽象不同的 MQ 实现。
//
// 支持的 MQ 类型：
//   - gochannel（进程内，默认，测试与单实例部署）
//   - NATS（可选 JetStream）
//   - Redis Pub/Sub
//
// 使用示例：
//
//	client, err := mq.New(ctx, &cfg.MQ, cfg.Metrics.Enabled)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	msg := message.NewMessage(watermill.NewUUID(), []byte("hello world"))
//	err = client.Publish(ctx, "cv.attachment.stored", msg)
//
//	client.AddConsumer("audit", "cv.attachment.stored", func(msg *message.Message) error {
//		fmt.Println(string(msg.Payload))
//		return nil
//	})
//	go client.Run(ctx)
package mq

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/yeisme/casevault/pkg/configs"
	nlog "github.com/yeisme/casevault/pkg/log"
	pmetrics "github.com/yeisme/casevault/pkg/metrics"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var (
	factories = map[configs.MQType]Factory{}
)

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredMQTypes 返回编译进来的 MQ 类型.
func GetRegisteredMQTypes() []configs.MQType {
	types := slices.Collect(maps.Keys(factories))
	slices.Sort(types)

	return types
}

const (
	routerCloseTimeout = 15 * time.Second
	consumerMaxRetries = 3
)

// Client 封装 watermill Publisher、Subscriber 与消费路由.
type Client struct {
	mqType     configs.MQType
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router

	mu      sync.Mutex
	running bool
}

// New 按配置创建消息队列客户端，metricsEnabled 时为收发与路由挂载 Prometheus 指标.
func New(ctx context.Context, cfg *configs.MQConfig, metricsEnabled bool) (*Client, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := NewLoggerAdapter(nlog.Logger())

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: routerCloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	// 消费者 panic 视为失败；失败按指数退避重试，仍失败则 nack.
	router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      consumerMaxRetries,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			Logger:          logger,
		}.Middleware,
		middleware.Recoverer,
	)

	if metricsEnabled {
		metricsBuilder := metrics.NewPrometheusMetricsBuilder(pmetrics.GetRegistry(), configs.AppName, "mq")
		metricsBuilder.AddPrometheusRouterMetrics(router)

		if pub, err = metricsBuilder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if sub, err = metricsBuilder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}
	}

	l := nlog.Component("mq")
	l.Info().Str("type", string(cfg.Type)).Bool("metrics", metricsEnabled).Msg("mq client ready")

	return &Client{mqType: cfg.Type, publisher: pub, subscriber: sub, router: router}, nil
}

// Type 返回 MQ 类型.
func (c *Client) Type() configs.MQType {
	return c.mqType
}

// Publisher 返回底层 Publisher.
func (c *Client) Publisher() message.Publisher {
	return c.publisher
}

// Publish 便捷发布.
func (c *Client) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return fmt.Errorf("mq publisher not initialized")
	}

	for _, m := range msgs {
		m.SetContext(ctx)

		if err := c.publisher.Publish(topic, m); err != nil {
			return err
		}
	}

	return nil
}

// Subscribe 便捷订阅.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, fmt.Errorf("mq subscriber not initialized")
	}

	return c.subscriber.Subscribe(ctx, topic)
}

// AddConsumer 在路由上注册只消费不转发的处理器，需在 Run 之前调用.
func (c *Client) AddConsumer(name, topic string, h message.NoPublishHandlerFunc) {
	c.router.AddNoPublisherHandler(name, topic, c.subscriber, h)
}

// Run 启动消费路由并阻塞到 ctx 结束或路由关闭.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}

	c.running = true
	c.mu.Unlock()

	return c.router.Run(ctx)
}

// Running 返回路由启动完成的信号.
func (c *Client) Running() chan struct{} {
	return c.router.Running()
}

// HealthCheck 检查客户端是否可用.
func (c *Client) HealthCheck(context.Context) error {
	if c == nil || c.publisher == nil || c.subscriber == nil {
		return fmt.Errorf("mq not initialized")
	}

	return nil
}

// Close 先停路由再关闭收发端.
func (c *Client) Close() error {
	var errs []error

	if c.router != nil {
		errs = append(errs, c.router.Close())
	}

	for _, closer := range []interface{ Close() error }{c.publisher, c.subscriber} {
		if closer != nil {
			errs = append(errs, closer.Close())
		}
	}

	return errors.Join(errs...)
}
