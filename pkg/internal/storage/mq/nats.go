package mq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"github.com/yeisme/casevault/pkg/configs"
)

const (
	natsDrainTimeout = 30 * time.Second
	natsAckWait      = 30 * time.Second
	natsCloseTimeout = 10 * time.Second
)

// natsConnOptions 连接选项，重连参数与认证取自 mq.common 与 mq.nats.
func natsConnOptions(cfg *configs.MQConfig) []nats.Option {
	c := cfg.Common

	opts := []nats.Option{
		nats.Name(c.ClientID),
		nats.MaxReconnects(c.MaxReconnects),
		nats.ReconnectWait(time.Duration(c.ReconnectWait) * time.Second),
		nats.PingInterval(time.Duration(c.PingInterval) * time.Second),
		nats.ReconnectBufSize(c.BufferSize),
		nats.DrainTimeout(natsDrainTimeout),
		nats.RetryOnFailedConnect(true),
	}

	switch {
	case cfg.NATS.JWT != "":
		opts = append(opts, nats.UserJWTAndSeed(cfg.NATS.JWT, cfg.NATS.NKey))
	case c.User != "":
		opts = append(opts, nats.UserInfo(c.User, c.Password))
	}

	return opts
}

// natsJetStream 默认走 core NATS，附件事件只用于审计与通知，不要求持久化.
func natsJetStream(cfg *configs.MQConfig) wmnats.JetStreamConfig {
	n := cfg.NATS
	if !n.JetStreamEnabled {
		return wmnats.JetStreamConfig{Disabled: true}
	}

	return wmnats.JetStreamConfig{
		AutoProvision: n.JetStreamAutoProvision,
		TrackMsgId:    n.JetStreamTrackMsgID,
		AckAsync:      n.JetStreamAckAsync,
		DurablePrefix: n.JetStreamDurablePrefix,
	}
}

func natsURL(cfg *configs.MQConfig) string {
	if len(cfg.NATS.ClusterURLs) > 0 {
		return strings.Join(cfg.NATS.ClusterURLs, ",")
	}

	return cfg.Common.URL
}

// natsFactory 消息 metadata 放在 NATS header 中，需要 nats-server 2.2 及以上.
func natsFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	var (
		url       = natsURL(cfg)
		opts      = natsConnOptions(cfg)
		js        = natsJetStream(cfg)
		marshaler = &wmnats.NATSMarshaler{}
	)

	logger.Info("connecting nats", watermill.LogFields{"url": url, "jetstream": !js.Disabled})

	pub, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		Marshaler:   marshaler,
		JetStream:   js,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("nats publisher: %w", err)
	}

	sub, err := wmnats.NewSubscriber(wmnats.SubscriberConfig{
		URL:              url,
		NatsOptions:      opts,
		Unmarshaler:      marshaler,
		JetStream:        js,
		QueueGroupPrefix: cfg.NATS.QueueGroupPrefix,
		AckWaitTimeout:   natsAckWait,
		CloseTimeout:     natsCloseTimeout,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("nats subscriber: %w", err)
	}

	return pub, sub, nil
}

func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}
