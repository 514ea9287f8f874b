// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feed

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/accelstat/pkg/distributor"
)

// MQTT defaults
const (
	DefaultTopic          = "accelstat/sample"
	DefaultConnectTimeout = 10 * time.Second
	publishTimeout        = 2 * time.Second
)

// MQTTPublisher is the part of mqtt.Client used for publishing
type MQTTPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// ConnectMQTT connects a paho client to broker (e.g. tcp://localhost:1883)
func ConnectMQTT(broker, clientID string, logger zerolog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(DefaultConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn().Err(err).Str("broker", broker).Msg("MQTT connection lost")
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info().Str("broker", broker).Msg("MQTT connected")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(DefaultConnectTimeout) {
		return nil, fmt.Errorf("MQTT connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("MQTT connect to %s: %w", broker, err)
	}
	return client, nil
}

// PublisherOption configures a Publisher
type PublisherOption func(*Publisher)

// WithTopic sets the topic samples are published to
func WithTopic(topic string) PublisherOption {
	return func(p *Publisher) {
		p.topic = topic
	}
}

// WithEncoding sets the payload encoding
func WithEncoding(enc Encoding) PublisherOption {
	return func(p *Publisher) {
		p.encoding = enc
	}
}

// WithPublisherLogger sets the logger
func WithPublisherLogger(logger zerolog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// Publisher forwards distributed samples to an MQTT topic at QoS 0, not retained
type Publisher struct {
	client   MQTTPublisher
	topic    string
	encoding Encoding
	buffer   int
	logger   zerolog.Logger

	published atomic.Uint64
	failed    atomic.Uint64
}

// NewPublisher creates a publisher on client
func NewPublisher(client MQTTPublisher, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		client:   client,
		topic:    DefaultTopic,
		encoding: EncodingJSON,
		buffer:   DefaultClientBuffer,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run subscribes to d and publishes every sample until ctx is cancelled or
// the distributor is closed. Publish failures are logged and counted.
func (p *Publisher) Run(ctx context.Context, d *distributor.Distributor) error {
	id, samples := d.SubscribeChan(p.buffer)
	defer func() { _ = d.Unsubscribe(id) }()

	p.logger.Info().Str("topic", p.topic).Stringer("format", p.encoding).Msg("publishing")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-samples:
			if !ok {
				return nil
			}
			payload, err := Marshal(p.encoding, NewMessage(sample, time.Now()))
			if err != nil {
				return fmt.Errorf("failed to encode sample: %w", err)
			}
			p.publish(payload)
		}
	}
}

func (p *Publisher) publish(payload []byte) {
	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		p.failed.Add(1)
		p.logger.Warn().Str("topic", p.topic).Msg("MQTT publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		p.failed.Add(1)
		p.logger.Warn().Err(err).Str("topic", p.topic).Msg("MQTT publish failed")
		return
	}
	p.published.Add(1)
}

// Counts returns the number of published and failed messages
func (p *Publisher) Counts() (published, failed uint64) {
	return p.published.Load(), p.failed.Load()
}
