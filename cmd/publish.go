// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/accelstat/pkg/feed"
)

var (
	mqttBroker   string
	mqttTopic    string
	mqttClientID string
	mqttFormat   string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish samples to an MQTT broker",
	Long: `Publish every decoded sample to an MQTT topic (QoS 0, not retained).

Payloads carry x, y, z in g, pitch and roll in degrees and a unix millisecond
timestamp, encoded as JSON or CBOR. A failed publish is logged and the stream
continues; the client reconnects to the broker on its own.

Example:
  accelstat publish --port /dev/ttyACM0 --broker tcp://localhost:1883 --topic bench/accel`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringVar(&mqttBroker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	publishCmd.Flags().StringVar(&mqttTopic, "topic", feed.DefaultTopic, "MQTT topic")
	publishCmd.Flags().StringVar(&mqttClientID, "client-id", "accelstat", "MQTT client ID")
	publishCmd.Flags().StringVar(&mqttFormat, "format", "json", "Payload encoding (json, cbor)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	enc, err := feed.ParseEncoding(mqttFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := feed.ConnectMQTT(mqttBroker, mqttClientID, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	sess, err := openSession(nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	fmt.Printf("Accelstat - MQTT Publisher\n")
	fmt.Printf("Source: %s\n", sess.info)
	fmt.Printf("Broker: %s, topic: %s, format: %s\n", mqttBroker, mqttTopic, enc)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	publisher := feed.NewPublisher(client,
		feed.WithTopic(mqttTopic),
		feed.WithEncoding(enc),
		feed.WithPublisherLogger(logger),
	)

	go func() {
		select {
		case <-sess.Lost():
			logger.Error().Str("port", portName).Msg("serial port lost, shutting down")
			stop()
		case <-ctx.Done():
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- publisher.Run(ctx, sess.dist) }()

	if err := sess.dist.Start(); err != nil {
		return err
	}

	err = <-runErr
	published, failed := publisher.Counts()
	fmt.Printf("\nPublished %d samples (%d failed)\n", published, failed)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
