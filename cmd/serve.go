// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/accelstat/pkg/feed"
)

var (
	serveListen string
	serveBuffer int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stream samples to WebSocket clients",
	Long: `Serve decoded samples over WebSocket.

Endpoints:
  GET /ws?format=json|cbor  sample stream (text frames for JSON, binary for CBOR)
  GET /api/ports            serial ports as JSON
  GET /api/status           source, running flag and subscriber counts

Every client gets its own buffer; a client that falls behind loses samples
rather than slowing down the others.

Examples:
  accelstat serve --port /dev/ttyACM0 --listen :8080
  accelstat serve --simulate`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", ":8080", "HTTP listen address")
	serveCmd.Flags().IntVar(&serveBuffer, "buffer", feed.DefaultClientBuffer, "Samples buffered per client")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.dist.Start(); err != nil {
		return err
	}

	fmt.Printf("Accelstat - WebSocket Feed\n")
	fmt.Printf("Source: %s\n", sess.info)
	fmt.Printf("Listening on %s\n", serveListen)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	go func() {
		select {
		case <-sess.Lost():
			logger.Error().Str("port", portName).Msg("serial port lost, shutting down")
			stop()
		case <-ctx.Done():
		}
	}()

	srv := feed.NewServer(sess.dist,
		feed.WithServerLogger(logger),
		feed.WithClientBuffer(serveBuffer),
	)
	return srv.ListenAndServe(ctx, serveListen)
}
