// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcelscruz/open-gt/internal/discovery"
	"github.com/marcelscruz/open-gt/internal/pipeline"
)

var broadcastHz float64

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the telemetry relay and voice pipeline",
	Long: `serve binds the console's UDP telemetry port, relays decoded frames and
analyzer snapshots to every connected browser client over websockets, and
brokers the race-engineer voice session when a client asks for one.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Float64Var(&broadcastHz, "broadcast-hz", 30, "Client telemetry broadcast rate, 0 or less uses the default of 30")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := pipeline.Config{
		Discovery: discovery.Config{
			ExplicitPeer: explicitPeer,
			SendPort:     discovery.SendPort,
			ReceivePort:  discovery.ReceivePort,
		},
		BroadcastHz:   broadcastHz,
		SessionLogDir: sessionLogDir,
		ConfigPath:    configPath,
		Verbosity:     verbosity,
		EnvAPIKey:     os.Getenv("GEMINI_API_KEY"),
	}

	p := pipeline.New(cfg, log)

	mux := http.NewServeMux()
	mux.Handle("/ws", p.HTTPHandler())

	addr := fmt.Sprintf(":%d", wsPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("serve: listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	pipelineErr := make(chan error, 1)
	go func() { pipelineErr <- p.Run(ctx) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		<-pipelineErr
		return err
	case err := <-pipelineErr:
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	<-pipelineErr
	return nil
}
