// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Discovery flags
	explicitPeer string

	// Transport flags
	wsPort int

	// Config + data directory flags
	configPath    string
	sessionLogDir string

	// Monitor client flags
	wsURL         string
	wsNoSSLVerify bool

	verbosity int
	verbose   bool
	log       logrus.FieldLogger
)

var rootCmd = &cobra.Command{
	Use:   "gtengineer",
	Short: "Real-time telemetry relay and race-engineer voice pipeline",
	Long: `gtengineer decrypts and decodes the console's UDP telemetry stream,
maintains a live per-session analyzer (pace, fuel, tyre trends), evaluates a
deterministic callout engine, and brokers a bidirectional voice session with
a generative model that speaks those callouts and answers driver speech.

Discovery locates the console over broadcast heartbeats unless PS5_IP names
it explicitly. The client-facing websocket defaults to port 4401, overridden
by --ws-port or the WS_PORT environment variable. The model API key comes
from the encrypted on-disk config, GEMINI_API_KEY, or "gtengineer keyset".`,
	Version: "0.1.0",
}

func init() {
	cobra.OnInitialize(initLogger)

	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	rootCmd.PersistentFlags().StringVar(&explicitPeer, "peer", envOr("PS5_IP", ""), "Explicit console IP, skips broadcast discovery (env PS5_IP)")
	rootCmd.PersistentFlags().IntVar(&wsPort, "ws-port", envOrInt("WS_PORT", 4401), "Client websocket port (env WS_PORT)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to the encrypted config file")
	rootCmd.PersistentFlags().StringVar(&sessionLogDir, "session-log-dir", defaultSessionLogDir(), "Directory for NDJSON session logs")
	rootCmd.PersistentFlags().IntVar(&verbosity, "verbosity", 2, "Callout engine verbosity, 1 (quiet) to 3 (chatty)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "Websocket URL for the monitor client (ws:// or wss://)")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

func initLogger() {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	log = l
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n := 0
	for _, r := range v {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "gtengineer-config.json"
	}
	return dir + "/gtengineer/config.json"
}

func defaultSessionLogDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "gtengineer-sessions"
	}
	return dir + "/gtengineer-sessions"
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
