// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcelscruz/open-gt/internal/config"
)

var keytestCmd = &cobra.Command{
	Use:   "keytest",
	Short: "Validate the stored API key against the provider",
	Long:  `keytest loads the encrypted config, or GEMINI_API_KEY if set, and performs a cheap unbilled call to confirm the key authenticates.`,
	RunE:  runKeytest,
}

func init() {
	rootCmd.AddCommand(keytestCmd)
}

func runKeytest(cmd *cobra.Command, args []string) error {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		store := config.New(configPath, log.WithField("component", "config"))
		apiKey = store.Current().APIKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result := config.Validate(ctx, apiKey)
	if result.Valid {
		fmt.Fprintln(os.Stdout, "Key is valid.")
		return nil
	}

	return fmt.Errorf("keytest: key invalid (%s)", result.Category)
}
