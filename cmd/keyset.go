// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/marcelscruz/open-gt/internal/config"
)

var keysetCmd = &cobra.Command{
	Use:   "keyset",
	Short: "Store an encrypted API key for the voice engineer",
	Long:  `keyset prompts for a generative-model API key and writes it to the encrypted config file used by "gtengineer serve".`,
	RunE:  runKeyset,
}

func init() {
	rootCmd.AddCommand(keysetCmd)
}

func runKeyset(cmd *cobra.Command, args []string) error {
	apiKey, err := readAPIKey()
	if err != nil {
		return err
	}

	store := config.New(configPath, log.WithField("component", "config"))
	go store.Run()
	defer store.Close()

	if err := store.Update(apiKey, store.Current().EngineerEnabled); err != nil {
		return fmt.Errorf("keyset: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Key stored at %s\n", configPath)
	return nil
}

// readAPIKey prompts for the key without echoing input, falling back to a
// plain line read if the terminal doesn't support hidden input.
func readAPIKey() (string, error) {
	fmt.Fprint(os.Stderr, "Gemini API key: ")

	keyBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		reader := bufio.NewReader(os.Stdin)
		key, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(key), nil
	}

	fmt.Fprintln(os.Stderr)
	return strings.TrimSpace(string(keyBytes)), nil
}
