// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Validate performs a cheap, non-billed provider call: construct a client
// for the given key and list one page of models.
// Listing models authenticates the key without touching the Live API or
// generating any billable content.
func Validate(ctx context.Context, apiKey string) ValidationResult {
	if apiKey == "" {
		return ValidationResult{Valid: false, Category: ErrorEmpty}
	}

	ctx, cancel := context.WithTimeout(ctx, ValidateTimeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return categorize(err)
	}

	if _, err := client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1}); err != nil && !errors.Is(err, genai.ErrPageDone) {
		return categorize(err)
	}

	return ValidationResult{Valid: true, Category: ErrorNone}
}

// categorize maps a failed validation call onto the error taxonomy above.
// The genai SDK surfaces provider errors as *genai.APIError
// carrying an HTTP-shaped status code; network-layer failures (DNS,
// connection refused, timeout) come back as plain errors with no code.
func categorize(err error) ValidationResult {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			cat := ErrorPermissionDenied
			if apiErr.Code == 401 {
				cat = ErrorInvalid
			}
			return ValidationResult{Valid: false, Category: cat, Err: err}
		case apiErr.Code == 429:
			return ValidationResult{Valid: false, Category: ErrorQuota, Err: err}
		default:
			return ValidationResult{Valid: false, Category: ErrorUnknown, Err: err}
		}
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return ValidationResult{Valid: false, Category: ErrorNetwork, Err: err}
	}

	return ValidationResult{Valid: false, Category: ErrorUnknown, Err: fmt.Errorf("config: validate: %w", err)}
}
