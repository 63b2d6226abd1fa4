// Package services implements the language model providers the chat backend streams replies from.
// Every provider answers a single user message, prefixed with the configured system prompt, and
// yields the reply as text deltas.
package services

import (
	"fmt"
	"io"
	"net/http"
)

// Parameters are optional sampling settings. Nil fields are left to the provider's defaults.
type Parameters struct {
	Temperature *float32 `yaml:"temperature"`
	TopP        *float32 `yaml:"topP"`
	MaxTokens   *int     `yaml:"maxTokens"`
}

func unexpectedStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
}
