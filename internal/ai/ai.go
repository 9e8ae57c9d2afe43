// Package ai wraps the text-generation capability and makes its untrusted
// output safe to consume.
package ai

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by callers that need a Completer and have none.
var ErrNotConfigured = errors.New("ai capability not configured")

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}
