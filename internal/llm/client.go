package llm

import (
	"context"
)

// Client is the narrow contract for both external text collaborators:
// address cleanup and explanation rendering.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
