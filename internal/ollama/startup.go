package ollama

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotRunning is returned by EnsureModel when the server is unreachable.
var ErrNotRunning = errors.New("Ollama is not running. Start it with: ollama serve")

// EnsureModel checks that the server is up and pulls model if it is not
// available locally, writing progress lines to w.
func EnsureModel(ctx context.Context, c *Client, model string, w io.Writer) error {
	if !c.IsRunning(ctx) {
		return ErrNotRunning
	}
	if c.HasModel(ctx, model) {
		return nil
	}

	fmt.Fprintf(w, "model %s: pulling...\n", model)
	lastPct := -1
	err := c.PullModel(ctx, model, func(p PullProgress) {
		if p.Total <= 0 {
			fmt.Fprintf(w, "  %s\n", p.Status)
			return
		}
		pct := int(p.Completed * 100 / p.Total)
		if pct/10 != lastPct/10 {
			fmt.Fprintf(w, "  %s %d%%\n", p.Status, pct)
			lastPct = pct
		}
	})
	if err != nil {
		return fmt.Errorf("pulling model %s: %w", model, err)
	}
	fmt.Fprintf(w, "model %s: ready\n", model)
	return nil
}
