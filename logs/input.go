package logs

import (
	"context"
	"strings"
)

const (
	// MarkerScript prefixes the source of queued scripts.
	MarkerScript = ">>>"
	// MarkerEval prefixes out-of-band evaluations.
	MarkerEval = "-->"
	// MarkerUpdate prefixes live updates of a running script.
	MarkerUpdate = "+++"
)

// Input logs user supplied source text as an input entry.
func Input(ctx context.Context, logger Logger, marker string, text string) {
	logger.InfoContext(ctx, "input",
		"marker", marker,
		"text", strings.TrimRight(text, "\n"),
	)
}
