package scripts

import (
	"errors"
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

// Traceback renders err for the user. Frames of the trace instrumentation
// are left out so that it starts at user code.
func (s *Sources) Traceback(err error) string {
	var evalErr *starlark.EvalError
	if !errors.As(err, &evalErr) {
		return err.Error()
	}
	buf := new(strings.Builder)
	buf.WriteString("Traceback (most recent call last):\n")
	for _, frame := range evalErr.CallStack {
		if frame.Name == TraceFunc {
			continue
		}
		fmt.Fprintf(buf, "  %s: in %s\n", frame.Pos, frame.Name)
		if line := strings.TrimSpace(s.Line(frame.Pos.Filename(), int(frame.Pos.Line))); line != "" {
			fmt.Fprintf(buf, "    %s\n", line)
		}
	}
	fmt.Fprintf(buf, "Error: %s", evalErr.Msg)
	return buf.String()
}
