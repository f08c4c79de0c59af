package requests

import (
	"errors"
	"fmt"
)

var (
	// ErrRequest is the class of admission errors.
	ErrRequest        = errors.New("request error")
	ErrInvalidRequest = fmt.Errorf("%w: invalid request", ErrRequest)
	ErrNotReady       = fmt.Errorf("%w: not ready", ErrRequest)

	// ErrScript is the class of rejected updates.
	ErrScript = errors.New("script error")
)
