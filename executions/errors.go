package executions

import "errors"

var (
	ErrNotCallable = errors.New("not callable")
	ErrBadArgs     = errors.New("bad arguments")
	ErrStartup     = errors.New("startup failed")
	ErrPanic       = errors.New("panic")
)
