package configs

import "github.com/reusee/dscope"

// Module expects a Loader to be provided by the caller.
type Module struct {
	dscope.Module
}
