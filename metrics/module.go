package metrics

import "github.com/reusee/dscope"

type Module struct {
	dscope.Module
}

func (Module) Metrics() *Metrics {
	return New()
}
