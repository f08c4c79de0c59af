package events

import "github.com/reusee/dscope"

type Module struct {
	dscope.Module
}

func (Module) Bus() *Bus {
	return NewBus()
}
