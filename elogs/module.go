package elogs

import (
	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/scriptdconfigs"
)

type Module struct {
	dscope.Module
	Logs    logs.Module
	Configs scriptdconfigs.Module
}

func (Module) Logbook(
	path scriptdconfigs.DBPath,
) Logbook {
	if path == "" {
		return Nop{}
	}
	return NewBoltLogbook(string(path))
}
