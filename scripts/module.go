package scripts

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

func (Module) Sources() *Sources {
	return NewSources()
}

func (Module) Interp(
	logger logs.Logger,
	sources *Sources,
	scriptDir scriptdconfigs.ScriptDir,
) *Interp {
	return NewInterp(logger, sources, string(scriptDir))
}
