package nets

import (
	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/scriptdconfigs"
)

type Module struct {
	dscope.Module
	Configs scriptdconfigs.Module
	Logs    logs.Module
}
