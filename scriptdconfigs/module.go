package scriptdconfigs

import (
	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/logs"
)

type Module struct {
	dscope.Module
	Logs logs.Module
}
