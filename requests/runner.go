package requests

import (
	"context"

	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/scripts"
)

// Runner is what a ScriptRequest needs from the controller executing it.
type Runner interface {
	ExecBlock(ctx context.Context, req *ScriptRequest, block *scripts.Block) scripts.Outcome
	Emit(name events.Name, payload any)
	Logger() logs.Logger
	Sources() *scripts.Sources
	// ScriptBegin and ScriptEnd report named scripts to the logbook
	RecordScripts() bool
	ScriptBegin(ctx context.Context, info Info)
	ScriptEnd(ctx context.Context, info Info, outcome scripts.Outcome)
}
