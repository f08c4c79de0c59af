package scripts

import (
	"time"

	"go.starlark.net/starlark"
)

// Hooks connect a thread to the code driving it. Nil fields are no-ops.
type Hooks struct {
	Trace      func(thread *starlark.Thread, source string, line int) error
	Breakpoint func(thread *starlark.Thread, source string, line int) error
	Sleep      func(thread *starlark.Thread, source string, line int, d time.Duration) error
	Print      func(thread *starlark.Thread, msg string)
}

const (
	hooksKey     = "scripts.hooks"
	hookErrorKey = "scripts.hook_error"
	liveEnvKey   = "scripts.live_env"
)

func SetHooks(thread *starlark.Thread, hooks *Hooks) {
	thread.SetLocal(hooksKey, hooks)
}

func getHooks(thread *starlark.Thread) *Hooks {
	hooks, _ := thread.Local(hooksKey).(*Hooks)
	return hooks
}

// recordHookError keeps the first error a hook returned on this thread, so
// that it survives wrapping by the interpreter.
func recordHookError(thread *starlark.Thread, err error) error {
	if thread.Local(hookErrorKey) == nil {
		thread.SetLocal(hookErrorKey, err)
	}
	return err
}

// HookError returns the error a hook failed the thread with, if any.
func HookError(thread *starlark.Thread) error {
	err, _ := thread.Local(hookErrorKey).(error)
	return err
}

func clearHookError(thread *starlark.Thread) {
	thread.SetLocal(hookErrorKey, nil)
}

// callerFrame returns the source and line of the Starlark code calling the
// current builtin.
func callerFrame(thread *starlark.Thread) (source string, line int, function string) {
	if thread.CallStackDepth() < 2 {
		return "", 0, ""
	}
	frame := thread.CallFrame(1)
	return frame.Pos.Filename(), int(frame.Pos.Line), frame.Name
}
