package scripts

import (
	"fmt"
	"strings"
	"time"

	"go.starlark.net/starlark"
)

// Builtins are extra predeclared values, for site specific commands.
type Builtins starlark.StringDict

func (Module) Builtins() Builtins {
	return nil
}

func (i *Interp) builtins() starlark.StringDict {
	return starlark.StringDict{
		TraceFunc:    starlark.NewBuiltin(TraceFunc, builtinTrace),
		"sleep":      starlark.NewBuiltin("sleep", builtinSleep),
		"breakpoint": starlark.NewBuiltin("breakpoint", builtinBreakpoint),
		"time":       starlark.NewBuiltin("time", builtinTime),
		"log":        starlark.NewBuiltin("log", i.builtinLog),
	}
}

func builtinTrace(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var line int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &line); err != nil {
		return nil, err
	}
	hooks := getHooks(thread)
	if hooks == nil || hooks.Trace == nil {
		return starlark.None, nil
	}
	source, _, _ := callerFrame(thread)
	if err := hooks.Trace(thread, source, line); err != nil {
		return nil, recordHookError(thread, err)
	}
	return starlark.None, nil
}

func builtinSleep(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seconds starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &seconds); err != nil {
		return nil, err
	}
	f, ok := starlark.AsFloat(seconds)
	if !ok {
		return nil, fmt.Errorf("%s: got %s, want number", b.Name(), seconds.Type())
	}
	if f < 0 {
		return nil, fmt.Errorf("%s: negative duration", b.Name())
	}
	d := time.Duration(f * float64(time.Second))
	hooks := getHooks(thread)
	if hooks == nil || hooks.Sleep == nil {
		time.Sleep(d)
		return starlark.None, nil
	}
	source, line, _ := callerFrame(thread)
	if err := hooks.Sleep(thread, source, line, d); err != nil {
		return nil, recordHookError(thread, err)
	}
	return starlark.None, nil
}

func builtinBreakpoint(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	hooks := getHooks(thread)
	if hooks == nil || hooks.Breakpoint == nil {
		return starlark.None, nil
	}
	source, line, _ := callerFrame(thread)
	if err := hooks.Breakpoint(thread, source, line); err != nil {
		return nil, recordHookError(thread, err)
	}
	return starlark.None, nil
}

func builtinTime(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.Float(float64(time.Now().UnixNano()) / 1e9), nil
}

func (i *Interp) builtinLog(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if s, ok := starlark.AsString(arg); ok {
			parts = append(parts, s)
		} else {
			parts = append(parts, arg.String())
		}
	}
	source, line, _ := callerFrame(thread)
	i.logger.InfoContext(ThreadContext(thread), strings.Join(parts, " "),
		"source", source,
		"line", line,
	)
	return starlark.None, nil
}
