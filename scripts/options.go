package scripts

import "go.starlark.net/syntax"

// TraceFunc is the name of the builtin called before every statement.
const TraceFunc = "__trace__"

var FileOptions = &syntax.FileOptions{
	Set:               true,
	While:             true,
	TopLevelControl:   true,
	GlobalReassign:    true,
	LoadBindsGlobally: true,
	Recursion:         true,
}
