package scripts

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sync"

	"github.com/reusee/scriptd/logs"
	"go.starlark.net/starlark"
)

// Interp owns the namespace shared by all scripts.
type Interp struct {
	logger    logs.Logger
	sources   *Sources
	scriptDir string

	mu          sync.RWMutex
	globals     starlark.StringDict
	predeclared starlark.StringDict

	modulesMu sync.Mutex
	modules   map[string]starlark.StringDict
}

// Stopper is implemented by errors that end a script without failing it.
type Stopper interface {
	error
	StopReason() string
}

func NewInterp(logger logs.Logger, sources *Sources, scriptDir string) *Interp {
	i := &Interp{
		logger:    logger,
		sources:   sources,
		scriptDir: scriptDir,
	}
	i.Reset(nil)
	return i
}

// Reset clears the namespace and seeds it with the builtins and extra.
func (i *Interp) Reset(extra starlark.StringDict) {
	predeclared := i.builtins()
	maps.Copy(predeclared, extra)
	i.mu.Lock()
	i.predeclared = predeclared
	i.globals = maps.Clone(predeclared)
	i.mu.Unlock()
	i.modulesMu.Lock()
	i.modules = make(map[string]starlark.StringDict)
	i.modulesMu.Unlock()
}

func (i *Interp) Sources() *Sources {
	return i.sources
}

// Snapshot returns a copy of the committed namespace.
func (i *Interp) Snapshot() starlark.StringDict {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return maps.Clone(i.globals)
}

// commit writes back the names env rebound since base was taken. Names left
// alone keep whatever other threads committed meanwhile.
func (i *Interp) commit(base, env starlark.StringDict) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for name, value := range env {
		if old, ok := base[name]; ok && sameValue(old, value) {
			continue
		}
		i.globals[name] = value
	}
}

// sameValue reports whether a and b are the same value by identity.
func sameValue(a, b starlark.Value) (ret bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) {
		return false
	}
	if x, ok := a.(starlark.Tuple); ok {
		y := b.(starlark.Tuple)
		return len(x) == len(y) && (len(x) == 0 || &x[0] == &y[0])
	}
	if !t.Comparable() {
		return false
	}
	defer func() {
		// comparable types holding uncomparable interface values
		if recover() != nil {
			ret = false
		}
	}()
	return a == b
}

func (i *Interp) Get(name string) (starlark.Value, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	v, ok := i.globals[name]
	return v, ok
}

// Names returns the sorted names in the namespace.
func (i *Interp) Names() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Sorted(maps.Keys(i.globals))
}

const contextKey = "scripts.context"

// ThreadContext returns the context the thread was created with.
func ThreadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local(contextKey).(context.Context); ok {
		return ctx
	}
	return context.Background()
}

// NewThread returns a thread bound to ctx. hooks may be nil.
func (i *Interp) NewThread(ctx context.Context, name string, hooks *Hooks) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
		Load: i.load,
		Print: func(thread *starlark.Thread, msg string) {
			if hooks != nil && hooks.Print != nil {
				hooks.Print(thread, msg)
				return
			}
			i.logger.InfoContext(ThreadContext(thread), msg,
				"thread", thread.Name,
			)
		},
	}
	thread.SetLocal(contextKey, ctx)
	SetHooks(thread, hooks)
	return thread
}

// Exec runs block against a snapshot of the namespace and commits the names
// it assigned, even after an error.
func (i *Interp) Exec(thread *starlark.Thread, block *Block) (result string, err error) {
	clearHookError(thread)
	env := i.Snapshot()
	base := maps.Clone(env)

	if block.Expr != nil {
		v, err := starlark.EvalExprOptions(FileOptions, thread, block.Expr, env)
		if err != nil {
			return "", err
		}
		return Display(v), nil
	}

	thread.SetLocal(liveEnvKey, env)
	defer thread.SetLocal(liveEnvKey, nil)
	err = starlark.ExecREPLChunk(block.File, thread, env)
	i.commit(base, env)
	return "", err
}

// Run executes block and classifies the result.
func (i *Interp) Run(thread *starlark.Thread, block *Block) Outcome {
	result, err := i.Exec(thread, block)
	if err == nil {
		return Continue(result)
	}
	var stopper Stopper
	if hookErr := HookError(thread); hookErr != nil && errors.As(hookErr, &stopper) {
		return Stop(stopper.StopReason())
	}
	if errors.As(err, &stopper) {
		return Stop(stopper.StopReason())
	}
	return Fail(err)
}

// Eval evaluates an expression against env.
func (i *Interp) Eval(thread *starlark.Thread, expr string, env starlark.StringDict) (starlark.Value, error) {
	parsed, err := FileOptions.ParseExpr("<expr>", expr, 0)
	if err != nil {
		return nil, err
	}
	return starlark.EvalExprOptions(FileOptions, thread, parsed, env)
}

// LiveGlobals returns the namespace as seen by the block running on thread,
// including assignments the block has not committed yet. It must be called
// on the thread's own goroutine.
func (i *Interp) LiveGlobals(thread *starlark.Thread) starlark.StringDict {
	env, _ := thread.Local(liveEnvKey).(starlark.StringDict)
	if env == nil {
		return i.Snapshot()
	}
	ret := maps.Clone(env)
	if depth := thread.CallStackDepth(); depth > 0 {
		if fn, ok := thread.DebugFrame(depth - 1).Callable().(*starlark.Function); ok {
			maps.Copy(ret, fn.Globals())
		}
	}
	return ret
}

func (i *Interp) load(thread *starlark.Thread, module string) (starlark.StringDict, error) {
	if i.scriptDir == "" {
		return nil, fmt.Errorf("load %s: no script directory configured", module)
	}
	path := filepath.Join(i.scriptDir, filepath.Clean("/"+module))

	i.modulesMu.Lock()
	globals, ok := i.modules[path]
	i.modulesMu.Unlock()
	if ok {
		if globals == nil {
			return nil, fmt.Errorf("load %s: cycle in load graph", module)
		}
		return globals, nil
	}

	i.modulesMu.Lock()
	i.modules[path] = nil
	i.modulesMu.Unlock()
	globals, err := i.execModule(thread, path)
	i.modulesMu.Lock()
	if err != nil {
		delete(i.modules, path)
	} else {
		i.modules[path] = globals
	}
	i.modulesMu.Unlock()
	return globals, err
}

func (i *Interp) execModule(thread *starlark.Thread, path string) (starlark.StringDict, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	i.sources.Register(path, string(src))
	i.mu.RLock()
	predeclared := i.predeclared
	i.mu.RUnlock()
	globals, err := starlark.ExecFileOptions(FileOptions, thread, path, src, predeclared)
	if err != nil {
		return nil, err
	}
	globals.Freeze()
	return globals, nil
}

// Display formats a value the way an interactive session echoes it.
func Display(v starlark.Value) string {
	if v == nil || v == starlark.None {
		return ""
	}
	return v.String()
}
