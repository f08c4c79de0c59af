package requests

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/reusee/scriptd/events"
	"github.com/reusee/scriptd/logs"
	"github.com/reusee/scriptd/scripts"
)

type ScriptRequest struct {
	Request
	Name string

	mu         sync.Mutex
	text       string
	blocks     []*scripts.Block
	splittable bool
	curblock   int
	// proceed is nil when the next block may start
	proceed chan struct{}
}

func NewScriptRequest(user *User, name, text string) (*ScriptRequest, error) {
	req, err := NewRequest(user)
	if err != nil {
		return nil, err
	}
	return &ScriptRequest{
		Request:  req,
		Name:     name,
		text:     text,
		curblock: -1,
	}, nil
}

// Source is the name frames of this script carry.
func (r *ScriptRequest) Source() string {
	if r.Name != "" {
		return fmt.Sprintf("<script %d: %s>", r.Number, r.Name)
	}
	return fmt.Sprintf("<script %d>", r.Number)
}

func (r *ScriptRequest) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

func (r *ScriptRequest) CurBlock() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.curblock
}

func (r *ScriptRequest) Blocks() []*scripts.Block {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blocks
}

func (r *ScriptRequest) Splittable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.splittable
}

func (r *ScriptRequest) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Info{
		Number: r.Number,
		Name:   r.Name,
		Script: r.text,
		User:   r.User.Name,
		Level:  r.User.Level,
	}
}

// SetText replaces the text of a request that has not started.
func (r *ScriptRequest) SetText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.curblock >= 0 {
		return fmt.Errorf("%w: already started", ErrScript)
	}
	r.text = text
	r.blocks = nil
	r.splittable = false
	return nil
}

// Parse compiles the text into blocks.
func (r *ScriptRequest) Parse(split bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	parsed, err := scripts.Parse(r.Source(), r.text, split)
	if err != nil {
		return err
	}
	r.blocks = parsed.Blocks
	r.splittable = parsed.Splittable
	return nil
}

func (r *ScriptRequest) waitProceed(ctx context.Context) error {
	r.mu.Lock()
	proceed := r.proceed
	r.mu.Unlock()
	if proceed == nil {
		return nil
	}
	select {
	case <-proceed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// next selects the block to run, or returns nil when done.
func (r *ScriptRequest) next() (block *scripts.Block, gated bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.proceed != nil {
		return nil, true
	}
	if r.curblock+1 >= len(r.blocks) {
		return nil, false
	}
	r.curblock++
	return r.blocks[r.curblock], false
}

// Execute runs the blocks in order until one does not continue.
func (r *ScriptRequest) Execute(ctx context.Context, runner Runner) (outcome scripts.Outcome) {
	info := r.Info()
	runner.Emit(events.Processing, info)
	runner.Sources().Register(r.Source(), info.Script)
	logs.Input(ctx, runner.Logger(), logs.MarkerScript, info.Script)

	if r.Name != "" && runner.RecordScripts() {
		runner.ScriptBegin(ctx, info)
		defer func() {
			runner.ScriptEnd(ctx, r.Info(), outcome)
		}()
	}

	outcome = scripts.Continue("")
	for {
		if err := r.waitProceed(ctx); err != nil {
			return scripts.Fail(err)
		}
		block, gated := r.next()
		if gated {
			continue
		}
		if block == nil {
			return outcome
		}
		outcome = runner.ExecBlock(ctx, r, block)
		if outcome.Kind != scripts.Continued {
			return outcome
		}
	}
}

// Update replaces the text of the running script. Blocks that already
// started must be structurally unchanged.
func (r *ScriptRequest) Update(ctx context.Context, text string, runner Runner) (err error) {
	r.mu.Lock()
	if !r.splittable {
		r.mu.Unlock()
		return fmt.Errorf("%w: script not updatable", ErrScript)
	}
	if r.proceed != nil {
		r.mu.Unlock()
		return fmt.Errorf("%w: concurrent update", ErrScript)
	}
	proceed := make(chan struct{})
	r.proceed = proceed
	curblock := r.curblock
	oldBlocks := r.blocks
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.proceed = nil
		r.mu.Unlock()
		close(proceed)
	}()

	parsed, err := scripts.ParseBlocks(r.Source(), text)
	if err != nil {
		return err
	}
	newBlocks := parsed.Blocks

	if len(newBlocks) < curblock+1 {
		return fmt.Errorf("%w: new script too short (%d blocks, %d already executed)",
			ErrScript, len(newBlocks), curblock+1)
	}
	for i := 0; i <= curblock; i++ {
		if !scripts.EqualNodes(oldBlocks[i].Node, newBlocks[i].Node) {
			return fmt.Errorf("%w: new script differs in already executed part\n%s",
				ErrScript, blockDiff(oldBlocks[i], newBlocks[i]))
		}
	}

	r.mu.Lock()
	r.text = text
	r.blocks = newBlocks
	r.mu.Unlock()

	runner.Sources().Register(r.Source(), text)
	runner.Emit(events.Processing, r.Info())
	logs.Input(ctx, runner.Logger(), logs.MarkerUpdate, text)
	return nil
}

func blockDiff(a, b *scripts.Block) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a.Text + "\n"),
		B:        difflib.SplitLines(b.Text + "\n"),
		FromFile: "executed",
		ToFile:   "update",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return strings.TrimRight(diff, "\n")
}
