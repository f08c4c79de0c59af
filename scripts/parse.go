package scripts

import (
	"fmt"
	"strings"

	"go.starlark.net/syntax"
)

// Block is one independently executable unit of a script.
type Block struct {
	Index int
	// Node is the pristine statement, nil for whole-script units.
	Node syntax.Stmt
	// File is the instrumented executable form. Nil for expressions.
	File *syntax.File
	// Expr is set for single-line expressions.
	Expr       syntax.Expr
	Start, End int
	Text       string
}

type Parsed struct {
	Blocks     []*Block
	Splittable bool
}

// IsSingleLine reports whether text is a one-liner without line breaks.
func IsSingleLine(text string) bool {
	return !strings.Contains(strings.TrimRight(text, "\r\n"), "\n")
}

// Parse compiles text from source into blocks.
// A single line is one interactive unit; a bare expression in it becomes an
// expression block. Multi-line text with split yields one block per
// top-level statement. Anything else is one whole-script block.
func Parse(source, text string, split bool) (ret *Parsed, err error) {
	defer recoverParse(&err)
	if IsSingleLine(text) {
		return parseInteractive(source, text)
	}
	return parseFile(source, text, split)
}

// ParseBlocks splits text into one block per top-level statement, single
// lines included. Expressions are kept as statements.
func ParseBlocks(source, text string) (ret *Parsed, err error) {
	defer recoverParse(&err)
	return parseFile(source, text, true)
}

func recoverParse(err *error) {
	if p := recover(); p != nil {
		*err = fmt.Errorf("%w: %v", ErrParse, p)
	}
}

func parseFile(source, text string, split bool) (*Parsed, error) {
	pristine, err := FileOptions.Parse(source, text, 0)
	if err != nil {
		return nil, err
	}
	executable, err := FileOptions.Parse(source, text, 0)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(text, "\n")

	if !split {
		block := &Block{
			File: &syntax.File{
				Path:    source,
				Stmts:   Instrument(executable.Stmts),
				Options: FileOptions,
			},
			Start: 1,
			End:   len(lines),
			Text:  text,
		}
		return &Parsed{
			Blocks: []*Block{block},
		}, nil
	}

	ret := &Parsed{
		Splittable: true,
	}
	for i, stmt := range executable.Stmts {
		node := pristine.Stmts[i]
		start, end := node.Span()
		ret.Blocks = append(ret.Blocks, &Block{
			Index: i,
			Node:  node,
			File: &syntax.File{
				Path:    source,
				Stmts:   Instrument([]syntax.Stmt{stmt}),
				Options: FileOptions,
			},
			Start: int(start.Line),
			End:   int(end.Line),
			Text:  sliceLines(lines, int(start.Line), int(end.Line)),
		})
	}
	return ret, nil
}

func parseInteractive(source, text string) (*Parsed, error) {
	file, err := FileOptions.Parse(source, text, 0)
	if err != nil {
		return nil, err
	}
	block := &Block{
		Start: 1,
		End:   1,
		Text:  strings.TrimRight(text, "\r\n"),
	}
	if len(file.Stmts) == 1 {
		if stmt, ok := file.Stmts[0].(*syntax.ExprStmt); ok {
			block.Expr = stmt.X
			return &Parsed{
				Blocks: []*Block{block},
			}, nil
		}
	}
	block.File = &syntax.File{
		Path:    source,
		Stmts:   Instrument(file.Stmts),
		Options: FileOptions,
	}
	return &Parsed{
		Blocks: []*Block{block},
	}, nil
}

func sliceLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
