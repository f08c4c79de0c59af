package scripts

import (
	"context"
	"testing"

	"go.starlark.net/syntax"
)

func TestParseSingleLine(t *testing.T) {
	parsed, err := Parse("s", "2+2", true)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Splittable {
		t.Fatal()
	}
	if len(parsed.Blocks) != 1 {
		t.Fatalf("got %d", len(parsed.Blocks))
	}
	if parsed.Blocks[0].Expr == nil {
		t.Fatal()
	}

	// statements are not expressions
	parsed, err = Parse("s", "x = 1\n", true)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Splittable || len(parsed.Blocks) != 1 {
		t.Fatal()
	}
	if parsed.Blocks[0].Expr != nil || parsed.Blocks[0].File == nil {
		t.Fatal()
	}
}

func TestParseSplit(t *testing.T) {
	src := `x = 1
def f(a):
    if a:
        return 1
    return 2

# comment
for i in range(3):
    x += f(i)
`
	parsed, err := Parse("s", src, true)
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.Splittable {
		t.Fatal()
	}
	if len(parsed.Blocks) != 3 {
		t.Fatalf("got %d", len(parsed.Blocks))
	}
	def := parsed.Blocks[1]
	if def.Start != 2 || def.End != 5 {
		t.Fatalf("got %d %d", def.Start, def.End)
	}
	if def.Text != "def f(a):\n    if a:\n        return 1\n    return 2" {
		t.Fatalf("got %q", def.Text)
	}
	if _, ok := def.Node.(*syntax.DefStmt); !ok {
		t.Fatalf("got %T", def.Node)
	}
	for i, block := range parsed.Blocks {
		if block.Index != i {
			t.Fatal()
		}
		// trace call then the statement
		if len(block.File.Stmts) != 2 {
			t.Fatalf("got %d", len(block.File.Stmts))
		}
	}
}

func TestParseWhole(t *testing.T) {
	parsed, err := Parse("s", "a = 1\nb = 2\n", false)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Splittable || len(parsed.Blocks) != 1 {
		t.Fatal()
	}
	if parsed.Blocks[0].Node != nil {
		t.Fatal()
	}
	if n := len(parsed.Blocks[0].File.Stmts); n != 4 {
		t.Fatalf("got %d", n)
	}
}

func TestParseError(t *testing.T) {
	if _, err := Parse("s", "x = (\ny = 2\n", true); err == nil {
		t.Fatal("should error")
	}
	if _, err := Parse("s", "x = = 1", true); err == nil {
		t.Fatal("should error")
	}
}

func TestInstrumentNested(t *testing.T) {
	src := `def f():
    for i in range(2):
        while False:
            pass
    if True:
        pass
    elif False:
        pass
    else:
        pass
`
	file, err := FileOptions.Parse("s", src, 0)
	if err != nil {
		t.Fatal(err)
	}
	stmts := Instrument(file.Stmts)
	var lines []int
	for _, stmt := range stmts {
		syntax.Walk(stmt, func(node syntax.Node) bool {
			call, ok := node.(*syntax.CallExpr)
			if !ok {
				return true
			}
			if ident, ok := call.Fn.(*syntax.Ident); ok && ident.Name == TraceFunc {
				lines = append(lines, int(call.Args[0].(*syntax.Literal).Value.(int64)))
			}
			return true
		})
	}
	want := []int{1, 2, 3, 4, 5, 6, 7, 8, 10}
	if len(lines) != len(want) {
		t.Fatalf("got %v", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("got %v", lines)
		}
	}
}

func TestParseIfWithoutElse(t *testing.T) {
	src := "x = 1\nif x:\n    y = 2\n"
	for _, split := range []bool{true, false} {
		parsed, err := Parse("s", src, split)
		if err != nil {
			t.Fatal(err)
		}
		interp := newTestInterp(t)
		thread := interp.NewThread(context.Background(), "test", nil)
		for _, outcome := range runAll(t, interp, thread, parsed) {
			if outcome.Kind != Continued {
				t.Fatal(outcome.Err)
			}
		}
		if v, ok := interp.Get("y"); !ok || v.String() != "2" {
			t.Fatalf("got %v", v)
		}
	}
}

func TestParseBlocks(t *testing.T) {
	parsed, err := ParseBlocks("s", "2+2")
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.Splittable || len(parsed.Blocks) != 1 {
		t.Fatal()
	}
	block := parsed.Blocks[0]
	if block.Expr != nil || block.Node == nil {
		t.Fatal()
	}
	if block.Text != "2+2" {
		t.Fatalf("got %q", block.Text)
	}

	parsed, err = ParseBlocks("s", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.Blocks) != 0 {
		t.Fatalf("got %d", len(parsed.Blocks))
	}
}
