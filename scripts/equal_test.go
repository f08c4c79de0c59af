package scripts

import (
	"testing"

	"go.starlark.net/syntax"
)

func parseStmts(t *testing.T, src string) []syntax.Stmt {
	t.Helper()
	file, err := FileOptions.Parse("s", src, syntax.RetainComments)
	if err != nil {
		t.Fatal(err)
	}
	return file.Stmts
}

func TestEqualNodes(t *testing.T) {
	cases := []struct {
		a, b  string
		equal bool
	}{
		{"x = 1\n", "x = 1\n", true},
		{"x = 1\n", "x   =   1  # comment\n", true},
		{"x = 16\n", "x = 0x10\n", true},
		{"x = 'a'\n", "x = \"a\"\n", true},
		{"\n\nx = f(1, 2)\n", "x = f(1,\n  2)\n", true},
		{"x = 1\n", "x = 2\n", false},
		{"x = 1\n", "y = 1\n", false},
		{"x = 1\n", "x += 1\n", false},
		{"x = f(1)\n", "x = f(1, 2)\n", false},
		{"x = 1.0\n", "x = 1\n", false},
		{"x = 100000000000000000000\n", "x = 100000000000000000000\n", true},
		{"x = 100000000000000000000\n", "x = 100000000000000000001\n", false},
		{"def f():\n  return 1\n", "def f():\n    return 1\n", true},
		{"def f():\n  return 1\n", "def f():\n  return 2\n", false},
		{"if a:\n  b()\n", "if a:\n  b()\nelse:\n  c()\n", false},
	}
	for _, c := range cases {
		a := parseStmts(t, c.a)
		b := parseStmts(t, c.b)
		if len(a) != 1 || len(b) != 1 {
			t.Fatalf("bad case %q %q", c.a, c.b)
		}
		if got := EqualNodes(a[0], b[0]); got != c.equal {
			t.Fatalf("%q vs %q: got %v", c.a, c.b, got)
		}
	}
}
