package configs

import (
	"testing"
)

func TestFirst(t *testing.T) {
	loader := NewLoader([]string{"testdata/test.cue"}, testSchema)

	if addr := First[string](loader, "listen"); addr != "127.0.0.1:1301" {
		t.Fatalf("got %v", addr)
	}
	if n := First[int](loader, "max_clients"); n != 0 {
		t.Fatalf("got %v", n)
	}
	if n := FirstOr(loader, "max_clients", 16); n != 16 {
		t.Fatalf("got %v", n)
	}
}

func TestEmptyLoader(t *testing.T) {
	loader := NewLoader(nil, "")
	if addr := FirstOr(loader, "listen", "x"); addr != "x" {
		t.Fatalf("got %v", addr)
	}
}
