package cmds

import (
	"fmt"
	"testing"
)

func TestVar(t *testing.T) {
	a := Var[int]("TestVar.int")
	b := Var[string]("TestVar.string")
	GlobalExecutor.MustExecute([]string{
		"TestVar.int", "42",
		"TestVar.string", "bar",
	})
	if *a != 42 {
		t.Fatal()
	}
	if *b != "bar" {
		t.Fatal()
	}
	GlobalExecutor.MustExecute([]string{
		"TestVar.int.",
	})
	if *a != 0 {
		t.Fatal()
	}
}

func TestSwitch(t *testing.T) {
	foo := Switch("TestSwitch")
	GlobalExecutor.MustExecute([]string{
		"TestSwitch",
	})
	if !*foo {
		t.Fatal()
	}
	GlobalExecutor.MustExecute([]string{
		"!TestSwitch",
	})
	if *foo {
		t.Fatal()
	}
}

func TestCollect(t *testing.T) {
	list := Collect[string]("TestCollect")
	GlobalExecutor.MustExecute([]string{
		"TestCollect", "a",
		"TestCollect", "b",
	})
	if str := fmt.Sprintf("%v", *list); str != "[a b]" {
		t.Fatalf("got %s", str)
	}
}

func TestTypedVar(t *testing.T) {
	type Addr string
	v := Var[Addr]("TestTypedVar")
	GlobalExecutor.MustExecute([]string{
		"TestTypedVar", "localhost:1301",
	})
	if *v != "localhost:1301" {
		t.Fatal()
	}
}
