package vars

import "testing"

func TestFirstNonZero(t *testing.T) {
	if v := FirstNonZero("", "a", "b"); v != "a" {
		t.Fatalf("got %v", v)
	}
	if v := FirstNonZero(0, 0); v != 0 {
		t.Fatalf("got %v", v)
	}
}

func TestStrToBool(t *testing.T) {
	for _, s := range []string{"true", "Y", " on ", "1"} {
		if !StrToBool(s) {
			t.Fatalf("%q", s)
		}
	}
	for _, s := range []string{"false", "no", "", "x"} {
		if StrToBool(s) {
			t.Fatalf("%q", s)
		}
	}
}
