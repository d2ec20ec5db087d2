package env

import (
	"testing"
	"time"
)

func TestString(t *testing.T) {
	t.Setenv("SHIPLINE_TEST_STRING", "value")
	if got := String("SHIPLINE_TEST_STRING", "def"); got != "value" {
		t.Fatalf("String()=%q, want value", got)
	}
	if got := String("SHIPLINE_TEST_STRING_MISSING", "def"); got != "def" {
		t.Fatalf("String() missing=%q, want def", got)
	}
}

func TestStrings(t *testing.T) {
	t.Setenv("SHIPLINE_TEST_LIST", "a, b , ,c")
	got := Strings("SHIPLINE_TEST_LIST", nil)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("Strings()=%v, want [a b c]", got)
	}

	t.Setenv("SHIPLINE_TEST_LIST", " , ")
	got = Strings("SHIPLINE_TEST_LIST", []string{"def"})
	if len(got) != 1 || got[0] != "def" {
		t.Fatalf("Strings() blank=%v, want [def]", got)
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("SHIPLINE_TEST_DURATION", "90s")
	got, err := Duration("SHIPLINE_TEST_DURATION", time.Second)
	if err != nil {
		t.Fatalf("Duration() err=%v", err)
	}
	if got != 90*time.Second {
		t.Fatalf("Duration()=%v, want 90s", got)
	}

	t.Setenv("SHIPLINE_TEST_DURATION", "nope")
	if _, err := Duration("SHIPLINE_TEST_DURATION", time.Second); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestBool(t *testing.T) {
	t.Setenv("SHIPLINE_TEST_BOOL", "true")
	got, err := Bool("SHIPLINE_TEST_BOOL", false)
	if err != nil {
		t.Fatalf("Bool() err=%v", err)
	}
	if !got {
		t.Fatalf("Bool()=false, want true")
	}
}

func TestInt(t *testing.T) {
	t.Setenv("SHIPLINE_TEST_INT", "42")
	got, err := Int("SHIPLINE_TEST_INT", 1)
	if err != nil {
		t.Fatalf("Int() err=%v", err)
	}
	if got != 42 {
		t.Fatalf("Int()=%d, want 42", got)
	}
}
