package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "abc")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", " 12 ")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 12 {
		t.Fatalf("Int: want=12 got=%d", got)
	}
}

func TestDurations(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_SECS", "30")
	if got := Seconds("ENVUTIL_TEST_SECS", time.Second); got != 30*time.Second {
		t.Fatalf("Seconds: got=%s", got)
	}
	t.Setenv("ENVUTIL_TEST_MS", "-1")
	if got := Millis("ENVUTIL_TEST_MS", time.Second); got != time.Second {
		t.Fatalf("Millis: negative should fall back, got=%s", got)
	}
}

func TestList(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_LIST", " a.example.com, ,*.b.example.com ")
	got := List("ENVUTIL_TEST_LIST")
	if len(got) != 2 || got[0] != "a.example.com" || got[1] != "*.b.example.com" {
		t.Fatalf("List: got=%v", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "On")
	if !Bool("ENVUTIL_TEST_BOOL", false) {
		t.Fatalf("Bool: want true")
	}
	t.Setenv("ENVUTIL_TEST_BOOL", "maybe")
	if Bool("ENVUTIL_TEST_BOOL", false) {
		t.Fatalf("Bool: want default false")
	}
}
