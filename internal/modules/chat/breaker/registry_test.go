package breaker

import (
	"sync"
	"testing"
)

func TestRegistryIdentity(t *testing.T) {
	r := NewRegistry(Config{})
	a := r.Get("persona-a")
	if r.Get("persona-a") != a {
		t.Fatalf("same key: want same breaker")
	}
	if r.Get("persona-b") == a {
		t.Fatalf("different key: want different breaker")
	}
	if a.State() != StateClosed {
		t.Fatalf("new breaker: want CLOSED got=%s", a.State())
	}
}

func TestRegistryConcurrentGet(t *testing.T) {
	r := NewRegistry(Config{})
	const n = 32
	got := make([]*Breaker, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.Get("shared")
			got[i].OnFailure()
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if got[i] != got[0] {
			t.Fatalf("goroutine %d got a different breaker", i)
		}
	}
	if f := got[0].Snapshot().Failures; f != n {
		t.Fatalf("failures: want=%d got=%d", n, f)
	}
}

func TestRegistryRemoveAndSnapshot(t *testing.T) {
	r := NewRegistry(Config{})
	r.Get("b").OnFailure()
	r.Get("a")
	snaps := r.Snapshot()
	if len(snaps) != 2 || snaps[0].Key != "a" || snaps[1].Key != "b" {
		t.Fatalf("snapshot: got %+v", snaps)
	}
	old := r.Get("a")
	r.Remove("a")
	if _, ok := r.Lookup("a"); ok {
		t.Fatalf("Lookup after Remove: want missing")
	}
	if r.Get("a") == old {
		t.Fatalf("Get after Remove: want fresh breaker")
	}
}
