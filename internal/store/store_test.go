package store

import "testing"

func TestPutGet(t *testing.T) {
	s := New()

	if _, ok := s.Get("missing"); ok {
		t.Error("Get on an empty store should report absence")
	}

	s.Put("hello", "world")
	v, ok := s.Get("hello")
	if !ok || v != "world" {
		t.Errorf("Get(hello) = %q, %v; want %q, true", v, ok, "world")
	}

	s.Put("hello", "again")
	v, _ = s.Get("hello")
	if v != "again" {
		t.Errorf("Get after overwrite = %q, want %q", v, "again")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	s.Put("a", "1")

	snap := s.Snapshot()
	snap["a"] = "mutated"
	snap["b"] = "added"

	if v, _ := s.Get("a"); v != "1" {
		t.Errorf("mutating a snapshot leaked into the store: a = %q", v)
	}
	if _, ok := s.Get("b"); ok {
		t.Error("mutating a snapshot leaked a new key into the store")
	}
}
