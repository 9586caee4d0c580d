package buildcache

import "testing"

func openMemory(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): unexpected error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLookupMissOnEmptyCache(t *testing.T) {
	c := openMemory(t)
	_, _, found, err := c.Lookup(Hash("class Main {}"), "check")
	if err != nil {
		t.Fatalf("Lookup: unexpected error: %v", err)
	}
	if found {
		t.Error("Lookup reported found on an empty cache")
	}
}

func TestStoreThenLookupRoundTrips(t *testing.T) {
	c := openMemory(t)
	hash := Hash("class Main { public static void main(String[] args) {} }")
	if err := c.Store(hash, "check", "ok", false); err != nil {
		t.Fatalf("Store: unexpected error: %v", err)
	}
	output, failed, found, err := c.Lookup(hash, "check")
	if err != nil {
		t.Fatalf("Lookup: unexpected error: %v", err)
	}
	if !found {
		t.Fatal("Lookup did not find a just-stored entry")
	}
	if failed {
		t.Error("Lookup reported failed=true for a successful entry")
	}
	if output != "ok" {
		t.Errorf("output = %q, want %q", output, "ok")
	}
}

func TestStoreOverwritesPriorEntry(t *testing.T) {
	c := openMemory(t)
	hash := Hash("class Main {}")
	if err := c.Store(hash, "check", "first", false); err != nil {
		t.Fatalf("Store: unexpected error: %v", err)
	}
	if err := c.Store(hash, "check", "second", true); err != nil {
		t.Fatalf("Store: unexpected error: %v", err)
	}
	output, failed, found, err := c.Lookup(hash, "check")
	if err != nil {
		t.Fatalf("Lookup: unexpected error: %v", err)
	}
	if !found || output != "second" || !failed {
		t.Errorf("got (%q, %v, %v), want (second, true, true)", output, failed, found)
	}
}

func TestLookupIsScopedByStage(t *testing.T) {
	c := openMemory(t)
	hash := Hash("class Main {}")
	if err := c.Store(hash, "check", "check-output", false); err != nil {
		t.Fatalf("Store: unexpected error: %v", err)
	}
	_, _, found, err := c.Lookup(hash, "compile-firm")
	if err != nil {
		t.Fatalf("Lookup: unexpected error: %v", err)
	}
	if found {
		t.Error("Lookup for a different stage returned the other stage's entry")
	}
}

func TestHashIsDeterministicAndContentSensitive(t *testing.T) {
	a := Hash("class Main {}")
	b := Hash("class Main {}")
	if a != b {
		t.Errorf("Hash is not deterministic: %q != %q", a, b)
	}
	if Hash("class Other {}") == a {
		t.Error("different source hashed to the same key")
	}
}

func TestStatsCountsEntriesAndSize(t *testing.T) {
	c := openMemory(t)
	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats: unexpected error: %v", err)
	}
	if stats.Entries != 0 {
		t.Fatalf("Entries = %d on an empty cache, want 0", stats.Entries)
	}
	if err := c.Store(Hash("a"), "check", "hello", false); err != nil {
		t.Fatalf("Store: unexpected error: %v", err)
	}
	if err := c.Store(Hash("b"), "check", "world", false); err != nil {
		t.Fatalf("Store: unexpected error: %v", err)
	}
	stats, err = c.Stats()
	if err != nil {
		t.Fatalf("Stats: unexpected error: %v", err)
	}
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want 2", stats.Entries)
	}
	if stats.SizeBytes != int64(len("hello")+len("world")) {
		t.Errorf("SizeBytes = %d, want %d", stats.SizeBytes, len("hello")+len("world"))
	}
	if stats.String() == "" {
		t.Error("Stats.String() returned empty string")
	}
}
