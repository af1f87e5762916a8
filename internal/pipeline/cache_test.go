package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return cache
}

func TestFingerprintIsStable(t *testing.T) {
	type input struct {
		URL   string   `json:"url"`
		Seeds []string `json:"seeds"`
	}
	in := input{URL: "https://example.com", Seeds: []string{"a", "b"}}

	k1, err := Fingerprint("extract", "v3", in)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	k2, err := Fingerprint("extract", "v3", input{URL: "https://example.com", Seeds: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if k1 != k2 {
		t.Errorf("equal inputs produced different keys: %s vs %s", k1, k2)
	}
}

func TestFingerprintSeparatesDimensions(t *testing.T) {
	base, _ := Fingerprint("extract", "v3", "input")

	tests := []struct {
		name    string
		stage   string
		version string
		input   any
	}{
		{"different stage name", "collect", "v3", "input"},
		{"different version", "extract", "v4", "input"},
		{"different input", "extract", "v3", "other"},
		{"name/version boundary shift", "extractv", "3", "input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := Fingerprint(tt.stage, tt.version, tt.input)
			if err != nil {
				t.Fatalf("Fingerprint: %v", err)
			}
			if k == base {
				t.Errorf("key collided with base fingerprint")
			}
		})
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)

	if _, ok := cache.Get("deadbeef"); ok {
		t.Fatal("empty cache reported a hit")
	}

	value := []byte(`{"listings":3}`)
	if err := cache.Put("deadbeef", value); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := cache.Get("deadbeef")
	if !ok {
		t.Fatal("stored entry reported as miss")
	}
	if string(got) != string(value) {
		t.Errorf("got %s, want %s", got, value)
	}
}

func TestCacheCorruptEntryIsAMiss(t *testing.T) {
	cache := newTestCache(t)

	path := filepath.Join(cache.Dir(), "cafebabe.json")
	if err := os.WriteFile(path, []byte(`{"truncated`), 0o644); err != nil {
		t.Fatalf("write corrupt entry: %v", err)
	}

	if _, ok := cache.Get("cafebabe"); ok {
		t.Error("corrupt entry must be treated as a miss")
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	cache := newTestCache(t)

	for _, key := range []string{"k1", "k2", "k3"} {
		if err := cache.Put(key, []byte(`{}`)); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}

	entries, bytes, err := cache.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if entries != 3 {
		t.Errorf("entries = %d, want 3", entries)
	}
	if bytes != 6 {
		t.Errorf("bytes = %d, want 6", bytes)
	}

	removed, err := cache.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}

	entries, _, err = cache.Stats()
	if err != nil {
		t.Fatalf("Stats after clear: %v", err)
	}
	if entries != 0 {
		t.Errorf("entries after clear = %d, want 0", entries)
	}
}
