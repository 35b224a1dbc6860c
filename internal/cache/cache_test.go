package cache

import (
	"testing"
	"time"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		MemoryItems: 16,
		TTL:         time.Minute,
		BloomSize:   1000,
		BloomFPRate: 0.01,
		Dir:         t.TempDir(),
	}
}

func TestContentCache_SetGet(t *testing.T) {
	c, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	defer c.Close()

	key := VersionKey("file-1", "v1")
	if err := c.Set(key, []byte("L1\nL2\n")); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if string(got) != "L1\nL2\n" {
		t.Errorf("unexpected cached content: %q", got)
	}

	if _, ok := c.Get(VersionKey("file-1", "v2")); ok {
		t.Error("unexpected hit for a key never cached")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d / %d", stats.Hits, stats.Misses)
	}
}

func TestContentCache_SurvivesL1Eviction(t *testing.T) {
	cfg := testConfig(t)
	cfg.MemoryItems = 2
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	defer c.Close()

	// Push enough entries through to evict the first from L1
	keys := []string{"a", "b", "c", "d"}
	for _, k := range keys {
		if err := c.Set(VersionKey("f", k), []byte("content-"+k)); err != nil {
			t.Fatalf("failed to set %s: %v", k, err)
		}
	}

	// The evicted entry is still served from the disk level
	got, ok := c.Get(VersionKey("f", "a"))
	if !ok {
		t.Fatal("expected disk-level hit after L1 eviction")
	}
	if string(got) != "content-a" {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestVersionKey(t *testing.T) {
	if got := VersionKey("file-1", "v1"); got != "file-1/v1" {
		t.Errorf("unexpected key: %s", got)
	}
}
