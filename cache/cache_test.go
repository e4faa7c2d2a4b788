package cache

import (
	"testing"
	"time"

	"github.com/use-agent/imageboard/models"
)

func TestGetSet(t *testing.T) {
	c := New(4, time.Minute)
	defer c.Close()

	if _, ok := c.Get(Key("ko")); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set(Key("ko"), []models.Post{{ID: "a"}})
	posts, ok := c.Get(Key("ko"))
	if !ok || len(posts) != 1 || posts[0].ID != "a" {
		t.Fatalf("Get = %v, %v", posts, ok)
	}

	stats := c.Stats()
	if stats.Entries != 1 || stats.Hits != 1 || stats.Misses != 1 || stats.MaxEntries != 4 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestEvictsAtCapacity(t *testing.T) {
	c := New(2, time.Minute)
	defer c.Close()

	c.Set(Key("ko"), nil)
	c.Set(Key("en"), nil)
	c.Set(Key("en"), nil) // overwrite does not evict
	if n := c.Stats().Entries; n != 2 {
		t.Fatalf("entries = %d, want 2", n)
	}
	c.Set(Key("ja"), nil)
	if n := c.Stats().Entries; n != 2 {
		t.Fatalf("entries = %d, want 2", n)
	}
	if _, ok := c.Get(Key("ja")); !ok {
		t.Error("newest entry must be present")
	}
}

func TestExpiry(t *testing.T) {
	c := New(4, time.Minute)
	defer c.Close()

	c.Set(Key(""), []models.Post{{ID: "x"}})
	c.mu.Lock()
	c.store[Key("")].createdAt = time.Now().Add(-2 * time.Minute)
	c.mu.Unlock()

	if _, ok := c.Get(Key("")); ok {
		t.Error("expired entry must miss")
	}
	c.evictExpired(time.Now())
	if n := c.Stats().Entries; n != 0 {
		t.Errorf("entries after eviction = %d", n)
	}
}

func TestInvalidate(t *testing.T) {
	c := New(4, time.Minute)
	defer c.Close()
	c.Set(Key("ko"), nil)
	c.Set(Key("en"), nil)
	c.Invalidate()
	if n := c.Stats().Entries; n != 0 {
		t.Errorf("entries after Invalidate = %d", n)
	}
}

func TestDisabled(t *testing.T) {
	c := New(4, 0)
	defer c.Close()
	c.Set(Key("ko"), []models.Post{{ID: "a"}})
	if _, ok := c.Get(Key("ko")); ok {
		t.Error("zero TTL must disable caching")
	}
	if Key("") != "feed|all" {
		t.Errorf("Key(\"\") = %q", Key(""))
	}
}
