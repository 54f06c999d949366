package report

import (
	"testing"
	"time"
)

func TestCacheGetPut(t *testing.T) {
	c := NewCache(time.Hour)

	if _, ok := c.Get("2025-10-01_2025-12-31"); ok {
		t.Fatal("empty cache returned a hit")
	}

	r := Report{APIAvailable: true, Totals: Totals{USD: 42}}
	c.Put("2025-10-01_2025-12-31", r)

	got, ok := c.Get("2025-10-01_2025-12-31")
	if !ok {
		t.Fatal("fresh entry missing")
	}
	if got.Totals.USD != 42 {
		t.Errorf("Totals.USD = %v, want 42", got.Totals.USD)
	}

	if _, ok := c.Get("2025-10-01_2026-01-31"); ok {
		t.Error("different key returned a hit")
	}
}

func TestCacheLazyExpiry(t *testing.T) {
	now := time.Now()
	c := NewCache(time.Hour)
	c.now = func() time.Time { return now }

	c.Put("k", Report{})

	now = now.Add(59 * time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry expired before TTL")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("entry survived past TTL")
	}
	// Expired entries are dropped at read time.
	if len(c.entries) != 0 {
		t.Errorf("entries = %d, want 0 after lazy eviction", len(c.entries))
	}
}

func TestCooldown(t *testing.T) {
	now := time.Now()
	g := NewCooldown()
	g.now = func() time.Time { return now }

	if g.Active() {
		t.Fatal("new gate should be inactive")
	}

	g.Open(15 * time.Minute)
	if !g.Active() {
		t.Fatal("gate inactive right after Open")
	}

	now = now.Add(14 * time.Minute)
	if !g.Active() {
		t.Error("gate released before the cooldown elapsed")
	}

	now = now.Add(2 * time.Minute)
	if g.Active() {
		t.Error("gate still active after the cooldown elapsed")
	}
}
