package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLRU[T any](size int, ttl time.Duration) (*LRU[T], *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[T](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU[string](3, time.Hour)
	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1")
	c.Set("key4", "value4") // evicts key2

	if _, ok := c.Get("key2"); ok {
		t.Fatal("key2 should have been evicted")
	}
	for _, k := range []string{"key1", "key3", "key4"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("%s should still be cached", k)
		}
	}
	if c.Size() != 3 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUSlidingExpiry(t *testing.T) {
	c, clk := newTestLRU[int](10, time.Minute)
	c.Set("a", 1)
	clk.t = clk.t.Add(50 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry should be live")
	}
	clk.t = clk.t.Add(50 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("read should have extended the entry")
	}
	clk.t = clk.t.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestGetOrCreate(t *testing.T) {
	c, _ := newTestLRU[*int](10, time.Minute)
	calls := 0
	create := func() *int { calls++; v := calls; return &v }
	first := c.GetOrCreate("s", create)
	second := c.GetOrCreate("s", create)
	if first != second || calls != 1 {
		t.Fatalf("expected one creation, got %d", calls)
	}
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	c, clk := newTestLRU[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	clk.t = clk.t.Add(2 * time.Minute)
	c.Set("c", 3)

	m := NewManager(nil)
	m.Register("test", c)
	if n := m.CleanNow(); n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d", c.Size())
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
