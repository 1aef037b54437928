package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("u-1:g-1", "250")
	val, ok := c.Get("u-1:g-1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "250" {
		t.Errorf("expected '250', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
	if n := c.Len(); n != 0 {
		t.Errorf("expected 0 live entries, got %d", n)
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	c.Set("key1", 1)
	c.Set("key2", 2)
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
	if n := c.Len(); n != 1 {
		t.Errorf("expected 1 live entry, got %d", n)
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := cache.New[string](time.Minute)
	c.Close()
	c.Close()

	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected cache to remain usable after Close")
	}
}
