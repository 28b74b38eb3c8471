package chat

import (
	"fmt"
	"testing"
	"time"
)

func TestCacheExpiry(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	c := newResponseCache()
	c.now = func() time.Time { return now }

	c.put(ModeAuto, "what skills", Response{Text: "Go and Python", Source: SourceRAG, Confidence: 0.7})

	if _, ok := c.get(ModeAuto, "What skills?"); !ok {
		t.Fatal("fresh entry should hit despite casing and punctuation")
	}

	now = now.Add(cacheTTL + time.Second)
	if _, ok := c.get(ModeAuto, "what skills"); ok {
		t.Fatal("expired entry should miss")
	}
}

func TestCacheIsolatesModes(t *testing.T) {
	t.Parallel()

	c := newResponseCache()
	c.put(ModeAuto, "what skills", Response{Text: "direct answer", Source: SourceLLM, Confidence: 0.8})

	if _, ok := c.get(ModeRAG, "what skills"); ok {
		t.Fatal("an auto-mode answer must not be replayed for a strict-grounding request")
	}
	if _, ok := c.get(ModeAuto, "what skills"); !ok {
		t.Fatal("same-mode lookup should hit")
	}
}

func TestCacheEvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	c := newResponseCache()
	c.now = func() time.Time { return now }

	for i := 0; i < cacheCapacity; i++ {
		c.put(ModeAuto, fmt.Sprintf("question %d", i), Response{Text: "a"})
		now = now.Add(time.Second)
	}
	c.put(ModeAuto, "one more", Response{Text: "b"})

	if _, ok := c.get(ModeAuto, "question 0"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := c.get(ModeAuto, "one more"); !ok {
		t.Fatal("newest entry should be present")
	}
	c.mu.Lock()
	size := len(c.entries)
	c.mu.Unlock()
	if size > cacheCapacity {
		t.Fatalf("cache size %d exceeds capacity %d", size, cacheCapacity)
	}
}
