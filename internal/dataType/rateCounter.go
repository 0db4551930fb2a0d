package dataType

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// slot holds the hits recorded during one second
type slot struct {
	second int64
	hits   int64
}

type window struct {
	slots    []slot
	size     int64
	lastSeen int64
}

func newWindow(size int64) *window {
	return &window{slots: make([]slot, size), size: size}
}

func (w *window) add(now int64, n int64) {
	idx := now % w.size
	if w.slots[idx].second != now {
		w.slots[idx] = slot{second: now, hits: n}
	} else {
		w.slots[idx].hits += n
	}
	w.lastSeen = now
}

func (w *window) sum(lastN int64, now int64) int64 {
	if lastN > w.size {
		lastN = w.size
	}
	var total int64
	for sec := now - lastN + 1; sec <= now; sec++ {
		if s := w.slots[sec%w.size]; s.second == sec {
			total += s.hits
		}
	}
	return total
}

type shard struct {
	mu      sync.RWMutex
	windows map[uint64]*window
}

// Counter is a sharded per-key sliding window of one-second slots.
// The gate uses it to count how often each client address was turned away.
type Counter struct {
	shards     []*shard
	shardCount uint64
	size       int64
	now        func() int64
}

// NewCounter creates a counter with shardCount shards and a window of size seconds
func NewCounter(shardCount int, size int64) *Counter {
	if shardCount < 1 {
		shardCount = 1
	}
	if size < 1 {
		size = 1
	}
	c := &Counter{
		shards:     make([]*shard, shardCount),
		shardCount: uint64(shardCount),
		size:       size,
		now:        func() int64 { return time.Now().Unix() },
	}
	for i := range c.shards {
		c.shards[i] = &shard{windows: make(map[uint64]*window)}
	}
	return c
}

// Window returns the window length in seconds
func (c *Counter) Window() int64 {
	return c.size
}

func (c *Counter) shardFor(key string) (*shard, uint64) {
	h := xxhash.Sum64String(key)
	return c.shards[h%c.shardCount], h
}

// Add records n hits for key and returns the total inside the window
func (c *Counter) Add(key string, n int64) int64 {
	now := c.now()
	s, h := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[h]
	if !ok {
		w = newWindow(c.size)
		s.windows[h] = w
	}
	w.add(now, n)
	return w.sum(c.size, now)
}

// Query returns the hits for key over the last lastN seconds
func (c *Counter) Query(key string, lastN int64) int64 {
	now := c.now()
	s, h := c.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.windows[h]; ok {
		return w.sum(lastN, now)
	}
	return 0
}

// GC drops keys that have not been hit for a whole window
func (c *Counter) GC() {
	expire := c.now() - c.size
	for _, s := range c.shards {
		s.mu.Lock()
		for h, w := range s.windows {
			if w.lastSeen < expire {
				delete(s.windows, h)
			}
		}
		s.mu.Unlock()
	}
}

// Keys returns how many keys are currently tracked
func (c *Counter) Keys() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.windows)
		s.mu.RUnlock()
	}
	return total
}

func StartCounterGC(counter *Counter, interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			counter.GC()
		case <-stopCh:
			return
		}
	}
}
