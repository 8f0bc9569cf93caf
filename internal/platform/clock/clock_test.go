package clock

import (
	"sync"
	"testing"
	"time"
)

func TestMonotonicStrictlyIncreasing(t *testing.T) {
	c := NewMonotonic()
	prev := c.Now()
	for i := 0; i < 1000; i++ {
		now := c.Now()
		if !now.After(prev) {
			t.Fatalf("reading %d not strictly increasing: %v then %v", i, prev, now)
		}
		prev = now
	}
}

func TestMonotonicConcurrent(t *testing.T) {
	c := NewMonotonic()
	const n = 50
	var wg sync.WaitGroup
	out := make(chan time.Time, n*20)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				out <- c.Now()
			}
		}()
	}
	wg.Wait()
	close(out)
	seen := map[time.Time]bool{}
	for ts := range out {
		if seen[ts] {
			t.Fatalf("duplicate instant %v", ts)
		}
		seen[ts] = true
	}
}

func TestFixedSequence(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Fixed(base)
	if got := c.Now(); !got.Equal(base) {
		t.Fatalf("first reading = %v, want %v", got, base)
	}
	if got := c.Now(); !got.Equal(base.Add(time.Microsecond)) {
		t.Fatalf("second reading = %v", got)
	}
}
