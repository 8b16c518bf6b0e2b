package clock

import (
	"sync"
	"testing"
	"time"
)

func TestNowStrictlyIncreasingWithFrozenSource(t *testing.T) {
	frozen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(func() time.Time { return frozen })

	prev := c.Now()
	for i := 0; i < 100; i++ {
		next := c.Now()
		if !next.After(prev) {
			t.Fatalf("clock went backwards or stalled: prev=%s next=%s", prev, next)
		}
		prev = next
	}
	if want := frozen.Add(100 * time.Microsecond); !prev.Equal(want) {
		t.Fatalf("last tick: want=%s got=%s", want, prev)
	}
}

func TestNowSurvivesBackwardsSource(t *testing.T) {
	times := []time.Time{
		time.Date(2025, 3, 1, 12, 0, 1, 0, time.UTC),
		time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	i := 0
	c := New(func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	})
	a := c.Now()
	b := c.Now()
	if !b.After(a) {
		t.Fatalf("expected b after a: a=%s b=%s", a, b)
	}
}

func TestNowTruncatesToMicroseconds(t *testing.T) {
	c := New(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 1500, time.UTC) })
	got := c.Now()
	if got.Nanosecond()%1000 != 0 {
		t.Fatalf("expected microsecond precision, got %d ns", got.Nanosecond())
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC, got %s", got.Location())
	}
}

func TestNowConcurrentUnique(t *testing.T) {
	c := New(nil)
	const n = 200
	var (
		mu   sync.Mutex
		seen = make(map[time.Time]struct{}, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ts := c.Now()
			mu.Lock()
			seen[ts] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != n {
		t.Fatalf("duplicate timestamps: want=%d got=%d", n, len(seen))
	}
}
