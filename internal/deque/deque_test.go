package deque

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewPanicsOnNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-power-of-two capacity")
		}
	}()
	New[int](100)
}

func TestNewDefaultsCapacity(t *testing.T) {
	d := New[int](0)
	if got := d.Cap(); got != DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultCapacity, got)
	}
}

// S1 — single-threaded sanity.
func TestSingleThreadedSanity(t *testing.T) {
	d := New[int](16)

	if _, ok := d.Pop(); ok {
		t.Fatal("pop on empty deque should report false")
	}

	d.Push(100)
	v, ok := d.Pop()
	if !ok || v != 100 {
		t.Fatalf("pop after push: got (%v, %v), want (100, true)", v, ok)
	}

	if _, ok := d.Steal(); ok {
		t.Fatal("steal on empty deque should report false")
	}

	d.Push(100)
	v, ok = d.Steal()
	if !ok || v != 100 {
		t.Fatalf("steal after push: got (%v, %v), want (100, true)", v, ok)
	}
}

func TestPopThenPushReturnsPushedElement(t *testing.T) {
	d := New[int](16)
	d.Push(1)
	if _, ok := d.Pop(); !ok {
		t.Fatal("expected pop to succeed")
	}
	d.Push(42)
	v, ok := d.Pop()
	if !ok || v != 42 {
		t.Fatalf("got (%v, %v), want (42, true)", v, ok)
	}
}

func TestRepeatedEmptyOpsAreNoOps(t *testing.T) {
	d := New[int](16)
	for range 10 {
		if _, ok := d.Pop(); ok {
			t.Fatal("pop should keep reporting empty")
		}
		if _, ok := d.Steal(); ok {
			t.Fatal("steal should keep reporting empty")
		}
	}
	if d.Len() != 0 {
		t.Fatalf("expected len 0, got %d", d.Len())
	}
}

func TestGrowthPreservesElementsAndRetiresBuffers(t *testing.T) {
	d := New[int](2)
	const n = 1000
	for i := range n {
		d.Push(i)
	}
	if d.RetiredCount() == 0 {
		t.Fatal("expected at least one retired buffer after growth")
	}

	seen := make([]bool, n)
	for {
		v, ok := d.Pop()
		if !ok {
			break
		}
		if seen[v] {
			t.Fatalf("duplicate element %d", v)
		}
		seen[v] = true
	}
	for i, ok := range seen {
		if !ok {
			t.Fatalf("element %d never returned", i)
		}
	}
}

func TestSingleElementRaceResolvesExactlyOnce(t *testing.T) {
	for trial := 0; trial < 2000; trial++ {
		d := New[int](16)
		d.Push(7)

		var wg sync.WaitGroup
		results := make(chan int, 2)

		wg.Add(2)
		go func() {
			defer wg.Done()
			if v, ok := d.Pop(); ok {
				results <- v
			}
		}()
		go func() {
			defer wg.Done()
			if v, ok := d.Steal(); ok {
				results <- v
			}
		}()
		wg.Wait()
		close(results)

		count := 0
		for v := range results {
			if v != 7 {
				t.Fatalf("unexpected value %d", v)
			}
			count++
		}
		if count != 1 {
			t.Fatalf("expected exactly one winner, got %d", count)
		}
	}
}

// S2 — push against many stealers.
func TestPushAgainstManyStealers(t *testing.T) {
	d := New[int](16)
	const total = 1_000_000
	const stealers = 8

	var remaining atomic.Int64
	remaining.Store(total)

	var wg sync.WaitGroup
	wg.Add(stealers)
	for range stealers {
		go func() {
			defer wg.Done()
			for remaining.Load() > 0 {
				v, ok := d.Steal()
				if !ok {
					continue
				}
				if v != 1 {
					t.Errorf("unexpected stolen value %d", v)
				}
				remaining.Add(-1)
			}
		}()
	}

	for range total {
		d.Push(1)
	}
	wg.Wait()

	if remaining.Load() != 0 {
		t.Fatalf("expected remaining 0, got %d", remaining.Load())
	}
}

// S3 — pop against many stealers, all racing against a concurrent owner pop.
func TestPopAgainstManyStealers(t *testing.T) {
	d := New[int](1 << 20)
	const total = 1_000_000
	const stealers = 4

	for range total {
		d.Push(1)
	}

	var remaining atomic.Int64
	remaining.Store(total)

	var wg sync.WaitGroup
	wg.Add(stealers)
	for range stealers {
		go func() {
			defer wg.Done()
			for remaining.Load() > 0 {
				v, ok := d.Steal()
				if !ok {
					continue
				}
				if v != 1 {
					t.Errorf("unexpected stolen value %d", v)
				}
				remaining.Add(-1)
			}
		}()
	}

	for remaining.Load() > 0 {
		if _, ok := d.Pop(); ok {
			remaining.Add(-1)
		}
	}
	wg.Wait()

	if remaining.Load() != 0 {
		t.Fatalf("expected remaining 0, got %d", remaining.Load())
	}
}

// No element is lost or duplicated across a producer pushing K items and N
// concurrent stealers draining them.
func TestNoLossNoDuplicationAcrossStealers(t *testing.T) {
	d := New[int](16)
	const k = 200_000
	const stealers = 8

	var mu sync.Mutex
	seen := make(map[int]int, k)

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(stealers)
	for range stealers {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					// Drain whatever remains after the producer signals it's
					// finished pushing.
					for {
						v, ok := d.Steal()
						if !ok {
							return
						}
						mu.Lock()
						seen[v]++
						mu.Unlock()
					}
				default:
				}
				if v, ok := d.Steal(); ok {
					mu.Lock()
					seen[v]++
					mu.Unlock()
				}
			}
		}()
	}

	for i := range k {
		d.Push(i)
	}
	close(done)
	wg.Wait()

	if len(seen) != k {
		t.Fatalf("expected %d distinct elements, got %d", k, len(seen))
	}
	for v, n := range seen {
		if n != 1 {
			t.Fatalf("element %d seen %d times, want 1", v, n)
		}
	}
}
