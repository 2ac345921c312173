package idalloc

import (
	"sync"
	"testing"

	"github.com/osakka/messageboard/internal/boarderrors"
	"github.com/osakka/messageboard/internal/wire"
)

// fakeProber simulates a store that already has some ids taken.
type fakeProber struct {
	mu    sync.Mutex
	taken map[wire.ID]bool
}

func (p *fakeProber) Taken(id wire.ID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.taken[id], nil
}

func (p *fakeProber) mark(id wire.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.taken[id] = true
}

func TestNextNeverReturnsRootID(t *testing.T) {
	a := New()
	prober := &fakeProber{taken: map[wire.ID]bool{}}
	for i := 0; i < 10; i++ {
		id, err := a.Next(prober)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if id == wire.RootID {
			t.Fatalf("Next returned the reserved root id")
		}
		prober.mark(id)
	}
}

func TestNextSkipsTakenIDs(t *testing.T) {
	a := New()
	prober := &fakeProber{taken: map[wire.ID]bool{1: true, 2: true, 3: true}}

	id, err := a.Next(prober)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if id != 4 {
		t.Errorf("Next() = %d, want 4 (first untaken id after the seeded range)", id)
	}
}

func TestNextConcurrentCallsNeverCollide(t *testing.T) {
	a := New()
	prober := &fakeProber{taken: map[wire.ID]bool{}}

	const n = 200
	ids := make(chan wire.ID, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			id, err := a.Next(prober)
			if err != nil {
				t.Errorf("Next: %v", err)
				return
			}
			prober.mark(id)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[wire.ID]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("id %d allocated twice", id)
		}
		seen[id] = true
	}
}

func TestEntryProberTakenMapsDoesNotExist(t *testing.T) {
	p := EntryProber{ReadEntry: func(wire.ID) (wire.Entry, error) {
		return wire.Entry{}, boarderrors.ErrDoesNotExist
	}}
	taken, err := p.Taken(1)
	if err != nil {
		t.Fatalf("Taken: %v", err)
	}
	if taken {
		t.Error("Taken() = true for a nonexistent entry")
	}
}
