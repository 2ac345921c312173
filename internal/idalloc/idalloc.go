// Package idalloc allocates fresh entry and user ids.
//
// Ids must never collide with an id already present in the store, and
// allocation must be serializable with concurrent AddEntry/AddUser requests
// handled by other workers. This implementation keeps a single
// in-process counter guarded by a mutex and probes the store to skip past
// any id that is already taken, so it stays correct even if the store was
// seeded out-of-band with ids higher than the counter's start.
package idalloc

import (
	"errors"
	"sync"

	"github.com/osakka/messageboard/internal/boarderrors"
	"github.com/osakka/messageboard/internal/wire"
)

// Prober reports whether an id is already taken.
type Prober interface {
	Taken(id wire.ID) (bool, error)
}

// Allocator hands out fresh, store-wide-unique ids.
type Allocator struct {
	mu   sync.Mutex
	next wire.ID
}

// New returns an Allocator that starts probing just after the root id.
func New() *Allocator {
	return &Allocator{next: wire.RootID + 1}
}

// Next returns an id that prober confirms is not yet taken, advancing past
// it so a subsequent call never repeats it even before the caller persists
// anything under it.
func (a *Allocator) Next(prober Prober) (wire.ID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for {
		candidate := a.next
		a.next++
		if candidate == wire.RootID {
			continue
		}

		taken, err := prober.Taken(candidate)
		if err != nil {
			return 0, err
		}
		if !taken {
			return candidate, nil
		}
	}
}

// EntryProber and UserProber adapt a store's ReadEntry/ReadUser into the
// Prober interface, so the allocator never needs to know about files.

type EntryProber struct {
	ReadEntry func(wire.ID) (wire.Entry, error)
}

func (p EntryProber) Taken(id wire.ID) (bool, error) {
	_, err := p.ReadEntry(id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, boarderrors.ErrDoesNotExist) {
		return false, nil
	}
	return false, err
}

type UserProber struct {
	ReadUser func(wire.ID) (wire.UserData, error)
}

func (p UserProber) Taken(id wire.ID) (bool, error) {
	_, err := p.ReadUser(id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, boarderrors.ErrDoesNotExist) {
		return false, nil
	}
	return false, err
}
