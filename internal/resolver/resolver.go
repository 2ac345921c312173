// Package resolver implements the hierarchical permission resolution
// algorithm: ascend from a target entry toward the root, applying the
// first AccessGroup rule that gives a definitive answer.
package resolver

import (
	"github.com/osakka/messageboard/internal/boarderrors"
	"github.com/osakka/messageboard/internal/wire"
	"github.com/osakka/messageboard/internal/wire/idset"
)

// MaxTraversalDepth bounds the ascent so a corrupted store (e.g. a parent
// cycle) cannot hang the resolver (recommended 4,096).
const MaxTraversalDepth = 4096

// Kind selects which of an AccessGroup's two DefaultedIdSet fields governs
// a request.
type Kind int

const (
	Read Kind = iota
	Write
)

// EntryReader is the subset of the store the resolver needs: read-only
// access to entries by id.
type EntryReader interface {
	ReadEntry(id wire.ID) (wire.Entry, error)
}

// Resolve determines whether userID may act (per kind) on the children of
// targetID, by walking ancestors toward the root.
//
// It returns (true, nil) on an explicit allow, (false, nil) on an explicit
// deny or on reaching the root with no decision, and a non-nil error only
// for store/traversal failures.
func Resolve(store EntryReader, userID, targetID wire.ID, kind Kind) (bool, error) {
	cur := targetID

	for depth := 0; ; depth++ {
		if depth >= MaxTraversalDepth {
			return false, boarderrors.ErrInternal
		}

		entry, err := store.ReadEntry(cur)
		if err != nil {
			return false, err
		}

		if group, ok := entry.Payload.(wire.AccessGroup); ok {
			set := group.ReadPerms
			if kind == Write {
				set = group.WritePerms
			}
			switch set.Contains(userID) {
			case idset.Allow:
				return true, nil
			case idset.Deny:
				return false, nil
			case idset.Defer:
				// fall through to the ancestor
			}
		}

		if cur == wire.RootID {
			return false, nil
		}
		cur = entry.Header.ParentID
	}
}
