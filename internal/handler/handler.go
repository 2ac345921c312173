// Package handler implements the pure request-handling logic: given a store
// and a request, produce a response or an error. The handler has no
// knowledge of sockets, framing, or concurrency scheduling; those belong to
// the pipeline, which makes the handler straightforward to test in
// isolation.
package handler

import (
	"fmt"

	"github.com/osakka/messageboard/internal/boarderrors"
	"github.com/osakka/messageboard/internal/idalloc"
	"github.com/osakka/messageboard/internal/resolver"
	"github.com/osakka/messageboard/internal/wire"
)

// Store is the subset of internal/store.Store the handler needs.
type Store interface {
	ReadEntry(id wire.ID) (wire.Entry, error)
	WriteEntryNew(id wire.ID, entry wire.Entry) error
	WriteEntryForce(id wire.ID, entry wire.Entry) error
	ReadUser(id wire.ID) (wire.UserData, error)
	WriteUser(id wire.ID, user wire.UserData) error
	CreateUserFile(id wire.ID) error
	AppendUserID(id wire.ID) error
	WithParentLock(parentID wire.ID, fn func() error) error
}

// Handler dispatches requests against a store.
type Handler struct {
	store      Store
	entryAlloc *idalloc.Allocator
	userAlloc  *idalloc.Allocator
}

// New returns a Handler backed by store, with its own id allocators.
func New(store Store) *Handler {
	return &Handler{
		store:      store,
		entryAlloc: idalloc.New(),
		userAlloc:  idalloc.New(),
	}
}

// Handle dispatches req against the handler's store and returns the
// resulting response, or a non-nil error which the caller (the pipeline's
// egress stage) collapses to the generic wire-level error response.
func (h *Handler) Handle(req wire.Request) (wire.Response, error) {
	switch req.Kind() {
	case wire.RequestGetEntry:
		return h.getEntry(req.GetEntryUserID, req.GetEntryID)
	case wire.RequestAddEntry:
		return h.addEntry(req.AddEntryUserID, req.AddEntryEntry)
	case wire.RequestGetUser:
		return h.getUser(req.GetUserID)
	case wire.RequestAddUser:
		return h.addUser()
	default:
		return wire.Response{}, boarderrors.ErrInvalidDiscriminant
	}
}

// getEntry reads the target entry, applying the read-permission check
// rooted at the entry's own parent, unless userID authored the entry
// itself, in which case the author always sees their own work regardless
// of the resolver's verdict.
func (h *Handler) getEntry(userID, entryID wire.ID) (wire.Response, error) {
	entry, err := h.store.ReadEntry(entryID)
	if err != nil {
		return wire.Response{}, err
	}

	if entry.Header.AuthorID == userID {
		return wire.NewGetEntryResponse(entry), nil
	}

	allowed, err := resolver.Resolve(h.store, userID, entry.Header.ParentID, resolver.Read)
	if err != nil {
		return wire.Response{}, err
	}
	if !allowed {
		return wire.Response{}, boarderrors.ErrInsufficientPerms
	}

	return wire.NewGetEntryResponse(entry), nil
}

// addEntry creates a new entry as a child of entry.Header.ParentID, after
// confirming userID has write permission there. The parent's children_ids
// and the author's EntryIDs are each updated under a lock keyed by the id
// being mutated (store.WithParentLock is keyed generically by wire.ID, not
// specifically by "parent"), so two AddEntry calls racing on the same
// parent, or by the same author, can never lose an update to a concurrent
// read-modify-write.
func (h *Handler) addEntry(userID wire.ID, entry wire.Entry) (wire.Response, error) {
	parentID := entry.Header.ParentID

	if _, err := h.store.ReadEntry(parentID); err != nil {
		return wire.Response{}, err
	}

	allowed, err := resolver.Resolve(h.store, userID, parentID, resolver.Write)
	if err != nil {
		return wire.Response{}, err
	}
	if !allowed {
		return wire.Response{}, boarderrors.ErrInsufficientPerms
	}

	if _, err := h.store.ReadUser(userID); err != nil {
		return wire.Response{}, err
	}

	entryID, err := h.entryAlloc.Next(idalloc.EntryProber{ReadEntry: h.store.ReadEntry})
	if err != nil {
		return wire.Response{}, err
	}

	entry.Header.AuthorID = userID
	entry.Header.ParentID = parentID
	entry.Header.ChildrenIDs = nil

	if err := h.store.WriteEntryNew(entryID, entry); err != nil {
		return wire.Response{}, err
	}

	err = h.store.WithParentLock(parentID, func() error {
		parent, err := h.store.ReadEntry(parentID)
		if err != nil {
			return err
		}
		parent.Header.ChildrenIDs = append(parent.Header.ChildrenIDs, entryID)
		return h.store.WriteEntryForce(parentID, parent)
	})
	if err != nil {
		return wire.Response{}, fmt.Errorf("update parent children list: %w", err)
	}

	err = h.store.WithParentLock(userID, func() error {
		user, err := h.store.ReadUser(userID)
		if err != nil {
			return err
		}
		user.EntryIDs = append(user.EntryIDs, entryID)
		return h.store.WriteUser(userID, user)
	})
	if err != nil {
		return wire.Response{}, fmt.Errorf("update user entry list: %w", err)
	}

	return wire.NewAddEntryResponse(entryID), nil
}

// getUser reads a user's record. No permission check applies: the set of
// entries a user authored is not itself access-controlled.
func (h *Handler) getUser(userID wire.ID) (wire.Response, error) {
	user, err := h.store.ReadUser(userID)
	if err != nil {
		return wire.Response{}, err
	}
	return wire.NewGetUserResponse(user), nil
}

// addUser allocates a fresh user id, creates its (empty) user record, and
// appends the id to the flat user_list file.
func (h *Handler) addUser() (wire.Response, error) {
	userID, err := h.userAlloc.Next(idalloc.UserProber{ReadUser: h.store.ReadUser})
	if err != nil {
		return wire.Response{}, err
	}
	if err := h.store.CreateUserFile(userID); err != nil {
		return wire.Response{}, err
	}
	if err := h.store.AppendUserID(userID); err != nil {
		return wire.Response{}, err
	}
	return wire.NewAddUserResponse(userID), nil
}
