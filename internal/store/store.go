// Package store implements the file-backed persistence layer:
// one file per entry under entries/, one file per user under users/, and a
// flat concatenated-id user_list file.
//
// File names are 16 hex-uppercase digits (the full 64-bit id), wide enough
// to avoid id collisions regardless of how large the id space grows.
//
// The store performs no locking of its own beyond what's needed for the
// atomic write-then-rename of a single file: safety against concurrent
// writers to the *same* entry is the connection pipeline's responsibility,
// except for the parent-child-list update race, which this package
// resolves directly with a keyed mutex (see WithParentLock).
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/osakka/messageboard/internal/boarderrors"
	"github.com/osakka/messageboard/internal/keyedmutex"
	"github.com/osakka/messageboard/internal/logger"
	"github.com/osakka/messageboard/internal/wire"
	"github.com/osakka/messageboard/internal/wire/idset"
)

const (
	entriesDir   = "entries"
	usersDir     = "users"
	userListFile = "user_list"
)

// Store is a file-system-backed database of entries and users rooted at a
// configured directory.
type Store struct {
	root string

	// parentLocks serializes the read-modify-write of a parent entry's
	// children_ids list.
	parentLocks *keyedmutex.Keyed
}

// Open returns a Store rooted at root, creating the directory layout
// (entries/, users/, user_list) if it does not already exist. A store root
// must exist with this layout before requests are served.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, entriesDir), 0o755); err != nil {
		return nil, fmt.Errorf("create entries dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, usersDir), 0o755); err != nil {
		return nil, fmt.Errorf("create users dir: %w", err)
	}
	listPath := filepath.Join(root, userListFile)
	if _, err := os.Stat(listPath); os.IsNotExist(err) {
		f, err := os.OpenFile(listPath, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("create user_list: %w", err)
		}
		_ = f.Close()
	}

	s := &Store{root: root, parentLocks: keyedmutex.New()}
	logger.Info("store opened at %s", root)
	return s, nil
}

// EnsureRoot creates the root entry (id wire.RootID) if it is not already
// present. The root is its own parent, is always an AccessGroup, and is
// never deleted. Both its ReadPerms and WritePerms default to White(nil)
// (default-allow): a fresh store must be immediately usable, with no
// out-of-band seeding step required before the first AddEntry can succeed.
//
// Its AuthorID is set to wire.RootID itself: the root is created before any
// user exists, so it cannot name a real author the way every other entry
// must. Since no user id is ever 0, this sentinel value can never
// collide with a real user and the GetEntry authoring bypass
// will correctly never fire for it.
func (s *Store) EnsureRoot() error {
	if _, err := s.ReadEntry(wire.RootID); err == nil {
		return nil
	} else if !errors.Is(err, boarderrors.ErrDoesNotExist) {
		return err
	}

	root := wire.Entry{
		Header: wire.Header{
			Version:     0,
			ParentID:    wire.RootID,
			ChildrenIDs: nil,
			AuthorID:    wire.RootID,
		},
		Payload: wire.AccessGroup{
			Name:       "root",
			WritePerms: idset.NewWhite(nil),
			ReadPerms:  idset.NewWhite(nil),
		},
	}
	if err := s.WriteEntryNew(wire.RootID, root); err != nil {
		return fmt.Errorf("create root entry: %w", err)
	}
	logger.Info("root entry created")
	return nil
}

func (s *Store) entryPath(id wire.ID) string {
	return filepath.Join(s.root, entriesDir, fmt.Sprintf("%016X", id))
}

func (s *Store) userPath(id wire.ID) string {
	return filepath.Join(s.root, usersDir, fmt.Sprintf("%016X", id))
}

// ReadEntry loads and decodes the entry file for id.
func (s *Store) ReadEntry(id wire.ID) (wire.Entry, error) {
	data, err := os.ReadFile(s.entryPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return wire.Entry{}, boarderrors.ErrDoesNotExist
		}
		return wire.Entry{}, fmt.Errorf("%w: %v", boarderrors.ErrInternal, err)
	}
	return wire.DecodeEntry(data)
}

// WriteEntryNew writes entry at id, failing with ErrAlreadyExists if a file
// is already present. This is the write-once path used when creating an
// entry for the first time.
func (s *Store) WriteEntryNew(id wire.ID, entry wire.Entry) error {
	path := s.entryPath(id)
	if _, err := os.Stat(path); err == nil {
		return boarderrors.ErrAlreadyExists
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", boarderrors.ErrInternal, err)
	}

	data, err := wire.EncodeEntry(entry)
	if err != nil {
		return err
	}
	if err := writeFileExclusive(path, data); err != nil {
		if os.IsExist(err) {
			return boarderrors.ErrAlreadyExists
		}
		return fmt.Errorf("%w: %v", boarderrors.ErrInternal, err)
	}
	return nil
}

// WriteEntryForce unconditionally overwrites the entry file for id. Used
// only to update a parent's children_ids after AddEntry (the sole
// legitimate edit of an existing entry) and by maintenance code paths.
func (s *Store) WriteEntryForce(id wire.ID, entry wire.Entry) error {
	data, err := wire.EncodeEntry(entry)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.entryPath(id), data); err != nil {
		return fmt.Errorf("%w: %v", boarderrors.ErrInternal, err)
	}
	return nil
}

// ReadUser loads and decodes the user file for id.
func (s *Store) ReadUser(id wire.ID) (wire.UserData, error) {
	data, err := os.ReadFile(s.userPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return wire.UserData{}, boarderrors.ErrDoesNotExist
		}
		return wire.UserData{}, fmt.Errorf("%w: %v", boarderrors.ErrInternal, err)
	}
	return wire.DecodeUser(data)
}

// WriteUser overwrites the user file for id, requiring that it already
// exists.
func (s *Store) WriteUser(id wire.ID, user wire.UserData) error {
	path := s.userPath(id)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return boarderrors.ErrDoesNotExist
		}
		return fmt.Errorf("%w: %v", boarderrors.ErrInternal, err)
	}
	data, err := wire.EncodeUser(user)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: %v", boarderrors.ErrInternal, err)
	}
	return nil
}

// CreateUserFile creates a fresh, empty user record for id, failing with
// ErrAlreadyExists if one is already present.
func (s *Store) CreateUserFile(id wire.ID) error {
	data, err := wire.EncodeUser(wire.UserData{EntryIDs: nil})
	if err != nil {
		return err
	}
	if err := writeFileExclusive(s.userPath(id), data); err != nil {
		if os.IsExist(err) {
			return boarderrors.ErrAlreadyExists
		}
		return fmt.Errorf("%w: %v", boarderrors.ErrInternal, err)
	}
	return nil
}

// ReadUserList reads and splits the flat user_list file into ids. Any
// trailing bytes that don't form a full 8-byte chunk are a format error.
func (s *Store) ReadUserList() ([]wire.ID, error) {
	data, err := os.ReadFile(filepath.Join(s.root, userListFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", boarderrors.ErrInternal, err)
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("%w: user_list length %d is not a multiple of 8", boarderrors.ErrInternal, len(data))
	}
	ids := make([]wire.ID, 0, len(data)/8)
	for i := 0; i < len(data); i += 8 {
		ids = append(ids, decodeLEUint64(data[i:i+8]))
	}
	return ids, nil
}

// AppendUserID appends id's 8 little-endian bytes to user_list. The file is
// opened strictly in append mode so concurrent calls never truncate each
// other's writes.
func (s *Store) AppendUserID(id wire.ID) error {
	path := filepath.Join(s.root, userListFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", boarderrors.ErrInternal, err)
	}
	defer f.Close()

	buf := encodeLEUint64(id)
	if _, err := f.Write(buf[:]); err != nil {
		return fmt.Errorf("%w: %v", boarderrors.ErrInternal, err)
	}
	return nil
}

// WithParentLock runs fn while holding the per-entry write lock for
// parentID, serializing concurrent AddEntry requests that target the same
// parent.
func (s *Store) WithParentLock(parentID wire.ID, fn func() error) error {
	return s.parentLocks.WithLock(parentID, fn)
}

func decodeLEUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func encodeLEUint64(v uint64) [8]byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
