package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osakka/messageboard/internal/boarderrors"
	"github.com/osakka/messageboard/internal/wire"
	"github.com/osakka/messageboard/internal/wire/idset"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestEnsureRootCreatesRootOnce(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.EnsureRoot())
	root, err := s.ReadEntry(wire.RootID)
	require.NoError(t, err)

	group, ok := root.Payload.(wire.AccessGroup)
	require.True(t, ok, "root entry must be an AccessGroup")
	require.Equal(t, idset.BaseWhite, group.ReadPerms.Base())
	require.Equal(t, idset.BaseWhite, group.WritePerms.Base(), "a fresh store must accept writes at root without further setup")
	require.Equal(t, wire.RootID, root.Header.ParentID)
	require.Equal(t, wire.RootID, root.Header.AuthorID)

	// Calling EnsureRoot again must be a no-op, not ErrAlreadyExists.
	require.NoError(t, s.EnsureRoot())
}

func TestWriteEntryNewRejectsDuplicate(t *testing.T) {
	s := openTestStore(t)
	entry := wire.Entry{
		Header:  wire.Header{ParentID: wire.RootID, AuthorID: 1},
		Payload: wire.Message{Text: "hi"},
	}

	require.NoError(t, s.WriteEntryNew(1, entry))
	err := s.WriteEntryNew(1, entry)
	require.ErrorIs(t, err, boarderrors.ErrAlreadyExists)
}

func TestReadEntryMissingReturnsDoesNotExist(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ReadEntry(999)
	require.ErrorIs(t, err, boarderrors.ErrDoesNotExist)
}

func TestWriteEntryForceOverwrites(t *testing.T) {
	s := openTestStore(t)
	entry := wire.Entry{
		Header:  wire.Header{ParentID: wire.RootID, AuthorID: 1},
		Payload: wire.Message{Text: "v1"},
	}
	require.NoError(t, s.WriteEntryNew(1, entry))

	entry.Payload = wire.Message{Text: "v2"}
	require.NoError(t, s.WriteEntryForce(1, entry))

	got, err := s.ReadEntry(1)
	require.NoError(t, err)
	require.Equal(t, wire.Message{Text: "v2"}, got.Payload)
}

func TestUserLifecycle(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateUserFile(1))
	require.NoError(t, s.AppendUserID(1))

	ids, err := s.ReadUserList()
	require.NoError(t, err)
	require.Equal(t, []wire.ID{1}, ids)

	require.NoError(t, s.AppendUserID(2))
	ids, err = s.ReadUserList()
	require.NoError(t, err)
	require.Equal(t, []wire.ID{1, 2}, ids)

	user, err := s.ReadUser(1)
	require.NoError(t, err)
	require.Empty(t, user.EntryIDs)

	user.EntryIDs = []wire.ID{10, 20}
	require.NoError(t, s.WriteUser(1, user))

	got, err := s.ReadUser(1)
	require.NoError(t, err)
	require.Equal(t, []wire.ID{10, 20}, got.EntryIDs)
}

func TestWriteUserRequiresExistingFile(t *testing.T) {
	s := openTestStore(t)
	err := s.WriteUser(1, wire.UserData{})
	require.ErrorIs(t, err, boarderrors.ErrDoesNotExist)
}

func TestWithParentLockSerializesUpdates(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.EnsureRoot())

	const n = 50
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		childID := wire.ID(i + 1)
		go func() {
			errs <- s.WithParentLock(wire.RootID, func() error {
				parent, err := s.ReadEntry(wire.RootID)
				if err != nil {
					return err
				}
				parent.Header.ChildrenIDs = append(parent.Header.ChildrenIDs, childID)
				return s.WriteEntryForce(wire.RootID, parent)
			})
		}()
	}

	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	root, err := s.ReadEntry(wire.RootID)
	require.NoError(t, err)
	require.Len(t, root.Header.ChildrenIDs, n, "every concurrent append must be reflected, none lost to the race")
}
