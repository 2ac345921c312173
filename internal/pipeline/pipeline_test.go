package pipeline

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osakka/messageboard/internal/handler"
	"github.com/osakka/messageboard/internal/store"
	"github.com/osakka/messageboard/internal/wire"
)

// startTestPipeline opens a store rooted at a temp directory (its root
// entry defaults to a world-writable AccessGroup) and serves it on an
// ephemeral loopback port. It returns the listener address and a cleanup
// func.
func startTestPipeline(t *testing.T) (addr string, stop func()) {
	t.Helper()

	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, st.EnsureRoot())

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	p := New(listener, handler.New(st), 4)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()

	return listener.Addr().String(), func() {
		cancel()
		<-done
	}
}

func sendRequest(t *testing.T, addr string, req wire.Request) wire.Response {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	payload, err := wire.EncodeRequest(req)
	require.NoError(t, err)

	frame := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint64(frame, uint64(len(payload)))
	copy(frame[8:], payload)
	_, err = conn.Write(frame)
	require.NoError(t, err)

	var lenBuf [8]byte
	_, err = io.ReadFull(conn, lenBuf[:])
	require.NoError(t, err)
	respLen := binary.LittleEndian.Uint64(lenBuf[:])

	body := make([]byte, respLen)
	_, err = io.ReadFull(conn, body)
	require.NoError(t, err)

	resp, err := wire.DecodeResponse(body)
	require.NoError(t, err)
	return resp
}

// TestConcurrentAddEntryUnderSameParent exercises many clients concurrently
// calling AddEntry under the same parent: each must receive a distinct id,
// and the parent's children list must end up with exactly one entry per
// successful write.
func TestConcurrentAddEntryUnderSameParent(t *testing.T) {
	addr, stop := startTestPipeline(t)
	defer stop()

	addUserResp := sendRequest(t, addr, wire.NewAddUser())
	userID := addUserResp.AddUserID

	const n = 30
	var wg sync.WaitGroup
	ids := make([]wire.ID, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			resp := sendRequest(t, addr, wire.NewAddEntry(userID, wire.Entry{
				Header:  wire.Header{ParentID: wire.RootID},
				Payload: wire.Message{Text: "concurrent message"},
			}))
			ids[i] = resp.AddEntryID
		}(i)
	}
	wg.Wait()

	seen := make(map[wire.ID]bool, n)
	for _, id := range ids {
		require.NotZero(t, id)
		require.False(t, seen[id], "id %d was allocated to more than one request", id)
		seen[id] = true
	}

	rootResp := sendRequest(t, addr, wire.NewGetEntry(userID, wire.RootID))
	require.Len(t, rootResp.GetEntryEntry.Header.ChildrenIDs, n)
}
