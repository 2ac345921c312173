// Command messageboardctl is a thin client for manual smoke-testing of the
// message board's wire protocol: it dials the server, sends one request,
// prints the decoded response, and exits. It exists to give the codec and
// pipeline a second, independent caller; it is not a replacement for an
// interactive terminal client.
package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/osakka/messageboard/internal/wire"
	"github.com/osakka/messageboard/internal/wire/idset"
)

var (
	addr    string
	timeout time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "messageboardctl",
		Short:         "Manual client for the message board wire protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:8000", "server address")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")

	cmd.AddCommand(newGetEntryCmd())
	cmd.AddCommand(newAddEntryCmd())
	cmd.AddCommand(newGetUserCmd())
	cmd.AddCommand(newAddUserCmd())
	return cmd
}

func newGetEntryCmd() *cobra.Command {
	var userID, entryID uint64
	cmd := &cobra.Command{
		Use:   "get-entry",
		Short: "Fetch an entry by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := roundTrip(wire.NewGetEntry(userID, entryID))
			if err != nil {
				return err
			}
			return printJSON(entryToJSON(resp.GetEntryEntry))
		},
	}
	cmd.Flags().Uint64Var(&userID, "user", 0, "requesting user id")
	cmd.Flags().Uint64Var(&entryID, "entry", 0, "target entry id")
	return cmd
}

func newAddEntryCmd() *cobra.Command {
	var userID uint64
	var fromFile string
	cmd := &cobra.Command{
		Use:   "add-entry",
		Short: "Create a new entry (reads a JSON description from a file or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = os.Stdin
			if fromFile != "" {
				f, err := os.Open(fromFile)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			var desc entryJSON
			if err := json.NewDecoder(r).Decode(&desc); err != nil {
				return fmt.Errorf("decode entry description: %w", err)
			}
			entry, err := desc.toEntry()
			if err != nil {
				return err
			}
			resp, err := roundTrip(wire.NewAddEntry(userID, entry))
			if err != nil {
				return err
			}
			fmt.Println(resp.AddEntryID)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&userID, "user", 0, "authoring user id")
	cmd.Flags().StringVar(&fromFile, "file", "", "path to a JSON entry description (default: stdin)")
	return cmd
}

func newGetUserCmd() *cobra.Command {
	var userID uint64
	cmd := &cobra.Command{
		Use:   "get-user",
		Short: "Fetch a user's authored entry ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := roundTrip(wire.NewGetUser(userID))
			if err != nil {
				return err
			}
			return printJSON(resp.GetUserUser.EntryIDs)
		},
	}
	cmd.Flags().Uint64Var(&userID, "user", 0, "user id")
	return cmd
}

func newAddUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-user",
		Short: "Allocate a new user id",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := roundTrip(wire.NewAddUser())
			if err != nil {
				return err
			}
			fmt.Println(resp.AddUserID)
			return nil
		},
	}
}

// roundTrip dials addr, sends req as one length-framed message, and reads
// back the single length-framed response.
func roundTrip(req wire.Request) (wire.Response, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return wire.Response{}, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	payload, err := wire.EncodeRequest(req)
	if err != nil {
		return wire.Response{}, err
	}
	frame := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint64(frame, uint64(len(payload)))
	copy(frame[8:], payload)
	if _, err := conn.Write(frame); err != nil {
		return wire.Response{}, fmt.Errorf("write request: %w", err)
	}

	var lenBuf [8]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return wire.Response{}, fmt.Errorf("read response length: %w", err)
	}
	respLen := binary.LittleEndian.Uint64(lenBuf[:])
	respPayload := make([]byte, respLen)
	if _, err := io.ReadFull(conn, respPayload); err != nil {
		return wire.Response{}, fmt.Errorf("read response body: %w", err)
	}

	return wire.DecodeResponse(respPayload)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// entryJSON is the messageboardctl add-entry input schema: a minimal JSON
// shape for the two entry payload kinds, since the wire format itself has
// no textual representation.
type entryJSON struct {
	Type     string   `json:"type"` // "message" or "access_group"
	ParentID uint64   `json:"parent_id"`

	// message fields
	Text string `json:"text,omitempty"`

	// access_group fields
	Name            string   `json:"name,omitempty"`
	WriteBase       string   `json:"write_base,omitempty"` // inherit|white|black
	WriteWhitelist  []uint64 `json:"write_whitelist,omitempty"`
	WriteBlacklist  []uint64 `json:"write_blacklist,omitempty"`
	ReadBase        string   `json:"read_base,omitempty"`
	ReadWhitelist   []uint64 `json:"read_whitelist,omitempty"`
	ReadBlacklist   []uint64 `json:"read_blacklist,omitempty"`
}

func (e entryJSON) toEntry() (wire.Entry, error) {
	header := wire.Header{ParentID: e.ParentID}

	switch e.Type {
	case "message":
		return wire.Entry{
			Header: header,
			Payload: wire.Message{
				TimestampUnixSecs: uint64(time.Now().Unix()),
				Text:              e.Text,
			},
		}, nil

	case "access_group":
		write, err := e.idSet(e.WriteBase, e.WriteWhitelist, e.WriteBlacklist)
		if err != nil {
			return wire.Entry{}, fmt.Errorf("write_perms: %w", err)
		}
		read, err := e.idSet(e.ReadBase, e.ReadWhitelist, e.ReadBlacklist)
		if err != nil {
			return wire.Entry{}, fmt.Errorf("read_perms: %w", err)
		}
		return wire.Entry{
			Header: header,
			Payload: wire.AccessGroup{
				Name:       e.Name,
				WritePerms: write,
				ReadPerms:  read,
			},
		}, nil

	default:
		return wire.Entry{}, fmt.Errorf("unknown entry type %q (want message or access_group)", e.Type)
	}
}

func (entryJSON) idSet(base string, whitelist, blacklist []uint64) (idset.IDSet, error) {
	switch base {
	case "", "inherit":
		return idset.NewInherit(whitelist, blacklist), nil
	case "white":
		return idset.NewWhite(blacklist), nil
	case "black":
		return idset.NewBlack(whitelist), nil
	default:
		return idset.IDSet{}, fmt.Errorf("unknown base %q (want inherit, white, or black)", base)
	}
}

func entryToJSON(e wire.Entry) any {
	out := map[string]any{
		"parent_id":    e.Header.ParentID,
		"author_id":    e.Header.AuthorID,
		"children_ids": e.Header.ChildrenIDs,
	}
	switch payload := e.Payload.(type) {
	case wire.Message:
		out["type"] = "message"
		out["timestamp_unix_secs"] = payload.TimestampUnixSecs
		out["text"] = payload.Text
	case wire.AccessGroup:
		out["type"] = "access_group"
		out["name"] = payload.Name
		out["write_perms"] = idSetJSON(payload.WritePerms)
		out["read_perms"] = idSetJSON(payload.ReadPerms)
	}
	return out
}

func idSetJSON(s idset.IDSet) any {
	return map[string]any{
		"base":      s.Base().String(),
		"whitelist": s.Whitelist(),
		"blacklist": s.Blacklist(),
	}
}
