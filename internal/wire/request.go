package wire

import (
	"bytes"

	"github.com/osakka/messageboard/internal/boarderrors"
)

// Request is one client request. Exactly one of the Get*/Add*
// fields is meaningful, selected by Kind.
type Request struct {
	kind RequestKind

	GetEntryUserID  ID
	GetEntryID      ID
	AddEntryUserID  ID
	AddEntryEntry   Entry
	GetUserID       ID
}

// RequestKind identifies which request variant a Request carries.
type RequestKind uint8

const (
	RequestGetEntry RequestKind = RequestKind(discGetEntry)
	RequestAddEntry RequestKind = RequestKind(discAddEntry)
	RequestGetUser  RequestKind = RequestKind(discGetUser)
	RequestAddUser  RequestKind = RequestKind(discAddUser)
)

// Kind reports which request variant this value holds.
func (r Request) Kind() RequestKind { return r.kind }

// NewGetEntry builds a GetEntry request.
func NewGetEntry(userID, entryID ID) Request {
	return Request{kind: RequestGetEntry, GetEntryUserID: userID, GetEntryID: entryID}
}

// NewAddEntry builds an AddEntry request. The entry's id is assigned by the
// server, never by the client.
func NewAddEntry(userID ID, entry Entry) Request {
	return Request{kind: RequestAddEntry, AddEntryUserID: userID, AddEntryEntry: entry}
}

// NewGetUser builds a GetUser request.
func NewGetUser(userID ID) Request {
	return Request{kind: RequestGetUser, GetUserID: userID}
}

// NewAddUser builds an AddUser request.
func NewAddUser() Request {
	return Request{kind: RequestAddUser}
}

// DecodeRequest parses one request frame's payload.
func DecodeRequest(data []byte) (Request, error) {
	r := bytes.NewReader(data)

	version, err := readByte(r)
	if err != nil {
		return Request{}, err
	}
	if version != requestFormatVersion {
		return Request{}, boarderrors.ErrUnsupportedVersion
	}

	disc, err := readByte(r)
	if err != nil {
		return Request{}, err
	}

	switch disc {
	case discGetEntry:
		userID, err := readUint64(r)
		if err != nil {
			return Request{}, err
		}
		entryID, err := readUint64(r)
		if err != nil {
			return Request{}, err
		}
		return NewGetEntry(userID, entryID), nil

	case discAddEntry:
		userID, err := readUint64(r)
		if err != nil {
			return Request{}, err
		}
		entry, err := decodeEntry(r)
		if err != nil {
			return Request{}, err
		}
		return NewAddEntry(userID, entry), nil

	case discGetUser:
		userID, err := readUint64(r)
		if err != nil {
			return Request{}, err
		}
		return NewGetUser(userID), nil

	case discAddUser:
		return NewAddUser(), nil

	default:
		return Request{}, boarderrors.ErrInvalidDiscriminant
	}
}

// EncodeRequest serializes r in the version-0 wire format.
func EncodeRequest(r Request) ([]byte, error) {
	var buf []byte
	buf = append(buf, requestFormatVersion)

	switch r.kind {
	case RequestGetEntry:
		buf = append(buf, discGetEntry)
		buf = appendUint64(buf, r.GetEntryUserID)
		buf = appendUint64(buf, r.GetEntryID)

	case RequestAddEntry:
		buf = append(buf, discAddEntry)
		buf = appendUint64(buf, r.AddEntryUserID)
		entryBytes, err := EncodeEntry(r.AddEntryEntry)
		if err != nil {
			return nil, err
		}
		buf = append(buf, entryBytes...)

	case RequestGetUser:
		buf = append(buf, discGetUser)
		buf = appendUint64(buf, r.GetUserID)

	case RequestAddUser:
		buf = append(buf, discAddUser)

	default:
		return nil, boarderrors.ErrInvalidDiscriminant
	}

	return buf, nil
}
