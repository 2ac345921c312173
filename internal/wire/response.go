package wire

import (
	"bytes"

	"github.com/osakka/messageboard/internal/boarderrors"
)

// Response is one server response. A handler error collapses to the generic
// Error variant on the wire; the caller reconstructs a boarderrors.ErrInternal
// from it, since no error kind is carried.
type Response struct {
	kind ResponseKind

	GetEntryEntry Entry
	AddEntryID    ID
	GetUserUser   UserData
	AddUserID     ID
}

// ResponseKind identifies which response variant a Response holds, or
// ResponseError for the generic wire-level failure case.
type ResponseKind uint8

const (
	ResponseGetEntry ResponseKind = ResponseKind(discGetEntry)
	ResponseAddEntry ResponseKind = ResponseKind(discAddEntry)
	ResponseGetUser  ResponseKind = ResponseKind(discGetUser)
	ResponseAddUser  ResponseKind = ResponseKind(discAddUser)
	ResponseError    ResponseKind = ResponseKind(discError)
)

// Kind reports which response variant this value holds.
func (r Response) Kind() ResponseKind { return r.kind }

func NewGetEntryResponse(e Entry) Response  { return Response{kind: ResponseGetEntry, GetEntryEntry: e} }
func NewAddEntryResponse(id ID) Response    { return Response{kind: ResponseAddEntry, AddEntryID: id} }
func NewGetUserResponse(u UserData) Response { return Response{kind: ResponseGetUser, GetUserUser: u} }
func NewAddUserResponse(id ID) Response     { return Response{kind: ResponseAddUser, AddUserID: id} }
func NewErrorResponse() Response            { return Response{kind: ResponseError} }

// DecodeResponse parses one response frame's payload (version 0). An Error
// discriminant decodes to boarderrors.ErrInternal, since the receiver has no
// other way to learn what went wrong.
func DecodeResponse(data []byte) (Response, error) {
	r := bytes.NewReader(data)

	version, err := readByte(r)
	if err != nil {
		return Response{}, err
	}
	if version != responseFormatVersion {
		return Response{}, boarderrors.ErrUnsupportedVersion
	}

	disc, err := readByte(r)
	if err != nil {
		return Response{}, err
	}

	switch disc {
	case discGetEntry:
		entry, err := decodeEntry(r)
		if err != nil {
			return Response{}, err
		}
		return NewGetEntryResponse(entry), nil

	case discAddEntry:
		id, err := readUint64(r)
		if err != nil {
			return Response{}, err
		}
		return NewAddEntryResponse(id), nil

	case discGetUser:
		magic, err := readUint16(r)
		if err != nil {
			return Response{}, err
		}
		if magic != userMagic {
			return Response{}, boarderrors.ErrIncorrectMagicNum
		}
		version, err := readByte(r)
		if err != nil {
			return Response{}, err
		}
		if version != userFileVersion {
			return Response{}, boarderrors.ErrUnsupportedVersion
		}
		numEntries, err := readUint32(r)
		if err != nil {
			return Response{}, err
		}
		ids := make([]ID, 0, numEntries)
		for i := uint32(0); i < numEntries; i++ {
			entryID, err := readUint64(r)
			if err != nil {
				return Response{}, err
			}
			ids = append(ids, entryID)
		}
		return NewGetUserResponse(UserData{EntryIDs: ids}), nil

	case discAddUser:
		id, err := readUint64(r)
		if err != nil {
			return Response{}, err
		}
		return NewAddUserResponse(id), nil

	case discError:
		return Response{}, boarderrors.ErrInternal

	default:
		return Response{}, boarderrors.ErrInvalidDiscriminant
	}
}

// EncodeResponse serializes the outcome of handling a request: on success,
// the matching response payload; on failure, the single-byte generic error
// form, since the wire format carries no error kind in version 0.
func EncodeResponse(resp Response, handlerErr error) ([]byte, error) {
	var buf []byte
	buf = append(buf, responseFormatVersion)

	if handlerErr != nil {
		buf = append(buf, discError)
		return buf, nil
	}

	switch resp.kind {
	case ResponseGetEntry:
		buf = append(buf, discGetEntry)
		entryBytes, err := EncodeEntry(resp.GetEntryEntry)
		if err != nil {
			return nil, err
		}
		buf = append(buf, entryBytes...)

	case ResponseAddEntry:
		buf = append(buf, discAddEntry)
		buf = appendUint64(buf, resp.AddEntryID)

	case ResponseGetUser:
		buf = append(buf, discGetUser)
		userBytes, err := EncodeUser(resp.GetUserUser)
		if err != nil {
			return nil, err
		}
		buf = append(buf, userBytes...)

	case ResponseAddUser:
		buf = append(buf, discAddUser)
		buf = appendUint64(buf, resp.AddUserID)

	case ResponseError:
		buf = append(buf, discError)

	default:
		return nil, boarderrors.ErrInvalidDiscriminant
	}

	return buf, nil
}
