package wire

import (
	"bytes"

	"github.com/osakka/messageboard/internal/boarderrors"
)

// UserData is the record persisted for each user: the ids of entries they
// authored, in creation order.
type UserData struct {
	EntryIDs []ID
}

// DecodeUser parses one user file's contents.
func DecodeUser(data []byte) (UserData, error) {
	r := bytes.NewReader(data)

	magic, err := readUint16(r)
	if err != nil {
		return UserData{}, err
	}
	if magic != userMagic {
		return UserData{}, boarderrors.ErrIncorrectMagicNum
	}

	version, err := readByte(r)
	if err != nil {
		return UserData{}, err
	}
	if version != userFileVersion {
		return UserData{}, boarderrors.ErrUnsupportedVersion
	}

	numEntries, err := readUint32(r)
	if err != nil {
		return UserData{}, err
	}
	ids := make([]ID, 0, numEntries)
	for i := uint32(0); i < numEntries; i++ {
		id, err := readUint64(r)
		if err != nil {
			return UserData{}, err
		}
		ids = append(ids, id)
	}

	return UserData{EntryIDs: ids}, nil
}

// EncodeUser serializes u in the version-0 wire format.
func EncodeUser(u UserData) ([]byte, error) {
	numEntries, err := putUint32Len(len(u.EntryIDs))
	if err != nil {
		return nil, err
	}

	var buf []byte
	buf = appendUint16(buf, userMagic)
	buf = append(buf, userFileVersion)
	buf = appendUint32(buf, numEntries)
	for _, id := range u.EntryIDs {
		buf = appendUint64(buf, id)
	}
	return buf, nil
}
