package wire

import (
	"bytes"

	"github.com/osakka/messageboard/internal/boarderrors"
	"github.com/osakka/messageboard/internal/wire/idset"
)

// Header is the common prefix of every Entry.
type Header struct {
	Version     uint8
	ParentID    ID
	ChildrenIDs []ID
	AuthorID    ID
}

// Payload is the type-specific body of an Entry: either Message or
// AccessGroup.
type Payload interface {
	discriminant() uint8
}

// Message is an Entry payload carrying free text.
type Message struct {
	TimestampUnixSecs uint64
	Text              string
}

func (Message) discriminant() uint8 { return discMessage }

// AccessGroup is an Entry payload carrying permission rules for its subtree.
type AccessGroup struct {
	Name       string
	WritePerms idset.IDSet
	ReadPerms  idset.IDSet
}

func (AccessGroup) discriminant() uint8 { return discAccessGroup }

// Entry is a node in the message board tree.
type Entry struct {
	Header  Header
	Payload Payload
}

// DecodeEntry parses one entry file's contents.
func DecodeEntry(data []byte) (Entry, error) {
	r := bytes.NewReader(data)
	return decodeEntry(r)
}

func decodeEntry(r byteReader) (Entry, error) {
	magic, err := readUint16(r)
	if err != nil {
		return Entry{}, err
	}
	if magic != entryMagic {
		return Entry{}, boarderrors.ErrIncorrectMagicNum
	}

	version, err := readByte(r)
	if err != nil {
		return Entry{}, err
	}
	if version != entryFileVersion {
		return Entry{}, boarderrors.ErrUnsupportedVersion
	}

	entryType, err := readByte(r)
	if err != nil {
		return Entry{}, err
	}

	parentID, err := readUint64(r)
	if err != nil {
		return Entry{}, err
	}

	numChildren, err := readUint16(r)
	if err != nil {
		return Entry{}, err
	}
	// A childless entry decodes to a nil list, matching what an Entry built
	// without children holds, so Decode(Encode(x)) == x under reflect.DeepEqual.
	var children []ID
	if numChildren > 0 {
		children = make([]ID, 0, numChildren)
	}
	for i := uint16(0); i < numChildren; i++ {
		childID, err := readUint64(r)
		if err != nil {
			return Entry{}, err
		}
		children = append(children, childID)
	}

	authorID, err := readUint64(r)
	if err != nil {
		return Entry{}, err
	}

	header := Header{
		Version:     version,
		ParentID:    parentID,
		ChildrenIDs: children,
		AuthorID:    authorID,
	}

	payload, err := decodePayload(r, entryType)
	if err != nil {
		return Entry{}, err
	}

	return Entry{Header: header, Payload: payload}, nil
}

func decodePayload(r byteReader, entryType uint8) (Payload, error) {
	switch entryType {
	case discMessage:
		timestamp, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		size, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		text, err := readString(r, size)
		if err != nil {
			return nil, err
		}
		return Message{TimestampUnixSecs: timestamp, Text: text}, nil

	case discAccessGroup:
		nameLen, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		name, err := readString(r, nameLen)
		if err != nil {
			return nil, err
		}
		writePerms, err := idset.Decode(r)
		if err != nil {
			return nil, err
		}
		readPerms, err := idset.Decode(r)
		if err != nil {
			return nil, err
		}
		return AccessGroup{Name: name, WritePerms: writePerms, ReadPerms: readPerms}, nil

	default:
		return nil, boarderrors.ErrInvalidDiscriminant
	}
}

// EncodeEntry serializes e in the version-0 wire format.
func EncodeEntry(e Entry) ([]byte, error) {
	var buf []byte

	numChildren, err := putUint16Len(len(e.Header.ChildrenIDs))
	if err != nil {
		return nil, err
	}

	buf = appendUint16(buf, entryMagic)
	buf = append(buf, entryFileVersion)
	buf = append(buf, e.Payload.discriminant())
	buf = appendUint64(buf, e.Header.ParentID)
	buf = appendUint16(buf, numChildren)
	for _, childID := range e.Header.ChildrenIDs {
		buf = appendUint64(buf, childID)
	}
	buf = appendUint64(buf, e.Header.AuthorID)

	switch payload := e.Payload.(type) {
	case Message:
		textLen, err := putUint32Len(len(payload.Text))
		if err != nil {
			return nil, err
		}
		buf = appendUint64(buf, payload.TimestampUnixSecs)
		buf = appendUint32(buf, textLen)
		buf = append(buf, payload.Text...)

	case AccessGroup:
		nameLen, err := putUint32Len(len(payload.Name))
		if err != nil {
			return nil, err
		}
		buf = appendUint32(buf, nameLen)
		buf = append(buf, payload.Name...)
		if buf, err = idset.Encode(buf, payload.WritePerms); err != nil {
			return nil, err
		}
		if buf, err = idset.Encode(buf, payload.ReadPerms); err != nil {
			return nil, err
		}

	default:
		return nil, boarderrors.ErrInvalidDiscriminant
	}

	return buf, nil
}
