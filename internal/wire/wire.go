// Package wire implements the hand-rolled little-endian binary codec for
// Entry, UserData, Request, and Response values.
//
// Every top-level record begins with a magic constant and a one-byte
// format version. A decoder that finds the wrong magic returns
// boarderrors.ErrIncorrectMagicNum; an unrecognized version returns
// ErrUnsupportedVersion; running out of bytes mid-field returns
// ErrInsufficientBytes. Only format version 0x00 is implemented.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/osakka/messageboard/internal/boarderrors"
)

// ID is the 64-bit identifier used for both entries and users.
type ID = uint64

// RootID is the reserved id of the root entry. It is never a valid user id.
const RootID ID = 0

const (
	entryMagic uint16 = 0x1234
	userMagic  uint16 = 0x1470

	entryFileVersion   uint8 = 0x00
	userFileVersion    uint8 = 0x00
	requestFormatVersion  uint8 = 0x00
	responseFormatVersion uint8 = 0x00
)

// Entry type discriminants.
const (
	discMessage     uint8 = 0x00
	discAccessGroup uint8 = 0x01
)

// Request/response discriminants.
const (
	discGetEntry uint8 = 0x00
	discAddEntry uint8 = 0x01
	discGetUser  uint8 = 0x20
	discAddUser  uint8 = 0x21
	discError    uint8 = 0xff
)

// byteReader is the minimal surface the decode helpers need; it lets the
// codec operate directly against a bytes.Reader or any other reader that
// also implements io.ByteReader, without forcing callers into a specific
// buffer type.
type byteReader interface {
	io.Reader
	io.ByteReader
}

func readByte(r byteReader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", boarderrors.ErrInsufficientBytes, err)
	}
	return b, nil
}

func readUint16(r byteReader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", boarderrors.ErrInsufficientBytes, err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func readUint32(r byteReader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", boarderrors.ErrInsufficientBytes, err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readUint64(r byteReader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", boarderrors.ErrInsufficientBytes, err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// readBytes reads exactly n bytes from r. It grows its buffer as bytes
// actually arrive (via io.ReadAll over a limited reader) instead of
// allocating n bytes upfront, so a forged length prefix can't force a
// multi-gigabyte allocation before a single byte of it is confirmed to
// exist in the input.
func readBytes(r byteReader, n uint32) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(r, int64(n)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", boarderrors.ErrInsufficientBytes, err)
	}
	if uint32(len(buf)) != n {
		return nil, fmt.Errorf("%w: got %d of %d bytes", boarderrors.ErrInsufficientBytes, len(buf), n)
	}
	return buf, nil
}

func readString(r byteReader, n uint32) (string, error) {
	buf, err := readBytes(r, n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", boarderrors.ErrStringError
	}
	return string(buf), nil
}

// putUint32Len converts n to a u32 length prefix, failing with
// ErrOOBUsizeConversion rather than silently truncating.
func putUint32Len(n int) (uint32, error) {
	if n < 0 || uint64(n) > uint64(^uint32(0)) {
		return 0, boarderrors.ErrOOBUsizeConversion
	}
	return uint32(n), nil
}

func putUint16Len(n int) (uint16, error) {
	if n < 0 || n > 0xFFFF {
		return 0, boarderrors.ErrOOBUsizeConversion
	}
	return uint16(n), nil
}

func appendUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}
