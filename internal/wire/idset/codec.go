package idset

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/osakka/messageboard/internal/boarderrors"
)

type byteReader interface {
	io.Reader
	io.ByteReader
}

// Decode reads one DefaultedIdSet blob: a one-byte base discriminant
// followed by one or two u32-length-prefixed u64 sequences.
func Decode(r byteReader) (IDSet, error) {
	discByte, err := r.ReadByte()
	if err != nil {
		return IDSet{}, fmt.Errorf("%w: %v", boarderrors.ErrInsufficientBytes, err)
	}

	switch Base(discByte) {
	case BaseInherit:
		whitelist, err := readIDVec(r)
		if err != nil {
			return IDSet{}, err
		}
		blacklist, err := readIDVec(r)
		if err != nil {
			return IDSet{}, err
		}
		return NewInherit(whitelist, blacklist), nil
	case BaseWhite:
		blacklist, err := readIDVec(r)
		if err != nil {
			return IDSet{}, err
		}
		return NewWhite(blacklist), nil
	case BaseBlack:
		whitelist, err := readIDVec(r)
		if err != nil {
			return IDSet{}, err
		}
		return NewBlack(whitelist), nil
	default:
		return IDSet{}, boarderrors.ErrInvalidDiscriminant
	}
}

// Encode appends the wire form of s to buf.
func Encode(buf []byte, s IDSet) ([]byte, error) {
	buf = append(buf, byte(s.base))
	var err error
	switch s.base {
	case BaseInherit:
		if buf, err = writeIDVec(buf, s.whitelist); err != nil {
			return nil, err
		}
		if buf, err = writeIDVec(buf, s.blacklist); err != nil {
			return nil, err
		}
	case BaseWhite:
		if buf, err = writeIDVec(buf, s.blacklist); err != nil {
			return nil, err
		}
	case BaseBlack:
		if buf, err = writeIDVec(buf, s.whitelist); err != nil {
			return nil, err
		}
	default:
		return nil, boarderrors.ErrInvalidDiscriminant
	}
	return buf, nil
}

func readIDVec(r byteReader) ([]uint64, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", boarderrors.ErrInsufficientBytes, err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, nil
	}

	// Cap the initial capacity hint rather than trusting n directly: a
	// forged length prefix would otherwise force a huge allocation before a
	// single id is confirmed to exist in the input. Genuine vectors longer
	// than this just grow the slice normally via append.
	const maxPreallocIDs = 4096
	prealloc := uint64(n)
	if prealloc > maxPreallocIDs {
		prealloc = maxPreallocIDs
	}
	ids := make([]uint64, 0, prealloc)
	var idBuf [8]byte
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(r, idBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", boarderrors.ErrInsufficientBytes, err)
		}
		ids = append(ids, binary.LittleEndian.Uint64(idBuf[:]))
	}
	return ids, nil
}

func writeIDVec(buf []byte, ids []uint64) ([]byte, error) {
	if uint64(len(ids)) > uint64(^uint32(0)) {
		return nil, boarderrors.ErrOOBUsizeConversion
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(ids)))
	buf = append(buf, lenBuf[:]...)
	for _, id := range ids {
		var idBuf [8]byte
		binary.LittleEndian.PutUint64(idBuf[:], id)
		buf = append(buf, idBuf[:]...)
	}
	return buf, nil
}
