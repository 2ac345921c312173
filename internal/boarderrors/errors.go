// Package boarderrors defines the unified error taxonomy shared by the
// codec, store, resolver, handler, and pipeline.
//
// Each failure mode is a distinct sentinel error so callers can use
// errors.Is instead of string comparison.
package boarderrors

import "errors"

// Sentinel errors, one per distinct failure mode.
var (
	ErrIncorrectMagicNum  = errors.New("incorrect magic number")
	ErrInsufficientBytes  = errors.New("insufficient bytes")
	ErrInvalidDiscriminant = errors.New("invalid discriminant")
	ErrStringError        = errors.New("invalid utf-8 string")
	ErrUnsupportedVersion = errors.New("unsupported format version")

	ErrDoesNotExist     = errors.New("does not exist")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInsufficientPerms = errors.New("insufficient permissions")

	ErrMalformedRoot = errors.New("malformed root entry")
	ErrNonChild      = errors.New("not a child of the current path")

	ErrOOBUsizeConversion = errors.New("length exceeds wire format prefix width")
	ErrInternal           = errors.New("internal error")
)

// Kind classifies an error into the wire-level taxonomy. It lets callers
// switch on category without chained errors.Is calls.
type Kind int

const (
	KindUnknown Kind = iota
	KindIncorrectMagicNum
	KindInsufficientBytes
	KindInvalidDiscriminant
	KindStringError
	KindUnsupportedVersion
	KindDoesNotExist
	KindAlreadyExists
	KindInsufficientPerms
	KindMalformedRoot
	KindNonChild
	KindOOBUsizeConversion
	KindInternal
)

var kindBySentinel = map[error]Kind{
	ErrIncorrectMagicNum:   KindIncorrectMagicNum,
	ErrInsufficientBytes:   KindInsufficientBytes,
	ErrInvalidDiscriminant: KindInvalidDiscriminant,
	ErrStringError:         KindStringError,
	ErrUnsupportedVersion:  KindUnsupportedVersion,
	ErrDoesNotExist:        KindDoesNotExist,
	ErrAlreadyExists:       KindAlreadyExists,
	ErrInsufficientPerms:   KindInsufficientPerms,
	ErrMalformedRoot:       KindMalformedRoot,
	ErrNonChild:            KindNonChild,
	ErrOOBUsizeConversion:  KindOOBUsizeConversion,
	ErrInternal:            KindInternal,
}

// ClassifyKind returns the Kind of a sentinel from this package found in
// err's chain, KindUnknown for a nil err, and KindInternal for everything
// else, matching the wire format's collapse of all handler errors into one
// generic error response. The sentinels are looked up by ranging over a
// map, so when a chain holds more than one of them, which Kind is returned
// is not defined.
func ClassifyKind(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for sentinel, kind := range kindBySentinel {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}
