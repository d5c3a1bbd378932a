// Package derivation implements KERI's tagged, self-describing derivation
// codes: the text prefixes that bind a piece of cryptographic material
// (a public key, a digest, a signature) to the algorithm that produced it.
package derivation

import "errors"

var (
	// ErrBadPrefix is returned when a qualified prefix's leading code tag is
	// unknown, its raw length doesn't match the code, or its base64 body is
	// malformed.
	ErrBadPrefix = errors.New("derivation: bad prefix")

	// ErrRawLength is returned when raw material handed to an encoder doesn't
	// match the fixed length the code declares.
	ErrRawLength = errors.New("derivation: wrong raw material length for code")

	// ErrUnknownCode is returned when a code tag has no entry in the code table.
	ErrUnknownCode = errors.New("derivation: unknown code")

	// ErrUnsupportedBackend is returned when a code is recognised but this
	// build has no crypto backend wired for it.
	ErrUnsupportedBackend = errors.New("derivation: unsupported crypto backend for code")
)
