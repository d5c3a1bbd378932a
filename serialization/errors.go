package serialization

import "errors"

var (
	// ErrBadVersionString is returned when a version string is malformed,
	// the wrong length, or names an unknown serialization kind.
	ErrBadVersionString = errors.New("serialization: bad version string")

	// ErrSizeMismatch is returned when an event's declared size does not
	// match the actual byte length of its serialization.
	ErrSizeMismatch = errors.New("serialization: declared size does not match encoded length")

	// ErrUnknownKind is returned when asked to encode or decode with a
	// Kind this package does not implement.
	ErrUnknownKind = errors.New("serialization: unknown kind")

	// ErrCrossFamilyDigest is returned when asked to compare digests taken
	// over two different serialization families; KERI digests bind to one
	// canonical encoding (JSON) and are not meaningfully comparable across
	// families.
	ErrCrossFamilyDigest = errors.New("serialization: cannot compare digests across serialization families")
)
