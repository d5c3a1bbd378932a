package serialization

import "fmt"

// Versioned is implemented by every event body this package can frame: a
// struct with a version-string field it can report and overwrite.
type Versioned interface {
	// SetVersion installs v as the value to be marshaled into the event's
	// version-string field.
	SetVersion(v Version)
	// GetVersion returns the version currently installed.
	GetVersion() Version
}

// DefaultMajor and DefaultMinor are the protocol version this package emits.
const (
	DefaultMajor = 1
	DefaultMinor = 0
)

// Serialize frames v under kind, self-describing the exact byte length.
// It works in two passes: first with a zero-sized version string (which
// has the same fixed width as the final one), measuring the resulting
// length, then re-marshaling with that length patched in. Because the
// version string's width never changes, the second pass's length always
// equals the first.
func Serialize(kind Kind, v Versioned) ([]byte, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	v.SetVersion(Version{Major: DefaultMajor, Minor: DefaultMinor, Kind: kind, Size: 0})
	draft, err := marshal(kind, v)
	if err != nil {
		return nil, err
	}
	size := len(draft)
	v.SetVersion(Version{Major: DefaultMajor, Minor: DefaultMinor, Kind: kind, Size: size})
	final, err := marshal(kind, v)
	if err != nil {
		return nil, err
	}
	if len(final) != size {
		return nil, fmt.Errorf("%w: draft length %d, final length %d", ErrSizeMismatch, size, len(final))
	}
	return final, nil
}

// SizeHint reports the byte length Serialize(kind, v) would produce,
// without keeping the final encoding around.
func SizeHint(kind Kind, v Versioned) (int, error) {
	encoded, err := Serialize(kind, v)
	if err != nil {
		return 0, err
	}
	return len(encoded), nil
}

// Parse locates data's version string, decodes data into v under the
// family it names, and checks the declared size against data's actual
// length.
func Parse(data []byte, v Versioned) (Version, error) {
	ver, _, err := FindVersionString(data)
	if err != nil {
		return Version{}, err
	}
	if ver.Size != len(data) {
		return Version{}, fmt.Errorf("%w: declared %d, got %d", ErrSizeMismatch, ver.Size, len(data))
	}
	if err := unmarshal(ver.Kind, data, v); err != nil {
		return Version{}, err
	}
	v.SetVersion(ver)
	return ver, nil
}
