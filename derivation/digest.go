package derivation

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// DeriveDigest hashes data under code's algorithm and returns the qualified
// SelfAddressingPrefix. This is the "self-addressing" derivation: the
// identifier IS the digest of the thing it names.
func DeriveDigest(code Code, data []byte) (SelfAddressingPrefix, error) {
	raw, err := digest(code, data)
	if err != nil {
		return SelfAddressingPrefix{}, err
	}
	return NewSelfAddressingPrefix(code, raw)
}

func digest(code Code, data []byte) ([]byte, error) {
	switch code {
	case Blake3_256:
		sum := blake3.Sum256(data)
		return sum[:], nil
	case Blake3_512:
		sum := blake3.Sum512(data)
		return sum[:], nil
	case Blake2b256:
		sum := blake2b.Sum256(data)
		return sum[:], nil
	case Blake2b512:
		sum := blake2b.Sum512(data)
		return sum[:], nil
	case Blake2s256:
		sum := blake2s.Sum256(data)
		return sum[:], nil
	case SHA3_256:
		sum := sha3.Sum256(data)
		return sum[:], nil
	case SHA3_512:
		sum := sha3.Sum512(data)
		return sum[:], nil
	case SHA2_256:
		sum := sha256.Sum256(data)
		return sum[:], nil
	case SHA2_512:
		sum := sha512.Sum512(data)
		return sum[:], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, code)
	}
}

// VerifyDigest recomputes code's digest over data and reports whether it
// matches want's raw material.
func VerifyDigest(want SelfAddressingPrefix, data []byte) (bool, error) {
	got, err := digest(want.Code(), data)
	if err != nil {
		return false, err
	}
	return constantTimeEqual(got, want.Raw()), nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
