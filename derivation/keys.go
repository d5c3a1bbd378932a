package derivation

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Sign produces raw signature bytes over data using seed-derived private
// key material under code's algorithm. It is a reference implementation
// for tests and the in-memory signer; production signers may keep key
// material behind an HSM or enclave boundary instead of calling this
// directly.
func Sign(code Code, seed, data []byte) ([]byte, error) {
	switch code {
	case Ed25519Sha512:
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("%w: ed25519 seed must be %d bytes", ErrRawLength, ed25519.SeedSize)
		}
		priv := ed25519.NewKeyFromSeed(seed)
		return ed25519.Sign(priv, data), nil
	case ECDSAsecp256k1Sha256:
		priv := secp256k1.PrivKeyFromBytes(seed)
		h := sha256.Sum256(data)
		sig := ecdsa.Sign(priv, h[:])
		return sig.Serialize(), nil
	case Ed448Sig:
		if len(seed) != ed448.SeedSize {
			return nil, fmt.Errorf("%w: ed448 seed must be %d bytes", ErrRawLength, ed448.SeedSize)
		}
		_, priv := ed448.NewKeyFromSeed(seed)
		return ed448.Sign(priv, data, ""), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, code)
	}
}

// Verify checks sig over data against the public key qualified by pub.
func Verify(pub BasicPrefix, data, sig []byte) (bool, error) {
	switch pub.Code() {
	case Ed25519NT, Ed25519:
		if len(pub.Raw()) != ed25519.PublicKeySize {
			return false, fmt.Errorf("%w: ed25519 public key must be %d bytes", ErrRawLength, ed25519.PublicKeySize)
		}
		return ed25519.Verify(ed25519.PublicKey(pub.Raw()), data, sig), nil
	case ECDSAsecp256k1NT, ECDSAsecp256k1:
		pk, err := secp256k1.ParsePubKey(pub.Raw())
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrBadPrefix, err)
		}
		parsed, err := ecdsa.ParseDERSignature(sig)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrBadPrefix, err)
		}
		h := sha256.Sum256(data)
		return parsed.Verify(h[:], pk), nil
	case Ed448NT, Ed448:
		if len(pub.Raw()) != ed448.PublicKeySize {
			return false, fmt.Errorf("%w: ed448 public key must be %d bytes", ErrRawLength, ed448.PublicKeySize)
		}
		return ed448.Verify(ed448.PublicKey(pub.Raw()), data, sig, ""), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedBackend, pub.Code())
	}
}

// DerivePublicKey computes the public key qualified by code from seed
// material, for the non-transferable/transferable pair sharing an
// algorithm (the NT/transferable distinction is carried in the event that
// uses the key, not in the key material itself).
func DerivePublicKey(code Code, seed []byte) (BasicPrefix, error) {
	switch code {
	case Ed25519NT, Ed25519:
		if len(seed) != ed25519.SeedSize {
			return BasicPrefix{}, fmt.Errorf("%w: ed25519 seed must be %d bytes", ErrRawLength, ed25519.SeedSize)
		}
		priv := ed25519.NewKeyFromSeed(seed)
		pub := priv.Public().(ed25519.PublicKey)
		return NewBasicPrefix(code, pub)
	case ECDSAsecp256k1NT, ECDSAsecp256k1:
		priv := secp256k1.PrivKeyFromBytes(seed)
		return NewBasicPrefix(code, priv.PubKey().SerializeCompressed())
	case Ed448NT, Ed448:
		if len(seed) != ed448.SeedSize {
			return BasicPrefix{}, fmt.Errorf("%w: ed448 seed must be %d bytes", ErrRawLength, ed448.SeedSize)
		}
		pub, _ := ed448.NewKeyFromSeed(seed)
		return NewBasicPrefix(code, pub)
	default:
		return BasicPrefix{}, fmt.Errorf("%w: %q", ErrUnsupportedBackend, code)
	}
}
