// Package signer provides the signing oracle KERI event construction
// depends on: something that can produce a signature over a message
// under its current key, report both its current and next (pre-rotated)
// public keys, and rotate from one to the other. It never exposes
// private key material directly.
package signer

import (
	"crypto/rand"
	"fmt"

	"github.com/trustedlog/keri-core/derivation"
)

// Signer is the minimal surface an identifier controller needs: sign
// under the current key, report the current and next public keys, and
// advance to the next key pair on rotation. Grounded on
// original_source's signer::KeyManager trait.
type Signer interface {
	Sign(msg []byte) (derivation.SelfSigningPrefix, error)
	PublicKey() derivation.BasicPrefix
	NextPublicKey() derivation.BasicPrefix
	Rotate() error
}

// LocalSigner is an in-memory reference Signer: all key material lives
// in process memory, unencrypted. It exists for tests and local
// development, not for production custody of real keys.
type LocalSigner struct {
	code derivation.Code

	curSeed, curPub   []byte
	nextSeed, nextPub []byte

	pendingSeeds [][]byte // pre-rotation seeds queued for future rotations
}

// NewLocalSigner builds a LocalSigner under code, deriving its current
// and next key pairs from the given seeds in order. Any seed beyond the
// first two is queued for use at later rotations; once exhausted,
// Rotate generates fresh random seed material instead.
func NewLocalSigner(code derivation.Code, seeds ...[]byte) (*LocalSigner, error) {
	n, ok := derivation.RawLen(code)
	if !ok {
		return nil, fmt.Errorf("%w: %q", derivation.ErrUnknownCode, code)
	}
	ls := &LocalSigner{code: code}

	curSeed, rest, err := takeOrRandom(seeds, n)
	if err != nil {
		return nil, err
	}
	nextSeed, rest, err := takeOrRandom(rest, n)
	if err != nil {
		return nil, err
	}
	ls.pendingSeeds = rest

	pub, err := derivation.DerivePublicKey(code, curSeed)
	if err != nil {
		return nil, err
	}
	nextPubPrefix, err := derivation.DerivePublicKey(code, nextSeed)
	if err != nil {
		return nil, err
	}

	ls.curSeed, ls.curPub = curSeed, pub.Raw()
	ls.nextSeed, ls.nextPub = nextSeed, nextPubPrefix.Raw()
	return ls, nil
}

// takeOrRandom returns the first seed in seeds if present (paired with
// the remainder), or n freshly generated random bytes otherwise.
func takeOrRandom(seeds [][]byte, n int) ([]byte, [][]byte, error) {
	if len(seeds) > 0 {
		if len(seeds[0]) != n {
			return nil, nil, fmt.Errorf("%w: seed wants %d bytes, got %d", derivation.ErrRawLength, n, len(seeds[0]))
		}
		return seeds[0], seeds[1:], nil
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, nil, err
	}
	return buf, nil, nil
}

// Sign signs msg under the current key.
func (ls *LocalSigner) Sign(msg []byte) (derivation.SelfSigningPrefix, error) {
	sigCode, err := signingCodeFor(ls.code)
	if err != nil {
		return derivation.SelfSigningPrefix{}, err
	}
	raw, err := derivation.Sign(sigCode, ls.curSeed, msg)
	if err != nil {
		return derivation.SelfSigningPrefix{}, err
	}
	return derivation.NewSelfSigningPrefix(sigCode, raw)
}

// PublicKey returns the current public key.
func (ls *LocalSigner) PublicKey() derivation.BasicPrefix {
	p, _ := derivation.NewBasicPrefix(ls.code, ls.curPub)
	return p
}

// NextPublicKey returns the pre-rotated next public key.
func (ls *LocalSigner) NextPublicKey() derivation.BasicPrefix {
	p, _ := derivation.NewBasicPrefix(ls.code, ls.nextPub)
	return p
}

// Rotate advances the current key to the previously-committed next key,
// then derives a fresh next key from the queued seed list (or random
// material once that list is exhausted).
func (ls *LocalSigner) Rotate() error {
	n, _ := derivation.RawLen(ls.code)
	newNextSeed, rest, err := takeOrRandom(ls.pendingSeeds, n)
	if err != nil {
		return err
	}
	newNextPub, err := derivation.DerivePublicKey(ls.code, newNextSeed)
	if err != nil {
		return err
	}

	ls.curSeed, ls.curPub = ls.nextSeed, ls.nextPub
	ls.nextSeed, ls.nextPub = newNextSeed, newNextPub.Raw()
	ls.pendingSeeds = rest
	return nil
}

// signingCodeFor maps a basic (public key) code to the self-signing code
// its signatures are qualified under.
func signingCodeFor(basic derivation.Code) (derivation.Code, error) {
	switch basic {
	case derivation.Ed25519NT, derivation.Ed25519:
		return derivation.Ed25519Sha512, nil
	case derivation.ECDSAsecp256k1NT, derivation.ECDSAsecp256k1:
		return derivation.ECDSAsecp256k1Sha256, nil
	case derivation.Ed448NT, derivation.Ed448:
		return derivation.Ed448Sig, nil
	default:
		return "", fmt.Errorf("%w: no signing code for basic code %q", derivation.ErrUnsupportedBackend, basic)
	}
}
