package derivation

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicPrefixRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0x01}, 32)
	p, err := NewBasicPrefix(Ed25519, raw)
	require.NoError(t, err)

	text := p.String()
	code, decoded, err := ParsePrefix(text)
	require.NoError(t, err)
	require.Equal(t, Ed25519, code)
	require.True(t, bytes.Equal(raw, decoded))
}

func TestBasicPrefixWrongLength(t *testing.T) {
	_, err := NewBasicPrefix(Ed25519, make([]byte, 31))
	require.ErrorIs(t, err, ErrRawLength)
}

func TestSelfAddressingDigestRoundTrip(t *testing.T) {
	data := []byte("hello KERI")
	p, err := DeriveDigest(Blake3_256, data)
	require.NoError(t, err)

	ok, err := VerifyDigest(p, data)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyDigest(p, []byte("tampered"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEd25519SignVerifyRoundTrip(t *testing.T) {
	seed := bytes.Repeat([]byte{0x07}, 32)
	pub, err := DerivePublicKey(Ed25519, seed)
	require.NoError(t, err)

	data := []byte("event digest bytes")
	sig, err := Sign(Ed25519Sha512, seed, data)
	require.NoError(t, err)

	ok, err := Verify(pub, data, sig)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Verify(pub, []byte("different data"), sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAttachedSignatureSmallIndexRoundTrip(t *testing.T) {
	sig := bytes.Repeat([]byte{0xAB}, 64)
	a, err := NewAttachedSignature(Ed25519Sha512, 3, sig)
	require.NoError(t, err)
	require.Equal(t, AttachedEd25519Sha512Small, a.Code())

	text := a.String()
	parsed, n, err := ParseAttachedSignature(text)
	require.NoError(t, err)
	require.Equal(t, len(text), n)
	require.Equal(t, 3, parsed.Index())
	require.True(t, bytes.Equal(sig, parsed.Signature()))
}

func TestAttachedSignatureBigIndexRoundTrip(t *testing.T) {
	sig := bytes.Repeat([]byte{0xCD}, 64)
	a, err := NewAttachedSignature(Ed25519Sha512, 200, sig)
	require.NoError(t, err)
	require.Equal(t, AttachedEd25519Sha512Big, a.Code())

	text := a.String()
	parsed, n, err := ParseAttachedSignature(text)
	require.NoError(t, err)
	require.Equal(t, len(text), n)
	require.Equal(t, 200, parsed.Index())
}

func TestMultipleAttachedSignaturesParseSequentially(t *testing.T) {
	sig1 := bytes.Repeat([]byte{0x01}, 64)
	sig2 := bytes.Repeat([]byte{0x02}, 64)
	a1, err := NewAttachedSignature(Ed25519Sha512, 0, sig1)
	require.NoError(t, err)
	a2, err := NewAttachedSignature(Ed25519Sha512, 1, sig2)
	require.NoError(t, err)

	blob := a1.String() + a2.String()
	p1, n1, err := ParseAttachedSignature(blob)
	require.NoError(t, err)
	p2, _, err := ParseAttachedSignature(blob[n1:])
	require.NoError(t, err)

	require.Equal(t, 0, p1.Index())
	require.Equal(t, 1, p2.Index())
}
