package signer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustedlog/keri-core/derivation"
	"github.com/trustedlog/keri-core/signer"
)

func TestLocalSignerSignVerifyRoundTrip(t *testing.T) {
	s, err := signer.NewLocalSigner(derivation.Ed25519)
	require.NoError(t, err)

	msg := []byte("hello keri")
	sig, err := s.Sign(msg)
	require.NoError(t, err)

	ok, err := derivation.Verify(s.PublicKey(), msg, sig.Raw())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLocalSignerRotateAdvancesKeys(t *testing.T) {
	s, err := signer.NewLocalSigner(derivation.Ed25519)
	require.NoError(t, err)

	oldNext := s.NextPublicKey()
	require.NoError(t, s.Rotate())
	require.Equal(t, oldNext.String(), s.PublicKey().String())
	require.NotEqual(t, oldNext.String(), s.NextPublicKey().String())
}

func TestLocalSignerDeterministicFromSeeds(t *testing.T) {
	seed0 := make([]byte, 32)
	seed1 := make([]byte, 32)
	for i := range seed0 {
		seed0[i] = byte(i)
		seed1[i] = byte(i + 1)
	}

	s1, err := signer.NewLocalSigner(derivation.Ed25519, seed0, seed1)
	require.NoError(t, err)
	s2, err := signer.NewLocalSigner(derivation.Ed25519, seed0, seed1)
	require.NoError(t, err)

	require.Equal(t, s1.PublicKey().String(), s2.PublicKey().String())
	require.Equal(t, s1.NextPublicKey().String(), s2.NextPublicKey().String())
}

func TestLocalSignerWrongSeedLengthErrors(t *testing.T) {
	_, err := signer.NewLocalSigner(derivation.Ed25519, []byte("too short"))
	require.Error(t, err)
}
