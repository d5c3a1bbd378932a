package serialization

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	V Version `json:"v"`
	T string  `json:"t"`
	I string  `json:"i"`
}

func (s *sample) SetVersion(v Version) { s.V = v }
func (s *sample) GetVersion() Version  { return s.V }

func TestSerializeParseRoundTripJSON(t *testing.T) {
	s := &sample{T: "icp", I: "Dabc"}
	encoded, err := Serialize(JSON, s)
	require.NoError(t, err)

	var out sample
	ver, err := Parse(encoded, &out)
	require.NoError(t, err)
	require.Equal(t, JSON, ver.Kind)
	require.Equal(t, len(encoded), ver.Size)
	require.Equal(t, s.T, out.T)
	require.Equal(t, s.I, out.I)
}

func TestSerializeParseRoundTripCBOR(t *testing.T) {
	s := &sample{T: "rot", I: "Dxyz"}
	encoded, err := Serialize(CBOR, s)
	require.NoError(t, err)

	var out sample
	ver, err := Parse(encoded, &out)
	require.NoError(t, err)
	require.Equal(t, CBOR, ver.Kind)
	require.Equal(t, s.T, out.T)
}

func TestSizeHintMatchesSerialize(t *testing.T) {
	s := &sample{T: "ixn", I: "Dqqq"}
	encoded, err := Serialize(JSON, s)
	require.NoError(t, err)

	hint, err := SizeHint(JSON, &sample{T: "ixn", I: "Dqqq"})
	require.NoError(t, err)
	require.Equal(t, len(encoded), hint)
}

func TestParseRejectsSizeMismatch(t *testing.T) {
	s := &sample{T: "icp", I: "Dabc"}
	encoded, err := Serialize(JSON, s)
	require.NoError(t, err)

	tampered := append(encoded, []byte("trailing junk")...)
	var out sample
	_, err = Parse(tampered, &out)
	require.ErrorIs(t, err, ErrSizeMismatch)
}

func TestVersionStringFormat(t *testing.T) {
	v := Version{Major: 1, Minor: 0, Kind: JSON, Size: 171}
	require.Equal(t, "KERI10JSON0000ab_", v.String())

	parsed, err := ParseVersion(v.String())
	require.NoError(t, err)
	require.Equal(t, v, parsed)
}
