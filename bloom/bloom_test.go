package bloom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func elem(b byte) []byte {
	x := make([]byte, ValueBytes)
	x[0] = b
	x[1] = b ^ 0x5A
	return x
}

func TestInsertAndQuery(t *testing.T) {
	leafCount := uint64(128)
	bitsPerElement := uint64(10)
	k := uint8(7)

	mBits := MBitsSafeCast(MBits(leafCount, bitsPerElement))
	require.NotZero(t, mBits)
	region := make([]byte, RegionBytes(mBits))
	require.NoError(t, Init(region, leafCount, bitsPerElement, k))

	h, ok, err := DecodeHeader(region)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, k, h.K)
	require.NotZero(t, h.MBits)

	// An empty filter is definitely-not-present for any element.
	present, err := MaybeContains(region, elem(1))
	require.NoError(t, err)
	require.False(t, present)

	require.NoError(t, Insert(region, elem(1)))
	present, err = MaybeContains(region, elem(1))
	require.NoError(t, err)
	require.True(t, present)

	for i := byte(2); i < 12; i++ {
		require.NoError(t, Insert(region, elem(i)))
	}
	for i := byte(2); i < 12; i++ {
		present, err := MaybeContains(region, elem(i))
		require.NoError(t, err)
		require.True(t, present)
	}
}

func TestRejectsBadInputs(t *testing.T) {
	leafCount := uint64(8)
	bitsPerElement := uint64(8)
	k := uint8(5)

	mBits := MBitsSafeCast(MBits(leafCount, bitsPerElement))
	require.NotZero(t, mBits)
	region := make([]byte, RegionBytes(mBits))
	require.NoError(t, Init(region, leafCount, bitsPerElement, k))

	err := Insert(region, make([]byte, ValueBytes-1))
	require.ErrorIs(t, err, ErrBadElemSize)

	_, err = MaybeContains(region, make([]byte, ValueBytes+1))
	require.ErrorIs(t, err, ErrBadElemSize)
}

func TestRejectsUninitializedRegion(t *testing.T) {
	leafCount := uint64(8)
	bitsPerElement := uint64(8)

	mBits := MBitsSafeCast(MBits(leafCount, bitsPerElement))
	require.NotZero(t, mBits)
	region := make([]byte, RegionBytes(mBits)) // remains all-zero

	_, err := MaybeContains(region, make([]byte, ValueBytes))
	require.ErrorIs(t, err, ErrNotInitialized)

	err = Insert(region, make([]byte, ValueBytes))
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestMBitsSafeCast(t *testing.T) {
	require.Equal(t, uint32(0), MBitsSafeCast(0))
	require.Equal(t, uint32(0), MBitsSafeCast(uint64(^uint32(0))+1))
	require.Equal(t, uint32(^uint32(0)), MBitsSafeCast(uint64(^uint32(0))))
}

func TestRegionBytes(t *testing.T) {
	mBits := MBitsSafeCast(MBits(8, 8)) // mBits=64, bitsetBytes=8
	require.Equal(t, uint32(64), mBits)
	require.Equal(t, uint64(HeaderBytes+8), RegionBytes(mBits))
}
