package kerimem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustedlog/keri-core/derivation"
	"github.com/trustedlog/keri-core/keri"
	"github.com/trustedlog/keri-core/kerimem"
)

func mustBasic(t *testing.T, raw string) derivation.BasicPrefix {
	t.Helper()
	p, err := derivation.ParseBasicPrefix(raw)
	require.NoError(t, err)
	return p
}

func testPrefix(t *testing.T) keri.IdentifierPrefix {
	t.Helper()
	bp := mustBasic(t, "BrHLayDN-mXKv62DAjFLX1_Y5yEUe0vA9YPe_ihiKYHE")
	return keri.NewIdentifierPrefixFromBasic(bp)
}

func TestAppendKELOrdersBySN(t *testing.T) {
	ctx := context.Background()
	s := kerimem.New()
	prefix := testPrefix(t)

	icp := &keri.Inception{}
	rot := &keri.Rotation{SN: 1}
	_ = icp

	require.NoError(t, s.AppendKEL(ctx, prefix, keri.SignedEvent{Event: rot}))
	require.NoError(t, s.AppendKEL(ctx, prefix, keri.SignedEvent{Event: &keri.Inception{}}))

	events, err := s.IterKEL(ctx, prefix)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, uint64(0), events[0].Event.EventSN())
	require.Equal(t, uint64(1), events[1].Event.EventSN())
}

func TestEscrowAndDrainRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := kerimem.New()
	prefix := testPrefix(t)

	se := keri.SignedEvent{Event: &keri.Inception{}}
	require.NoError(t, s.Escrow(ctx, keri.EscrowOutOfOrder, prefix, se))

	drained, err := s.DrainEscrow(ctx, keri.EscrowOutOfOrder, prefix)
	require.NoError(t, err)
	require.Len(t, drained, 1)

	again, err := s.DrainEscrow(ctx, keri.EscrowOutOfOrder, prefix)
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestAppendKELRejectsDuplicateSN(t *testing.T) {
	ctx := context.Background()
	s := kerimem.New()
	prefix := testPrefix(t)

	icp := keri.SignedEvent{Event: &keri.Inception{}}
	require.NoError(t, s.AppendKEL(ctx, prefix, icp))

	conflicting := keri.SignedEvent{Event: &keri.Inception{}, Raw: []byte("different bytes")}
	err := s.AppendKEL(ctx, prefix, conflicting)
	require.ErrorIs(t, err, keri.ErrEventDuplicate)

	events, err := s.IterKEL(ctx, prefix)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestAppendKELRotationSupersedesInteractionAtSameSN(t *testing.T) {
	ctx := context.Background()
	s := kerimem.New()
	prefix := testPrefix(t)

	ixn := keri.SignedEvent{Event: &keri.Interaction{SN: 1}}
	require.NoError(t, s.AppendKEL(ctx, prefix, ixn))

	rot := keri.SignedEvent{Event: &keri.Rotation{SN: 1}}
	require.NoError(t, s.AppendKEL(ctx, prefix, rot))

	events, err := s.IterKEL(ctx, prefix)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, keri.ROT, events[0].Event.EventType())

	// Rolling the rotation back (signature verification failure after a
	// tentative append) must restore the superseded interaction.
	require.NoError(t, s.RemoveKEL(ctx, prefix, rot))
	events, err = s.IterKEL(ctx, prefix)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, keri.IXN, events[0].Event.EventType())
}

func TestAppendKELRejectsInteractionAfterRotationAtSameSN(t *testing.T) {
	ctx := context.Background()
	s := kerimem.New()
	prefix := testPrefix(t)

	rot := keri.SignedEvent{Event: &keri.Rotation{SN: 1}}
	require.NoError(t, s.AppendKEL(ctx, prefix, rot))

	ixn := keri.SignedEvent{Event: &keri.Interaction{SN: 1}}
	err := s.AppendKEL(ctx, prefix, ixn)
	require.ErrorIs(t, err, keri.ErrEventDuplicate)
}

func TestRemoveKELRemovesTentativeAppend(t *testing.T) {
	ctx := context.Background()
	s := kerimem.New()
	prefix := testPrefix(t)

	se := keri.SignedEvent{Event: &keri.Inception{}}
	require.NoError(t, s.AppendKEL(ctx, prefix, se))
	require.NoError(t, s.RemoveKEL(ctx, prefix, se))

	events, err := s.IterKEL(ctx, prefix)
	require.NoError(t, err)
	require.Empty(t, events)
}
