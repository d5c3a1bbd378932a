package keri_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustedlog/keri-core/derivation"
	"github.com/trustedlog/keri-core/keri"
	"github.com/trustedlog/keri-core/kerimem"
	"github.com/trustedlog/keri-core/serialization"
	"github.com/trustedlog/keri-core/signer"
)

// TestS7WitnessReceipt covers spec scenario S7.
func TestS7WitnessReceipt(t *testing.T) {
	ctx := context.Background()
	s := newSigner(t)
	witness := newSigner(t)
	proc := keri.NewProcessor(kerimem.New(), keri.DefaultOptions())

	kc := soleKeyConfig(t, s, keri.NewSimpleThreshold(1))
	wc := keri.WitnessConfig{Tally: 1, Witnesses: []derivation.BasicPrefix{witness.PublicKey()}}
	prefix := keri.NewIdentifierPrefixFromBasic(s.PublicKey())
	icp, err := keri.NewInception(prefix, kc, wc, nil, nil)
	require.NoError(t, err)
	se := signEvent(t, s, &icp, &icp, 0)
	_, err = proc.ProcessEvent(ctx, se)
	require.NoError(t, err)

	eventDigest, err := derivation.DeriveDigest(digestCode, se.Raw)
	require.NoError(t, err)

	rct := keri.NonTransferableReceipt{Type: keri.RCT, ReceiptedPrefix: prefix, ReceiptedSN: keri.SN(0), ReceiptedDigest: eventDigest}
	wrongSig, err := witness.Sign([]byte("not the receipted event"))
	require.NoError(t, err)
	err = proc.ProcessWitnessReceipt(ctx, rct, keri.WitnessCouplet{Witness: witness.PublicKey(), Signature: wrongSig})
	require.Error(t, err)

	goodSig, err := witness.Sign(se.Raw)
	require.NoError(t, err)
	err = proc.ProcessWitnessReceipt(ctx, rct, keri.WitnessCouplet{Witness: witness.PublicKey(), Signature: goodSig})
	require.NoError(t, err)
}

// TestS8TransferableReceiptPrecedesEvent covers spec scenario S8.
func TestS8TransferableReceiptPrecedesEvent(t *testing.T) {
	ctx := context.Background()
	s := newSigner(t)
	validator := newSigner(t)
	proc := keri.NewProcessor(kerimem.New(), keri.DefaultOptions())

	kc := soleKeyConfig(t, s, keri.NewSimpleThreshold(1))
	prefix := keri.NewIdentifierPrefixFromBasic(s.PublicKey())
	icp, err := keri.NewInception(prefix, kc, keri.WitnessConfig{}, nil, nil)
	require.NoError(t, err)
	se := signEvent(t, s, &icp, &icp, 0)

	validatorKC := soleKeyConfig(t, validator, keri.NewSimpleThreshold(1))
	validatorPrefix := keri.NewIdentifierPrefixFromBasic(validator.PublicKey())
	validatorICP, err := keri.NewInception(validatorPrefix, validatorKC, keri.WitnessConfig{}, nil, nil)
	require.NoError(t, err)
	validatorSE := signEvent(t, validator, &validatorICP, &validatorICP, 0)
	_, err = proc.ProcessEvent(ctx, validatorSE)
	require.NoError(t, err)
	validatorSeal, err := proc.GetLastEstablishmentEventSeal(ctx, validatorPrefix)
	require.NoError(t, err)

	eventDigest, err := derivation.DeriveDigest(digestCode, se.Raw)
	require.NoError(t, err)
	rct := keri.TransferableReceipt{
		Type:            keri.RCT,
		ReceiptedPrefix: prefix,
		ReceiptedSN:     keri.SN(0),
		ReceiptedDigest: eventDigest,
		ValidatorSeal:   validatorSeal,
	}
	rctRaw, err := serialization.Serialize(serialization.JSON, &rct)
	require.NoError(t, err)
	rctSig, err := validator.Sign(rctRaw)
	require.NoError(t, err)
	asig, err := derivation.NewAttachedSignature(rctSig.Code(), 0, rctSig.Raw())
	require.NoError(t, err)

	err = proc.ProcessValidatorReceipt(ctx, rct, []derivation.AttachedSignature{asig})
	require.ErrorIs(t, err, keri.ErrEventOutOfOrder)

	_, err = proc.ProcessEvent(ctx, se)
	require.NoError(t, err)

	err = proc.ProcessValidatorReceipt(ctx, rct, []derivation.AttachedSignature{asig})
	require.NoError(t, err)

	has, err := proc.HasReceipt(ctx, prefix, 0, validatorPrefix)
	require.NoError(t, err)
	require.True(t, has)
}

// TestS10Delegation covers spec scenario S10.
func TestS10Delegation(t *testing.T) {
	ctx := context.Background()
	delegator := newSigner(t)
	delegate := newSigner(t)
	proc := keri.NewProcessor(kerimem.New(), keri.DefaultOptions())

	delegatorKC := soleKeyConfig(t, delegator, keri.NewSimpleThreshold(1))
	delegatorPrefix := keri.NewIdentifierPrefixFromBasic(delegator.PublicKey())
	delegatorICP, err := keri.NewInception(delegatorPrefix, delegatorKC, keri.WitnessConfig{}, nil, nil)
	require.NoError(t, err)
	delegatorICPState, err := proc.ProcessEvent(ctx, signEvent(t, delegator, &delegatorICP, &delegatorICP, 0))
	require.NoError(t, err)

	delegateKC := soleKeyConfig(t, delegate, keri.NewSimpleThreshold(1))
	delegatePrefix := selfAddressingPrefixFor(t, delegateKC, keri.WitnessConfig{})
	dip := &keri.DelegatedInception{
		Inception: keri.Inception{Type: keri.DIP, Prefix: delegatePrefix, SN: 0, KeyConfig: delegateKC},
		Delegator: delegatorPrefix,
	}
	dipRaw, err := serialization.Serialize(serialization.JSON, dip)
	require.NoError(t, err)
	dipDigest, err := derivation.DeriveDigest(digestCode, dipRaw)
	require.NoError(t, err)

	ixn := &keri.Interaction{
		Type:     keri.IXN,
		Prefix:   delegatorPrefix,
		SN:       keri.SN(1),
		Previous: delegatorICPState.LastEventDigest,
		Anchors:  keri.Seals{keri.EventSeal{Prefix: delegatePrefix, SN: 0, Digest: dipDigest}},
	}
	ixnSE := signEvent(t, delegator, ixn, ixn, 0)
	_, err = proc.ProcessEvent(ctx, ixnSE)
	require.NoError(t, err)
	ixnDigest, err := derivation.DeriveDigest(digestCode, ixnSE.Raw)
	require.NoError(t, err)

	dipSig, err := delegate.Sign(dipRaw)
	require.NoError(t, err)
	dipAsig, err := derivation.NewAttachedSignature(dipSig.Code(), 0, dipSig.Raw())
	require.NoError(t, err)

	wrongSource := &keri.SourceSeal{SN: 1, Digest: dipDigest}
	_, err = proc.ProcessEvent(ctx, keri.SignedEvent{Event: dip, Signatures: []derivation.AttachedSignature{dipAsig}, Raw: dipRaw, Source: wrongSource})
	require.Error(t, err)
	require.False(t, errors.Is(err, keri.ErrEventOutOfOrder))

	rightSource := &keri.SourceSeal{SN: 1, Digest: ixnDigest}
	state, err := proc.ProcessEvent(ctx, keri.SignedEvent{Event: dip, Signatures: []derivation.AttachedSignature{dipAsig}, Raw: dipRaw, Source: rightSource})
	require.NoError(t, err)
	require.NotNil(t, state.Delegator)
	require.True(t, state.Delegator.Equal(delegatorPrefix))

	delegatorState, err := proc.ComputeState(ctx, delegatorPrefix)
	require.NoError(t, err)
	require.Len(t, delegatorState.Delegates, 1)
	require.True(t, delegatorState.Delegates[0].Equal(delegatePrefix))
}

// TestRecoveryRotationSupersedesInteraction covers the §3/§9 KEL
// invariant that a recovery rotation may replace an interaction already
// recorded at the same sn.
func TestRecoveryRotationSupersedesInteraction(t *testing.T) {
	ctx := context.Background()
	s := newSigner(t)
	proc := keri.NewProcessor(kerimem.New(), keri.DefaultOptions())

	kc := soleKeyConfig(t, s, keri.NewSimpleThreshold(1))
	prefix := keri.NewIdentifierPrefixFromBasic(s.PublicKey())
	icp, err := keri.NewInception(prefix, kc, keri.WitnessConfig{}, nil, nil)
	require.NoError(t, err)
	icpState, err := proc.ProcessEvent(ctx, signEvent(t, s, &icp, &icp, 0))
	require.NoError(t, err)

	ixn := &keri.Interaction{Type: keri.IXN, Prefix: prefix, SN: keri.SN(1), Previous: icpState.LastEventDigest}
	_, err = proc.ProcessEvent(ctx, signEvent(t, s, ixn, ixn, 0))
	require.NoError(t, err)

	require.NoError(t, s.Rotate())
	newKC := soleKeyConfig(t, s, keri.NewSimpleThreshold(1))
	recoveryRot := &keri.Rotation{Type: keri.ROT, Prefix: prefix, SN: keri.SN(1), Previous: icpState.LastEventDigest, KeyConfig: newKC}
	state, err := proc.ProcessEvent(ctx, signEvent(t, s, recoveryRot, recoveryRot, 0))
	require.NoError(t, err)
	require.Equal(t, uint64(1), state.SN)
	require.Equal(t, keri.ROT, state.LastEventType)

	final, err := proc.ComputeState(ctx, prefix)
	require.NoError(t, err)
	require.Equal(t, keri.ROT, final.LastEventType)
	require.Equal(t, newKC.PublicKeys[0].String(), final.Current.PublicKeys[0].String())
}

// TestConfirmDuplicityPromotesEscrow covers §4.8's permanent duplicitous
// bucket: an operator (or external dispute signal) confirming a
// likely_duplicitous item promotes it out of the retriable escrow.
func TestConfirmDuplicityPromotesEscrow(t *testing.T) {
	ctx := context.Background()
	store := kerimem.New()
	proc := keri.NewProcessor(store, keri.DefaultOptions())
	s := newSigner(t)
	prefix := keri.NewIdentifierPrefixFromBasic(s.PublicKey())

	se := keri.SignedEvent{Event: &keri.Inception{}}
	require.NoError(t, store.Escrow(ctx, keri.EscrowLikelyDuplicitous, prefix, se))

	require.NoError(t, proc.ConfirmDuplicity(ctx, prefix))

	remaining, err := store.DrainEscrow(ctx, keri.EscrowLikelyDuplicitous, prefix)
	require.NoError(t, err)
	require.Empty(t, remaining)

	promoted, err := store.DrainEscrow(ctx, keri.EscrowDuplicitous, prefix)
	require.NoError(t, err)
	require.Len(t, promoted, 1)
}
