package keri

import (
	"context"

	"github.com/trustedlog/keri-core/derivation"
)

// ValidateSeal checks that a delegated event se is properly anchored in
// its delegator's log via source (the "-G" source seal attached
// alongside it): the delegator's event at source.SN must exist, be an
// ixn/rot/drt, match source.Digest, and carry — among its own anchored
// data — an EventSeal whose digest and (prefix, sn) match se.
//
// If the delegator's event is not yet present, ValidateSeal returns
// ErrEventOutOfOrder, the signal the processor uses to escrow se rather
// than reject it outright.
func ValidateSeal(ctx context.Context, store EventStore, delegator IdentifierPrefix, source SourceSeal, se SignedEvent, code derivation.Code) error {
	events, err := store.IterKEL(ctx, delegator)
	if err != nil {
		return NewStoreError("IterKEL", err)
	}
	var delegatorEvent SignedEvent
	found := false
	for _, e := range events {
		if e.Event.EventSN() == source.SN {
			delegatorEvent = e
			found = true
			break
		}
	}
	if !found {
		return ErrEventOutOfOrder
	}
	switch delegatorEvent.Event.EventType() {
	case IXN, ROT, DRT:
	default:
		return NewSemanticError("delegator event at referenced sn is not ixn/rot/drt")
	}
	eventDigest, err := derivation.DeriveDigest(code, delegatorEvent.Raw)
	if err != nil {
		return err
	}
	if eventDigest.String() != source.Digest.String() {
		return NewSemanticError("source seal digest does not match the delegator event")
	}

	anchors := anchorsOf(delegatorEvent.Event)
	wantDigest, err := derivation.DeriveDigest(code, se.Raw)
	if err != nil {
		return err
	}
	for _, seal := range anchors {
		es, ok := seal.(EventSeal)
		if !ok {
			continue
		}
		if es.Digest.String() == wantDigest.String() &&
			es.Prefix.Equal(se.Event.EventPrefix()) &&
			es.SN == se.Event.EventSN() {
			return nil
		}
	}
	return NewSemanticError("delegator event does not anchor an event seal for the delegated event")
}

// anchorsOf extracts the anchored-data seals from whichever event type e
// is, or nil if e carries none.
func anchorsOf(e Event) Seals {
	switch v := e.(type) {
	case *Interaction:
		return v.Anchors
	case *Rotation:
		return v.Anchors
	case *DelegatedRotation:
		return v.Anchors
	case *Inception:
		return v.Anchors
	case *DelegatedInception:
		return v.Anchors
	default:
		return nil
	}
}
