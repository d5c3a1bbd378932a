package keri

import "github.com/trustedlog/keri-core/derivation"

// LastEstablishmentData summarizes the most recent establishment event
// (icp/rot/dip/drt): its sequence number, digest, and any witness
// membership change it carried. Supplements spec.md's distilled state
// with the detail original_source's IdentifierState::last_est tracks, so
// a caller can answer "what changed at the last key rotation" without
// re-walking the whole KEL.
type LastEstablishmentData struct {
	SN            uint64
	Digest        derivation.SelfAddressingPrefix
	WitnessPruned []derivation.BasicPrefix
	WitnessGrafted []derivation.BasicPrefix
}

// IdentifierState is the reducer's accumulator: everything known about an
// identifier after folding its KEL up to some point. It is produced and
// consumed only by pure functions; nothing here is ever mutated in place.
type IdentifierState struct {
	Prefix        IdentifierPrefix
	Established   bool
	SN            uint64
	LastEventDigest derivation.SelfAddressingPrefix
	LastEventType EventType
	Current       KeyConfig
	Witnesses     WitnessConfig
	Delegator     *IdentifierPrefix // nil unless this identifier is delegated

	// Delegates records identifiers this one has, in turn, delegated to —
	// anchored via an EventSeal in any of this identifier's own events that
	// matches an accepted dip/drt in the delegate's KEL. Supplements the
	// distillation, grounded in original_source's IdentifierState.delegates.
	Delegates []IdentifierPrefix

	LastEstablishment LastEstablishmentData
}

// Apply is the sole path by which state evolves: it dispatches to the
// event's own applyTo and is itself side-effect-free. On failure it
// returns a typed error without mutating state or event.
func Apply(state IdentifierState, event Event) (IdentifierState, error) {
	next, err := event.applyTo(state)
	if err != nil {
		return state, err
	}
	return next, nil
}

// Abandoned reports whether this identifier's current key configuration
// has no next-commitment: the strict abandonment rule means any further
// rotation attempt against this state fails permanently.
func (s IdentifierState) Abandoned() bool {
	return s.Established && s.Current.NextCommitment == nil
}

// checkChain validates a non-inception event's sn and previous-event
// digest against state. A gap (sn does not immediately follow state.SN)
// means the event cannot be validated yet — the chain between state and
// sn hasn't been seen — and is ErrEventOutOfOrder so the processor
// escrows it rather than rejecting outright. Only once sn is exactly
// state.SN+1 does a digest mismatch indicate a genuine conflicting
// event, a semantic failure.
func checkChain(state IdentifierState, sn uint64, previous derivation.SelfAddressingPrefix) error {
	if sn != state.SN+1 {
		return ErrEventOutOfOrder
	}
	if previous.String() != state.LastEventDigest.String() {
		return NewSemanticError("previous-event digest does not match the last accepted event")
	}
	return nil
}
