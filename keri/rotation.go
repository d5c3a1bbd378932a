package keri

import "github.com/trustedlog/keri-core/derivation"

// Rotation installs a new key configuration and/or witness set, anchored
// to the previous event by digest.
type Rotation struct {
	versionHeader
	Type     EventType                       `json:"t" cbor:"t" codec:"t"`
	Digest   derivation.SelfAddressingPrefix `json:"d" cbor:"d" codec:"d"`
	Prefix   IdentifierPrefix                `json:"i" cbor:"i" codec:"i"`
	SN       SN                              `json:"s" cbor:"s" codec:"s"`
	Previous derivation.SelfAddressingPrefix `json:"p" cbor:"p" codec:"p"`
	KeyConfig
	WitnessChange
	Anchors Seals `json:"a,omitempty" cbor:"a,omitempty" codec:"a,omitempty"`
}

func (e *Rotation) EventPrefix() IdentifierPrefix { return e.Prefix }
func (e *Rotation) EventSN() uint64               { return uint64(e.SN) }
func (e *Rotation) EventType() EventType          { return ROT }

// applyTo implements the rotation reducer for a non-delegated identifier.
func (e *Rotation) applyTo(state IdentifierState) (IdentifierState, error) {
	if state.Delegator != nil {
		return state, NewSemanticError("rotation received for a delegated identifier; expected delegated rotation")
	}
	return e.applyRotation(state)
}

// applyRotation holds the rotation logic shared by plain and delegated
// rotations: the new key configuration must satisfy the previously
// committed digest, and the event must chain onto the last accepted
// event.
func (e *Rotation) applyRotation(state IdentifierState) (IdentifierState, error) {
	if !state.Established {
		return state, NewSemanticError("rotation received before inception")
	}
	if state.Abandoned() {
		return state, NewSemanticError("identifier is abandoned: no further rotation is possible")
	}
	if err := checkChain(state, uint64(e.SN), e.Previous); err != nil {
		return state, err
	}
	ok, err := state.Current.VerifyNext(e.KeyConfig)
	if err != nil {
		return state, err
	}
	if !ok {
		return state, NewSemanticError("rotation key configuration does not match the pre-rotation commitment")
	}
	if !e.KeyConfig.Attainable() {
		return state, NewSemanticError("rotation threshold is not attainable by its key set")
	}
	newWitnesses := e.WitnessChange.Apply(state.Witnesses.Witnesses)

	next := state
	next.SN = state.SN + 1
	next.Current = e.KeyConfig
	next.Witnesses = WitnessConfig{Tally: e.WitnessChange.Tally, Witnesses: newWitnesses}
	next.LastEventType = ROT
	next.LastEstablishment = LastEstablishmentData{
		SN:             next.SN,
		WitnessPruned:  e.WitnessChange.Prune,
		WitnessGrafted: e.WitnessChange.Graft,
	}
	return next, nil
}
