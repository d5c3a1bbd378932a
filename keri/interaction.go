package keri

import "github.com/trustedlog/keri-core/derivation"

// Interaction anchors data without changing the key configuration.
type Interaction struct {
	versionHeader
	Type     EventType                       `json:"t" cbor:"t" codec:"t"`
	Digest   derivation.SelfAddressingPrefix `json:"d" cbor:"d" codec:"d"`
	Prefix   IdentifierPrefix                `json:"i" cbor:"i" codec:"i"`
	SN       SN                              `json:"s" cbor:"s" codec:"s"`
	Previous derivation.SelfAddressingPrefix `json:"p" cbor:"p" codec:"p"`
	Anchors  Seals                           `json:"a,omitempty" cbor:"a,omitempty" codec:"a,omitempty"`
}

func (e *Interaction) EventPrefix() IdentifierPrefix { return e.Prefix }
func (e *Interaction) EventSN() uint64               { return uint64(e.SN) }
func (e *Interaction) EventType() EventType          { return IXN }

// applyTo implements the interaction reducer: the event must chain onto
// the last accepted event; state is otherwise unchanged except sn and
// last-event bookkeeping (filled in by the processor once the event
// digest is known).
func (e *Interaction) applyTo(state IdentifierState) (IdentifierState, error) {
	if !state.Established {
		return state, NewSemanticError("interaction received before inception")
	}
	if err := checkChain(state, uint64(e.SN), e.Previous); err != nil {
		return state, err
	}
	next := state
	next.SN = state.SN + 1
	next.LastEventType = IXN
	return next, nil
}
