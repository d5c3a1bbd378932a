package keri

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/trustedlog/keri-core/derivation"
)

// Seal is anchored, externally-meaningful data attached to an event. KERI
// defines several shapes; which one appears depends on what is being
// anchored.
type Seal interface {
	isSeal()
}

// DigestSeal anchors an arbitrary piece of external data by its digest.
type DigestSeal struct {
	Digest derivation.SelfAddressingPrefix
}

func (DigestSeal) isSeal() {}

// EventSeal anchors a specific event of some (possibly other) identifier:
// identifier, sequence number, and the event's own digest.
type EventSeal struct {
	Prefix IdentifierPrefix
	SN     uint64
	Digest derivation.SelfAddressingPrefix
}

func (EventSeal) isSeal() {}

func (s EventSeal) MarshalJSON() ([]byte, error) {
	w, err := sealToWire(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (s *EventSeal) UnmarshalJSON(data []byte) error {
	var w wireSeal
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	parsed, err := wireToSeal(w)
	if err != nil {
		return err
	}
	es, ok := parsed.(EventSeal)
	if !ok {
		return fmt.Errorf("%w: expected an event seal", ErrDeserialization)
	}
	*s = es
	return nil
}

// LocationSeal anchors a delegated event in its delegator's log: the
// delegator identifier, sequence number, the delegator event's type tag,
// and the digest of the event immediately prior to it (used to locate the
// delegator event unambiguously even before it is itself digest-addressed
// in the seal).
type LocationSeal struct {
	Prefix      IdentifierPrefix
	SN          uint64
	EventType   EventType
	PriorDigest derivation.SelfAddressingPrefix
}

func (LocationSeal) isSeal() {}

// SourceSeal anchors a delegated event by pointing at the delegator event
// (by sn and digest) that carries the corresponding EventSeal. It travels
// alongside a delegated event as the "-G" attachment group, distinct from
// the EventSeal the delegator embeds in its own anchored data.
type SourceSeal struct {
	SN     uint64
	Digest derivation.SelfAddressingPrefix
}

func (SourceSeal) isSeal() {}

// RootSeal commits to an externally computed Merkle root (for example, a
// root over a batch of anchored log entries maintained outside the KEL
// itself). KERI's own chain is a simple hash chain, not a Merkle
// accumulator; RootSeal exists so interaction/rotation events can anchor
// commitments produced by such an external accumulator without KERI
// needing to understand its internal structure.
type RootSeal struct {
	Root derivation.SelfAddressingPrefix
}

func (RootSeal) isSeal() {}

// wireSeal is the on-the-wire shape every Seal variant marshals through,
// distinguished by which fields are present: "i"+"s"+"t"+"p" is a
// LocationSeal, "i"+"s"+"d" is an EventSeal, "s"+"d" alone is a
// SourceSeal, "d" alone is a DigestSeal, "rd" alone is a RootSeal.
type wireSeal struct {
	Prefix *IdentifierPrefix                `json:"i,omitempty"`
	SN     *SN                              `json:"s,omitempty"`
	Type   EventType                        `json:"t,omitempty"`
	Prior  *derivation.SelfAddressingPrefix `json:"p,omitempty"`
	Digest *derivation.SelfAddressingPrefix `json:"d,omitempty"`
	Root   *derivation.SelfAddressingPrefix `json:"rd,omitempty"`
}

func sealToWire(s Seal) (wireSeal, error) {
	switch v := s.(type) {
	case DigestSeal:
		d := v.Digest
		return wireSeal{Digest: &d}, nil
	case EventSeal:
		d := v.Digest
		sn := SN(v.SN)
		return wireSeal{Prefix: &v.Prefix, SN: &sn, Digest: &d}, nil
	case LocationSeal:
		p := v.PriorDigest
		sn := SN(v.SN)
		return wireSeal{Prefix: &v.Prefix, SN: &sn, Type: v.EventType, Prior: &p}, nil
	case SourceSeal:
		d := v.Digest
		sn := SN(v.SN)
		return wireSeal{SN: &sn, Digest: &d}, nil
	case RootSeal:
		r := v.Root
		return wireSeal{Root: &r}, nil
	default:
		return wireSeal{}, fmt.Errorf("%w: unknown seal type %T", ErrDeserialization, s)
	}
}

func wireToSeal(w wireSeal) (Seal, error) {
	switch {
	case w.Root != nil:
		return RootSeal{Root: *w.Root}, nil
	case w.Prefix != nil && w.SN != nil && w.Type != "" && w.Prior != nil:
		return LocationSeal{Prefix: *w.Prefix, SN: uint64(*w.SN), EventType: w.Type, PriorDigest: *w.Prior}, nil
	case w.Prefix != nil && w.SN != nil && w.Digest != nil:
		return EventSeal{Prefix: *w.Prefix, SN: uint64(*w.SN), Digest: *w.Digest}, nil
	case w.Prefix == nil && w.SN != nil && w.Digest != nil:
		return SourceSeal{SN: uint64(*w.SN), Digest: *w.Digest}, nil
	case w.Digest != nil:
		return DigestSeal{Digest: *w.Digest}, nil
	default:
		return nil, fmt.Errorf("%w: seal matches no known shape", ErrDeserialization)
	}
}

// Seals is a JSON/CBOR/MessagePack-friendly list of heterogeneous seals,
// used for an event's anchored-data ("a") field.
type Seals []Seal

func (ss Seals) MarshalJSON() ([]byte, error) {
	wires := make([]wireSeal, len(ss))
	for i, s := range ss {
		w, err := sealToWire(s)
		if err != nil {
			return nil, err
		}
		wires[i] = w
	}
	return json.Marshal(wires)
}

func (ss *Seals) UnmarshalJSON(data []byte) error {
	var wires []wireSeal
	if err := json.Unmarshal(data, &wires); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	out := make(Seals, len(wires))
	for i, w := range wires {
		s, err := wireToSeal(w)
		if err != nil {
			return err
		}
		out[i] = s
	}
	*ss = out
	return nil
}
