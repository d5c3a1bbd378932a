package keri

import (
	"fmt"
	"strconv"

	"github.com/trustedlog/keri-core/derivation"
	"github.com/trustedlog/keri-core/serialization"
)

// EventType tags the six wire event kinds.
type EventType string

const (
	ICP EventType = "icp" // inception
	ROT EventType = "rot" // rotation
	IXN EventType = "ixn" // interaction
	DIP EventType = "dip" // delegated inception
	DRT EventType = "drt" // delegated rotation
	RCT EventType = "rct" // receipt
)

// SN is a sequence number, rendered on the wire as compact (no leading
// zero, lowercase) hexadecimal text.
type SN uint64

func (s SN) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(s), 16)), nil
}

func (s *SN) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 16, 64)
	if err != nil {
		return fmt.Errorf("%w: bad sn: %v", ErrDeserialization, err)
	}
	*s = SN(v)
	return nil
}

// Event is any of the six wire event kinds: it names its own identifier,
// sequence number, and type, and knows how to fold itself onto a prior
// IdentifierState. applyTo is pure: it never mutates its receiver or its
// argument, and returns a new state or a typed error.
type Event interface {
	EventPrefix() IdentifierPrefix
	EventSN() uint64
	EventType() EventType
	applyTo(state IdentifierState) (IdentifierState, error)
}

// versionHeader is embedded (by value, copied out explicitly — Go has no
// struct inheritance) into every event body to carry the self-framing
// version string required by serialization.Versioned.
type versionHeader struct {
	V serialization.Version `json:"v" cbor:"v" codec:"v"`
}

func (h *versionHeader) SetVersion(v serialization.Version) { h.V = v }
func (h *versionHeader) GetVersion() serialization.Version  { return h.V }

// digestSelf computes the self-addressing digest of an event's canonical
// JSON encoding under code — the binding used both for self-addressing
// identifier prefixes and for an event's own "d" digest field.
func digestSelf(code derivation.Code, body serialization.Versioned) (derivation.SelfAddressingPrefix, error) {
	encoded, err := serialization.Serialize(serialization.JSON, body)
	if err != nil {
		return derivation.SelfAddressingPrefix{}, err
	}
	return derivation.DeriveDigest(code, encoded)
}
