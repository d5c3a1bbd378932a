package keri

import (
	"fmt"

	"github.com/trustedlog/keri-core/derivation"
)

// IdentifierPrefix is a KERI identifier: the qualified text prefix that
// names a controller, stored generically since it may be either a Basic
// (self-certifying key) or SelfAddressing (self-addressing digest) prefix
// depending on how the identifier's inception event was built.
type IdentifierPrefix struct {
	code derivation.Code
	raw  []byte
}

// ParseIdentifierPrefix parses text as an identifier: either a Basic or a
// SelfAddressing prefix.
func ParseIdentifierPrefix(text string) (IdentifierPrefix, error) {
	code, raw, err := derivation.ParsePrefix(text)
	if err != nil {
		return IdentifierPrefix{}, err
	}
	if !derivation.IsBasic(code) && !derivation.IsSelfAddressing(code) {
		return IdentifierPrefix{}, fmt.Errorf("%w: %q is not a valid identifier code", ErrBadPrefix, code)
	}
	return IdentifierPrefix{code: code, raw: raw}, nil
}

// NewIdentifierPrefixFromBasic builds an identifier that is itself a
// public key (a "self-certifying", non-digest identifier).
func NewIdentifierPrefixFromBasic(p derivation.BasicPrefix) IdentifierPrefix {
	return IdentifierPrefix{code: p.Code(), raw: p.Raw()}
}

// NewIdentifierPrefixFromDigest builds an identifier that is a digest of
// its own inception event (a "self-addressing" identifier).
func NewIdentifierPrefixFromDigest(p derivation.SelfAddressingPrefix) IdentifierPrefix {
	return IdentifierPrefix{code: p.Code(), raw: p.Raw()}
}

func (i IdentifierPrefix) String() string {
	if i.code == "" {
		return ""
	}
	bp := derivation.Prefix(mustPrefix(i))
	return bp.String()
}

func mustPrefix(i IdentifierPrefix) derivation.Prefix {
	if derivation.IsBasic(i.code) {
		p, _ := derivation.NewBasicPrefix(i.code, i.raw)
		return p
	}
	p, _ := derivation.NewSelfAddressingPrefix(i.code, i.raw)
	return p
}

// IsBasic reports whether this identifier is itself a public key.
func (i IdentifierPrefix) IsBasic() bool { return derivation.IsBasic(i.code) }

// IsSelfAddressing reports whether this identifier is a digest of its own
// inception event.
func (i IdentifierPrefix) IsSelfAddressing() bool { return derivation.IsSelfAddressing(i.code) }

// AsBasic returns the underlying BasicPrefix, if this identifier is one.
func (i IdentifierPrefix) AsBasic() (derivation.BasicPrefix, bool) {
	if !i.IsBasic() {
		return derivation.BasicPrefix{}, false
	}
	p, err := derivation.NewBasicPrefix(i.code, i.raw)
	return p, err == nil
}

// AsSelfAddressing returns the underlying SelfAddressingPrefix, if this
// identifier is one.
func (i IdentifierPrefix) AsSelfAddressing() (derivation.SelfAddressingPrefix, bool) {
	if !i.IsSelfAddressing() {
		return derivation.SelfAddressingPrefix{}, false
	}
	p, err := derivation.NewSelfAddressingPrefix(i.code, i.raw)
	return p, err == nil
}

// Equal reports whether two identifiers have the same qualified text form.
func (i IdentifierPrefix) Equal(o IdentifierPrefix) bool {
	return i.code == o.code && string(i.raw) == string(o.raw)
}

func (i IdentifierPrefix) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *IdentifierPrefix) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentifierPrefix(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
