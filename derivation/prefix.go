package derivation

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// b64Encoding is the unpadded, URL-safe base64 alphabet KERI uses for all
// qualified text material.
var b64Encoding = base64.RawURLEncoding

// Prefix is a qualified, self-describing text identifier: a derivation code
// tag followed by the base64 encoding of some raw material.
type Prefix interface {
	// Code returns the derivation code this prefix was built with.
	Code() Code
	// Raw returns the undecoded material the prefix carries.
	Raw() []byte
	// String returns the qualified text form (tag + base64 body).
	String() string
}

// BasicPrefix qualifies a public verification or encryption key.
type BasicPrefix struct {
	code Code
	raw  []byte
}

// SelfAddressingPrefix qualifies a digest of some referenced data.
type SelfAddressingPrefix struct {
	code Code
	raw  []byte
}

// SelfSigningPrefix qualifies a non-indexed signature over some referenced data.
type SelfSigningPrefix struct {
	code Code
	raw  []byte
}

// NewBasicPrefix builds a BasicPrefix from raw key material, checking that
// raw's length matches what code declares.
func NewBasicPrefix(code Code, raw []byte) (BasicPrefix, error) {
	if !IsBasic(code) {
		return BasicPrefix{}, fmt.Errorf("%w: %q is not a basic code", ErrUnknownCode, code)
	}
	if err := checkRawLen(code, raw); err != nil {
		return BasicPrefix{}, err
	}
	return BasicPrefix{code: code, raw: raw}, nil
}

// NewSelfAddressingPrefix builds a SelfAddressingPrefix from digest material.
func NewSelfAddressingPrefix(code Code, raw []byte) (SelfAddressingPrefix, error) {
	if !IsSelfAddressing(code) {
		return SelfAddressingPrefix{}, fmt.Errorf("%w: %q is not a self-addressing code", ErrUnknownCode, code)
	}
	if err := checkRawLen(code, raw); err != nil {
		return SelfAddressingPrefix{}, err
	}
	return SelfAddressingPrefix{code: code, raw: raw}, nil
}

// NewSelfSigningPrefix builds a SelfSigningPrefix from signature material.
func NewSelfSigningPrefix(code Code, raw []byte) (SelfSigningPrefix, error) {
	if !IsSelfSigning(code) {
		return SelfSigningPrefix{}, fmt.Errorf("%w: %q is not a self-signing code", ErrUnknownCode, code)
	}
	if err := checkRawLen(code, raw); err != nil {
		return SelfSigningPrefix{}, err
	}
	return SelfSigningPrefix{code: code, raw: raw}, nil
}

func checkRawLen(code Code, raw []byte) error {
	n, ok := RawLen(code)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCode, code)
	}
	if len(raw) != n {
		return fmt.Errorf("%w: code %q wants %d bytes, got %d", ErrRawLength, code, n, len(raw))
	}
	return nil
}

func (p BasicPrefix) Code() Code   { return p.code }
func (p BasicPrefix) Raw() []byte  { return p.raw }
func (p BasicPrefix) String() string { return string(p.code) + b64Encoding.EncodeToString(p.raw) }

func (p SelfAddressingPrefix) Code() Code    { return p.code }
func (p SelfAddressingPrefix) Raw() []byte   { return p.raw }
func (p SelfAddressingPrefix) String() string {
	return string(p.code) + b64Encoding.EncodeToString(p.raw)
}

func (p SelfSigningPrefix) Code() Code    { return p.code }
func (p SelfSigningPrefix) Raw() []byte   { return p.raw }
func (p SelfSigningPrefix) String() string {
	return string(p.code) + b64Encoding.EncodeToString(p.raw)
}

// MarshalText renders the qualified text form, so prefixes embed directly
// as plain strings in JSON/CBOR/MessagePack event bodies.
func (p BasicPrefix) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a qualified text form, requiring it name a basic code.
func (p *BasicPrefix) UnmarshalText(text []byte) error {
	parsed, err := ParseBasicPrefix(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalText renders the qualified text form.
func (p SelfAddressingPrefix) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a qualified text form, requiring it name a
// self-addressing code.
func (p *SelfAddressingPrefix) UnmarshalText(text []byte) error {
	parsed, err := ParseSelfAddressingPrefix(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalText renders the qualified text form.
func (p SelfSigningPrefix) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a qualified text form, requiring it name a
// self-signing code.
func (p *SelfSigningPrefix) UnmarshalText(text []byte) error {
	parsed, err := ParseSelfSigningPrefix(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// allCodesByTagLength orders every known code tag longest-first, so parsing
// can greedily match the longest tag that prefixes the text (a 1-char tag
// like "E" must not shadow a 4-char tag like "1AAA" sharing no characters,
// but codes do share leading digits, e.g. "0B" vs "0C" vs "1AAA").
var allCodesByTagLength = sortedCodeTags()

func sortedCodeTags() []Code {
	tags := make([]Code, 0, len(codeTable))
	for c := range codeTable {
		tags = append(tags, c)
	}
	// longest tag first
	for i := 1; i < len(tags); i++ {
		for j := i; j > 0 && len(tags[j]) > len(tags[j-1]); j-- {
			tags[j], tags[j-1] = tags[j-1], tags[j]
		}
	}
	return tags
}

// matchCode finds the known code whose tag prefixes text, preferring the
// longest match.
func matchCode(text string) (Code, bool) {
	for _, c := range allCodesByTagLength {
		if strings.HasPrefix(text, string(c)) {
			return c, true
		}
	}
	return "", false
}

// ParsePrefix decodes a qualified text prefix into its code and raw material.
func ParsePrefix(text string) (Code, []byte, error) {
	code, ok := matchCode(text)
	if !ok {
		return "", nil, fmt.Errorf("%w: no known code tags %q", ErrBadPrefix, text)
	}
	wantLen, _ := TextLen(code)
	if len(text) != wantLen {
		return "", nil, fmt.Errorf("%w: code %q wants text length %d, got %d", ErrBadPrefix, code, wantLen, len(text))
	}
	body := text[len(code):]
	raw, err := b64Encoding.DecodeString(body)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadPrefix, err)
	}
	rawLen, _ := RawLen(code)
	if len(raw) != rawLen {
		return "", nil, fmt.Errorf("%w: code %q decoded to %d bytes, want %d", ErrBadPrefix, code, len(raw), rawLen)
	}
	return code, raw, nil
}

// ParseBasicPrefix parses text as a BasicPrefix.
func ParseBasicPrefix(text string) (BasicPrefix, error) {
	code, raw, err := ParsePrefix(text)
	if err != nil {
		return BasicPrefix{}, err
	}
	if !IsBasic(code) {
		return BasicPrefix{}, fmt.Errorf("%w: %q is not a basic code", ErrBadPrefix, code)
	}
	return BasicPrefix{code: code, raw: raw}, nil
}

// ParseSelfAddressingPrefix parses text as a SelfAddressingPrefix.
func ParseSelfAddressingPrefix(text string) (SelfAddressingPrefix, error) {
	code, raw, err := ParsePrefix(text)
	if err != nil {
		return SelfAddressingPrefix{}, err
	}
	if !IsSelfAddressing(code) {
		return SelfAddressingPrefix{}, fmt.Errorf("%w: %q is not a self-addressing code", ErrBadPrefix, code)
	}
	return SelfAddressingPrefix{code: code, raw: raw}, nil
}

// ParseSelfSigningPrefix parses text as a SelfSigningPrefix.
func ParseSelfSigningPrefix(text string) (SelfSigningPrefix, error) {
	code, raw, err := ParsePrefix(text)
	if err != nil {
		return SelfSigningPrefix{}, err
	}
	if !IsSelfSigning(code) {
		return SelfSigningPrefix{}, fmt.Errorf("%w: %q is not a self-signing code", ErrBadPrefix, code)
	}
	return SelfSigningPrefix{code: code, raw: raw}, nil
}
