package keri

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/trustedlog/keri-core/derivation"
)

var b64 = base64.RawURLEncoding

// Attachment group tags: a signed event travels as its serialized body
// followed by a post-amble of these counted groups.
const (
	GroupIndexedSignatures   = "-A" // attached indexed signatures
	GroupNonIndexedCouplets  = "-B" // non-indexed signature couplets (witness receipts)
	GroupEventSeals          = "-F" // attached event seals
	GroupSourceSeals         = "-G" // attached source seals
)

const snCode = "0A" // the fixed tag for a CESR counter/sn-style field
const snRawLen = 16 // bytes; chosen so the base64 body is exactly 22 characters
const snBodyLen = 22

// encodeSN renders sn as the master-code-width counter encoding: tag
// "0A" followed by the base64url encoding of a 16-byte big-endian
// integer.
func encodeSN(sn uint64) string {
	buf := make([]byte, snRawLen)
	binary.BigEndian.PutUint64(buf[8:], sn)
	return snCode + b64.EncodeToString(buf)
}

// decodeSN parses a counter-encoded sn from the front of text, returning
// the value and bytes consumed.
func decodeSN(text string) (uint64, int, error) {
	if len(text) < len(snCode)+snBodyLen {
		return 0, 0, fmt.Errorf("%w: truncated sn field", ErrDeserialization)
	}
	if text[:len(snCode)] != snCode {
		return 0, 0, fmt.Errorf("%w: expected sn code %q", ErrDeserialization, snCode)
	}
	raw, err := b64.DecodeString(text[len(snCode) : len(snCode)+snBodyLen])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	if len(raw) != snRawLen {
		return 0, 0, fmt.Errorf("%w: decoded sn field has wrong length", ErrDeserialization)
	}
	return binary.BigEndian.Uint64(raw[8:]), len(snCode) + snBodyLen, nil
}

// EncodeIndexedSignatures frames sigs as a "-A" counted group.
func EncodeIndexedSignatures(sigs []derivation.AttachedSignature) (string, error) {
	count, err := derivation.NumToB64(len(sigs), 2)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(GroupIndexedSignatures)
	b.WriteString(count)
	for _, s := range sigs {
		b.WriteString(s.String())
	}
	return b.String(), nil
}

// EncodeWitnessCouplets frames couplets as a "-B" counted group.
func EncodeWitnessCouplets(couplets []WitnessCouplet) (string, error) {
	count, err := derivation.NumToB64(len(couplets), 2)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(GroupNonIndexedCouplets)
	b.WriteString(count)
	for _, c := range couplets {
		b.WriteString(c.Witness.String())
		b.WriteString(c.Signature.String())
	}
	return b.String(), nil
}

// EncodeEventSeals frames seals as a "-F" counted group.
func EncodeEventSeals(seals []EventSeal) (string, error) {
	count, err := derivation.NumToB64(len(seals), 2)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(GroupEventSeals)
	b.WriteString(count)
	for _, s := range seals {
		b.WriteString(s.Prefix.String())
		b.WriteString(encodeSN(s.SN))
		b.WriteString(s.Digest.String())
	}
	return b.String(), nil
}

// EncodeSourceSeals frames seals as a "-G" counted group.
func EncodeSourceSeals(seals []SourceSeal) (string, error) {
	count, err := derivation.NumToB64(len(seals), 2)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(GroupSourceSeals)
	b.WriteString(count)
	for _, s := range seals {
		b.WriteString(encodeSN(s.SN))
		b.WriteString(s.Digest.String())
	}
	return b.String(), nil
}

// ParseIndexedSignatures parses a "-A" counted group from the front of
// text, returning the signatures and bytes consumed.
func ParseIndexedSignatures(text string) ([]derivation.AttachedSignature, int, error) {
	if !strings.HasPrefix(text, GroupIndexedSignatures) {
		return nil, 0, fmt.Errorf("%w: expected %q group", ErrDeserialization, GroupIndexedSignatures)
	}
	pos := len(GroupIndexedSignatures)
	count, err := derivation.B64ToNum(text[pos : pos+2])
	if err != nil {
		return nil, 0, err
	}
	pos += 2
	out := make([]derivation.AttachedSignature, 0, count)
	for i := 0; i < count; i++ {
		sig, n, err := derivation.ParseAttachedSignature(text[pos:])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sig)
		pos += n
	}
	return out, pos, nil
}
