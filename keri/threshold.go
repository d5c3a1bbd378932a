package keri

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/trustedlog/keri-core/derivation"
)

// ThresholdKind distinguishes the three shapes a signature threshold may
// take.
type ThresholdKind int

const (
	ThresholdSimple ThresholdKind = iota
	ThresholdWeighted
)

// SignatureThreshold is a multi-sig acceptance rule: either a simple count
// of distinct signatures, or one or more weighted clauses over contiguous
// ranges of the key list.
type SignatureThreshold struct {
	Kind    ThresholdKind
	Simple  uint64
	Clauses [][]Fraction // weighted only; len==1 for a single-clause threshold
}

// NewSimpleThreshold builds a plain "at least n signatures" threshold.
func NewSimpleThreshold(n uint64) SignatureThreshold {
	return SignatureThreshold{Kind: ThresholdSimple, Simple: n}
}

// NewWeightedThreshold builds a weighted threshold from one or more
// clauses, each a list of fractional weights over a contiguous slice of
// the key list.
func NewWeightedThreshold(clauses [][]Fraction) SignatureThreshold {
	return SignatureThreshold{Kind: ThresholdWeighted, Clauses: clauses}
}

// Attainable reports whether this threshold can ever be satisfied by the
// given key count: a simple threshold must not exceed the key count; each
// weighted clause's full weight sum must reach at least 1.
func (t SignatureThreshold) Attainable(keyCount int) bool {
	switch t.Kind {
	case ThresholdSimple:
		return int(t.Simple) <= keyCount
	case ThresholdWeighted:
		total := 0
		for _, clause := range t.Clauses {
			total += len(clause)
			sum := Fraction{Num: 0, Den: 1}
			for _, f := range clause {
				sum = sum.Add(f)
			}
			if !sum.GTE1() {
				return false
			}
		}
		return total <= keyCount
	default:
		return false
	}
}

// EnoughSignatures reports whether sigs (indexed into the key list)
// satisfy t.
func (t SignatureThreshold) EnoughSignatures(sigs []derivation.AttachedSignature) (bool, error) {
	switch t.Kind {
	case ThresholdSimple:
		return uint64(len(sigs)) >= t.Simple, nil
	case ThresholdWeighted:
		start := 0
		for _, clause := range t.Clauses {
			end := start + len(clause)
			sum := Fraction{Num: 0, Den: 1}
			for _, sig := range sigs {
				if sig.Index() >= start && sig.Index() < end {
					sum = sum.Add(clause[sig.Index()-start])
				}
			}
			if !sum.GTE1() {
				return false, nil
			}
			start = end
		}
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown threshold kind", ErrSemantic)
	}
}

// limen renders the threshold into the canonical commitment string: a
// simple threshold is its hex value; a weighted threshold is its
// fractions joined by commas within a clause and ampersands between
// clauses.
func (t SignatureThreshold) limen() string {
	switch t.Kind {
	case ThresholdSimple:
		return strconv.FormatUint(t.Simple, 16)
	case ThresholdWeighted:
		clauseStrs := make([]string, len(t.Clauses))
		for i, clause := range t.Clauses {
			fracStrs := make([]string, len(clause))
			for j, f := range clause {
				fracStrs[j] = f.String()
			}
			clauseStrs[i] = strings.Join(fracStrs, ",")
		}
		return strings.Join(clauseStrs, "&")
	default:
		return ""
	}
}

// Commit computes the pre-rotation commitment over this threshold and the
// given next public keys: digest(limen) folded by XOR with the digest of
// each key's qualified text form, in list order. Because XOR is
// commutative the result does not depend on key order in practice, but
// keys are walked in list order to match the reference derivation
// byte-for-byte.
func Commit(threshold SignatureThreshold, keys []derivation.BasicPrefix, code derivation.Code) (derivation.SelfAddressingPrefix, error) {
	acc, err := derivation.DeriveDigest(code, []byte(threshold.limen()))
	if err != nil {
		return derivation.SelfAddressingPrefix{}, err
	}
	accRaw := append([]byte(nil), acc.Raw()...)
	for _, key := range keys {
		d, err := derivation.DeriveDigest(code, []byte(key.String()))
		if err != nil {
			return derivation.SelfAddressingPrefix{}, err
		}
		xorInto(accRaw, d.Raw())
	}
	return derivation.NewSelfAddressingPrefix(code, accRaw)
}

func xorInto(acc, other []byte) {
	for i := range acc {
		acc[i] ^= other[i]
	}
}

// MarshalJSON renders the threshold per the wire "kt" field: a quoted hex
// string for a simple threshold, an array of fraction strings for a
// single weighted clause, or an array of such arrays for multiple
// clauses.
func (t SignatureThreshold) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case ThresholdSimple:
		return json.Marshal(strconv.FormatUint(t.Simple, 16))
	case ThresholdWeighted:
		if len(t.Clauses) == 1 {
			return json.Marshal(clauseStrings(t.Clauses[0]))
		}
		clauses := make([][]string, len(t.Clauses))
		for i, c := range t.Clauses {
			clauses[i] = clauseStrings(c)
		}
		return json.Marshal(clauses)
	default:
		return nil, fmt.Errorf("%w: unknown threshold kind", ErrSemantic)
	}
}

func clauseStrings(clause []Fraction) []string {
	out := make([]string, len(clause))
	for i, f := range clause {
		out[i] = f.String()
	}
	return out
}

// UnmarshalJSON parses any of the three "kt" shapes.
func (t *SignatureThreshold) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var hexStr string
		if err := json.Unmarshal(data, &hexStr); err != nil {
			return fmt.Errorf("%w: %v", ErrDeserialization, err)
		}
		n, err := strconv.ParseUint(hexStr, 16, 64)
		if err != nil {
			return fmt.Errorf("%w: bad simple threshold: %v", ErrDeserialization, err)
		}
		*t = NewSimpleThreshold(n)
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	if len(raw) == 0 {
		*t = NewWeightedThreshold(nil)
		return nil
	}
	firstTrimmed := strings.TrimSpace(string(raw[0]))
	if strings.HasPrefix(firstTrimmed, "[") {
		clauses := make([][]Fraction, len(raw))
		for i, r := range raw {
			clause, err := parseClause(r)
			if err != nil {
				return err
			}
			clauses[i] = clause
		}
		*t = NewWeightedThreshold(clauses)
		return nil
	}
	clause, err := parseClause(data)
	if err != nil {
		return err
	}
	*t = NewWeightedThreshold([][]Fraction{clause})
	return nil
}

func parseClause(data []byte) ([]Fraction, error) {
	var strs []string
	if err := json.Unmarshal(data, &strs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	out := make([]Fraction, len(strs))
	for i, s := range strs {
		f, err := parseFraction(s)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func parseFraction(s string) (Fraction, error) {
	parts := strings.SplitN(s, "/", 2)
	n, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Fraction{}, fmt.Errorf("%w: bad fraction %q: %v", ErrDeserialization, s, err)
	}
	if len(parts) == 1 {
		return NewFraction(n, 1), nil
	}
	d, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return Fraction{}, fmt.Errorf("%w: bad fraction %q: %v", ErrDeserialization, s, err)
	}
	return NewFraction(n, d), nil
}

// VerifyNext recomputes Commit over nextThreshold/nextKeys using commitment's
// own derivation code and reports whether it equals commitment.
func VerifyNext(commitment derivation.SelfAddressingPrefix, nextThreshold SignatureThreshold, nextKeys []derivation.BasicPrefix) (bool, error) {
	recomputed, err := Commit(nextThreshold, nextKeys, commitment.Code())
	if err != nil {
		return false, err
	}
	return recomputed.String() == commitment.String(), nil
}
