package keri

import (
	"fmt"

	"github.com/trustedlog/keri-core/derivation"
)

// KeyConfig is the controlling key set of an identifier at some point in
// its history: an ordered list of public keys, a signature threshold over
// them, and an optional commitment to the next key set.
type KeyConfig struct {
	Threshold      SignatureThreshold               `json:"kt" cbor:"kt" codec:"kt"`
	PublicKeys     []derivation.BasicPrefix         `json:"k" cbor:"k" codec:"k"`
	NextCommitment *derivation.SelfAddressingPrefix `json:"n,omitempty" cbor:"n,omitempty" codec:"n,omitempty"` // nil means abandoned: no further rotation possible
}

// Verify checks sigs against message under this key configuration:
// (i) no signature index repeats, (ii) no index exceeds the key-list
// bound, (iii) each signature verifies under the basic prefix at its
// index, and (iv) the selected index set satisfies the threshold.
func (kc KeyConfig) Verify(message []byte, sigs []derivation.AttachedSignature) error {
	enough, err := kc.Threshold.EnoughSignatures(sigs)
	if err != nil {
		return err
	}
	if !enough {
		return ErrNotEnoughSignatures
	}
	if len(sigs) > len(kc.PublicKeys) {
		return NewSemanticError("more signatures than keys")
	}
	counts := make([]int, len(kc.PublicKeys))
	for _, sig := range sigs {
		if sig.Index() < 0 || sig.Index() >= len(kc.PublicKeys) {
			return NewSemanticError("signature index out of bounds")
		}
		counts[sig.Index()]++
		if counts[sig.Index()] > 1 {
			return NewSemanticError("duplicate signature index")
		}
	}
	for _, sig := range sigs {
		pub := kc.PublicKeys[sig.Index()]
		ok, err := derivation.Verify(pub, message, sig.Signature())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSignatureVerification, err)
		}
		if !ok {
			return ErrSignatureVerification
		}
	}
	return nil
}

// Commit computes the pre-rotation commitment digest over this key
// configuration's threshold and public keys, using digest family code.
func (kc KeyConfig) Commit(code derivation.Code) (derivation.SelfAddressingPrefix, error) {
	return Commit(kc.Threshold, kc.PublicKeys, code)
}

// VerifyNext reports whether next matches the commitment this key
// configuration recorded. A nil NextCommitment means the identifier was
// abandoned at this key configuration: no rotation is ever valid again.
func (kc KeyConfig) VerifyNext(next KeyConfig) (bool, error) {
	if kc.NextCommitment == nil {
		return false, nil
	}
	return VerifyNext(*kc.NextCommitment, next.Threshold, next.PublicKeys)
}

// Attainable reports whether this key configuration's threshold can ever
// be satisfied by its own key list.
func (kc KeyConfig) Attainable() bool {
	return kc.Threshold.Attainable(len(kc.PublicKeys))
}
