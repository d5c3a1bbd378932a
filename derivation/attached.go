package derivation

import (
	"fmt"
)

// AttachedSignatureCode tags an indexed signature: a signature attached to
// an event message alongside the ordinal position, within the controlling
// key list, of the key that produced it. Indexed signatures let a verifier
// match each signature to a specific key without trying every key in turn.
type AttachedSignatureCode string

// Small-index codes: one tag character plus one base64 character of index,
// covering index values 0-63. Used whenever the signing key's ordinal
// index fits in six bits.
const (
	AttachedEd25519Sha512Small        AttachedSignatureCode = "A"
	AttachedECDSAsecp256k1Sha256Small AttachedSignatureCode = "B"
)

// Big-index codes: a two-character tag plus two base64 characters of
// index, covering index values 0-4095. Used once the index no longer
// fits in the small-code's six bits, or for algorithms (like Ed448) whose
// signature material the small-code table does not carry.
const (
	AttachedEd25519Sha512Big        AttachedSignatureCode = "2A"
	AttachedECDSAsecp256k1Sha256Big AttachedSignatureCode = "2B"
	AttachedEd448Big                AttachedSignatureCode = "2C"
)

type attachedInfo struct {
	sigCode   Code
	indexB64  int // number of base64 characters spent on the index
	tagLen    int
}

var attachedTable = map[AttachedSignatureCode]attachedInfo{
	AttachedEd25519Sha512Small:        {sigCode: Ed25519Sha512, indexB64: 1, tagLen: 1},
	AttachedECDSAsecp256k1Sha256Small: {sigCode: ECDSAsecp256k1Sha256, indexB64: 1, tagLen: 1},
	AttachedEd25519Sha512Big:          {sigCode: Ed25519Sha512, indexB64: 2, tagLen: 2},
	AttachedECDSAsecp256k1Sha256Big:   {sigCode: ECDSAsecp256k1Sha256, indexB64: 2, tagLen: 2},
	AttachedEd448Big:                  {sigCode: Ed448Sig, indexB64: 2, tagLen: 2},
}

const smallIndexMax = 1<<6 - 1   // 63, one b64 digit
const bigIndexMax = 1<<12 - 1    // 4095, two b64 digits

// b64Alphabet is the ordered KERI index alphabet: A-Z a-z 0-9 - _, matching
// standard base64url digit values 0-63.
const b64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// NumToB64 encodes num as a fixed-width string of width base64 digits,
// most significant digit first — the encoding KERI uses for counter and
// index fields throughout its attachment framing.
func NumToB64(num, width int) (string, error) { return numToB64(num, width) }

// B64ToNum decodes a fixed-width base64 digit string back to its integer
// value.
func B64ToNum(s string) (int, error) { return b64ToNum(s) }

// numToB64 encodes num as a fixed-width string of width b64 digits, most
// significant digit first.
func numToB64(num, width int) (string, error) {
	if num < 0 {
		return "", fmt.Errorf("%w: negative index %d", ErrBadPrefix, num)
	}
	out := make([]byte, width)
	n := num
	for i := width - 1; i >= 0; i-- {
		out[i] = b64Alphabet[n&0x3f]
		n >>= 6
	}
	if n != 0 {
		return "", fmt.Errorf("%w: index %d does not fit in %d base64 digits", ErrBadPrefix, num, width)
	}
	return string(out), nil
}

// b64ToNum decodes a fixed-width base64 index string back to its integer value.
func b64ToNum(s string) (int, error) {
	var n int
	for i := 0; i < len(s); i++ {
		v, err := b64Digit(s[i])
		if err != nil {
			return 0, err
		}
		n = n<<6 | v
	}
	return n, nil
}

func b64Digit(c byte) (int, error) {
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A'), nil
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 26, nil
	case c >= '0' && c <= '9':
		return int(c-'0') + 52, nil
	case c == '-':
		return 62, nil
	case c == '_':
		return 63, nil
	default:
		return 0, fmt.Errorf("%w: not a base64 index digit: %q", ErrBadPrefix, c)
	}
}

// AttachedSignature pairs a signature's raw bytes with the ordinal index,
// within the controlling key list, of the key that produced it.
type AttachedSignature struct {
	code  AttachedSignatureCode
	index int
	sig   []byte
}

// codeForIndex picks the smallest code able to carry sigCode's signature
// at the given index.
func codeForIndex(sigCode Code, index int) (AttachedSignatureCode, error) {
	if index < 0 {
		return "", fmt.Errorf("%w: negative index %d", ErrBadPrefix, index)
	}
	if index <= smallIndexMax {
		switch sigCode {
		case Ed25519Sha512:
			return AttachedEd25519Sha512Small, nil
		case ECDSAsecp256k1Sha256:
			return AttachedECDSAsecp256k1Sha256Small, nil
		}
	}
	if index <= bigIndexMax {
		switch sigCode {
		case Ed25519Sha512:
			return AttachedEd25519Sha512Big, nil
		case ECDSAsecp256k1Sha256:
			return AttachedECDSAsecp256k1Sha256Big, nil
		case Ed448Sig:
			return AttachedEd448Big, nil
		}
	}
	return "", fmt.Errorf("%w: no attached code for %q at index %d", ErrUnsupportedBackend, sigCode, index)
}

// NewAttachedSignature builds an indexed signature, choosing the smallest
// code able to carry both the algorithm and the index.
func NewAttachedSignature(sigCode Code, index int, sig []byte) (AttachedSignature, error) {
	n, ok := RawLen(sigCode)
	if !ok || !IsSelfSigning(sigCode) {
		return AttachedSignature{}, fmt.Errorf("%w: %q is not a self-signing code", ErrUnknownCode, sigCode)
	}
	if len(sig) != n {
		return AttachedSignature{}, fmt.Errorf("%w: code %q wants %d bytes, got %d", ErrRawLength, sigCode, n, len(sig))
	}
	code, err := codeForIndex(sigCode, index)
	if err != nil {
		return AttachedSignature{}, err
	}
	return AttachedSignature{code: code, index: index, sig: sig}, nil
}

func (a AttachedSignature) Code() AttachedSignatureCode { return a.code }
func (a AttachedSignature) Index() int                  { return a.index }
func (a AttachedSignature) Signature() []byte           { return a.sig }
func (a AttachedSignature) SignatureCode() Code         { return attachedTable[a.code].sigCode }

// String renders the qualified text form: tag, then base64 index, then
// base64 signature body.
func (a AttachedSignature) String() string {
	info := attachedTable[a.code]
	idx, _ := numToB64(a.index, info.indexB64)
	return string(a.code) + idx + b64Encoding.EncodeToString(a.sig)
}

// ParseAttachedSignature decodes a single indexed signature from the front
// of text, returning the signature and the number of bytes it consumed.
func ParseAttachedSignature(text string) (AttachedSignature, int, error) {
	var matched AttachedSignatureCode
	for code := range attachedTable {
		if len(text) >= len(code) && text[:len(code)] == string(code) {
			if len(matched) == 0 || len(code) > len(matched) {
				matched = code
			}
		}
	}
	if matched == "" {
		return AttachedSignature{}, 0, fmt.Errorf("%w: no attached signature code prefixes %q", ErrBadPrefix, text)
	}
	info := attachedTable[matched]
	rest := text[len(matched):]
	if len(rest) < info.indexB64 {
		return AttachedSignature{}, 0, fmt.Errorf("%w: truncated index for code %q", ErrBadPrefix, matched)
	}
	index, err := b64ToNum(rest[:info.indexB64])
	if err != nil {
		return AttachedSignature{}, 0, err
	}
	sigRawLen, _ := RawLen(info.sigCode)
	sigText := rest[info.indexB64:]
	sigTextLen := b64Len(sigRawLen)
	if len(sigText) < sigTextLen {
		return AttachedSignature{}, 0, fmt.Errorf("%w: truncated signature body for code %q", ErrBadPrefix, matched)
	}
	raw, err := b64Encoding.DecodeString(sigText[:sigTextLen])
	if err != nil {
		return AttachedSignature{}, 0, fmt.Errorf("%w: %v", ErrBadPrefix, err)
	}
	consumed := len(matched) + info.indexB64 + sigTextLen
	return AttachedSignature{code: matched, index: index, sig: raw}, consumed, nil
}
