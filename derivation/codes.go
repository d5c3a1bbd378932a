package derivation

// Code is a KERI derivation code: a short ASCII tag naming the algorithm and
// material length of whatever follows it in a qualified prefix.
type Code string

// Basic (public key) codes. Tag lengths and raw lengths are fixed per code,
// per the table in the original keriox derivation module.
const (
	Ed25519NT        Code = "B"    // Ed25519 non-transferable verification key
	X25519           Code = "C"    // X25519 encryption key
	Ed25519          Code = "D"    // Ed25519 transferable verification key
	X448             Code = "L"    // X448 encryption key
	ECDSAsecp256k1NT Code = "1AAA" // secp256k1 non-transferable verification key
	ECDSAsecp256k1   Code = "1AAB" // secp256k1 transferable verification key
	Ed448NT          Code = "1AAC" // Ed448 non-transferable verification key
	Ed448            Code = "1AAD" // Ed448 transferable verification key
)

// Self-addressing (digest) codes.
const (
	Blake3_256 Code = "E"  // nolint:revive
	Blake2b256 Code = "F"
	Blake2s256 Code = "G"
	SHA3_256   Code = "H" // nolint:revive
	SHA2_256   Code = "I" // nolint:revive
	Blake3_512 Code = "0D" // nolint:revive
	SHA3_512   Code = "0E" // nolint:revive
	Blake2b512 Code = "0F"
	SHA2_512   Code = "0G" // nolint:revive
)

// Self-signing (non-indexed signature) codes.
const (
	Ed25519Sha512         Code = "0B"
	ECDSAsecp256k1Sha256  Code = "0C"
	Ed448Sig              Code = "1AAE"
)

// codeInfo describes the fixed shape of material under a derivation code.
type codeInfo struct {
	rawLen int // fixed length of the raw (undecoded) material, in bytes
}

var codeTable = map[Code]codeInfo{
	Ed25519NT:        {rawLen: 32},
	X25519:           {rawLen: 32},
	Ed25519:          {rawLen: 32},
	X448:             {rawLen: 56},
	ECDSAsecp256k1NT: {rawLen: 33},
	ECDSAsecp256k1:   {rawLen: 33},
	Ed448NT:          {rawLen: 57},
	Ed448:            {rawLen: 57},

	Blake3_256: {rawLen: 32},
	Blake2b256: {rawLen: 32},
	Blake2s256: {rawLen: 32},
	SHA3_256:   {rawLen: 32},
	SHA2_256:   {rawLen: 32},
	Blake3_512: {rawLen: 64},
	SHA3_512:   {rawLen: 64},
	Blake2b512: {rawLen: 64},
	SHA2_512:   {rawLen: 64},

	Ed25519Sha512:        {rawLen: 64},
	ECDSAsecp256k1Sha256: {rawLen: 64},
	Ed448Sig:             {rawLen: 114},
}

// RawLen returns the fixed raw-material byte length for code, and whether
// code is recognised.
func RawLen(code Code) (int, bool) {
	info, ok := codeTable[code]
	return info.rawLen, ok
}

// b64Len returns ceil(4*n/3), the length of the unpadded base64url encoding
// of n raw bytes.
func b64Len(n int) int {
	return (n*4 + 2) / 3
}

// TextLen returns the total length of a qualified prefix's text form for
// code: the tag plus the base64 body.
func TextLen(code Code) (int, bool) {
	info, ok := codeTable[code]
	if !ok {
		return 0, false
	}
	return len(code) + b64Len(info.rawLen), true
}

// IsBasic reports whether code names a public-key (Basic) derivation.
func IsBasic(code Code) bool {
	switch code {
	case Ed25519NT, X25519, Ed25519, X448, ECDSAsecp256k1NT, ECDSAsecp256k1, Ed448NT, Ed448:
		return true
	default:
		return false
	}
}

// IsSelfAddressing reports whether code names a digest (SelfAddressing) derivation.
func IsSelfAddressing(code Code) bool {
	switch code {
	case Blake3_256, Blake2b256, Blake2s256, SHA3_256, SHA2_256, Blake3_512, SHA3_512, Blake2b512, SHA2_512:
		return true
	default:
		return false
	}
}

// IsSelfSigning reports whether code names a signature (SelfSigning) derivation.
func IsSelfSigning(code Code) bool {
	switch code {
	case Ed25519Sha512, ECDSAsecp256k1Sha256, Ed448Sig:
		return true
	default:
		return false
	}
}
