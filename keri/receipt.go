package keri

import "github.com/trustedlog/keri-core/derivation"

// NonTransferableReceipt is a witness's commitment that it saw a specific
// event digest. It carries no key-rotation history of its own: the
// witness is identified directly by a basic (non-transferable) prefix,
// and verification is a single signature check under that prefix.
type NonTransferableReceipt struct {
	versionHeader
	Type            EventType                       `json:"t" cbor:"t" codec:"t"`
	ReceiptedPrefix IdentifierPrefix                `json:"i" cbor:"i" codec:"i"`
	ReceiptedSN     SN                              `json:"s" cbor:"s" codec:"s"`
	ReceiptedDigest derivation.SelfAddressingPrefix `json:"d" cbor:"d" codec:"d"`
}

// WitnessCouplet pairs a witness's basic prefix with its signature over
// the receipted event's serialized bytes.
type WitnessCouplet struct {
	Witness   derivation.BasicPrefix
	Signature derivation.SelfSigningPrefix
}

// TransferableReceipt is a validator's (a full KERI identifier's)
// commitment to an event digest, additionally anchored to the validator's
// own most recent establishment event via an EventSeal, so a verifier
// knows which of the validator's key configurations to check signatures
// against.
type TransferableReceipt struct {
	versionHeader
	Type            EventType                       `json:"t" cbor:"t" codec:"t"`
	ReceiptedPrefix IdentifierPrefix                `json:"i" cbor:"i" codec:"i"`
	ReceiptedSN     SN                              `json:"s" cbor:"s" codec:"s"`
	ReceiptedDigest derivation.SelfAddressingPrefix `json:"d" cbor:"d" codec:"d"`
	ValidatorSeal   EventSeal                       `json:"seal" cbor:"seal" codec:"seal"`
}

func (r *NonTransferableReceipt) EventPrefix() IdentifierPrefix { return r.ReceiptedPrefix }
func (r *NonTransferableReceipt) EventSN() uint64               { return uint64(r.ReceiptedSN) }
func (r *NonTransferableReceipt) EventType() EventType          { return RCT }

func (r *TransferableReceipt) EventPrefix() IdentifierPrefix { return r.ReceiptedPrefix }
func (r *TransferableReceipt) EventSN() uint64               { return uint64(r.ReceiptedSN) }
func (r *TransferableReceipt) EventType() EventType          { return RCT }
