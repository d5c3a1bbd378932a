package keri

import (
	"context"

	"github.com/trustedlog/keri-core/derivation"
)

// SignedEvent pairs a parsed Event with the attached indexed signatures
// that accompanied it on the wire, and (for a delegated event) the source
// seal anchoring it in its delegator's log.
type SignedEvent struct {
	Event      Event
	Signatures []derivation.AttachedSignature
	Source     *SourceSeal
	Raw        []byte // canonical serialized bytes, as received
}

// EscrowBucket names one of the advisory holding pens §4.8 defines.
// Escrows are hints, not authoritative storage: draining re-runs the full
// event pipeline, so a stale entry simply fails acceptance again.
type EscrowBucket string

const (
	EscrowOutOfOrder        EscrowBucket = "out_of_order"
	EscrowPartiallySigned   EscrowBucket = "partially_signed"
	EscrowLikelyDuplicitous EscrowBucket = "likely_duplicitous"
	EscrowDuplicitous       EscrowBucket = "duplicitous"
	EscrowReceiptT          EscrowBucket = "receipt_escrow_t"
	EscrowReceiptNT         EscrowBucket = "receipt_escrow_nt"
)

// EventStore is every operation the processor needs from persistence. No
// particular backend is assumed; every method is context.Context-first so
// a caller can bound I/O with cancellation or deadlines, matching the
// store-interface convention the rest of this codebase follows.
type EventStore interface {
	KELStore
	ReceiptStore
	EscrowStore
}

// KELStore holds each identifier's key event log.
type KELStore interface {
	// AppendKEL appends se to prefix's log. Implementations must make the
	// append visible to subsequent IterKEL calls atomically on return.
	AppendKEL(ctx context.Context, prefix IdentifierPrefix, se SignedEvent) error
	// RemoveKEL removes a tentatively-appended event, used when signature
	// verification fails after a tentative append (§4.6 step 4).
	RemoveKEL(ctx context.Context, prefix IdentifierPrefix, se SignedEvent) error
	// IterKEL returns prefix's events sorted by sn, one event per sn: a
	// rotation appended at the sn of a stored interaction supersedes it and
	// is returned in its place.
	IterKEL(ctx context.Context, prefix IdentifierPrefix) ([]SignedEvent, error)
}

// ReceiptStore holds receipts keyed by the event they receipt.
type ReceiptStore interface {
	AddReceiptT(ctx context.Context, prefix IdentifierPrefix, sn uint64, r TransferableReceipt, sigs []derivation.AttachedSignature) error
	IterReceiptsT(ctx context.Context, prefix IdentifierPrefix, sn uint64) ([]TransferableReceipt, error)
	AddReceiptNT(ctx context.Context, prefix IdentifierPrefix, sn uint64, r NonTransferableReceipt, couplet WitnessCouplet) error
	IterReceiptsNT(ctx context.Context, prefix IdentifierPrefix, sn uint64) ([]WitnessCouplet, error)
	RemoveReceiptsNT(ctx context.Context, prefix IdentifierPrefix, sn uint64) error
}

// EscrowStore holds advisory, non-authoritative pending items per bucket.
type EscrowStore interface {
	Escrow(ctx context.Context, bucket EscrowBucket, prefix IdentifierPrefix, item interface{}) error
	DrainEscrow(ctx context.Context, bucket EscrowBucket, prefix IdentifierPrefix) ([]interface{}, error)
}
