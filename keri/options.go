package keri

import (
	"go.uber.org/zap"

	"github.com/trustedlog/keri-core/derivation"
	"github.com/trustedlog/keri-core/serialization"
)

// Options tunes the processor: which digest family it digests stored
// events under, which serialization family it re-encodes transferable
// receipts with, and where structured log entries go.
type Options struct {
	// DigestCode is the derivation code used whenever this processor
	// digests a stored event itself (event and establishment digests,
	// delegation seal checks, validator seal lookups). A self-addressing
	// inception's binding check uses its prefix's own code instead.
	// Defaults to Blake3_256.
	DigestCode derivation.Code

	// WireKind is the serialization family a transferable receipt is
	// re-encoded under before its signatures are verified. Defaults to
	// JSON, the sole family used for digests throughout this
	// implementation (see DESIGN.md's resolution of the MessagePack-parity
	// open question).
	WireKind serialization.Kind

	// Log receives structured entries when an event is accepted or
	// escrowed; rejections and applied receipts are not logged. A nil Log
	// discards all entries.
	Log *zap.Logger
}

// DefaultOptions returns the processor's default tuning.
func DefaultOptions() Options {
	return Options{
		DigestCode: derivation.Blake3_256,
		WireKind:   serialization.JSON,
		Log:        zap.NewNop(),
	}
}

func (o Options) logger() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log
}
