package keri

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/trustedlog/keri-core/derivation"
	"github.com/trustedlog/keri-core/serialization"
)

// Processor orchestrates validation, signature verification, KEL append,
// escrow, and receipt application. It is the sole impure coordinator in
// this package; everything it calls into (the reducer, the threshold
// engine) is pure. Concurrency discipline follows §5: a single-writer,
// multi-reader lock guards the store view. Process* methods take the
// writer; ComputeState and its derivatives take a reader.
type Processor struct {
	store EventStore
	opts  Options
	mu    sync.RWMutex
}

// NewProcessor builds a Processor over store, tuned by opts.
func NewProcessor(store EventStore, opts Options) *Processor {
	return &Processor{store: store, opts: opts}
}

// ProcessEvent validates and, on success, durably appends se to prefix's
// KEL, returning the identifier's new state.
func (p *Processor) ProcessEvent(ctx context.Context, se SignedEvent) (IdentifierState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processEventLocked(ctx, se)
}

func (p *Processor) processEventLocked(ctx context.Context, se SignedEvent) (IdentifierState, error) {
	log := p.opts.logger()
	prefix := se.Event.EventPrefix()
	se = p.mergePartialSignatures(ctx, prefix, se)

	candidate, err := p.computeStateLocked(ctx, prefix)
	if err != nil {
		return IdentifierState{}, err
	}

	if delegator, ok := delegatorOf(se.Event, candidate); ok {
		if se.Source == nil {
			return IdentifierState{}, NewSemanticError("delegated event carries no source seal")
		}
		if err := ValidateSeal(ctx, p.store, delegator, *se.Source, se, p.opts.DigestCode); err != nil {
			if errors.Is(err, ErrEventOutOfOrder) {
				p.escrow(ctx, EscrowOutOfOrder, prefix, se)
				log.Info("event escrowed: delegator anchor not yet seen", zap.String("prefix", prefix.String()))
			}
			return IdentifierState{}, err
		}
	}

	next, err := Apply(candidate, se.Event)
	if err != nil && errors.Is(err, ErrEventOutOfOrder) {
		if recovered, recoveredNext, ok := p.tryRecoveryRotation(ctx, prefix, se, candidate); ok {
			candidate, next, err = recovered, recoveredNext, nil
		}
	}
	if err != nil {
		if bucket, ok := ClassifyAcceptanceFailure(err); ok {
			p.escrow(ctx, bucket, prefix, se)
			log.Info("event escrowed", zap.String("prefix", prefix.String()), zap.String("bucket", string(bucket)))
		}
		return IdentifierState{}, err
	}

	if err := p.store.AppendKEL(ctx, prefix, se); err != nil {
		if errors.Is(err, ErrEventDuplicate) {
			p.escrow(ctx, EscrowLikelyDuplicitous, prefix, se)
			log.Info("event escrowed: duplicate at sn", zap.String("prefix", prefix.String()), zap.Uint64("sn", se.Event.EventSN()))
			return IdentifierState{}, err
		}
		return IdentifierState{}, NewStoreError("AppendKEL", err)
	}

	if err := next.Current.Verify(se.Raw, se.Signatures); err != nil {
		_ = p.store.RemoveKEL(ctx, prefix, se)
		if errors.Is(err, ErrNotEnoughSignatures) {
			p.escrow(ctx, EscrowPartiallySigned, prefix, se)
			log.Info("event escrowed: not enough signatures", zap.String("prefix", prefix.String()))
		}
		return IdentifierState{}, err
	}

	eventDigest, err := derivation.DeriveDigest(p.opts.DigestCode, se.Raw)
	if err != nil {
		_ = p.store.RemoveKEL(ctx, prefix, se)
		return IdentifierState{}, err
	}
	next.LastEventDigest = eventDigest
	if isEstablishment(se.Event.EventType()) {
		next.LastEstablishment.Digest = eventDigest
	}

	log.Info("event accepted", zap.String("prefix", prefix.String()), zap.Uint64("sn", next.SN), zap.String("type", string(se.Event.EventType())))
	p.drainEscrows(ctx, prefix)
	return next, nil
}

// tryRecoveryRotation handles the one case a plain sequential fold cannot
// express directly: a recovery rot/drt that supersedes an interaction
// already recorded at the same sn (§3 KEL invariant, §9 "Superseding
// recovery"). head is the normal current-head state, already past sn —
// which is exactly why Apply(head, se.Event) reported ErrEventOutOfOrder
// for an event whose sn isn't a gap but a re-use. This re-folds the KEL up
// to (not including) that sn and retries Apply from there; if the event
// doesn't target an ixn-occupied sn, or isn't itself a rotation, it
// reports !ok and the original ErrEventOutOfOrder stands.
func (p *Processor) tryRecoveryRotation(ctx context.Context, prefix IdentifierPrefix, se SignedEvent, head IdentifierState) (IdentifierState, IdentifierState, bool) {
	t := se.Event.EventType()
	if t != ROT && t != DRT {
		return IdentifierState{}, IdentifierState{}, false
	}
	sn := se.Event.EventSN()
	if sn == 0 || sn > head.SN {
		return IdentifierState{}, IdentifierState{}, false
	}

	events, err := p.store.IterKEL(ctx, prefix)
	if err != nil {
		return IdentifierState{}, IdentifierState{}, false
	}
	occupiedByIXN := false
	for _, e := range events {
		if e.Event.EventSN() == sn {
			occupiedByIXN = e.Event.EventType() == IXN
			break
		}
	}
	if !occupiedByIXN {
		return IdentifierState{}, IdentifierState{}, false
	}

	prior := IdentifierState{Prefix: prefix}
	for _, e := range events {
		if e.Event.EventSN() >= sn {
			break
		}
		n, aerr := Apply(prior, e.Event)
		if aerr != nil {
			if _, escrowable := ClassifyAcceptanceFailure(aerr); escrowable {
				continue
			}
			return IdentifierState{}, IdentifierState{}, false
		}
		digest, derr := derivation.DeriveDigest(p.opts.DigestCode, e.Raw)
		if derr != nil {
			return IdentifierState{}, IdentifierState{}, false
		}
		n.LastEventDigest = digest
		if isEstablishment(e.Event.EventType()) {
			n.LastEstablishment.Digest = digest
		}
		prior = n
	}

	next, aerr := Apply(prior, se.Event)
	if aerr != nil {
		return IdentifierState{}, IdentifierState{}, false
	}
	return prior, next, true
}

// mergePartialSignatures folds any signatures already escrowed as
// partially-signed for this exact (prefix, sn, type) into se, so a
// signature arriving on its own over an already-escrowed event
// contributes toward the threshold instead of replacing it. Escrowed
// items for other events at this prefix are put back unchanged.
func (p *Processor) mergePartialSignatures(ctx context.Context, prefix IdentifierPrefix, se SignedEvent) SignedEvent {
	items, err := p.store.DrainEscrow(ctx, EscrowPartiallySigned, prefix)
	if err != nil || len(items) == 0 {
		return se
	}
	seen := make(map[int]bool, len(se.Signatures))
	for _, s := range se.Signatures {
		seen[s.Index()] = true
	}
	for _, item := range items {
		other, ok := item.(SignedEvent)
		if !ok || other.Event.EventSN() != se.Event.EventSN() || other.Event.EventType() != se.Event.EventType() {
			if ok {
				p.escrow(ctx, EscrowPartiallySigned, prefix, other)
			}
			continue
		}
		for _, s := range other.Signatures {
			if !seen[s.Index()] {
				seen[s.Index()] = true
				se.Signatures = append(se.Signatures, s)
			}
		}
	}
	return se
}

func isEstablishment(t EventType) bool {
	switch t {
	case ICP, ROT, DIP, DRT:
		return true
	default:
		return false
	}
}

// delegatorOf reports the delegator an event must be anchored under, if
// any. An inception names its delegator directly; a delegated rotation
// does not repeat it, so it is read off the prior state instead.
func delegatorOf(e Event, priorState IdentifierState) (IdentifierPrefix, bool) {
	switch v := e.(type) {
	case *DelegatedInception:
		return v.Delegator, true
	case *DelegatedRotation:
		if priorState.Delegator != nil {
			return *priorState.Delegator, true
		}
		return IdentifierPrefix{}, false
	default:
		return IdentifierPrefix{}, false
	}
}

func (p *Processor) escrow(ctx context.Context, bucket EscrowBucket, prefix IdentifierPrefix, se SignedEvent) {
	_ = p.store.Escrow(ctx, bucket, prefix, se)
}

// drainEscrows re-examines out_of_order and partially_signed items for
// prefix now that a new event has arrived, per §4.8. Draining is a hint:
// it simply retries the full pipeline, so an item that is no longer
// admissible fails again silently.
func (p *Processor) drainEscrows(ctx context.Context, prefix IdentifierPrefix) {
	for _, bucket := range []EscrowBucket{EscrowOutOfOrder, EscrowPartiallySigned} {
		items, err := p.store.DrainEscrow(ctx, bucket, prefix)
		if err != nil {
			continue
		}
		for _, item := range items {
			se, ok := item.(SignedEvent)
			if !ok {
				continue
			}
			_, _ = p.processEventLocked(ctx, se)
		}
	}
}

// ConfirmDuplicity promotes every item currently held in prefix's
// likely_duplicitous escrow to the permanent duplicitous bucket, per
// §4.8's "Manual resolution / external dispute signal" trigger for a
// confirmed fork. Unlike drainEscrows, this never re-runs acceptance:
// once an operator (or an external dispute feed) confirms a conflicting
// event is a genuine fork rather than a transient collision, that
// classification is final and the item must never again be retried as
// ordinary pending material.
func (p *Processor) ConfirmDuplicity(ctx context.Context, prefix IdentifierPrefix) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	items, err := p.store.DrainEscrow(ctx, EscrowLikelyDuplicitous, prefix)
	if err != nil {
		return NewStoreError("DrainEscrow", err)
	}
	for _, item := range items {
		if err := p.store.Escrow(ctx, EscrowDuplicitous, prefix, item); err != nil {
			return NewStoreError("Escrow", err)
		}
	}
	return nil
}

// ProcessValidatorReceipt handles a transferable receipt: if the
// receipted event is not yet known, it is escrowed; otherwise its
// signatures are verified against the validator's key configuration at
// the seal's (sn, digest), which must itself reference one of the
// validator's own establishment events.
func (p *Processor) ProcessValidatorReceipt(ctx context.Context, r TransferableReceipt, sigs []derivation.AttachedSignature) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	receipted, err := p.findEvent(ctx, r.ReceiptedPrefix, uint64(r.ReceiptedSN))
	if err != nil {
		return err
	}
	if receipted == nil {
		_ = p.store.Escrow(ctx, EscrowReceiptT, r.ReceiptedPrefix, r)
		return ErrEventOutOfOrder
	}

	validatorKeys, err := p.getKeysAtEvent(ctx, r.ValidatorSeal.Prefix, r.ValidatorSeal.SN, r.ValidatorSeal.Digest)
	if err != nil {
		return err
	}
	encoded, err := serialization.Serialize(p.opts.WireKind, &r)
	if err != nil {
		return err
	}
	if err := validatorKeys.Verify(encoded, sigs); err != nil {
		return err
	}
	return p.store.AddReceiptT(ctx, r.ReceiptedPrefix, uint64(r.ReceiptedSN), r, sigs)
}

// ProcessWitnessReceipt handles a non-transferable receipt: the witness's
// signature over the receipted event's serialized bytes must verify
// under the witness's own basic prefix.
func (p *Processor) ProcessWitnessReceipt(ctx context.Context, r NonTransferableReceipt, couplet WitnessCouplet) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	receipted, err := p.findEvent(ctx, r.ReceiptedPrefix, uint64(r.ReceiptedSN))
	if err != nil {
		return err
	}
	if receipted == nil {
		_ = p.store.Escrow(ctx, EscrowReceiptNT, r.ReceiptedPrefix, r)
		return ErrEventOutOfOrder
	}
	ok, err := derivation.Verify(couplet.Witness, receipted.Raw, couplet.Signature.Raw())
	if err != nil {
		return err
	}
	if !ok {
		return ErrSignatureVerification
	}
	return p.store.AddReceiptNT(ctx, r.ReceiptedPrefix, uint64(r.ReceiptedSN), r, couplet)
}

func (p *Processor) findEvent(ctx context.Context, prefix IdentifierPrefix, sn uint64) (*SignedEvent, error) {
	events, err := p.store.IterKEL(ctx, prefix)
	if err != nil {
		return nil, NewStoreError("IterKEL", err)
	}
	for i := range events {
		if events[i].Event.EventSN() == sn {
			e := events[i]
			return &e, nil
		}
	}
	return nil, nil
}

// getKeysAtEvent returns the key configuration in effect at the
// establishment event (prefix, sn) whose digest equals digest, the
// EventSeal contract §4.7 and §4.6 require for validator receipt
// verification.
func (p *Processor) getKeysAtEvent(ctx context.Context, prefix IdentifierPrefix, sn uint64, digest derivation.SelfAddressingPrefix) (KeyConfig, error) {
	state, err := p.computeStateAtSNLocked(ctx, prefix, sn)
	if err != nil {
		return KeyConfig{}, err
	}
	if !isEstablishment(state.LastEventType) {
		return KeyConfig{}, NewSemanticError("validator seal does not reference an establishment event")
	}
	if state.LastEventDigest.String() != digest.String() {
		return KeyConfig{}, NewSemanticError("validator seal digest does not match the referenced event")
	}
	return state.Current, nil
}

// HasReceipt reports whether a transferable receipt at sn exists whose
// validator seal's prefix equals validator.
func (p *Processor) HasReceipt(ctx context.Context, prefix IdentifierPrefix, sn uint64, validator IdentifierPrefix) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	receipts, err := p.store.IterReceiptsT(ctx, prefix, sn)
	if err != nil {
		return false, NewStoreError("IterReceiptsT", err)
	}
	for _, r := range receipts {
		if r.ValidatorSeal.Prefix.Equal(validator) {
			return true, nil
		}
	}
	return false, nil
}

// ComputeState folds prefix's stored KEL from scratch using the reducer.
// Out-of-order and partially-signed events encountered are skipped (they
// belong in escrow, not the authoritative KEL); any other error aborts
// the fold and returns the partial state accumulated up to that point.
func (p *Processor) ComputeState(ctx context.Context, prefix IdentifierPrefix) (IdentifierState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.computeStateLocked(ctx, prefix)
}

func (p *Processor) computeStateLocked(ctx context.Context, prefix IdentifierPrefix) (IdentifierState, error) {
	events, err := p.store.IterKEL(ctx, prefix)
	if err != nil {
		return IdentifierState{}, NewStoreError("IterKEL", err)
	}
	state := IdentifierState{Prefix: prefix}
	for _, se := range events {
		next, err := Apply(state, se.Event)
		if err != nil {
			if _, escrowable := ClassifyAcceptanceFailure(err); escrowable {
				continue
			}
			return state, err
		}
		digest, derr := derivation.DeriveDigest(p.opts.DigestCode, se.Raw)
		if derr != nil {
			return state, derr
		}
		next.LastEventDigest = digest
		if isEstablishment(se.Event.EventType()) {
			next.LastEstablishment.Digest = digest
		}
		state = next
	}
	if state.Established {
		state.Delegates = p.findDelegates(ctx, events)
	}
	return state, nil
}

// findDelegates derives IdentifierState.Delegates by checking every
// EventSeal this identifier has anchored in its own events against the
// named prefix's own KEL: an anchor that matches an actually-accepted
// dip/drt there confirms this identifier is that prefix's delegator. This
// keeps Delegates a pure function of store content (so repeated
// computeStateLocked calls on an unchanged store agree, per the replay
// determinism invariant) rather than bookkeeping kept only in memory.
func (p *Processor) findDelegates(ctx context.Context, events []SignedEvent) []IdentifierPrefix {
	seen := make(map[string]bool)
	var delegates []IdentifierPrefix
	for _, se := range events {
		for _, seal := range anchorsOf(se.Event) {
			es, ok := seal.(EventSeal)
			if !ok || seen[es.Prefix.String()] {
				continue
			}
			target, err := p.store.IterKEL(ctx, es.Prefix)
			if err != nil {
				continue
			}
			for _, te := range target {
				if te.Event.EventSN() != es.SN {
					continue
				}
				t := te.Event.EventType()
				if t != DIP && t != DRT {
					break
				}
				digest, derr := derivation.DeriveDigest(p.opts.DigestCode, te.Raw)
				if derr != nil || digest.String() != es.Digest.String() {
					break
				}
				seen[es.Prefix.String()] = true
				delegates = append(delegates, es.Prefix)
				break
			}
		}
	}
	return delegates
}

// ComputeStateAtSN is ComputeState stopped after the event whose sn
// equals target.
func (p *Processor) ComputeStateAtSN(ctx context.Context, prefix IdentifierPrefix, target uint64) (IdentifierState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.computeStateAtSNLocked(ctx, prefix, target)
}

func (p *Processor) computeStateAtSNLocked(ctx context.Context, prefix IdentifierPrefix, target uint64) (IdentifierState, error) {
	events, err := p.store.IterKEL(ctx, prefix)
	if err != nil {
		return IdentifierState{}, NewStoreError("IterKEL", err)
	}
	state := IdentifierState{Prefix: prefix}
	for _, se := range events {
		next, err := Apply(state, se.Event)
		if err != nil {
			if _, escrowable := ClassifyAcceptanceFailure(err); escrowable {
				continue
			}
			return state, err
		}
		digest, derr := derivation.DeriveDigest(p.opts.DigestCode, se.Raw)
		if derr != nil {
			return state, derr
		}
		next.LastEventDigest = digest
		if isEstablishment(se.Event.EventType()) {
			next.LastEstablishment.Digest = digest
		}
		state = next
		if se.Event.EventSN() == target {
			break
		}
	}
	return state, nil
}

// GetLastEstablishmentEventSeal linearly scans prefix's KEL and returns
// the most recent icp/rot/dip/drt as an event seal.
func (p *Processor) GetLastEstablishmentEventSeal(ctx context.Context, prefix IdentifierPrefix) (EventSeal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	events, err := p.store.IterKEL(ctx, prefix)
	if err != nil {
		return EventSeal{}, NewStoreError("IterKEL", err)
	}
	var last *SignedEvent
	for i := range events {
		if isEstablishment(events[i].Event.EventType()) {
			e := events[i]
			last = &e
		}
	}
	if last == nil {
		return EventSeal{}, NewSemanticError("no establishment event found")
	}
	digest, err := derivation.DeriveDigest(p.opts.DigestCode, last.Raw)
	if err != nil {
		return EventSeal{}, err
	}
	return EventSeal{Prefix: prefix, SN: last.Event.EventSN(), Digest: digest}, nil
}
