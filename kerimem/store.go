// Package kerimem is an in-memory keri.EventStore, used by tests and
// local development. It holds each identifier's KEL as a slice kept
// sorted by sequence number, one event per sn: a rotation appended at the
// sn of a stored interaction replaces it — mirroring the ordering
// KELStore.IterKEL documents.
package kerimem

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/trustedlog/keri-core/bloom"
	"github.com/trustedlog/keri-core/derivation"
	"github.com/trustedlog/keri-core/keri"
)

type kelKey string

func keyOf(prefix keri.IdentifierPrefix) kelKey { return kelKey(prefix.String()) }

// Store is a concurrency-safe, in-memory keri.EventStore.
type Store struct {
	mu sync.RWMutex

	kels       map[kelKey][]keri.SignedEvent
	receiptsT  map[kelKey]map[uint64][]receiptT
	receiptsNT map[kelKey]map[uint64][]keri.WitnessCouplet
	escrows    map[keri.EscrowBucket]map[kelKey][]interface{}

	// dedup holds a Bloom prefilter region per identifier, consulted
	// before the exact duplicate-sn scan in AppendKEL. It only ever
	// saves work: a "maybe" still falls through to the real scan, so a
	// stale bit left behind by a rolled-back RemoveKEL cannot cause an
	// incorrect ErrEventDuplicate.
	dedup map[kelKey][]byte

	// superseded holds, per identifier and sn, an interaction that a
	// recovery rotation bumped out of AppendKEL. RemoveKEL restores it if
	// the rotation that superseded it is itself rolled back (signature
	// verification failure after tentative append).
	superseded map[kelKey]map[uint64]keri.SignedEvent
}

type receiptT struct {
	r    keri.TransferableReceipt
	sigs []derivation.AttachedSignature
}

var _ keri.EventStore = (*Store)(nil)

// New builds an empty Store.
func New() *Store {
	return &Store{
		kels:       make(map[kelKey][]keri.SignedEvent),
		receiptsT:  make(map[kelKey]map[uint64][]receiptT),
		receiptsNT: make(map[kelKey]map[uint64][]keri.WitnessCouplet),
		escrows:    make(map[keri.EscrowBucket]map[kelKey][]interface{}),
		dedup:      make(map[kelKey][]byte),
		superseded: make(map[kelKey]map[uint64]keri.SignedEvent),
	}
}

// dedupFilterLeafCount/BPE/K size the per-identifier Bloom region: a KEL
// rarely grows past a few thousand events, and a bit-per-element budget
// of 8 keeps the false-positive rate low without the region becoming
// large enough to matter.
const (
	dedupFilterLeafCount  = 4096
	dedupFilterBPE        = 8
	dedupFilterK     uint8 = 4
)

func newDedupRegion() []byte {
	mBits := bloom.MBitsSafeCast(bloom.MBits(dedupFilterLeafCount, dedupFilterBPE))
	region := make([]byte, bloom.RegionBytes(mBits))
	_ = bloom.Init(region, dedupFilterLeafCount, dedupFilterBPE, dedupFilterK)
	return region
}

// snElement derives the 32-byte Bloom element bloom.Insert/MaybeContains
// require from a bare sequence number.
func snElement(sn uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sn)
	sum := sha256.Sum256(buf[:])
	return sum[:]
}

// supersedesAtSameSN reports whether an incoming event of type next may
// replace an already-stored event of type existing at the same sn: a
// recovery rotation (rot/drt) superseding an interaction recorded at that
// sn is the only sanctioned case (KEL invariant, §3 / §9 "Superseding
// recovery"). Anything else occupying an already-used sn is a conflict.
func supersedesAtSameSN(existing, next keri.EventType) bool {
	if existing != keri.IXN {
		return false
	}
	return next == keri.ROT || next == keri.DRT
}

func (s *Store) AppendKEL(ctx context.Context, prefix keri.IdentifierPrefix, se keri.SignedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyOf(prefix)

	region := s.dedup[k]
	if region == nil {
		region = newDedupRegion()
		s.dedup[k] = region
	}
	events := s.kels[k]
	elem := snElement(se.Event.EventSN())
	maybeSeen, err := bloom.MaybeContains(region, elem)
	if err != nil {
		return keri.NewStoreError("bloom.MaybeContains", err)
	}
	if maybeSeen {
		for i, e := range events {
			if e.Event.EventSN() != se.Event.EventSN() {
				continue
			}
			if !supersedesAtSameSN(e.Event.EventType(), se.Event.EventType()) {
				return keri.ErrEventDuplicate
			}
			if s.superseded[k] == nil {
				s.superseded[k] = make(map[uint64]keri.SignedEvent)
			}
			s.superseded[k][se.Event.EventSN()] = e
			events[i] = se
			s.kels[k] = events
			return nil
		}
	}
	if err := bloom.Insert(region, elem); err != nil {
		return keri.NewStoreError("bloom.Insert", err)
	}

	i := 0
	for ; i < len(events); i++ {
		if events[i].Event.EventSN() > se.Event.EventSN() {
			break
		}
	}
	events = append(events, keri.SignedEvent{})
	copy(events[i+1:], events[i:])
	events[i] = se
	s.kels[k] = events
	return nil
}

func (s *Store) RemoveKEL(ctx context.Context, prefix keri.IdentifierPrefix, se keri.SignedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyOf(prefix)
	events := s.kels[k]
	for i, e := range events {
		if e.Event.EventSN() == se.Event.EventSN() && e.Event.EventType() == se.Event.EventType() {
			if restored, ok := s.superseded[k][se.Event.EventSN()]; ok {
				events[i] = restored
				delete(s.superseded[k], se.Event.EventSN())
				s.kels[k] = events
				return nil
			}
			s.kels[k] = append(events[:i], events[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) IterKEL(ctx context.Context, prefix keri.IdentifierPrefix) ([]keri.SignedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.kels[keyOf(prefix)]
	out := make([]keri.SignedEvent, len(events))
	copy(out, events)
	return out, nil
}

func (s *Store) AddReceiptT(ctx context.Context, prefix keri.IdentifierPrefix, sn uint64, r keri.TransferableReceipt, sigs []derivation.AttachedSignature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyOf(prefix)
	if s.receiptsT[k] == nil {
		s.receiptsT[k] = make(map[uint64][]receiptT)
	}
	s.receiptsT[k][sn] = append(s.receiptsT[k][sn], receiptT{r: r, sigs: sigs})
	return nil
}

func (s *Store) IterReceiptsT(ctx context.Context, prefix keri.IdentifierPrefix, sn uint64) ([]keri.TransferableReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.receiptsT[keyOf(prefix)]
	out := make([]keri.TransferableReceipt, 0, len(bucket[sn]))
	for _, rt := range bucket[sn] {
		out = append(out, rt.r)
	}
	return out, nil
}

func (s *Store) AddReceiptNT(ctx context.Context, prefix keri.IdentifierPrefix, sn uint64, r keri.NonTransferableReceipt, couplet keri.WitnessCouplet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyOf(prefix)
	if s.receiptsNT[k] == nil {
		s.receiptsNT[k] = make(map[uint64][]keri.WitnessCouplet)
	}
	s.receiptsNT[k][sn] = append(s.receiptsNT[k][sn], couplet)
	return nil
}

func (s *Store) IterReceiptsNT(ctx context.Context, prefix keri.IdentifierPrefix, sn uint64) ([]keri.WitnessCouplet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]keri.WitnessCouplet, len(s.receiptsNT[keyOf(prefix)][sn]))
	copy(out, s.receiptsNT[keyOf(prefix)][sn])
	return out, nil
}

func (s *Store) RemoveReceiptsNT(ctx context.Context, prefix keri.IdentifierPrefix, sn uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyOf(prefix)
	if s.receiptsNT[k] != nil {
		delete(s.receiptsNT[k], sn)
	}
	return nil
}

func (s *Store) Escrow(ctx context.Context, bucket keri.EscrowBucket, prefix keri.IdentifierPrefix, item interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.escrows[bucket] == nil {
		s.escrows[bucket] = make(map[kelKey][]interface{})
	}
	k := keyOf(prefix)
	s.escrows[bucket][k] = append(s.escrows[bucket][k], item)
	return nil
}

func (s *Store) DrainEscrow(ctx context.Context, bucket keri.EscrowBucket, prefix keri.IdentifierPrefix) ([]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyOf(prefix)
	items := s.escrows[bucket][k]
	delete(s.escrows[bucket], k)
	return items, nil
}
