package keri

import "github.com/trustedlog/keri-core/derivation"

// WitnessConfig is an identifier's current witness set and the tally
// (minimum count of non-transferable receipts) required for an event to
// be considered witnessed.
type WitnessConfig struct {
	Tally      uint64                   `json:"bt" cbor:"bt" codec:"bt"`
	Witnesses  []derivation.BasicPrefix `json:"b" cbor:"b" codec:"b"`
}

// WitnessChange describes a rotation's edit to the witness set: witnesses
// pruned (removed), witnesses grafted (added), and the new tally.
type WitnessChange struct {
	Tally uint64                   `json:"bt" cbor:"bt" codec:"bt"`
	Prune []derivation.BasicPrefix `json:"br" cbor:"br" codec:"br"`
	Graft []derivation.BasicPrefix `json:"ba" cbor:"ba" codec:"ba"`
}

// Apply computes the new witness set: (current - Prune) + Graft, pruning
// before grafting and de-duplicating by text form.
func (wc WitnessChange) Apply(current []derivation.BasicPrefix) []derivation.BasicPrefix {
	pruned := make(map[string]bool, len(wc.Prune))
	for _, p := range wc.Prune {
		pruned[p.String()] = true
	}
	out := make([]derivation.BasicPrefix, 0, len(current)+len(wc.Graft))
	seen := make(map[string]bool, len(current)+len(wc.Graft))
	for _, w := range current {
		if pruned[w.String()] {
			continue
		}
		if !seen[w.String()] {
			out = append(out, w)
			seen[w.String()] = true
		}
	}
	for _, w := range wc.Graft {
		if !seen[w.String()] {
			out = append(out, w)
			seen[w.String()] = true
		}
	}
	return out
}
