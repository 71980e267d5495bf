package evidence

import (
	"context"
	"iter"
	"maps"

	"persondiscovery/internal/store"
)

// Key identifies one identity claim.
type Key struct {
	ShotID     string
	PersonName string
	Source     string
}

// GroundTruth is the evidence ground truth keyed by claim.
type GroundTruth struct {
	entries map[Key]store.EvidenceRecord
}

// NewGroundTruth returns an empty ground truth.
func NewGroundTruth() *GroundTruth {
	return &GroundTruth{entries: make(map[Key]store.EvidenceRecord)}
}

// LoadGroundTruth reads the evidence ground-truth layer. When a claim was
// recorded more than once the first record wins. Undecodable records are
// counted and skipped.
func LoadGroundTruth(ctx context.Context, st store.AnnotationStore, layerID string) (*GroundTruth, int, error) {
	annotations, err := st.Annotations(ctx, store.AnnotationFilter{LayerID: layerID})
	if err != nil {
		return nil, 0, err
	}
	gt := NewGroundTruth()
	skipped := 0
	for _, a := range annotations {
		record, err := store.DecodeData[store.EvidenceRecord](a.Data)
		if err != nil || record.PersonName == "" {
			skipped++
			continue
		}
		gt.Add(Key{ShotID: a.Fragment.Ref, PersonName: record.PersonName, Source: record.Source}, record)
	}
	return gt, skipped, nil
}

// Add records a claim unless it is already known, reporting whether it was new.
func (g *GroundTruth) Add(key Key, record store.EvidenceRecord) bool {
	if _, ok := g.entries[key]; ok {
		return false
	}
	g.entries[key] = record
	return true
}

// Record returns the record of a claim.
func (g *GroundTruth) Record(key Key) (store.EvidenceRecord, bool) {
	record, ok := g.entries[key]
	return record, ok
}

// Resolution returns the checked outcome of a claim.
func (g *GroundTruth) Resolution(key Key) (store.Resolution, bool) {
	record, ok := g.entries[key]
	if !ok {
		return store.Resolution{}, false
	}
	return record.Resolution(), true
}

// Len is the number of checked claims.
func (g *GroundTruth) Len() int {
	return len(g.entries)
}

// All iterates every claim in unspecified order.
func (g *GroundTruth) All() iter.Seq2[Key, store.EvidenceRecord] {
	return maps.All(g.entries)
}
