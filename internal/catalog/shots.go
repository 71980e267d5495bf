package catalog

import (
	"context"
	"maps"
	"slices"

	"persondiscovery/internal/store"
)

// ShotRef is one submission shot with its medium.
type ShotRef struct {
	ID       string
	MediumID string
	store.Shot
}

// ShotIndex looks shots up by id and by medium in shot-number order.
type ShotIndex struct {
	byID     map[string]ShotRef
	byMedium map[string][]ShotRef
}

// LoadShots reads every inline shot annotation of the submission-shot layer.
// Annotations without an inline shot descriptor are ignored.
func LoadShots(ctx context.Context, st store.AnnotationStore, layerID string) (*ShotIndex, error) {
	annotations, err := st.Annotations(ctx, store.AnnotationFilter{LayerID: layerID})
	if err != nil {
		return nil, err
	}
	idx := &ShotIndex{
		byID:     make(map[string]ShotRef, len(annotations)),
		byMedium: make(map[string][]ShotRef),
	}
	for _, a := range annotations {
		if a.Fragment.Shot == nil {
			continue
		}
		ref := ShotRef{ID: a.ID, MediumID: a.MediumID, Shot: *a.Fragment.Shot}
		idx.byID[a.ID] = ref
		idx.byMedium[a.MediumID] = append(idx.byMedium[a.MediumID], ref)
	}
	for _, shots := range idx.byMedium {
		slices.SortStableFunc(shots, func(a, b ShotRef) int { return a.Number - b.Number })
	}
	return idx, nil
}

// Shot returns the shot with the given id.
func (idx *ShotIndex) Shot(id string) (ShotRef, bool) {
	ref, ok := idx.byID[id]
	return ref, ok
}

// Len is the number of shots.
func (idx *ShotIndex) Len() int {
	return len(idx.byID)
}

// Neighbors returns the shots of the same medium whose number lies within
// window of the given shot, excluding the shot itself.
func (idx *ShotIndex) Neighbors(id string, window int) []ShotRef {
	ref, ok := idx.byID[id]
	if !ok {
		return nil
	}
	var out []ShotRef
	for _, other := range idx.byMedium[ref.MediumID] {
		if other.ID == id {
			continue
		}
		if d := other.Number - ref.Number; d >= -window && d <= window {
			out = append(out, other)
		}
	}
	return out
}

// All returns every shot, grouped by medium in medium-id order and by shot
// number within a medium.
func (idx *ShotIndex) All() []ShotRef {
	out := make([]ShotRef, 0, len(idx.byID))
	for _, mediumID := range slices.Sorted(maps.Keys(idx.byMedium)) {
		out = append(out, idx.byMedium[mediumID]...)
	}
	return out
}
