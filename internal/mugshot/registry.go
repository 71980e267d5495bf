package mugshot

import (
	"cmp"
	"context"
	"slices"

	"persondiscovery/internal/catalog"
	"persondiscovery/internal/evidence"
	"persondiscovery/internal/store"
	"persondiscovery/internal/textutil"
)

// Registry answers whether a person can be offered to label annotators.
type Registry struct {
	names map[string]struct{}
}

// LoadRegistry reads the person names present in the mugshot layer and adds
// the anchors.
func LoadRegistry(ctx context.Context, st store.AnnotationStore, layerID string, anchors []string) (*Registry, error) {
	annotations, err := st.Annotations(ctx, store.AnnotationFilter{LayerID: layerID})
	if err != nil {
		return nil, err
	}
	r := &Registry{names: make(map[string]struct{}, len(annotations)+len(anchors))}
	for _, a := range annotations {
		if a.Fragment.Ref != "" {
			r.names[textutil.NormalizeName(a.Fragment.Ref)] = struct{}{}
		}
	}
	for _, anchor := range anchors {
		r.names[textutil.NormalizeName(anchor)] = struct{}{}
	}
	return r, nil
}

// Has reports whether name has a mugshot or is an anchor.
func (r *Registry) Has(name string) bool {
	_, ok := r.names[textutil.NormalizeName(name)]
	return ok
}

// Len is the number of known names, anchors included.
func (r *Registry) Len() int {
	return len(r.names)
}

// Source is an accepted evidence record usable as a face crop.
type Source struct {
	ShotID   string
	MediumID string
	Ref      store.MugshotRef
}

// Sources groups the crop-capable evidence records by normalized corrected
// person name. Records whose shot is unknown are dropped. Each group is
// ordered by shot id then time.
func Sources(gt *evidence.GroundTruth, shots *catalog.ShotIndex) map[string][]Source {
	out := make(map[string][]Source)
	for key, record := range gt.All() {
		if !record.IsEvidence || record.Mugshot == nil || record.CorrectedPersonName == "" {
			continue
		}
		shot, ok := shots.Shot(key.ShotID)
		if !ok {
			continue
		}
		name := textutil.NormalizeName(record.CorrectedPersonName)
		out[name] = append(out[name], Source{ShotID: key.ShotID, MediumID: shot.MediumID, Ref: *record.Mugshot})
	}
	for _, sources := range out {
		slices.SortFunc(sources, func(a, b Source) int {
			if c := cmp.Compare(a.ShotID, b.ShotID); c != 0 {
				return c
			}
			return cmp.Compare(a.Ref.Time, b.Ref.Time)
		})
	}
	return out
}
