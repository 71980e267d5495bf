package leaderboard

import (
	"context"
	"maps"
	"slices"

	"persondiscovery/internal/store"
	"persondiscovery/internal/textutil"
)

// Reference is the consensus ground truth restricted to the evaluated media.
type Reference struct {
	// Relevant maps each query (person name) to the shots where that person
	// is a speaking face.
	Relevant map[string]map[string]struct{}
	// Shots holds every evaluated shot with a consensus.
	Shots map[string]struct{}
}

// Queries returns the query names in sorted order.
func (r *Reference) Queries() []string {
	return slices.Sorted(maps.Keys(r.Relevant))
}

// LoadReference reads the consensus layer. Only speaking faces whose name
// contains separator become queries. A nil media set evaluates every medium.
func LoadReference(ctx context.Context, st store.AnnotationStore, layerID string, media map[string]struct{}, separator string) (*Reference, int, error) {
	annotations, err := st.Annotations(ctx, store.AnnotationFilter{LayerID: layerID})
	if err != nil {
		return nil, 0, err
	}
	ref := &Reference{
		Relevant: make(map[string]map[string]struct{}),
		Shots:    make(map[string]struct{}),
	}
	skipped := 0
	for _, a := range annotations {
		if media != nil {
			if _, ok := media[a.MediumID]; !ok {
				continue
			}
		}
		labels, err := store.DecodeData[map[string]store.PersonStatus](a.Data)
		if err != nil {
			skipped++
			continue
		}
		shot := a.Fragment.Ref
		ref.Shots[shot] = struct{}{}
		for name, status := range labels {
			if status != store.SpeakingFace || !textutil.HasSeparator(name, separator) {
				continue
			}
			if ref.Relevant[name] == nil {
				ref.Relevant[name] = make(map[string]struct{})
			}
			ref.Relevant[name][shot] = struct{}{}
		}
	}
	return ref, skipped, nil
}
