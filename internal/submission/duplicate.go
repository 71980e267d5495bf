package submission

import (
	"context"
	"errors"
	"fmt"

	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// CopySuffix is appended to the name of duplicated layers.
const CopySuffix = " [copy]"

// Duplicator is the store surface DuplicateLayer needs.
type Duplicator interface {
	store.MediaStore
	store.LayerStore
	store.AnnotationStore
}

// DuplicateLayer creates a point-in-time copy of a label or evidence layer.
// The copy carries the source description with copy set to the source id,
// and annotations are copied medium by medium with fresh identities. When
// copying fails part-way the incomplete copy is deleted.
func DuplicateLayer(ctx context.Context, st Duplicator, layerID string) (store.Layer, error) {
	lookup, err := st.Layer(ctx, layerID)
	if err != nil {
		return store.Layer{}, err
	}
	source, ok := lookup.Get()
	if !ok {
		return store.Layer{}, staleError(lookup.State, layerID)
	}

	var desc store.Description
	switch d := source.Description.(type) {
	case store.LabelDescription:
		d.Copy = layerID
		desc = d
	case store.EvidenceDescription:
		d.Copy = layerID
		desc = d
	default:
		return store.Layer{}, services.Wrap(services.ErrValidation, "submission", "duplicate layer",
			fmt.Sprintf("layer %s has data type %q; only label and evidence layers can be duplicated", layerID, source.DataType), nil)
	}

	copied, err := st.CreateLayer(ctx, store.Layer{
		CorpusID:     source.CorpusID,
		Name:         source.Name + CopySuffix,
		FragmentType: source.FragmentType,
		DataType:     source.DataType,
		Description:  desc,
	})
	if err != nil {
		return store.Layer{}, err
	}

	if err := copyAnnotations(ctx, st, source, copied.ID); err != nil {
		if delErr := st.DeleteLayer(ctx, copied.ID); delErr != nil {
			err = errors.Join(err, fmt.Errorf("remove incomplete copy %s: %w", copied.ID, delErr))
		}
		return store.Layer{}, err
	}
	return copied, nil
}

func copyAnnotations(ctx context.Context, st Duplicator, source store.Layer, copyID string) error {
	media, err := st.Media(ctx, source.CorpusID)
	if err != nil {
		return err
	}
	for _, medium := range media {
		annotations, err := st.Annotations(ctx, store.AnnotationFilter{LayerID: source.ID, MediumID: medium.ID})
		if err != nil {
			return fmt.Errorf("read annotations of medium %s: %w", medium.Name, err)
		}
		if len(annotations) == 0 {
			continue
		}
		if _, err := st.CreateAnnotations(ctx, copyID, annotations); err != nil {
			return fmt.Errorf("copy annotations of medium %s: %w", medium.Name, err)
		}
	}

	loose, err := st.Annotations(ctx, store.AnnotationFilter{LayerID: source.ID, NoMedium: true})
	if err != nil {
		return fmt.Errorf("read annotations without medium: %w", err)
	}
	if len(loose) > 0 {
		if _, err := st.CreateAnnotations(ctx, copyID, loose); err != nil {
			return fmt.Errorf("copy annotations without medium: %w", err)
		}
	}
	return nil
}

func staleError(state store.LookupState, layerID string) error {
	if state == store.StateAlreadyDeleted {
		return services.Wrap(services.ErrAlreadyDeleted, "submission", "duplicate layer", layerID, nil)
	}
	return services.Wrap(services.ErrNotFound, "submission", "duplicate layer", layerID, nil)
}
