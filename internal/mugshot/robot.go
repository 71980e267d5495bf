package mugshot

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"

	"persondiscovery/internal/catalog"
	"persondiscovery/internal/evidence"
	"persondiscovery/internal/logging"
	"persondiscovery/internal/robot"
	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// PassStats summarizes one maintenance pass.
type PassStats struct {
	People    int
	Generated int
	Unchanged int
	Failed    int
}

// Robot regenerates mugshots whose evidence changed.
type Robot struct {
	env    *robot.Env
	frames FrameSource
	rng    *rand.Rand
	logger *slog.Logger
}

// New builds the mugshot robot reading frames from frames.
func New(env *robot.Env, frames FrameSource) *Robot {
	seed := uint64(env.Clock.Now().UnixNano())
	return &Robot{
		env:    env,
		frames: frames,
		rng:    rand.New(rand.NewPCG(seed, seed>>1|1)),
		logger: env.Logger,
	}
}

// Run repeats Pass every period until ctx is done.
func (r *Robot) Run(ctx context.Context) error {
	return r.env.Run(ctx, func(ctx context.Context) error {
		_, err := r.Pass(ctx)
		return err
	})
}

// Pass compares the evidence count of every person with the count the
// current mugshot was built from and rebuilds the ones that differ.
func (r *Robot) Pass(ctx context.Context) (PassStats, error) {
	var stats PassStats
	cat := r.env.Catalog

	gt, skipped, err := evidence.LoadGroundTruth(ctx, r.env.Store, cat.EvidenceAll.ID)
	if err != nil {
		return stats, fmt.Errorf("load evidence ground truth: %w", err)
	}
	if skipped > 0 {
		r.logger.Warn("ignored malformed evidence ground-truth records", logging.Int("count", skipped))
	}
	shots, err := catalog.LoadShots(ctx, r.env.Store, cat.SubmissionShot.ID)
	if err != nil {
		return stats, fmt.Errorf("load shots: %w", err)
	}
	media, err := r.env.Store.Media(ctx, cat.Corpus.ID)
	if err != nil {
		return stats, fmt.Errorf("list media: %w", err)
	}
	mediaByID := make(map[string]store.Medium, len(media))
	for _, m := range media {
		mediaByID[m.ID] = m
	}

	lookup, err := r.env.Store.Layer(ctx, cat.Mugshot.ID)
	if err != nil {
		return stats, err
	}
	layer, ok := lookup.Get()
	if !ok {
		return stats, services.Wrap(services.ErrConfiguration, "mugshot", "pass", "mugshot layer "+lookup.State.String(), nil)
	}
	desc := layer.Mugshot()
	if desc.Mugshots == nil {
		desc.Mugshots = make(map[string]int)
	}
	existing, err := r.existing(ctx, layer.ID)
	if err != nil {
		return stats, fmt.Errorf("list mugshots: %w", err)
	}

	sources := Sources(gt, shots)
	changed := false
	for _, name := range slices.Sorted(maps.Keys(sources)) {
		stats.People++
		count := len(sources[name])
		if desc.Mugshots[name] == count && len(existing[name]) > 0 {
			stats.Unchanged++
			continue
		}
		logger := r.logger.With(logging.String(logging.FieldPersonName, name), logging.Int("evidence_count", count))
		if r.env.DryRun() {
			logger.Info("dry run: would regenerate mugshot")
			continue
		}
		if err := r.regenerate(ctx, layer.ID, name, sources[name], mediaByID, existing[name]); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			logging.WarnWithContext(logger, "mugshot not regenerated", "mugshot_failed",
				logging.String("error_kind", services.Kind(err)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that frames exist under paths.frames_dir"),
			)
			continue
		}
		desc.Mugshots[name] = count
		changed = true
		stats.Generated++
		logger.Info("mugshot regenerated")
	}

	if changed {
		if err := r.env.Store.UpdateLayerDescription(ctx, layer.ID, desc); err != nil {
			return stats, fmt.Errorf("update mugshot counts: %w", err)
		}
	}
	r.logger.Info("mugshot pass complete",
		logging.Int("people", stats.People),
		logging.Int("generated", stats.Generated),
		logging.Int("unchanged", stats.Unchanged),
		logging.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (r *Robot) existing(ctx context.Context, layerID string) (map[string][]string, error) {
	annotations, err := r.env.Store.Annotations(ctx, store.AnnotationFilter{LayerID: layerID})
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, a := range annotations {
		out[a.Fragment.Ref] = append(out[a.Fragment.Ref], a.ID)
	}
	return out, nil
}

// regenerate stores the new mugshot before removing the previous ones so a
// reader never sees the person without a mugshot.
func (r *Robot) regenerate(ctx context.Context, layerID, name string, sources []Source, media map[string]store.Medium, previous []string) error {
	order := r.rng.Perm(len(sources))
	cfg := r.env.Config.Mugshot
	var crops []image.Image
	mediumID := ""
	for _, i := range order {
		if len(crops) == cfg.Multiple {
			break
		}
		src := sources[i]
		medium, ok := media[src.MediumID]
		if !ok {
			continue
		}
		frame, err := r.frames.Frame(ctx, medium, src.Ref.Time)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Debug("frame unavailable",
				logging.String(logging.FieldShotID, src.ShotID),
				logging.Float64("time", src.Ref.Time),
				logging.Error(err),
			)
			continue
		}
		crop, err := Crop(frame, src.Ref.BoundingBox, cfg)
		if err != nil {
			r.logger.Debug("unusable bounding box", logging.String(logging.FieldShotID, src.ShotID), logging.Error(err))
			continue
		}
		if mediumID == "" {
			mediumID = medium.ID
		}
		crops = append(crops, crop)
	}
	if len(crops) == 0 {
		return services.Wrap(services.ErrNotFound, "mugshot", "regenerate", fmt.Sprintf("no usable crop among %d sources", len(sources)), nil)
	}

	single, err := EncodePNG(crops[0])
	if err != nil {
		return err
	}
	strip, err := EncodePNG(Strip(crops))
	if err != nil {
		return err
	}
	data, err := store.EncodeData(store.MugshotRecord{PNG: single, Strip: strip, Number: len(sources), MediumID: mediumID})
	if err != nil {
		return err
	}
	if _, err := r.env.Store.CreateAnnotations(ctx, layerID, []store.Annotation{{
		MediumID: mediumID,
		Fragment: store.RefFragment(name),
		Data:     data,
	}}); err != nil {
		return fmt.Errorf("store mugshot: %w", err)
	}
	for _, id := range previous {
		if err := r.env.Store.DeleteAnnotation(ctx, id); err != nil && !services.IsStale(err) {
			return fmt.Errorf("remove previous mugshot: %w", err)
		}
	}
	return nil
}
