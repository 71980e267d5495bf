package evidence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"persondiscovery/internal/catalog"
	"persondiscovery/internal/fairqueue"
	"persondiscovery/internal/logging"
	"persondiscovery/internal/robot"
	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// PassStats summarizes one propagation pass.
type PassStats struct {
	Layers     int
	Propagated int
	Queued     int
	Deferred   int
	Completed  int
}

// InRobot propagates checked evidence into submission copies and queues
// unchecked claims for human review.
type InRobot struct {
	env       *robot.Env
	announced *fairqueue.Queue[store.SubmissionPair]
	tasks     *fairqueue.Queue[store.EvidenceTask]
	logger    *slog.Logger
}

// NewInRobot builds the evidence-in robot.
func NewInRobot(env *robot.Env) *InRobot {
	return &InRobot{
		env:       env,
		announced: robot.QueueOf[store.SubmissionPair](env, env.Catalog.Queues.SubmissionEvidenceIn),
		tasks:     robot.QueueOf[store.EvidenceTask](env, env.Catalog.Queues.EvidenceIn),
		logger:    env.Logger,
	}
}

// Run repeats Pass every period until ctx is done.
func (r *InRobot) Run(ctx context.Context) error {
	return r.env.Run(ctx, func(ctx context.Context) error {
		_, err := r.Pass(ctx)
		return err
	})
}

// Pass drains submission announcements, reloads the ground truth and shot
// index, and walks every pending evidence copy once.
func (r *InRobot) Pass(ctx context.Context) (PassStats, error) {
	var stats PassStats
	r.drainAnnouncements(ctx)

	cat := r.env.Catalog
	gt, skipped, err := LoadGroundTruth(ctx, r.env.Store, cat.EvidenceAll.ID)
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
	layers, err := r.env.Store.Layers(ctx, cat.Corpus.ID, store.DataEvidence)
	if err != nil {
		return stats, fmt.Errorf("list evidence layers: %w", err)
	}
	admitter, err := r.tasks.Admitter(ctx, fairqueue.Policy[store.EvidenceTask]{
		Limit:      r.env.Config.Evidence.QueueLimit,
		BalanceKey: func(t store.EvidenceTask) string { return t.SubmissionID },
		Identity:   taskIdentity,
		DryRun:     r.env.DryRun(),
	})
	if err != nil {
		return stats, fmt.Errorf("read evidence queue: %w", err)
	}

	for _, layer := range layers {
		desc := layer.Evidence()
		if desc.Copy == "" || desc.Deleted != nil || desc.AnnotationsComplete {
			continue
		}
		stats.Layers++
		layerStats, err := r.propagateLayer(ctx, layer, gt, shots, admitter)
		stats.Propagated += layerStats.Propagated
		stats.Queued += layerStats.Queued
		stats.Deferred += layerStats.Deferred
		stats.Completed += layerStats.Completed
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			r.logLayerFailure(layer, err)
		}
	}
	r.logger.Info("evidence propagation pass complete",
		logging.Int("layers", stats.Layers),
		logging.Int("propagated", stats.Propagated),
		logging.Int("queued", stats.Queued),
		logging.Int("deferred", stats.Deferred),
		logging.Int("completed", stats.Completed),
		logging.Int("queue_length", admitter.Length()),
	)
	return stats, nil
}

func (r *InRobot) propagateLayer(ctx context.Context, layer store.Layer, gt *GroundTruth, shots *catalog.ShotIndex, admitter *fairqueue.Admitter[store.EvidenceTask]) (PassStats, error) {
	var stats PassStats
	desc := layer.Evidence()
	logger := r.logger.With(logging.String(logging.FieldLayerID, layer.ID))

	lookup, err := r.env.Store.Layer(ctx, desc.LabelID)
	if err != nil {
		return stats, err
	}
	labelLayer, ok := lookup.Get()
	if !ok {
		return stats, services.Wrap(staleMarker(lookup.State), "evidence", "propagate", "paired label layer "+desc.LabelID, nil)
	}
	labelDesc := labelLayer.Label()
	if labelDesc.Mapping == nil {
		labelDesc.Mapping = make(map[string]store.Resolution)
	}

	annotations, err := r.env.Store.Annotations(ctx, store.AnnotationFilter{LayerID: layer.ID})
	if err != nil {
		return stats, err
	}

	unchecked := 0
	for _, a := range annotations {
		hyp, err := store.DecodeData[store.EvidenceHypothesis](a.Data)
		if err != nil || hyp.PersonName == "" {
			logger.Warn("ignoring malformed evidence hypothesis", logging.String("annotation_id", a.ID))
			continue
		}
		if labelDesc.Mapping[hyp.PersonName].Checked() {
			continue
		}
		key := Key{ShotID: a.Fragment.Ref, PersonName: hyp.PersonName, Source: hyp.Source}
		if resolution, ok := gt.Resolution(key); ok {
			labelDesc.Mapping[hyp.PersonName] = resolution
			stats.Propagated++
			continue
		}

		unchecked++
		task, ok := r.reviewTask(labelLayer.ID, key, a, shots)
		if !ok {
			logger.Debug("claim references an unknown shot", logging.String(logging.FieldShotID, key.ShotID))
			continue
		}
		admission, err := admitter.Offer(ctx, task)
		if err != nil {
			return stats, fmt.Errorf("queue review task: %w", err)
		}
		switch admission {
		case fairqueue.Admitted:
			stats.Queued++
		case fairqueue.Deferred:
			stats.Deferred++
		}
	}

	if r.env.DryRun() {
		logger.Info("dry run: would update mapping",
			logging.Int("propagated", stats.Propagated),
			logging.Int("unchecked", unchecked),
		)
		return stats, nil
	}
	if stats.Propagated > 0 {
		if err := r.env.Store.UpdateLayerDescription(ctx, labelLayer.ID, labelDesc); err != nil {
			return stats, fmt.Errorf("update mapping: %w", err)
		}
	}
	if unchecked == 0 {
		desc.AnnotationsComplete = true
		if err := r.env.Store.UpdateLayerDescription(ctx, layer.ID, desc); err != nil {
			return stats, fmt.Errorf("mark annotations complete: %w", err)
		}
		stats.Completed++
		logger.Info("evidence copy fully checked", logging.String("label_layer", labelLayer.ID))
	}
	return stats, nil
}

func (r *InRobot) reviewTask(submissionID string, key Key, a store.Annotation, shots *catalog.ShotIndex) (store.EvidenceTask, bool) {
	shot, ok := shots.Shot(key.ShotID)
	if !ok {
		return store.EvidenceTask{}, false
	}
	start, end := ReviewWindow(r.env.Config.Evidence, key.Source, shot.Segment)
	mediumID := a.MediumID
	if mediumID == "" {
		mediumID = shot.MediumID
	}
	return store.EvidenceTask{
		SubmissionID: submissionID,
		PersonName:   key.PersonName,
		Source:       key.Source,
		MediumID:     mediumID,
		ShotID:       key.ShotID,
		Start:        start,
		End:          end,
	}, true
}

// drainAnnouncements consumes pair announcements. Every live copy is walked
// on each pass anyway, so announcements only need to be logged.
func (r *InRobot) drainAnnouncements(ctx context.Context) {
	if r.env.DryRun() {
		return
	}
	for {
		pair, err := r.announced.Dequeue(ctx)
		switch {
		case err == nil:
			r.logger.Info("new submission copy announced",
				logging.String("evidence_copy", pair.Evidence),
				logging.String("label_copy", pair.Label),
			)
		case errors.Is(err, services.ErrValidation):
			r.logger.Warn("dropping malformed announcement", logging.Error(err))
		case errors.Is(err, services.ErrQueueEmpty):
			return
		default:
			r.logger.Debug("announcement queue unavailable", logging.Error(err))
			return
		}
	}
}

func (r *InRobot) logLayerFailure(layer store.Layer, err error) {
	attrs := []logging.Attr{
		logging.String(logging.FieldLayerID, layer.ID),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
	}
	if services.IsStale(err) || errors.Is(err, services.ErrTransient) {
		r.logger.Debug("evidence copy skipped this pass", logging.Args(attrs...)...)
		return
	}
	logging.WarnWithContext(r.logger, "evidence copy skipped this pass", "evidence_propagation_failed", attrs...)
}

func taskIdentity(t store.EvidenceTask) string {
	return t.ShotID + "\x00" + t.PersonName + "\x00" + t.Source
}

func staleMarker(state store.LookupState) error {
	if state == store.StateAlreadyDeleted {
		return services.ErrAlreadyDeleted
	}
	return services.ErrNotFound
}
