package evidence

import (
	"context"
	"fmt"
	"log/slog"

	"persondiscovery/internal/fairqueue"
	"persondiscovery/internal/logging"
	"persondiscovery/internal/robot"
	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// OutRobot merges human evidence answers into the ground truth.
type OutRobot struct {
	env     *robot.Env
	results *fairqueue.Queue[store.EvidenceResult]
	gt      *robot.Snapshot[*GroundTruth]
	logger  *slog.Logger
}

// NewOutRobot builds the evidence-out robot. The ground truth is reloaded
// once per period and kept current with the robot's own writes in between.
func NewOutRobot(env *robot.Env) *OutRobot {
	r := &OutRobot{
		env:     env,
		results: robot.QueueOf[store.EvidenceResult](env, env.Catalog.Queues.EvidenceOut),
		logger:  env.Logger,
	}
	r.gt = robot.NewSnapshot(env.Clock, env.Period(), func(ctx context.Context) (*GroundTruth, error) {
		gt, _, err := LoadGroundTruth(ctx, env.Store, env.Catalog.EvidenceAll.ID)
		return gt, err
	})
	return r
}

// Run merges results until ctx is done.
func (r *OutRobot) Run(ctx context.Context) error {
	for result, err := range r.results.Loop(ctx, r.env.LoopOptions()) {
		if err != nil {
			logging.WarnWithContext(r.logger, "skipping malformed evidence result", "evidence_result_invalid",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the evidence front-end payload"),
			)
			continue
		}
		if _, err := r.Merge(r.env.ItemContext(ctx, result.Input.ShotID), result); err != nil {
			if services.IsFatal(err) {
				return err
			}
			logging.WarnWithContext(r.logger, "evidence result not merged", "evidence_merge_failed",
				logging.String(logging.FieldPersonName, result.Input.PersonName),
				logging.String(logging.FieldShotID, result.Input.ShotID),
				logging.String("error_kind", services.Kind(err)),
				logging.Error(err),
			)
		}
	}
	return nil
}

// Merge records a human answer. The ground truth is append-only: an answer
// for an already-checked claim leaves the existing record in place. The
// resulting resolution is then copied into the submission's mapping when that
// layer is still live and has no resolution for the name yet. It reports
// whether a new ground-truth record was written.
func (r *OutRobot) Merge(ctx context.Context, result store.EvidenceResult) (bool, error) {
	in := result.Input
	if in.ShotID == "" || in.PersonName == "" {
		return false, services.Wrap(services.ErrValidation, "evidence", "merge", "result lacks shot or person name", nil)
	}
	gt, err := r.gt.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("load evidence ground truth: %w", err)
	}

	key := Key{ShotID: in.ShotID, PersonName: in.PersonName, Source: in.Source}
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldShotID, in.ShotID),
		logging.String(logging.FieldPersonName, in.PersonName),
		logging.String("source", in.Source),
		logging.String("annotator", result.Log.User),
	)

	record, known := gt.Record(key)
	created := false
	if !known {
		record = newRecord(result)
		if r.env.DryRun() {
			logger.Info("dry run: would record evidence", logging.Bool("is_evidence", record.IsEvidence))
			return false, nil
		}
		data, err := store.EncodeData(record)
		if err != nil {
			return false, err
		}
		if _, err := r.env.Store.CreateAnnotations(ctx, r.env.Catalog.EvidenceAll.ID, []store.Annotation{{
			MediumID: in.MediumID,
			Fragment: store.RefFragment(in.ShotID),
			Data:     data,
		}}); err != nil {
			// The write may have landed anyway; reload before trusting the cache.
			r.gt.Invalidate()
			return false, fmt.Errorf("record evidence: %w", err)
		}
		r.gt.Update(func(g **GroundTruth) { (*g).Add(key, record) })
		created = true
		logger.Info("evidence recorded",
			logging.Bool("is_evidence", record.IsEvidence),
			logging.String("corrected_person_name", record.CorrectedPersonName),
		)
	} else {
		logger.Debug("claim already checked; keeping existing record")
	}

	if in.SubmissionID != "" && !r.env.DryRun() {
		if err := r.updateMapping(ctx, in.SubmissionID, in.PersonName, record.Resolution(), logger); err != nil {
			return created, err
		}
	}
	return created, nil
}

func (r *OutRobot) updateMapping(ctx context.Context, layerID, personName string, resolution store.Resolution, logger *slog.Logger) error {
	lookup, err := r.env.Store.Layer(ctx, layerID)
	if err != nil {
		return err
	}
	layer, ok := lookup.Get()
	if !ok {
		logger.Debug("submission layer gone; mapping not updated",
			logging.String(logging.FieldLayerID, layerID),
			logging.String("state", lookup.State.String()),
		)
		return nil
	}
	desc, isLabel := layer.Description.(store.LabelDescription)
	if !isLabel {
		return services.Wrap(services.ErrValidation, "evidence", "update mapping",
			fmt.Sprintf("layer %s is %q, not a label layer", layerID, layer.DataType), nil)
	}
	if desc.Deleted != nil {
		logger.Debug("submission withdrawn; mapping not updated", logging.String(logging.FieldLayerID, layerID))
		return nil
	}
	if desc.Mapping[personName].Checked() {
		return nil
	}
	if desc.Mapping == nil {
		desc.Mapping = make(map[string]store.Resolution)
	}
	desc.Mapping[personName] = resolution
	if err := r.env.Store.UpdateLayerDescription(ctx, layerID, desc); err != nil {
		if services.IsStale(err) {
			logger.Debug("submission layer withdrawn during update", logging.String(logging.FieldLayerID, layerID))
			return nil
		}
		return fmt.Errorf("update mapping: %w", err)
	}
	return nil
}

func newRecord(result store.EvidenceResult) store.EvidenceRecord {
	record := store.EvidenceRecord{
		PersonName: result.Input.PersonName,
		Source:     result.Input.Source,
		IsEvidence: result.Output.IsEvidence,
	}
	if !record.IsEvidence {
		return record
	}
	record.CorrectedPersonName = result.Output.PersonName
	if record.CorrectedPersonName == "" {
		record.CorrectedPersonName = result.Input.PersonName
	}
	if result.Output.BoundingBox != nil {
		record.Mugshot = &store.MugshotRef{Time: result.Output.Time, BoundingBox: *result.Output.BoundingBox}
	}
	return record
}
