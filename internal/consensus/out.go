package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"persondiscovery/internal/fairqueue"
	"persondiscovery/internal/logging"
	"persondiscovery/internal/robot"
	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// OutRobot records label verdicts and promotes shots to consensus or unknown.
type OutRobot struct {
	env     *robot.Env
	results *fairqueue.Queue[store.LabelResult]
	logger  *slog.Logger
}

// NewOutRobot builds the label-out robot.
func NewOutRobot(env *robot.Env) *OutRobot {
	return &OutRobot{
		env:     env,
		results: robot.QueueOf[store.LabelResult](env, env.Catalog.Queues.LabelOut),
		logger:  env.Logger,
	}
}

// Run processes results until ctx is done.
func (r *OutRobot) Run(ctx context.Context) error {
	for result, err := range r.results.Loop(ctx, r.env.LoopOptions()) {
		if err != nil {
			logging.WarnWithContext(r.logger, "skipping malformed label result", "label_result_invalid",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the label front-end payload"),
			)
			continue
		}
		if _, err := r.Record(r.env.ItemContext(ctx, result.Input.ShotID), result); err != nil {
			if services.IsFatal(err) {
				return err
			}
			logging.WarnWithContext(r.logger, "label result not recorded", "label_record_failed",
				logging.String(logging.FieldShotID, result.Input.ShotID),
				logging.String("annotator", result.Log.User),
				logging.String("error_kind", services.Kind(err)),
				logging.Error(err),
			)
		}
	}
	return nil
}

// Record stores one verdict and re-evaluates its shot. A shot that already
// has a consensus keeps it; the verdict is still stored.
func (r *OutRobot) Record(ctx context.Context, result store.LabelResult) (Decision, error) {
	in := result.Input
	if in.ShotID == "" {
		return Decision{}, services.Wrap(services.ErrValidation, "consensus", "record", "result lacks a shot id", nil)
	}
	for name, status := range result.Output.Known {
		if !status.Valid() {
			return Decision{}, services.Wrap(services.ErrValidation, "consensus", "record",
				fmt.Sprintf("invalid status %q for %s", status, name), nil)
		}
	}
	cat := r.env.Catalog
	hypothesis := HypothesisSet(in.Hypothesis)
	if hypothesis == nil {
		hypothesis = []string{}
	}
	verdict := store.VerdictRecord{
		Known:      result.Output.Known,
		Unknown:    result.Output.Unknown,
		Annotator:  result.Log.User,
		Hypothesis: hypothesis,
	}
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldShotID, in.ShotID),
		logging.String("annotator", verdict.Annotator),
	)

	existing, err := r.shotRecords(ctx, cat.LabelAll.ID, in.ShotID)
	if err != nil {
		return Decision{}, fmt.Errorf("load verdicts: %w", err)
	}
	if !r.env.DryRun() {
		if err := r.create(ctx, cat.LabelAll.ID, in.MediumID, in.ShotID, verdict); err != nil {
			return Decision{}, fmt.Errorf("store verdict: %w", err)
		}
	}
	existing = append(existing, verdict)

	decided, err := r.env.Store.Annotations(ctx, store.AnnotationFilter{LayerID: cat.Consensus.ID, Fragment: in.ShotID})
	if err != nil {
		return Decision{}, fmt.Errorf("load consensus: %w", err)
	}
	if len(decided) > 0 {
		logger.Debug("shot already has a consensus")
		return Decision{State: Reached, Reason: "consensus already recorded"}, nil
	}

	decision := Evaluate(Round(existing, hypothesis), r.env.Config.Label.MinAnnotators)
	switch decision.State {
	case Unknown:
		if r.env.DryRun() {
			logger.Info("dry run: would mark shot unknown")
			break
		}
		if err := r.markUnknown(ctx, in, hypothesis); err != nil {
			return decision, err
		}
		logger.Info("found unknown speaking face", logging.String(logging.FieldEventType, "unknown_recorded"))
	case Reached:
		if r.env.DryRun() {
			logger.Info("dry run: would record consensus", logging.Int("people", len(decision.Labels)))
			break
		}
		if err := r.create(ctx, cat.Consensus.ID, in.MediumID, in.ShotID, decision.Labels); err != nil {
			return decision, fmt.Errorf("store consensus: %w", err)
		}
		logger.Info("found consensus",
			logging.String(logging.FieldEventType, "consensus_recorded"),
			logging.Int("people", len(decision.Labels)),
		)
	default:
		logger.Debug("no consensus yet", logging.String("reason", decision.Reason))
	}
	return decision, nil
}

func (r *OutRobot) shotRecords(ctx context.Context, layerID, shotID string) ([]store.VerdictRecord, error) {
	annotations, err := r.env.Store.Annotations(ctx, store.AnnotationFilter{LayerID: layerID, Fragment: shotID})
	if err != nil {
		return nil, err
	}
	records := make([]store.VerdictRecord, 0, len(annotations))
	for _, a := range annotations {
		record, err := store.DecodeData[store.VerdictRecord](a.Data)
		if err != nil {
			r.logger.Warn("ignoring malformed verdict", logging.String("annotation_id", a.ID), logging.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// markUnknown records the hypothesis set the unknown was reported against,
// once per set.
func (r *OutRobot) markUnknown(ctx context.Context, in store.LabelTask, hypothesis []string) error {
	annotations, err := r.env.Store.Annotations(ctx, store.AnnotationFilter{LayerID: r.env.Catalog.Unknown.ID, Fragment: in.ShotID})
	if err != nil {
		return fmt.Errorf("load unknown markers: %w", err)
	}
	for _, a := range annotations {
		record, err := store.DecodeData[store.UnknownRecord](a.Data)
		if err == nil && slices.Equal(HypothesisSet(record.Hypothesis), hypothesis) {
			return nil
		}
	}
	if err := r.create(ctx, r.env.Catalog.Unknown.ID, in.MediumID, in.ShotID, store.UnknownRecord{Hypothesis: hypothesis}); err != nil {
		return fmt.Errorf("store unknown marker: %w", err)
	}
	return nil
}

func (r *OutRobot) create(ctx context.Context, layerID, mediumID, shotID string, payload any) error {
	data, err := store.EncodeData(payload)
	if err != nil {
		return err
	}
	_, err = r.env.Store.CreateAnnotations(ctx, layerID, []store.Annotation{{
		MediumID: mediumID,
		Fragment: store.RefFragment(shotID),
		Data:     data,
	}})
	return err
}
