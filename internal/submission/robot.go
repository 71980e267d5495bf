package submission

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

// Robot consumes the submission queue.
type Robot struct {
	env    *robot.Env
	in     *fairqueue.Queue[store.SubmissionItem]
	out    *fairqueue.Queue[store.SubmissionPair]
	logger *slog.Logger
}

// New builds the submission robot.
func New(env *robot.Env) *Robot {
	return &Robot{
		env:    env,
		in:     robot.QueueOf[store.SubmissionItem](env, env.Catalog.Queues.SubmissionIn),
		out:    robot.QueueOf[store.SubmissionPair](env, env.Catalog.Queues.SubmissionEvidenceIn),
		logger: env.Logger,
	}
}

// Run processes submissions until ctx is done.
func (r *Robot) Run(ctx context.Context) error {
	for item, err := range r.in.Loop(ctx, r.env.LoopOptions()) {
		if err != nil {
			logging.WarnWithContext(r.logger, "skipping malformed submission item", "submission_item_invalid",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the submission front-end payload"),
			)
			continue
		}
		itemCtx := r.env.ItemContext(ctx, item.LabelID)
		if item.IsWithdrawal() {
			if err := r.Withdraw(itemCtx, item); err != nil {
				r.logFailure(itemCtx, "withdrawal failed", item, err)
			}
			continue
		}
		if _, err := r.Process(itemCtx, item); err != nil {
			r.logFailure(itemCtx, "submission skipped", item, err)
		}
	}
	return nil
}

// Process duplicates a submitted layer pair, cross-references the copies,
// grants robot access, and announces the pair downstream.
func (r *Robot) Process(ctx context.Context, item store.SubmissionItem) (store.SubmissionPair, error) {
	logger := r.itemLogger(ctx, item)
	if r.env.DryRun() {
		logger.Info("dry run: would duplicate submission")
		return store.SubmissionPair{}, nil
	}

	evidenceCopy, err := DuplicateLayer(ctx, r.env.Store, item.EvidenceID)
	if err != nil {
		return store.SubmissionPair{}, fmt.Errorf("duplicate evidence layer: %w", err)
	}
	labelCopy, err := DuplicateLayer(ctx, r.env.Store, item.LabelID)
	if err != nil {
		if delErr := r.env.Store.DeleteLayer(ctx, evidenceCopy.ID); delErr != nil {
			logger.Warn("failed to remove orphan evidence copy",
				logging.String(logging.FieldLayerID, evidenceCopy.ID),
				logging.Error(delErr),
			)
		}
		return store.SubmissionPair{}, fmt.Errorf("duplicate label layer: %w", err)
	}

	evidenceDesc := evidenceCopy.Evidence()
	evidenceDesc.LabelID = labelCopy.ID
	if err := r.env.Store.UpdateLayerDescription(ctx, evidenceCopy.ID, evidenceDesc); err != nil {
		return store.SubmissionPair{}, fmt.Errorf("link evidence copy: %w", err)
	}
	labelDesc := labelCopy.Label()
	labelDesc.EvidenceID = evidenceCopy.ID
	if err := r.env.Store.UpdateLayerDescription(ctx, labelCopy.ID, labelDesc); err != nil {
		return store.SubmissionPair{}, fmt.Errorf("link label copy: %w", err)
	}

	cat := r.env.Catalog
	grants := []struct {
		layer      string
		principal  store.Principal
		permission store.Permission
	}{
		{evidenceCopy.ID, cat.RobotEvidence, store.PermissionRead},
		{labelCopy.ID, cat.RobotEvidence, store.PermissionAdmin},
		{labelCopy.ID, cat.RobotLabel, store.PermissionRead},
	}
	for _, g := range grants {
		if err := r.env.Store.SetLayerPermission(ctx, g.layer, g.principal, g.permission); err != nil {
			return store.SubmissionPair{}, fmt.Errorf("grant %s to %s: %w", g.permission, g.principal.Name, err)
		}
	}

	pair := store.SubmissionPair{Evidence: evidenceCopy.ID, Label: labelCopy.ID}
	if err := r.out.Enqueue(ctx, pair); err != nil {
		return store.SubmissionPair{}, fmt.Errorf("announce pair: %w", err)
	}
	logger.Info("submission duplicated",
		logging.String("evidence_copy", pair.Evidence),
		logging.String("label_copy", pair.Label),
	)
	return pair, nil
}

// Withdraw tombstones the live copies of a withdrawn submission. The copies
// keep their annotations; their descriptions gain deleted, lose copy, and
// take the deleted status so no robot or ranking treats them as live.
func (r *Robot) Withdraw(ctx context.Context, item store.SubmissionItem) error {
	logger := r.itemLogger(ctx, item)
	layers, err := r.env.Store.Layers(ctx, r.env.Catalog.Corpus.ID, store.DataLabel)
	if err != nil {
		return err
	}
	marked := 0
	for _, layer := range layers {
		desc := layer.Label()
		if item.LabelID == "" || desc.Copy != item.LabelID {
			continue
		}
		if r.env.DryRun() {
			logger.Info("dry run: would tombstone copy", logging.String(logging.FieldLayerID, layer.ID))
			continue
		}
		tombstone := item
		desc.Deleted = &tombstone
		desc.Copy = ""
		desc.Status = store.StatusDeleted
		if err := r.env.Store.UpdateLayerDescription(ctx, layer.ID, desc); err != nil {
			return fmt.Errorf("tombstone label copy %s: %w", layer.ID, err)
		}
		marked++
		if err := r.tombstoneEvidence(ctx, desc.EvidenceID, item); err != nil {
			return err
		}
	}
	logger.Info("submission withdrawn", logging.Int("copies", marked))
	return nil
}

func (r *Robot) tombstoneEvidence(ctx context.Context, layerID string, item store.SubmissionItem) error {
	if layerID == "" {
		return nil
	}
	lookup, err := r.env.Store.Layer(ctx, layerID)
	if err != nil {
		return err
	}
	layer, ok := lookup.Get()
	if !ok {
		r.logger.Debug("evidence copy already gone",
			logging.String(logging.FieldLayerID, layerID),
			logging.String("state", lookup.State.String()),
		)
		return nil
	}
	desc := layer.Evidence()
	desc.Deleted = &item
	desc.Copy = ""
	desc.Status = store.StatusDeleted
	if err := r.env.Store.UpdateLayerDescription(ctx, layer.ID, desc); err != nil {
		return fmt.Errorf("tombstone evidence copy %s: %w", layer.ID, err)
	}
	return nil
}

func (r *Robot) itemLogger(ctx context.Context, item store.SubmissionItem) *slog.Logger {
	return logging.WithContext(ctx, r.logger).With(
		logging.String("submitter", item.Team+"."+item.User),
		logging.String("run", item.Name),
		logging.String("id_label", item.LabelID),
		logging.String("id_evidence", item.EvidenceID),
	)
}

func (r *Robot) logFailure(ctx context.Context, msg string, item store.SubmissionItem, err error) {
	logger := r.itemLogger(ctx, item)
	if services.IsStale(err) {
		logger.Debug(msg, logging.String("error_kind", services.Kind(err)), logging.Error(err))
		return
	}
	logging.WarnWithContext(logger, msg, "submission_failed",
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the item is dropped; resubmit once the store is healthy"),
	)
}
