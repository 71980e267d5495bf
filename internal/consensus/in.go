package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"persondiscovery/internal/catalog"
	"persondiscovery/internal/fairqueue"
	"persondiscovery/internal/logging"
	"persondiscovery/internal/mugshot"
	"persondiscovery/internal/robot"
	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// InStats summarizes one label-in pass.
type InStats struct {
	Shots     int
	Decided   int
	Unknown   int
	Unchecked int
	Queued    int
	Deferred  int
	Requeued  int
}

// InRobot offers ready shots to label annotators.
type InRobot struct {
	env    *robot.Env
	tasks  *fairqueue.Queue[store.LabelTask]
	logger *slog.Logger
}

// NewInRobot builds the label-in robot.
func NewInRobot(env *robot.Env) *InRobot {
	return &InRobot{
		env:    env,
		tasks:  robot.QueueOf[store.LabelTask](env, env.Catalog.Queues.LabelIn),
		logger: env.Logger,
	}
}

// Run repeats Pass every period until ctx is done.
func (r *InRobot) Run(ctx context.Context) error {
	return r.env.Run(ctx, func(ctx context.Context) error {
		_, err := r.Pass(ctx)
		return err
	})
}

// shotHypotheses is what the live submissions claim about one shot.
type shotHypotheses struct {
	names     map[string]struct{}
	unchecked bool
}

// Pass reloads the workflow state and offers every shot that is neither
// decided nor blocked.
func (r *InRobot) Pass(ctx context.Context) (InStats, error) {
	var stats InStats
	cat := r.env.Catalog
	cfg := r.env.Config.Label

	shots, err := catalog.LoadShots(ctx, r.env.Store, cat.SubmissionShot.ID)
	if err != nil {
		return stats, fmt.Errorf("load shots: %w", err)
	}
	decided, err := r.shotSet(ctx, cat.Consensus.ID)
	if err != nil {
		return stats, fmt.Errorf("load consensus: %w", err)
	}
	unknown, err := r.unknownMarkers(ctx)
	if err != nil {
		return stats, fmt.Errorf("load unknown markers: %w", err)
	}
	annotators, err := r.annotators(ctx)
	if err != nil {
		return stats, fmt.Errorf("load verdicts: %w", err)
	}
	mugshots, err := mugshot.LoadRegistry(ctx, r.env.Store, cat.Mugshot.ID, cfg.Anchors)
	if err != nil {
		return stats, fmt.Errorf("load mugshots: %w", err)
	}
	hypotheses, err := r.hypotheses(ctx)
	if err != nil {
		return stats, fmt.Errorf("load submissions: %w", err)
	}
	admitter, err := r.tasks.Admitter(ctx, fairqueue.Policy[store.LabelTask]{
		Limit:      cfg.QueueLimit,
		BalanceKey: func(t store.LabelTask) string { return t.MediumID },
		Identity:   func(t store.LabelTask) string { return t.ShotID },
		DryRun:     r.env.DryRun(),
	})
	if err != nil {
		return stats, fmt.Errorf("read label queue: %w", err)
	}

	for _, shot := range shots.All() {
		stats.Shots++
		if _, ok := decided[shot.ID]; ok {
			stats.Decided++
			continue
		}
		hyp := hypotheses[shot.ID]
		if hyp.unchecked {
			stats.Unchecked++
			continue
		}
		names := slices.Sorted(maps.Keys(hyp.names))
		if !allHaveMugshot(names, mugshots) {
			stats.Unchecked++
			continue
		}
		if len(names) == 0 && cfg.SkipEmptyShots {
			continue
		}
		if names == nil {
			names = []string{}
		}
		markers, isUnknown := unknown[shot.ID]
		if isUnknown && !markers.newHypothesis(names) {
			stats.Unknown++
			continue
		}

		task := r.task(shot, names, shots, hypotheses, mugshots, annotators[shot.ID])
		admission, err := admitter.Offer(ctx, task)
		if err != nil {
			return stats, fmt.Errorf("queue label task: %w", err)
		}
		switch admission {
		case fairqueue.Admitted:
			stats.Queued++
		case fairqueue.Deferred:
			stats.Deferred++
			continue
		}
		if isUnknown && admission == fairqueue.Admitted {
			stats.Requeued++
			r.clearUnknown(ctx, shot.ID, markers.ids)
		}
	}
	r.logger.Info("label queueing pass complete",
		logging.Int("shots", stats.Shots),
		logging.Int("decided", stats.Decided),
		logging.Int("unknown", stats.Unknown),
		logging.Int("unchecked", stats.Unchecked),
		logging.Int("queued", stats.Queued),
		logging.Int("deferred", stats.Deferred),
		logging.Int("requeued", stats.Requeued),
		logging.Int("queue_length", admitter.Length()),
	)
	return stats, nil
}

func (r *InRobot) task(shot catalog.ShotRef, names []string, shots *catalog.ShotIndex, hypotheses map[string]shotHypotheses, mugshots *mugshot.Registry, annotatedBy []string) store.LabelTask {
	cfg := r.env.Config.Label
	start, end := shot.Segment.Start+cfg.Inset, shot.Segment.End-cfg.Inset
	if end <= start {
		start, end = shot.Segment.Start, shot.Segment.End
	}

	offered := make(map[string]struct{}, len(names))
	for _, name := range names {
		offered[name] = struct{}{}
	}
	others := make(map[string]struct{})
	for _, neighbor := range shots.Neighbors(shot.ID, cfg.NeighborShots) {
		for name := range hypotheses[neighbor.ID].names {
			if mugshots.Has(name) {
				others[name] = struct{}{}
			}
		}
	}
	for _, anchor := range cfg.Anchors {
		others[anchor] = struct{}{}
	}
	for name := range offered {
		delete(others, name)
	}
	otherNames := slices.Sorted(maps.Keys(others))
	if cfg.OthersLimit > 0 && len(otherNames) > cfg.OthersLimit {
		otherNames = otherNames[:cfg.OthersLimit]
	}
	if annotatedBy == nil {
		annotatedBy = []string{}
	}
	return store.LabelTask{
		ShotID:      shot.ID,
		MediumID:    shot.MediumID,
		Start:       start,
		End:         end,
		Hypothesis:  names,
		Others:      otherNames,
		AnnotatedBy: annotatedBy,
	}
}

// hypotheses collects, per shot, the corrected names claimed by live label
// copies. Rejected names are dropped; a name without a checked mapping
// blocks the shot.
func (r *InRobot) hypotheses(ctx context.Context) (map[string]shotHypotheses, error) {
	layers, err := r.env.Store.Layers(ctx, r.env.Catalog.Corpus.ID, store.DataLabel)
	if err != nil {
		return nil, err
	}
	out := make(map[string]shotHypotheses)
	for _, layer := range layers {
		desc := layer.Label()
		if desc.Copy == "" || desc.Deleted != nil {
			continue
		}
		annotations, err := r.env.Store.Annotations(ctx, store.AnnotationFilter{LayerID: layer.ID})
		if err != nil {
			if services.IsStale(err) {
				continue
			}
			return nil, err
		}
		for _, a := range annotations {
			hyp, err := store.DecodeData[store.LabelHypothesis](a.Data)
			if err != nil || hyp.PersonName == "" {
				continue
			}
			entry := out[a.Fragment.Ref]
			if entry.names == nil {
				entry.names = make(map[string]struct{})
			}
			resolution := desc.Mapping[hyp.PersonName]
			switch {
			case !resolution.Checked():
				entry.unchecked = true
			case !resolution.Rejected:
				entry.names[resolution.Name] = struct{}{}
			}
			out[a.Fragment.Ref] = entry
		}
	}
	return out, nil
}

func (r *InRobot) shotSet(ctx context.Context, layerID string) (map[string]struct{}, error) {
	annotations, err := r.env.Store.Annotations(ctx, store.AnnotationFilter{LayerID: layerID})
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(annotations))
	for _, a := range annotations {
		out[a.Fragment.Ref] = struct{}{}
	}
	return out, nil
}

type unknownMarkers struct {
	ids  []string
	sets [][]string
}

// newHypothesis reports whether names holds a name that no annotator was
// offered when an unknown was reported. A set that only shrank is not new.
func (m unknownMarkers) newHypothesis(names []string) bool {
	for _, name := range names {
		offered := false
		for _, set := range m.sets {
			if slices.Contains(set, name) {
				offered = true
				break
			}
		}
		if !offered {
			return true
		}
	}
	return false
}

func (r *InRobot) unknownMarkers(ctx context.Context) (map[string]unknownMarkers, error) {
	annotations, err := r.env.Store.Annotations(ctx, store.AnnotationFilter{LayerID: r.env.Catalog.Unknown.ID})
	if err != nil {
		return nil, err
	}
	out := make(map[string]unknownMarkers)
	for _, a := range annotations {
		m := out[a.Fragment.Ref]
		m.ids = append(m.ids, a.ID)
		record, err := store.DecodeData[store.UnknownRecord](a.Data)
		if err != nil {
			record = store.UnknownRecord{}
		}
		set := HypothesisSet(record.Hypothesis)
		if set == nil {
			set = []string{}
		}
		m.sets = append(m.sets, set)
		out[a.Fragment.Ref] = m
	}
	return out, nil
}

func (r *InRobot) annotators(ctx context.Context) (map[string][]string, error) {
	annotations, err := r.env.Store.Annotations(ctx, store.AnnotationFilter{LayerID: r.env.Catalog.LabelAll.ID})
	if err != nil {
		return nil, err
	}
	sets := make(map[string]map[string]struct{})
	for _, a := range annotations {
		record, err := store.DecodeData[store.VerdictRecord](a.Data)
		if err != nil || record.Annotator == "" {
			continue
		}
		if sets[a.Fragment.Ref] == nil {
			sets[a.Fragment.Ref] = make(map[string]struct{})
		}
		sets[a.Fragment.Ref][record.Annotator] = struct{}{}
	}
	out := make(map[string][]string, len(sets))
	for shotID, set := range sets {
		out[shotID] = slices.Sorted(maps.Keys(set))
	}
	return out, nil
}

func (r *InRobot) clearUnknown(ctx context.Context, shotID string, ids []string) {
	if r.env.DryRun() {
		r.logger.Info("dry run: would clear unknown marker", logging.String(logging.FieldShotID, shotID))
		return
	}
	for _, id := range ids {
		if err := r.env.Store.DeleteAnnotation(ctx, id); err != nil && !services.IsStale(err) {
			logging.WarnWithContext(r.logger, "unknown marker not cleared", "unknown_clear_failed",
				logging.String(logging.FieldShotID, shotID),
				logging.Error(err),
			)
		}
	}
	r.logger.Info("requeued unknown shot with a new hypothesis", logging.String(logging.FieldShotID, shotID))
}

func allHaveMugshot(names []string, mugshots *mugshot.Registry) bool {
	for _, name := range names {
		if !mugshots.Has(name) {
			return false
		}
	}
	return true
}
