package consensus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"persondiscovery/internal/config"
	"persondiscovery/internal/consensus"
	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
	"persondiscovery/internal/submission"
	"persondiscovery/internal/testsupport"
)

type fixture struct {
	w     *testsupport.Workflow
	media store.Medium
	shots []string
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) fixture {
	t.Helper()
	opts = append(opts, testsupport.WithMutation(func(c *config.Config) {
		c.Label.Anchors = []string{"anchor_one"}
		c.Label.NeighborShots = 1
		c.Label.SkipEmptyShots = true
	}))
	w := testsupport.NewWorkflow(t, opts...)
	m := w.AddMedium(t, "video-1")
	shots := w.AddShots(t, m.ID,
		store.Segment{Start: 0, End: 4},
		store.Segment{Start: 4, End: 8},
		store.Segment{Start: 8, End: 12},
	)
	return fixture{w: w, media: m, shots: shots}
}

func (f fixture) result(shotID, user string, hypothesis []string, known map[string]store.PersonStatus, unknown bool) store.LabelResult {
	return store.LabelResult{
		Input:  store.LabelTask{ShotID: shotID, MediumID: f.media.ID, Hypothesis: hypothesis},
		Output: store.LabelVerdict{Known: known, Unknown: unknown},
		Log:    store.ItemLog{User: user},
	}
}

func (f fixture) annotate(t *testing.T, layerID, shotID string, payload any) {
	t.Helper()
	if _, err := f.w.Store.CreateAnnotations(context.Background(), layerID, []store.Annotation{{
		MediumID: f.media.ID,
		Fragment: store.RefFragment(shotID),
		Data:     testsupport.MustJSON(t, payload),
	}}); err != nil {
		t.Fatalf("CreateAnnotations failed: %v", err)
	}
}

// submit creates a processed submission and returns its label copy id.
func (f fixture) submit(t *testing.T, team string, labels []testsupport.LabelRow) string {
	t.Helper()
	group := f.w.AddTeam(t, team)
	label, ev := f.w.AddSubmission(t, group.ID, "primary", store.StatusComplete, labels, nil)
	pair, err := submission.New(f.w.Env(config.RoleSubmission, nil)).Process(context.Background(), store.SubmissionItem{
		EvidenceID: ev.ID, LabelID: label.ID, Team: team, User: "u", Name: "primary",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	return pair.Label
}

func (f fixture) setMapping(t *testing.T, layerID string, mapping map[string]store.Resolution) {
	t.Helper()
	desc := f.w.Layer(t, layerID).Label()
	desc.Mapping = mapping
	if err := f.w.Store.UpdateLayerDescription(context.Background(), layerID, desc); err != nil {
		t.Fatalf("UpdateLayerDescription failed: %v", err)
	}
}

func TestRecordReachesConsensusOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := consensus.NewOutRobot(f.w.Env(config.RoleLabelOut, nil))
	hyp := []string{"john_doe"}

	steps := []struct {
		user   string
		status store.PersonStatus
		want   consensus.State
	}{
		{"alice", store.SpeakingFace, consensus.Accumulating},
		{"bob", store.NoFace, consensus.Accumulating},
		{"carol", store.SpeakingFace, consensus.Reached},
		{"dave", store.NoFace, consensus.Reached},
	}
	for _, step := range steps {
		decision, err := r.Record(ctx, f.result(f.shots[0], step.user, hyp, map[string]store.PersonStatus{"john_doe": step.status}, false))
		if err != nil {
			t.Fatalf("Record(%s) failed: %v", step.user, err)
		}
		if decision.State != step.want {
			t.Fatalf("after %s state = %v (%s), want %v", step.user, decision.State, decision.Reason, step.want)
		}
	}

	all := f.w.Annotations(t, store.AnnotationFilter{LayerID: f.w.Catalog.LabelAll.ID, Fragment: f.shots[0]})
	if len(all) != 4 {
		t.Fatalf("stored verdicts = %d, want 4", len(all))
	}
	decided := f.w.Annotations(t, store.AnnotationFilter{LayerID: f.w.Catalog.Consensus.ID})
	if len(decided) != 1 {
		t.Fatalf("consensus annotations = %d, want 1", len(decided))
	}
	labels, err := store.DecodeData[map[string]store.PersonStatus](decided[0].Data)
	if err != nil {
		t.Fatalf("decode consensus: %v", err)
	}
	if diff := cmp.Diff(map[string]store.PersonStatus{"john_doe": store.SpeakingFace}, labels); diff != "" {
		t.Fatalf("consensus mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordMarksUnknownOncePerHypothesis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := consensus.NewOutRobot(f.w.Env(config.RoleLabelOut, nil))

	for _, user := range []string{"alice", "bob"} {
		decision, err := r.Record(ctx, f.result(f.shots[1], user, []string{"x_y"}, nil, true))
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if decision.State != consensus.Unknown {
			t.Fatalf("state = %v, want unknown", decision.State)
		}
	}
	markers := f.w.Annotations(t, store.AnnotationFilter{LayerID: f.w.Catalog.Unknown.ID})
	if len(markers) != 1 {
		t.Fatalf("unknown markers = %d, want 1", len(markers))
	}
	record, err := store.DecodeData[store.UnknownRecord](markers[0].Data)
	if err != nil || !cmp.Equal(record.Hypothesis, []string{"x_y"}) {
		t.Fatalf("marker = %+v, %v", record, err)
	}

	decision, err := r.Record(ctx, f.result(f.shots[1], "carol", []string{"new_person", "x_y"}, map[string]store.PersonStatus{"x_y": store.NoFace}, false))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if decision.State != consensus.Accumulating {
		t.Fatalf("verdicts of an earlier round must not count: %+v", decision)
	}
}

func TestRecordRejectsInvalidStatus(t *testing.T) {
	f := newFixture(t)
	r := consensus.NewOutRobot(f.w.Env(config.RoleLabelOut, nil))
	_, err := r.Record(context.Background(), f.result(f.shots[0], "alice", nil, map[string]store.PersonStatus{"x": "maybe"}, false))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if n := len(f.w.Annotations(t, store.AnnotationFilter{LayerID: f.w.Catalog.LabelAll.ID})); n != 0 {
		t.Fatalf("invalid verdict was stored (%d records)", n)
	}
}

func TestRecordDryRunWritesNothing(t *testing.T) {
	f := newFixture(t, testsupport.WithDryRun())
	r := consensus.NewOutRobot(f.w.Env(config.RoleLabelOut, nil))
	ctx := context.Background()
	known := map[string]store.PersonStatus{"x_y": store.SpeakingFace}
	if _, err := r.Record(ctx, f.result(f.shots[0], "alice", nil, known, false)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	for _, layer := range []string{f.w.Catalog.LabelAll.ID, f.w.Catalog.Consensus.ID} {
		if n := len(f.w.Annotations(t, store.AnnotationFilter{LayerID: layer})); n != 0 {
			t.Fatalf("dry run wrote %d annotations to %s", n, layer)
		}
	}
}

func TestLabelInQueuesReadyShots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	copyID := f.submit(t, "team_alpha", []testsupport.LabelRow{
		{MediumID: f.media.ID, ShotID: f.shots[0], PersonName: "john_doe", Confidence: 0.9},
		{MediumID: f.media.ID, ShotID: f.shots[1], PersonName: "jane_roe", Confidence: 0.8},
		{MediumID: f.media.ID, ShotID: f.shots[1], PersonName: "bad_guess", Confidence: 0.1},
	})
	f.setMapping(t, copyID, map[string]store.Resolution{"john_doe": store.Corrected("john_doe"), "bad_guess": store.Rejected()})
	f.annotate(t, f.w.Catalog.Mugshot.ID, "john_doe", store.MugshotRecord{Number: 1})
	f.annotate(t, f.w.Catalog.LabelAll.ID, f.shots[0], store.VerdictRecord{Annotator: "bob"})
	f.annotate(t, f.w.Catalog.LabelAll.ID, f.shots[0], store.VerdictRecord{Annotator: "alice"})

	r := consensus.NewInRobot(f.w.Env(config.RoleLabelIn, nil))
	stats, err := r.Pass(ctx)
	if err != nil {
		t.Fatalf("Pass failed: %v", err)
	}
	if stats.Queued != 1 || stats.Unchecked != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	want := []store.LabelTask{{
		ShotID:      f.shots[0],
		MediumID:    f.media.ID,
		Start:       0.5,
		End:         3.5,
		Hypothesis:  []string{"john_doe"},
		Others:      []string{"anchor_one"},
		AnnotatedBy: []string{"alice", "bob"},
	}}
	if diff := cmp.Diff(want, testsupport.QueueItems[store.LabelTask](t, f.w, f.w.Catalog.Queues.LabelIn)); diff != "" {
		t.Fatalf("queue mismatch (-want +got):\n%s", diff)
	}

	if stats, err = r.Pass(ctx); err != nil || stats.Queued != 0 {
		t.Fatalf("pending shot must not be queued twice: %+v, %v", stats, err)
	}

	f.setMapping(t, copyID, map[string]store.Resolution{
		"john_doe":  store.Corrected("john_doe"),
		"jane_roe":  store.Corrected("jane_roe"),
		"bad_guess": store.Rejected(),
	})
	if stats, err = r.Pass(ctx); err != nil || stats.Queued != 0 || stats.Unchecked != 1 {
		t.Fatalf("a name without mugshot must block the shot: %+v, %v", stats, err)
	}
	f.annotate(t, f.w.Catalog.Mugshot.ID, "jane_roe", store.MugshotRecord{Number: 1})
	if stats, err = r.Pass(ctx); err != nil || stats.Queued != 1 {
		t.Fatalf("expected second shot to be queued: %+v, %v", stats, err)
	}
	tasks := testsupport.QueueItems[store.LabelTask](t, f.w, f.w.Catalog.Queues.LabelIn)
	if len(tasks) != 2 {
		t.Fatalf("queue length = %d, want 2", len(tasks))
	}
	if diff := cmp.Diff([]string{"jane_roe"}, tasks[1].Hypothesis); diff != "" {
		t.Fatalf("hypothesis mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"anchor_one", "john_doe"}, tasks[1].Others); diff != "" {
		t.Fatalf("others mismatch (-want +got):\n%s", diff)
	}
}

func TestLabelInSkipsDecidedShots(t *testing.T) {
	f := newFixture(t)
	copyID := f.submit(t, "team_alpha", []testsupport.LabelRow{
		{MediumID: f.media.ID, ShotID: f.shots[0], PersonName: "john_doe", Confidence: 0.9},
	})
	f.setMapping(t, copyID, map[string]store.Resolution{"john_doe": store.Corrected("john_doe")})
	f.annotate(t, f.w.Catalog.Mugshot.ID, "john_doe", store.MugshotRecord{Number: 1})
	f.annotate(t, f.w.Catalog.Consensus.ID, f.shots[0], map[string]store.PersonStatus{"john_doe": store.SpeakingFace})

	stats, err := consensus.NewInRobot(f.w.Env(config.RoleLabelIn, nil)).Pass(context.Background())
	if err != nil {
		t.Fatalf("Pass failed: %v", err)
	}
	if stats.Decided != 1 || stats.Queued != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestLabelInRequeuesUnknownOnNewHypothesis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := f.submit(t, "team_alpha", []testsupport.LabelRow{
		{MediumID: f.media.ID, ShotID: f.shots[0], PersonName: "john_doe", Confidence: 0.9},
	})
	f.setMapping(t, alpha, map[string]store.Resolution{"john_doe": store.Corrected("john_doe")})
	f.annotate(t, f.w.Catalog.Mugshot.ID, "john_doe", store.MugshotRecord{Number: 1})
	f.annotate(t, f.w.Catalog.Unknown.ID, f.shots[0], store.UnknownRecord{Hypothesis: []string{"john_doe"}})

	r := consensus.NewInRobot(f.w.Env(config.RoleLabelIn, nil))
	stats, err := r.Pass(ctx)
	if err != nil {
		t.Fatalf("Pass failed: %v", err)
	}
	if stats.Unknown != 1 || stats.Queued != 0 {
		t.Fatalf("unknown shot must wait for a new hypothesis: %+v", stats)
	}

	beta := f.submit(t, "team_beta", []testsupport.LabelRow{
		{MediumID: f.media.ID, ShotID: f.shots[0], PersonName: "jane_roe", Confidence: 0.6},
	})
	f.setMapping(t, beta, map[string]store.Resolution{"jane_roe": store.Corrected("jane_roe")})
	f.annotate(t, f.w.Catalog.Mugshot.ID, "jane_roe", store.MugshotRecord{Number: 1})

	stats, err = r.Pass(ctx)
	if err != nil {
		t.Fatalf("second Pass failed: %v", err)
	}
	if stats.Requeued != 1 || stats.Queued != 1 {
		t.Fatalf("expected the unknown shot to be requeued: %+v", stats)
	}
	if n := len(f.w.Annotations(t, store.AnnotationFilter{LayerID: f.w.Catalog.Unknown.ID})); n != 0 {
		t.Fatalf("unknown marker not cleared (%d left)", n)
	}
	tasks := testsupport.QueueItems[store.LabelTask](t, f.w, f.w.Catalog.Queues.LabelIn)
	if len(tasks) != 1 || !cmp.Equal(tasks[0].Hypothesis, []string{"jane_roe", "john_doe"}) {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestLabelInKeepsUnknownWhenHypothesisShrinks(t *testing.T) {
	f := newFixture(t)
	alpha := f.submit(t, "team_alpha", []testsupport.LabelRow{
		{MediumID: f.media.ID, ShotID: f.shots[0], PersonName: "john_doe", Confidence: 0.9},
	})
	f.setMapping(t, alpha, map[string]store.Resolution{"john_doe": store.Corrected("john_doe")})
	f.annotate(t, f.w.Catalog.Mugshot.ID, "john_doe", store.MugshotRecord{Number: 1})
	f.annotate(t, f.w.Catalog.Unknown.ID, f.shots[0], store.UnknownRecord{Hypothesis: []string{"jane_roe", "john_doe"}})

	stats, err := consensus.NewInRobot(f.w.Env(config.RoleLabelIn, nil)).Pass(context.Background())
	if err != nil {
		t.Fatalf("Pass failed: %v", err)
	}
	if stats.Unknown != 1 || stats.Queued != 0 || stats.Requeued != 0 {
		t.Fatalf("a shrunken hypothesis must not requeue an unknown shot: %+v", stats)
	}
	if n := len(f.w.Annotations(t, store.AnnotationFilter{LayerID: f.w.Catalog.Unknown.ID})); n != 1 {
		t.Fatalf("unknown marker must stay, got %d", n)
	}
	if n := len(testsupport.QueueItems[store.LabelTask](t, f.w, f.w.Catalog.Queues.LabelIn)); n != 0 {
		t.Fatalf("queue length = %d, want 0", n)
	}
}
