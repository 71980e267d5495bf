package testsupport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"persondiscovery/internal/catalog"
	"persondiscovery/internal/config"
	"persondiscovery/internal/fairqueue"
	"persondiscovery/internal/logging"
	"persondiscovery/internal/robot"
	"persondiscovery/internal/store"
	"persondiscovery/internal/store/sqlitestore"
)

// Workflow bundles a provisioned store for robot tests.
type Workflow struct {
	Config  *config.Config
	Store   *sqlitestore.Store
	Catalog *catalog.Catalog
}

// NewWorkflow opens a fresh store and provisions every workflow resource.
func NewWorkflow(t testing.TB, opts ...ConfigOption) *Workflow {
	t.Helper()

	cfg := NewConfig(t, opts...)
	st := MustOpenStore(t, cfg)
	return &Workflow{Config: cfg, Store: st, Catalog: MustEnsureCatalog(t, st, cfg)}
}

// Env builds a robot environment on the workflow store with a manual clock.
func (w *Workflow) Env(role string, clock *robot.ManualClock) *robot.Env {
	if clock == nil {
		clock = robot.NewManualClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	}
	return &robot.Env{
		Config:  w.Config,
		Role:    role,
		Store:   w.Store,
		Catalog: w.Catalog,
		Backend: fairqueue.StoreBackend{Store: w.Store},
		Clock:   clock,
		Logger:  logging.NewNop(),
	}
}

// LabelRow is one hypothesis of a label layer.
type LabelRow struct {
	MediumID   string
	ShotID     string
	PersonName string
	Confidence float64
}

// EvidenceRow is one hypothesis of an evidence layer.
type EvidenceRow struct {
	MediumID   string
	ShotID     string
	PersonName string
	Source     string
}

// AddMedium creates a medium in the test corpus.
func (w *Workflow) AddMedium(t testing.TB, name string) store.Medium {
	t.Helper()

	m, err := w.Store.CreateMedium(context.Background(), w.Catalog.Corpus.ID, name, name)
	if err != nil {
		t.Fatalf("CreateMedium: %v", err)
	}
	return m
}

// AddShots creates consecutive shots (numbered from 1) on a medium and
// returns their ids in order.
func (w *Workflow) AddShots(t testing.TB, mediumID string, segments ...store.Segment) []string {
	t.Helper()

	annotations := make([]store.Annotation, 0, len(segments))
	for i, segment := range segments {
		annotations = append(annotations, store.Annotation{
			MediumID: mediumID,
			Fragment: store.ShotFragment(store.Shot{Number: i + 1, Segment: segment}),
			Data:     json.RawMessage(`{}`),
		})
	}
	created, err := w.Store.CreateAnnotations(context.Background(), w.Catalog.SubmissionShot.ID, annotations)
	if err != nil {
		t.Fatalf("CreateAnnotations(shots): %v", err)
	}
	ids := make([]string, len(created))
	for i, a := range created {
		ids[i] = a.ID
	}
	return ids
}

// AddTeam creates a team group.
func (w *Workflow) AddTeam(t testing.TB, name string) store.Principal {
	t.Helper()

	p, err := w.Store.CreatePrincipal(context.Background(), name, store.PrincipalGroup)
	if err != nil {
		t.Fatalf("CreatePrincipal: %v", err)
	}
	return p
}

// Group returns an existing group by name.
func (w *Workflow) Group(t testing.TB, name string) store.Principal {
	t.Helper()

	p, err := catalog.PrincipalByName(context.Background(), w.Store, store.PrincipalGroup, name)
	if err != nil {
		t.Fatalf("PrincipalByName: %v", err)
	}
	return p
}

// AddSubmission creates an original label/evidence layer pair for a team run.
func (w *Workflow) AddSubmission(t testing.TB, teamID, run string, status store.SubmissionStatus, labels []LabelRow, evidence []EvidenceRow) (store.Layer, store.Layer) {
	t.Helper()
	ctx := context.Background()

	evidenceLayer, err := w.Store.CreateLayer(ctx, store.Layer{
		CorpusID:     w.Catalog.Corpus.ID,
		Name:         run + " (evidence)",
		DataType:     store.DataEvidence,
		FragmentType: store.FragmentShotID,
		Description:  store.EvidenceDescription{TeamID: teamID, Status: status},
	})
	if err != nil {
		t.Fatalf("CreateLayer(evidence): %v", err)
	}
	labelLayer, err := w.Store.CreateLayer(ctx, store.Layer{
		CorpusID:     w.Catalog.Corpus.ID,
		Name:         run,
		DataType:     store.DataLabel,
		FragmentType: store.FragmentShotID,
		Description:  store.LabelDescription{TeamID: teamID, Status: status, EvidenceID: evidenceLayer.ID},
	})
	if err != nil {
		t.Fatalf("CreateLayer(label): %v", err)
	}
	evidenceDesc := evidenceLayer.Evidence()
	evidenceDesc.LabelID = labelLayer.ID
	if err := w.Store.UpdateLayerDescription(ctx, evidenceLayer.ID, evidenceDesc); err != nil {
		t.Fatalf("UpdateLayerDescription: %v", err)
	}
	evidenceLayer.Description = evidenceDesc

	labelAnnotations := make([]store.Annotation, 0, len(labels))
	for _, row := range labels {
		labelAnnotations = append(labelAnnotations, store.Annotation{
			MediumID: row.MediumID,
			Fragment: store.RefFragment(row.ShotID),
			Data:     MustJSON(t, store.LabelHypothesis{PersonName: row.PersonName, Confidence: row.Confidence}),
		})
	}
	if _, err := w.Store.CreateAnnotations(ctx, labelLayer.ID, labelAnnotations); err != nil {
		t.Fatalf("CreateAnnotations(label): %v", err)
	}

	evidenceAnnotations := make([]store.Annotation, 0, len(evidence))
	for _, row := range evidence {
		evidenceAnnotations = append(evidenceAnnotations, store.Annotation{
			MediumID: row.MediumID,
			Fragment: store.RefFragment(row.ShotID),
			Data:     MustJSON(t, store.EvidenceHypothesis{PersonName: row.PersonName, Source: row.Source}),
		})
	}
	if _, err := w.Store.CreateAnnotations(ctx, evidenceLayer.ID, evidenceAnnotations); err != nil {
		t.Fatalf("CreateAnnotations(evidence): %v", err)
	}
	return labelLayer, evidenceLayer
}

// Layer fetches a live layer or fails the test.
func (w *Workflow) Layer(t testing.TB, id string) store.Layer {
	t.Helper()

	lookup, err := w.Store.Layer(context.Background(), id)
	if err != nil {
		t.Fatalf("Layer(%s): %v", id, err)
	}
	layer, ok := lookup.Get()
	if !ok {
		t.Fatalf("Layer(%s): %s", id, lookup.State)
	}
	return layer
}

// Annotations lists annotations or fails the test.
func (w *Workflow) Annotations(t testing.TB, filter store.AnnotationFilter) []store.Annotation {
	t.Helper()

	annotations, err := w.Store.Annotations(context.Background(), filter)
	if err != nil {
		t.Fatalf("Annotations: %v", err)
	}
	return annotations
}

// Enqueue pushes payloads onto a store queue.
func (w *Workflow) Enqueue(t testing.TB, queue store.Queue, payloads ...any) {
	t.Helper()

	items := make([]json.RawMessage, 0, len(payloads))
	for _, p := range payloads {
		items = append(items, MustJSON(t, p))
	}
	if err := w.Store.Enqueue(context.Background(), queue.ID, items...); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
}

// QueueItems decodes every pending item of a store queue.
func QueueItems[T any](t testing.TB, w *Workflow, queue store.Queue) []T {
	t.Helper()

	raw, err := w.Store.QueueItems(context.Background(), queue.ID)
	if err != nil {
		t.Fatalf("QueueItems: %v", err)
	}
	items := make([]T, 0, len(raw))
	for _, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			t.Fatalf("decode queue item: %v", err)
		}
		items = append(items, item)
	}
	return items
}

// MustJSON marshals v or fails the test.
func MustJSON(t testing.TB, v any) json.RawMessage {
	t.Helper()

	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return payload
}
