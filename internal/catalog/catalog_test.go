package catalog_test

import (
	"context"
	"errors"
	"testing"

	"persondiscovery/internal/catalog"
	"persondiscovery/internal/logging"
	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
	"persondiscovery/internal/testsupport"
)

func TestResolveFailsOnEmptyStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	_, err := catalog.Resolve(context.Background(), st, cfg)
	if !services.IsFatal(err) {
		t.Fatalf("error = %v, want configuration error", err)
	}
	if !errors.Is(err, catalog.ErrMissing) {
		t.Fatalf("error = %v, want ErrMissing", err)
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, err := catalog.Ensure(ctx, st, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	second, err := catalog.Ensure(ctx, st, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("second Ensure failed: %v", err)
	}
	if first.Consensus.ID != second.Consensus.ID || first.Queues.LabelIn.ID != second.Queues.LabelIn.ID {
		t.Fatal("expected Ensure to reuse existing resources")
	}

	layers, err := st.Layers(ctx, first.Corpus.ID, "")
	if err != nil {
		t.Fatalf("Layers failed: %v", err)
	}
	if len(layers) != 6 {
		t.Fatalf("expected 6 shared layers, got %d", len(layers))
	}

	resolved, err := catalog.Resolve(ctx, st, cfg)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Mugshot.DataType != store.DataMugshot {
		t.Fatalf("mugshot layer type = %q", resolved.Mugshot.DataType)
	}
	if resolved.Queues.EvidenceOut.Name != cfg.Queues.EvidenceOut {
		t.Fatalf("evidence-out queue = %q", resolved.Queues.EvidenceOut.Name)
	}

	perms, err := st.LayerPermissions(ctx, resolved.Consensus.ID)
	if err != nil {
		t.Fatalf("LayerPermissions failed: %v", err)
	}
	if perms[resolved.RobotLabel.ID] != store.PermissionAdmin {
		t.Fatalf("robot_label permission on consensus = %s", perms[resolved.RobotLabel.ID])
	}
}

func TestResolveRejectsAmbiguousLayer(t *testing.T) {
	w := testsupport.NewWorkflow(t)
	ctx := context.Background()

	if _, err := w.Store.CreateLayer(ctx, store.Layer{
		CorpusID: w.Catalog.Corpus.ID,
		Name:     w.Config.Corpus.Mugshot,
		DataType: store.DataMugshot,
	}); err != nil {
		t.Fatalf("CreateLayer failed: %v", err)
	}
	_, err := catalog.Resolve(ctx, w.Store, w.Config)
	if !services.IsFatal(err) {
		t.Fatalf("error = %v, want configuration error", err)
	}
	if errors.Is(err, catalog.ErrMissing) {
		t.Fatal("ambiguous layer must not be reported as missing")
	}
	if _, err := catalog.Ensure(ctx, w.Store, w.Config, logging.NewNop()); err == nil {
		t.Fatal("Ensure must not paper over an ambiguous layer")
	}
}

func TestResolveRejectsWrongDataType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	corpus, err := st.CreateCorpus(ctx, cfg.Corpus.Test)
	if err != nil {
		t.Fatalf("CreateCorpus failed: %v", err)
	}
	if _, err := st.CreateLayer(ctx, store.Layer{CorpusID: corpus.ID, Name: cfg.Corpus.SubmissionShot, DataType: store.DataLabel}); err != nil {
		t.Fatalf("CreateLayer failed: %v", err)
	}
	if _, err := catalog.Ensure(ctx, st, cfg, logging.NewNop()); !services.IsFatal(err) {
		t.Fatalf("error = %v, want configuration error", err)
	}
}

func TestShotIndexNeighbors(t *testing.T) {
	w := testsupport.NewWorkflow(t)
	m1 := w.AddMedium(t, "video-1")
	m2 := w.AddMedium(t, "video-2")
	shots := w.AddShots(t, m1.ID,
		store.Segment{Start: 0, End: 2},
		store.Segment{Start: 2, End: 4},
		store.Segment{Start: 4, End: 6},
		store.Segment{Start: 6, End: 8},
	)
	other := w.AddShots(t, m2.ID, store.Segment{Start: 0, End: 3})

	idx, err := catalog.LoadShots(context.Background(), w.Store, w.Catalog.SubmissionShot.ID)
	if err != nil {
		t.Fatalf("LoadShots failed: %v", err)
	}
	if idx.Len() != 5 {
		t.Fatalf("Len = %d, want 5", idx.Len())
	}
	ref, ok := idx.Shot(shots[2])
	if !ok || ref.Number != 3 || ref.MediumID != m1.ID || ref.Segment.Start != 4 {
		t.Fatalf("Shot = %+v, %v", ref, ok)
	}

	var ids []string
	for _, n := range idx.Neighbors(shots[1], 1) {
		ids = append(ids, n.ID)
	}
	if len(ids) != 2 || ids[0] != shots[0] || ids[1] != shots[2] {
		t.Fatalf("Neighbors = %v, want [%s %s]", ids, shots[0], shots[2])
	}
	if n := idx.Neighbors(other[0], 3); len(n) != 0 {
		t.Fatalf("shots of other media must not be neighbors: %v", n)
	}
	if n := idx.Neighbors("missing", 1); n != nil {
		t.Fatalf("unknown shot neighbors = %v", n)
	}
}
