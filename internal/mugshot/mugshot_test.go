package mugshot_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"persondiscovery/internal/config"
	"persondiscovery/internal/mugshot"
	"persondiscovery/internal/store"
	"persondiscovery/internal/testsupport"
)

func solidFrame(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func writeFrame(t *testing.T, dir string, millis string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir frames: %v", err)
	}
	f, err := os.Create(filepath.Join(dir, millis+".png"))
	if err != nil {
		t.Fatalf("create frame: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode frame: %v", err)
	}
}

func decodePNG(t *testing.T, encoded string) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	return img
}

func TestCropScalesToSquare(t *testing.T) {
	cfg := config.Default().Mugshot
	frame := solidFrame(768, 576, color.RGBA{R: 200, A: 255})

	crop, err := mugshot.Crop(frame, store.BoundingBox{X: 0.25, Y: 0.25, W: 0.2, H: 0.3}, cfg)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if b := crop.Bounds(); b.Dx() != cfg.Size || b.Dy() != cfg.Size {
		t.Fatalf("crop bounds = %v, want %dx%d", b, cfg.Size, cfg.Size)
	}
	r, _, _, _ := crop.At(cfg.Size/2, cfg.Size/2).RGBA()
	if r>>8 < 190 {
		t.Fatalf("crop lost frame content, red = %d", r>>8)
	}

	if _, err := mugshot.Crop(frame, store.BoundingBox{X: 1.2, Y: 0.1, W: 0.1, H: 0.1}, cfg); err == nil {
		t.Fatal("expected error for a box outside the frame")
	}
}

func TestStripPlacesCropsSideBySide(t *testing.T) {
	crops := []image.Image{
		solidFrame(10, 10, color.White),
		solidFrame(10, 10, color.Black),
		solidFrame(10, 10, color.White),
	}
	strip := mugshot.Strip(crops)
	if b := strip.Bounds(); b.Dx() != 30 || b.Dy() != 10 {
		t.Fatalf("strip bounds = %v", b)
	}
	if r, _, _, _ := strip.At(15, 5).RGBA(); r != 0 {
		t.Fatalf("middle crop should be black, red = %d", r)
	}
}

func TestDirFramesPicksNearestFrame(t *testing.T) {
	root := t.TempDir()
	writeFrame(t, filepath.Join(root, "video-1"), "1000", solidFrame(4, 4, color.White))
	writeFrame(t, filepath.Join(root, "video-1"), "2000", solidFrame(8, 8, color.Black))

	frames := mugshot.DirFrames{Root: root}
	img, err := frames.Frame(context.Background(), store.Medium{ID: "m1", URL: "video-1"}, 1.8)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Fatalf("expected the 2000ms frame, got bounds %v", img.Bounds())
	}
	if _, err := frames.Frame(context.Background(), store.Medium{ID: "m2", URL: "missing"}, 1); err == nil {
		t.Fatal("expected error for a medium without frames")
	}
}

func TestRegistryCountsAnchors(t *testing.T) {
	w := testsupport.NewWorkflow(t)
	m := w.AddMedium(t, "video-1")
	if _, err := w.Store.CreateAnnotations(context.Background(), w.Catalog.Mugshot.ID, []store.Annotation{{
		MediumID: m.ID,
		Fragment: store.RefFragment("john_doe"),
		Data:     testsupport.MustJSON(t, store.MugshotRecord{Number: 1}),
	}}); err != nil {
		t.Fatalf("CreateAnnotations failed: %v", err)
	}
	reg, err := mugshot.LoadRegistry(context.Background(), w.Store, w.Catalog.Mugshot.ID, []string{"Anchor Person"})
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}
	for _, name := range []string{"john_doe", "anchor_person", "Anchor Person"} {
		if !reg.Has(name) {
			t.Fatalf("expected %q to have a mugshot", name)
		}
	}
	if reg.Has("jane_roe") {
		t.Fatal("jane_roe has no mugshot")
	}
}

type robotFixture struct {
	w     *testsupport.Workflow
	media store.Medium
	shots []string
}

func newRobotFixture(t *testing.T) robotFixture {
	t.Helper()
	w := testsupport.NewWorkflow(t)
	m := w.AddMedium(t, "video-1")
	shots := w.AddShots(t, m.ID, store.Segment{Start: 0, End: 4}, store.Segment{Start: 4, End: 8}, store.Segment{Start: 8, End: 12})
	return robotFixture{w: w, media: m, shots: shots}
}

func (f robotFixture) addEvidence(t *testing.T, shotID string, record store.EvidenceRecord) {
	t.Helper()
	if _, err := f.w.Store.CreateAnnotations(context.Background(), f.w.Catalog.EvidenceAll.ID, []store.Annotation{{
		MediumID: f.media.ID,
		Fragment: store.RefFragment(shotID),
		Data:     testsupport.MustJSON(t, record),
	}}); err != nil {
		t.Fatalf("CreateAnnotations failed: %v", err)
	}
}

func accepted(name, source string, at float64) store.EvidenceRecord {
	return store.EvidenceRecord{
		PersonName:          name,
		Source:              source,
		IsEvidence:          true,
		CorrectedPersonName: name,
		Mugshot:             &store.MugshotRef{Time: at, BoundingBox: store.BoundingBox{X: 0.1, Y: 0.1, W: 0.3, H: 0.4}},
	}
}

func TestRobotRegeneratesOnlyWhenEvidenceChanges(t *testing.T) {
	f := newRobotFixture(t)
	ctx := context.Background()
	writeFrame(t, filepath.Join(f.w.Config.Paths.FramesDir, "video-1"), "0", solidFrame(384, 288, color.RGBA{G: 180, A: 255}))

	f.addEvidence(t, f.shots[0], accepted("john_doe", "image", 1.5))
	f.addEvidence(t, f.shots[1], accepted("john_doe", "audio", 5))
	f.addEvidence(t, f.shots[2], store.EvidenceRecord{PersonName: "john_doe", Source: "image", IsEvidence: false})
	f.addEvidence(t, f.shots[2], store.EvidenceRecord{PersonName: "jane_roe", Source: "audio", IsEvidence: true, CorrectedPersonName: "jane_roe"})

	r := mugshot.New(f.w.Env(config.RoleMugshot, nil), mugshot.DirFrames{Root: f.w.Config.Paths.FramesDir})
	stats, err := r.Pass(ctx)
	if err != nil {
		t.Fatalf("Pass failed: %v", err)
	}
	if stats.People != 1 || stats.Generated != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	annotations := f.w.Annotations(t, store.AnnotationFilter{LayerID: f.w.Catalog.Mugshot.ID})
	if len(annotations) != 1 || annotations[0].Fragment.Ref != "john_doe" {
		t.Fatalf("unexpected mugshot annotations: %+v", annotations)
	}
	record, err := store.DecodeData[store.MugshotRecord](annotations[0].Data)
	if err != nil {
		t.Fatalf("decode mugshot: %v", err)
	}
	size := f.w.Config.Mugshot.Size
	if b := decodePNG(t, record.PNG).Bounds(); b.Dx() != size || b.Dy() != size {
		t.Fatalf("single crop bounds = %v", b)
	}
	if b := decodePNG(t, record.Strip).Bounds(); b.Dx() != 2*size || b.Dy() != size {
		t.Fatalf("strip bounds = %v", b)
	}
	if record.Number != 2 {
		t.Fatalf("number = %d, want 2", record.Number)
	}
	if got := f.w.Layer(t, f.w.Catalog.Mugshot.ID).Mugshot().Mugshots["john_doe"]; got != 2 {
		t.Fatalf("recorded count = %d, want 2", got)
	}

	stats, err = r.Pass(ctx)
	if err != nil {
		t.Fatalf("second Pass failed: %v", err)
	}
	if stats.Generated != 0 || stats.Unchanged != 1 {
		t.Fatalf("unchanged evidence must not regenerate: %+v", stats)
	}
	first := annotations[0].ID

	f.addEvidence(t, f.shots[2], accepted("john_doe", "image", 9))
	stats, err = r.Pass(ctx)
	if err != nil {
		t.Fatalf("third Pass failed: %v", err)
	}
	if stats.Generated != 1 {
		t.Fatalf("new evidence must regenerate: %+v", stats)
	}
	annotations = f.w.Annotations(t, store.AnnotationFilter{LayerID: f.w.Catalog.Mugshot.ID})
	if len(annotations) != 1 || annotations[0].ID == first {
		t.Fatalf("expected exactly one replacement mugshot, got %+v", annotations)
	}
}

func TestRobotLeavesCountWhenFramesMissing(t *testing.T) {
	f := newRobotFixture(t)
	f.addEvidence(t, f.shots[0], accepted("john_doe", "image", 1.5))

	r := mugshot.New(f.w.Env(config.RoleMugshot, nil), mugshot.DirFrames{Root: f.w.Config.Paths.FramesDir})
	stats, err := r.Pass(context.Background())
	if err != nil {
		t.Fatalf("Pass failed: %v", err)
	}
	if stats.Failed != 1 || stats.Generated != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if n := len(f.w.Annotations(t, store.AnnotationFilter{LayerID: f.w.Catalog.Mugshot.ID})); n != 0 {
		t.Fatalf("mugshot annotations = %d, want 0", n)
	}
	if _, ok := f.w.Layer(t, f.w.Catalog.Mugshot.ID).Mugshot().Mugshots["john_doe"]; ok {
		t.Fatal("count must not be recorded for a failed regeneration")
	}
}
