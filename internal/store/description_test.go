package store_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

func TestDecodeLabelDescriptionMapping(t *testing.T) {
	raw := []byte(`{"id_team":"g1","status":"complete","id_evidence":"ev","mapping":{"a_b":"a_b","c_d":false,"e_f":null},"copy":"orig"}`)
	desc, err := store.DecodeDescription(store.DataLabel, raw)
	if err != nil {
		t.Fatalf("DecodeDescription: %v", err)
	}
	label, ok := desc.(store.LabelDescription)
	if !ok {
		t.Fatalf("expected LabelDescription, got %T", desc)
	}
	want := store.LabelDescription{
		TeamID:     "g1",
		Status:     store.StatusComplete,
		EvidenceID: "ev",
		Mapping: map[string]store.Resolution{
			"a_b": store.Corrected("a_b"),
			"c_d": store.Rejected(),
		},
		Copy: "orig",
	}
	if diff := cmp.Diff(want, label); diff != "" {
		t.Fatalf("label description mismatch (-want +got):\n%s", diff)
	}
	if label.IsOriginalComplete() {
		t.Fatal("a copy must never be an original complete submission")
	}
}

func TestEncodeLabelDescriptionKeepsRejections(t *testing.T) {
	desc := store.LabelDescription{Mapping: map[string]store.Resolution{"x_y": store.Rejected()}}
	payload, err := store.EncodeDescription(desc)
	if err != nil {
		t.Fatalf("EncodeDescription: %v", err)
	}
	var generic map[string]map[string]any
	if err := json.Unmarshal(payload, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if generic["mapping"]["x_y"] != false {
		t.Fatalf("expected rejection encoded as false, got %v", generic["mapping"]["x_y"])
	}
}

func TestDecodeDescriptionTolerance(t *testing.T) {
	desc, err := store.DecodeDescription(store.DataEvidence, nil)
	if err != nil {
		t.Fatalf("empty description: %v", err)
	}
	if desc.DataType() != store.DataEvidence {
		t.Fatalf("unexpected data type %q", desc.DataType())
	}

	_, err = store.DecodeDescription(store.DataEvidence, []byte(`{"annotationsComplete":"yes"}`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for wrong type, got %v", err)
	}

	desc, err = store.DecodeDescription("custom", []byte(`{"k":1}`))
	if err != nil {
		t.Fatalf("raw description: %v", err)
	}
	payload, err := store.EncodeDescription(desc)
	if err != nil {
		t.Fatalf("encode raw: %v", err)
	}
	if string(payload) != `{"k":1}` {
		t.Fatalf("expected raw description preserved, got %s", payload)
	}
}

func TestFragmentForms(t *testing.T) {
	var ref store.Fragment
	if err := json.Unmarshal([]byte(`"shot-1"`), &ref); err != nil {
		t.Fatalf("unmarshal ref: %v", err)
	}
	if ref.Ref != "shot-1" || ref.Shot != nil {
		t.Fatalf("unexpected ref fragment: %+v", ref)
	}

	var inline store.Fragment
	payload := []byte(`{"shot_number":"12","segment":{"start":"1.5","end":3},"frames":{"start":"37","end":75}}`)
	if err := json.Unmarshal(payload, &inline); err != nil {
		t.Fatalf("unmarshal inline: %v", err)
	}
	want := store.Shot{Number: 12, Segment: store.Segment{Start: 1.5, End: 3}, Frames: store.FrameSpan{Start: 37, End: 75}}
	if inline.Shot == nil || *inline.Shot != want {
		t.Fatalf("unexpected inline fragment: %+v", inline.Shot)
	}

	encoded, err := json.Marshal(store.ShotFragment(want))
	if err != nil {
		t.Fatalf("marshal inline: %v", err)
	}
	var again store.Fragment
	if err := json.Unmarshal(encoded, &again); err != nil {
		t.Fatalf("unmarshal encoded: %v", err)
	}
	if *again.Shot != want {
		t.Fatalf("inline fragment changed: %+v", again.Shot)
	}

	var bad store.Fragment
	if err := json.Unmarshal([]byte(`42`), &bad); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLookupStates(t *testing.T) {
	found := store.Found("x")
	if v, ok := found.Get(); !ok || v != "x" {
		t.Fatalf("unexpected found lookup: %v %v", v, ok)
	}
	if store.NotFound[string]().Ok() {
		t.Fatal("not found must not be ok")
	}
	deleted := store.AlreadyDeleted[int]()
	if deleted.Ok() || deleted.State.String() != "already_deleted" {
		t.Fatalf("unexpected deleted lookup: %+v", deleted)
	}
}

func TestEvidenceRecordResolution(t *testing.T) {
	accepted := store.EvidenceRecord{IsEvidence: true, CorrectedPersonName: "john_doe"}
	if r := accepted.Resolution(); r.Rejected || r.Name != "john_doe" {
		t.Fatalf("unexpected resolution %+v", r)
	}
	rejected := store.EvidenceRecord{IsEvidence: false, CorrectedPersonName: "ignored"}
	if r := rejected.Resolution(); !r.Rejected {
		t.Fatalf("expected rejection, got %+v", r)
	}
}
