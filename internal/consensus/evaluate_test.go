package consensus_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"persondiscovery/internal/consensus"
	"persondiscovery/internal/store"
)

const (
	sf = store.SpeakingFace
	nf = store.NoFace
	dk = store.DontKnow
)

func votes(name string, statuses ...store.PersonStatus) []consensus.Verdict {
	out := make([]consensus.Verdict, len(statuses))
	for i, s := range statuses {
		out[i] = consensus.Verdict{Annotator: string(rune('a' + i)), Known: map[string]store.PersonStatus{name: s}}
	}
	return out
}

func TestEvaluateMajority(t *testing.T) {
	tests := []struct {
		name   string
		votes  []consensus.Verdict
		state  consensus.State
		labels map[string]store.PersonStatus
	}{
		{"two of three speaking", votes("x", sf, sf, nf), consensus.Reached, map[string]store.PersonStatus{"x": sf}},
		{"split pair", votes("x", sf, nf), consensus.Accumulating, nil},
		{"unanimous no face", votes("x", nf, nf), consensus.Reached, map[string]store.PersonStatus{"x": nf}},
		{"single expressed vote", votes("x", sf, dk, dk), consensus.Accumulating, nil},
		{"dontKnow wins tie", votes("x", sf, sf, dk, dk), consensus.Accumulating, nil},
		{"no strict majority", votes("x", sf, sf, nf, nf), consensus.Accumulating, nil},
		{"majority despite abstention", votes("x", sf, sf, nf, dk), consensus.Reached, map[string]store.PersonStatus{"x": sf}},
		{"single annotator", votes("x", sf), consensus.Accumulating, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := consensus.Evaluate(tt.votes, 2)
			if got.State != tt.state {
				t.Fatalf("state = %v (%s), want %v", got.State, got.Reason, tt.state)
			}
			if diff := cmp.Diff(tt.labels, got.Labels); diff != "" {
				t.Fatalf("labels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluateDefaultsUnmentionedNames(t *testing.T) {
	verdicts := []consensus.Verdict{
		{Annotator: "a", Known: map[string]store.PersonStatus{"x": sf}},
		{Annotator: "b", Known: map[string]store.PersonStatus{}},
	}
	if got := consensus.Evaluate(verdicts, 2); got.State != consensus.Accumulating {
		t.Fatalf("silent annotator counts as noFace, so 1-1 must not decide: %+v", got)
	}
	verdicts = append(verdicts, consensus.Verdict{Annotator: "c", Known: map[string]store.PersonStatus{"x": sf, "y": nf}})
	got := consensus.Evaluate(verdicts, 2)
	want := map[string]store.PersonStatus{"x": sf, "y": nf}
	if got.State != consensus.Reached {
		t.Fatalf("state = %v (%s)", got.State, got.Reason)
	}
	if diff := cmp.Diff(want, got.Labels); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateIsAllOrNothing(t *testing.T) {
	verdicts := []consensus.Verdict{
		{Annotator: "a", Known: map[string]store.PersonStatus{"x": sf, "y": sf}},
		{Annotator: "b", Known: map[string]store.PersonStatus{"x": sf, "y": nf}},
	}
	got := consensus.Evaluate(verdicts, 2)
	if got.State != consensus.Accumulating || got.Labels != nil {
		t.Fatalf("one undecided name must block the shot: %+v", got)
	}
}

func TestEvaluateUnknownAndEmpty(t *testing.T) {
	verdicts := []consensus.Verdict{
		{Annotator: "a", Known: map[string]store.PersonStatus{"x": sf}},
		{Annotator: "b", Known: map[string]store.PersonStatus{"x": sf}, Unknown: true},
	}
	if got := consensus.Evaluate(verdicts, 2); got.State != consensus.Unknown {
		t.Fatalf("state = %v, want unknown", got.State)
	}

	empty := []consensus.Verdict{{Annotator: "a"}, {Annotator: "b"}}
	got := consensus.Evaluate(empty, 2)
	if got.State != consensus.Reached || len(got.Labels) != 0 {
		t.Fatalf("two annotators seeing nobody should decide an empty shot: %+v", got)
	}
	if got := consensus.Evaluate(empty[:1], 2); got.State != consensus.Accumulating {
		t.Fatalf("state = %v, want accumulating", got.State)
	}
}

func TestVerdictStatusDefaults(t *testing.T) {
	v := consensus.Verdict{Known: map[string]store.PersonStatus{"x": "bogus"}}
	if got := v.Status("x"); got != dk {
		t.Fatalf("invalid status = %q, want dontKnow", got)
	}
	if got := v.Status("y"); got != nf {
		t.Fatalf("unmentioned = %q, want noFace", got)
	}
	v.Unknown = true
	if got := v.Status("y"); got != dk {
		t.Fatalf("unmentioned with unknown = %q, want dontKnow", got)
	}
}

func TestRoundSelectsCurrentHypothesis(t *testing.T) {
	records := []store.VerdictRecord{
		{Annotator: "legacy", Known: map[string]store.PersonStatus{"x": sf}},
		{Annotator: "old", Hypothesis: []string{"x"}, Known: map[string]store.PersonStatus{"x": nf}},
		{Annotator: "a", Hypothesis: []string{"y", "x"}, Known: map[string]store.PersonStatus{"x": nf}},
		{Annotator: "a", Hypothesis: []string{"x", "y"}, Known: map[string]store.PersonStatus{"x": sf}},
		{Annotator: "b", Hypothesis: []string{"x", "y", "x"}, Unknown: true},
	}
	got := consensus.Round(records, []string{"x", "y"})
	want := []consensus.Verdict{
		{Annotator: "legacy", Known: map[string]store.PersonStatus{"x": sf}},
		{Annotator: "a", Known: map[string]store.PersonStatus{"x": sf}},
		{Annotator: "b", Unknown: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round mismatch (-want +got):\n%s", diff)
	}
}
