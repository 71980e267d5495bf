package consensus

import (
	"slices"

	"persondiscovery/internal/store"
)

// HypothesisSet returns names sorted and without duplicates.
func HypothesisSet(names []string) []string {
	set := slices.Clone(names)
	slices.Sort(set)
	return slices.Compact(set)
}

// Round keeps the verdicts given for the hypothesis set currently offered on
// a shot. Records carrying no hypothesis list predate rounds and always
// count. When an annotator answered more than once, the latest record wins;
// records must be in the order they were stored.
func Round(records []store.VerdictRecord, hypothesis []string) []Verdict {
	current := HypothesisSet(hypothesis)
	latest := make(map[string]int)
	var out []Verdict
	for _, r := range records {
		if r.Hypothesis != nil && !slices.Equal(HypothesisSet(r.Hypothesis), current) {
			continue
		}
		v := Verdict{Annotator: r.Annotator, Known: r.Known, Unknown: r.Unknown}
		if i, ok := latest[r.Annotator]; ok {
			out[i] = v
			continue
		}
		latest[r.Annotator] = len(out)
		out = append(out, v)
	}
	return out
}
