package leaderboard

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/stat"

	"persondiscovery/internal/textutil"
)

// Hit is one submitted (shot, person, confidence) triple.
type Hit struct {
	ShotID     string
	PersonName string
	Confidence float64
}

// SortHits orders hits by decreasing confidence. Equal confidences are
// ordered by shot id, then person name.
func SortHits(hits []Hit) {
	slices.SortStableFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ShotID, b.ShotID); c != 0 {
			return c
		}
		return cmp.Compare(a.PersonName, b.PersonName)
	})
}

// AveragePrecision scores a ranked list of returned shots against the set
// of relevant shots. Both empty scores 1 and exactly one empty scores 0.
// Otherwise precision at every relevant rank is summed and divided by the
// smaller of the two list sizes.
func AveragePrecision(returned []string, relevant map[string]struct{}) float64 {
	switch {
	case len(returned) == 0 && len(relevant) == 0:
		return 1
	case len(returned) == 0 || len(relevant) == 0:
		return 0
	}
	hits, sum := 0, 0.0
	for rank, shot := range returned {
		if _, ok := relevant[shot]; !ok {
			continue
		}
		hits++
		sum += float64(hits) / float64(rank+1)
	}
	return sum / float64(min(len(returned), len(relevant)))
}

// Returned lists, in rank order, the shots of sorted hits whose person name
// matches query.
func Returned(sorted []Hit, query string, threshold float64) []string {
	var out []string
	for _, h := range sorted {
		if textutil.Match(query, h.PersonName, threshold) {
			out = append(out, h.ShotID)
		}
	}
	return out
}

// MeanAveragePrecision averages the per-query average precision of hits
// over every query of ref. Hits on shots outside ref are ignored. An empty
// query set scores 0.
func MeanAveragePrecision(hits []Hit, ref *Reference, threshold float64) (float64, map[string]float64) {
	evaluated := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if _, ok := ref.Shots[h.ShotID]; ok {
			evaluated = append(evaluated, h)
		}
	}
	SortHits(evaluated)

	perQuery := make(map[string]float64, len(ref.Relevant))
	if len(ref.Relevant) == 0 {
		return 0, perQuery
	}
	values := make([]float64, 0, len(ref.Relevant))
	for _, query := range ref.Queries() {
		ap := AveragePrecision(Returned(evaluated, query, threshold), ref.Relevant[query])
		perQuery[query] = ap
		values = append(values, ap)
	}
	return stat.Mean(values, nil), perQuery
}
