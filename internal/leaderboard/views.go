package leaderboard

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"persondiscovery/internal/config"
	"persondiscovery/internal/store"
)

// PrimaryRun is the run name every team designates for the primary ranking.
const PrimaryRun = "primary"

const masked = "?"

// Run is one scored original submission.
type Run struct {
	TeamID string
	Team   string
	Name   string
	MAP    float64
}

// Rank orders runs by decreasing MAP. Equal scores are ordered by team then
// run name.
func Rank(runs []Run) []Run {
	ranked := slices.Clone(runs)
	slices.SortStableFunc(ranked, func(a, b Run) int {
		if c := cmp.Compare(b.MAP, a.MAP); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Team, b.Team); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return ranked
}

// FormatMAP renders a MAP as a percentage with one decimal.
func FormatMAP(value float64) string {
	return fmt.Sprintf("%.1f", 100*value)
}

// View builds the leaderboard seen by viewer. The organizer sees every run.
// Other teams see their own runs under their bare team name, the baseline
// team as "baseline", and every other team masked. The primary view lists
// the primary run of every team; the combined view lists all of the viewer's
// runs but only the best run of every other team.
func View(ranked []Run, viewer string, principals config.Principals) store.Ranking {
	organizer := viewer == principals.Organizer
	view := store.Ranking{Primary: []store.RankingEntry{}, Combined: []store.RankingEntry{}}
	bestShown := make(map[string]bool)
	for _, run := range ranked {
		entry := mask(run, viewer, organizer, principals)
		if run.Name == PrimaryRun {
			view.Primary = append(view.Primary, entry)
		}
		if organizer || run.Team == viewer {
			view.Combined = append(view.Combined, entry)
			continue
		}
		if !bestShown[run.TeamID] {
			bestShown[run.TeamID] = true
			view.Combined = append(view.Combined, entry)
		}
	}
	return view
}

func mask(run Run, viewer string, organizer bool, principals config.Principals) store.RankingEntry {
	score := FormatMAP(run.MAP)
	switch {
	case organizer:
		return store.RankingEntry{Team: run.Team, Run: run.Name, MAP: score}
	case run.Team == viewer:
		return store.RankingEntry{Team: strings.TrimPrefix(run.Team, principals.TeamPrefix), Run: run.Name, MAP: score}
	case run.Team == principals.Baseline:
		name := strings.TrimPrefix(principals.Baseline, principals.TeamPrefix)
		return store.RankingEntry{Team: name, Run: name, MAP: score}
	default:
		return store.RankingEntry{Team: masked, Run: masked, MAP: masked}
	}
}
