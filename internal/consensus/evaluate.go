package consensus

import (
	"fmt"
	"maps"
	"slices"

	"persondiscovery/internal/store"
)

// State is the aggregation state of one shot.
type State int

const (
	Accumulating State = iota
	Unknown
	Reached
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Reached:
		return "consensus"
	default:
		return "accumulating"
	}
}

// Verdict is one annotator's answer for a shot.
type Verdict struct {
	Annotator string
	Known     map[string]store.PersonStatus
	Unknown   bool
}

// Status returns the annotator's status for name. A name the annotator did
// not mention counts as dontKnow when they reported an unknown speaking face
// and as noFace otherwise. Unrecognized statuses count as dontKnow.
func (v Verdict) Status(name string) store.PersonStatus {
	status, ok := v.Known[name]
	switch {
	case !ok && v.Unknown:
		return store.DontKnow
	case !ok:
		return store.NoFace
	case !status.Valid():
		return store.DontKnow
	}
	return status
}

// Decision is the outcome of evaluating a shot.
type Decision struct {
	State  State
	Labels map[string]store.PersonStatus
	// Reason explains why consensus was not reached.
	Reason string
}

// Evaluate aggregates the verdicts of one shot. Consensus is all or nothing:
// every person name mentioned by any annotator must pass, or no label is
// produced for the shot. For each name at least two annotators must express
// a status other than dontKnow, and the most frequent status must not be
// dontKnow, must have at least two votes, and must hold a strict majority of
// the expressed votes. A tie for most frequent status that involves dontKnow
// counts as dontKnow.
func Evaluate(verdicts []Verdict, minAnnotators int) Decision {
	for _, v := range verdicts {
		if v.Unknown {
			return Decision{State: Unknown, Reason: fmt.Sprintf("%s reported an unknown speaking face", v.Annotator)}
		}
	}
	if len(verdicts) < minAnnotators {
		return Decision{State: Accumulating, Reason: fmt.Sprintf("only %d annotator(s)", len(verdicts))}
	}

	names := make(map[string]struct{})
	for _, v := range verdicts {
		for name := range v.Known {
			names[name] = struct{}{}
		}
	}
	labels := make(map[string]store.PersonStatus, len(names))
	for _, name := range slices.Sorted(maps.Keys(names)) {
		status, reason := majority(name, verdicts)
		if reason != "" {
			return Decision{State: Accumulating, Reason: reason}
		}
		labels[name] = status
	}
	return Decision{State: Reached, Labels: labels}
}

var statusOrder = []store.PersonStatus{store.DontKnow, store.SpeakingFace, store.NoFace}

func majority(name string, verdicts []Verdict) (store.PersonStatus, string) {
	counts := make(map[store.PersonStatus]int, len(statusOrder))
	for _, v := range verdicts {
		counts[v.Status(name)]++
	}
	expressed := len(verdicts) - counts[store.DontKnow]
	if expressed < 2 {
		return "", fmt.Sprintf("only %d expressed status(es) for %s", expressed, name)
	}

	// dontKnow comes first so that it wins ties.
	modal, top := store.DontKnow, -1
	for _, status := range statusOrder {
		if counts[status] > top {
			modal, top = status, counts[status]
		}
	}
	switch {
	case modal == store.DontKnow:
		return "", fmt.Sprintf("most frequent status for %s is dontKnow", name)
	case top < 2:
		return "", fmt.Sprintf("most frequent status for %s has %d vote(s)", name, top)
	case 2*top <= expressed:
		return "", fmt.Sprintf("no strict majority for %s (%d of %d)", name, top, expressed)
	}
	return modal, ""
}
