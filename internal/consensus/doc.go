// Package consensus turns independent per-shot human verdicts into accepted
// labels.
//
// The label-out robot stores every verdict it receives and re-evaluates the
// verdict's shot immediately. A shot reaches consensus only when every person
// named by the annotators has a clear majority; otherwise it keeps
// accumulating verdicts. A verdict reporting an unmatched speaking face marks
// the shot unknown instead.
//
// The label-in robot offers shots to annotators once every hypothesized name
// has a checked evidence mapping and a mugshot.
package consensus
