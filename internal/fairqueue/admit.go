package fairqueue

import (
	"context"
)

// Admission is the outcome of offering an item to an Admitter.
type Admission int

const (
	// Admitted items were enqueued.
	Admitted Admission = iota
	// AlreadyQueued items match a pending item's identity.
	AlreadyQueued
	// Deferred items were held back by the limit; offer them again next cycle.
	Deferred
)

func (a Admission) String() string {
	switch a {
	case Admitted:
		return "admitted"
	case AlreadyQueued:
		return "already_queued"
	default:
		return "deferred"
	}
}

// Policy configures admission.
type Policy[T any] struct {
	// Limit is the backlog size beyond which only one item per balance key
	// is admitted. Zero or less disables the bound.
	Limit int
	// BalanceKey groups items by producer. Nil treats all items as one group.
	BalanceKey func(T) string
	// Identity deduplicates items against the pending backlog. Nil disables
	// deduplication.
	Identity func(T) string
	// DryRun decides admissions without enqueuing.
	DryRun bool
}

// Admitter decides, item by item, what one producer cycle adds to a queue.
// It reads the pending backlog once and tracks its own admissions after
// that, so concurrent producers can overshoot the limit slightly.
type Admitter[T any] struct {
	queue  *Queue[T]
	policy Policy[T]

	length int
	perKey map[string]int
	seen   map[string]struct{}
}

// Admitter snapshots the pending backlog and returns an admitter for it.
func (q *Queue[T]) Admitter(ctx context.Context, policy Policy[T]) (*Admitter[T], error) {
	pending, skipped, err := q.Items(ctx)
	if err != nil {
		return nil, err
	}
	a := &Admitter[T]{
		queue:  q,
		policy: policy,
		length: len(pending) + skipped,
		perKey: make(map[string]int),
		seen:   make(map[string]struct{}),
	}
	for _, item := range pending {
		a.track(item)
	}
	return a, nil
}

// Offer admits, defers, or drops item according to the policy.
func (a *Admitter[T]) Offer(ctx context.Context, item T) (Admission, error) {
	if a.policy.Identity != nil {
		if _, ok := a.seen[a.policy.Identity(item)]; ok {
			return AlreadyQueued, nil
		}
	}
	if a.policy.Limit > 0 && a.length >= a.policy.Limit && a.perKey[a.balanceKey(item)] > 0 {
		return Deferred, nil
	}
	if !a.policy.DryRun {
		if err := a.queue.Enqueue(ctx, item); err != nil {
			return Deferred, err
		}
	}
	a.length++
	a.track(item)
	return Admitted, nil
}

// Length is the backlog size including this cycle's admissions.
func (a *Admitter[T]) Length() int {
	return a.length
}

func (a *Admitter[T]) track(item T) {
	a.perKey[a.balanceKey(item)]++
	if a.policy.Identity != nil {
		a.seen[a.policy.Identity(item)] = struct{}{}
	}
}

func (a *Admitter[T]) balanceKey(item T) string {
	if a.policy.BalanceKey == nil {
		return ""
	}
	return a.policy.BalanceKey(item)
}
