// Package fairqueue implements the bounded work queues robots exchange items
// through.
//
// A Backend moves raw JSON items (store-held queues or Redis lists). Queue
// adds typed access on top: non-destructive Length and Items reads used for
// admission control, Enqueue, and a dequeue Loop exposed as an iterator that
// blocks on an empty queue and replays a snapshot in dry-run mode.
//
// Admitter bounds the backlog a producer builds. Below the limit every new
// item is admitted. At or over the limit an item is admitted only when no
// other item with the same balance key (for example the submission it stems
// from) is pending, so every producer keeps one item in flight and none can
// starve the others. Items whose identity is already pending are never queued
// twice.
package fairqueue
