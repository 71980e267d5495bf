// Package store describes the annotation store every robot talks to.
//
// The store holds corpora, media, layers, annotations, work queues, and
// principals. This package defines their shapes, the narrow interfaces robots
// depend on, and the typed layer descriptions that carry workflow metadata
// (cross-references, evidence mappings, copy and withdrawal markers). Layer
// descriptions are decoded per data type and validated on read so robots never
// poke at untyped maps.
//
// Lookups that may race with another actor deleting the target return a
// Lookup result instead of an error, forcing each call site to decide what a
// missing or withdrawn entity means for the item at hand.
//
// The sqlitestore subpackage provides the local implementation.
package store
