// Package evidence reconciles hypothesized identity claims with the manually
// checked evidence ground truth.
//
// The ground truth is append-only and keyed by (shot, person name, source).
// The evidence-in robot copies known resolutions into every live submission
// copy's mapping and asks humans to check the rest; the evidence-out robot
// records human answers into the ground truth.
package evidence
