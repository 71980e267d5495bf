// Package services defines shared utilities consumed by the robot roles and
// the annotation store implementations.
//
// Key responsibilities:
//   - Context helpers that stamp robot roles, queue item IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that let polling loops
//     tell transient store failures, stale references, and fatal
//     configuration problems apart.
//
// Use these helpers when wiring new robot logic so failure handling stays
// uniform: per-item errors are isolated, configuration errors stop the process.
package services
