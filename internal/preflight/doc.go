// Package preflight provides readiness checks for the filesystem paths and
// queue backend a robot depends on.
//
// The run command calls RunAll before entering a role loop and refuses to
// start when any required check fails; "pdrobot config show" prints the same
// results for diagnostics.
package preflight
