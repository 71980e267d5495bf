// Command pdrobot runs the person discovery annotation robots and the
// operator utilities around them.
//
// Each robot role runs as its own long-lived process:
//
//	pdrobot run submission
//	pdrobot run evidence-in
//	pdrobot run label-out
//
// A per-role lock file keeps one process per role on a host. `pdrobot store
// init` provisions the corpus, layers, queues, and robot principals the
// robots resolve at startup; `queue` and `leaderboard` inspect the workflow
// without modifying it.
package main
