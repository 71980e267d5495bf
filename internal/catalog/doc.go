// Package catalog resolves the named resources robots depend on (the test
// corpus, the shared ground-truth layers, the work queues, and the robot
// principals) into store identities.
//
// Resolution failures are configuration errors: a robot that cannot find
// its queue has nothing to retry, so callers exit. Ensure provisions missing
// resources idempotently for `pdrobot store init`.
package catalog
