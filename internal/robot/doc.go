// Package robot provides the runtime shared by every robot role: the clock
// loops wait on, the periodic refresh-then-serve loop, the per-role snapshot
// cache, and the lock that keeps one process per role.
//
// Roles never share in-process state. Each role process owns one Env and
// communicates with its siblings only through store layers and work queues,
// so a role can be killed and restarted at any point.
package robot
