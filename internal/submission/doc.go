// Package submission freezes team submissions for downstream robots.
//
// Every submitted label/evidence layer pair is duplicated into immutable
// copies that reference each other, robot principals receive access to the
// copies, and the pair is announced on the evidence intake queue. Withdrawals
// tombstone the copies in place instead of deleting them.
package submission
