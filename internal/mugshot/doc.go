// Package mugshot maintains the per-person face crops offered to label
// annotators.
//
// Crops are cut from pre-extracted video frames at the time and bounding box
// recorded with accepted evidence. A person's mugshot is regenerated only
// when the number of usable evidence records for that person changes. The
// configured anchor identities always count as having a mugshot.
package mugshot
