// Package leaderboard scores original team submissions against the label
// consensus and publishes one privacy-preserving ranking per team.
package leaderboard
