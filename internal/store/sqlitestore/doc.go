// Package sqlitestore implements the annotation store on a local SQLite
// database.
//
// Layers are soft-deleted so concurrent robots can tell a withdrawn layer from
// one that never existed. Queue pops are single statements, which keeps a pop
// atomic even when several robot processes share the database file. Writes
// retry briefly when SQLite reports the database busy.
package sqlitestore
