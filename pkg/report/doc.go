// Package report holds the sinks that turn a scan into output: human-readable
// console lines, JSON lines, a SQLite database and an end-of-run summary.
//
// Every sink implements engine.Sink. Write errors are sticky: the first one is
// kept, later writes are skipped, and Close returns it.
package report
