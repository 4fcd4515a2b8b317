// Package id generates the identifiers attached to scan output: random UUIDs and
// time-ordered run ids.
//
// A run id is a ULID: 26 Crockford base32 characters whose first ten encode the
// creation time in milliseconds. Ids created later sort after earlier ones, also
// within the same millisecond, so a results table ordered by run id is ordered by
// time.
package id
