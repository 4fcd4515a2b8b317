// Package engine runs the probing pipeline for a batch of GraphQL endpoints.
//
// For every endpoint the Scanner fetches the schema by introspection, enumerates
// the operations to probe (root query and mutation fields, PII candidate fields,
// or both), synthesizes one document per operation and hands them to the probe
// executor. Results, skipped operations and PII matches are streamed to the
// configured sinks and collected into an EndpointReport.
//
// Failures stay local: a schema that cannot be fetched is recorded on the report
// and the batch moves on, and an operation whose document cannot be built is
// skipped with a reason.
package engine
