// Package cli implements the gqlprobe command line.
//
// Commands:
//   - scan: introspect endpoints, synthesize a query per operation and probe them
//   - pii: scan --mode pii, probing only fields whose names look like personal data
//   - target: serve a local GraphQL endpoint from an SDL file to practice against
//   - version: print build information
//
// Every scan flag can also be set in a YAML config file (see pkg/config) or
// through GQLPROBE_* environment variables. Flags win.
package cli
