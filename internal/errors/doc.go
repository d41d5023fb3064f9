// Package errors defines the client's structured error type and the
// registry of coded failures surfaced to callers.
//
// The taxonomy follows the failure domains of the sync engine:
//
//   - transport: socket-level failures; transient, retried with backoff
//   - protocol: malformed records; dropped, stream continues
//   - command: per-request failures delivered through the correlator
//   - session: authentication failures; fatal to the current session
//
// Command failures additionally carry a Classification so callers can
// distinguish bad input from permission and rate-limit problems
// without string matching.
package errors
