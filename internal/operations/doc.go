// Package operations provides a small sequential step runner used to execute
// an analysis as a series of named, timed steps. Each step reads and writes
// shared state, and the runner records per-step status, duration, and errors
// so a caller can report exactly where a run failed.
package operations
