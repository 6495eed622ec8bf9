// Package dataprocessing implements the data-resolution and correlation core:
// it turns two noisy spreadsheet exports into typed records, joins them on
// account and time, and applies the post-join transforms.
//
// # Architecture
//
// The package is organized into four components:
//
//  1. Columns: header-based column resolution with a user-override repair path
//  2. Parser: Excel ingestion producing Transaction and IPRecord collections
//  3. Matcher: the account + time-window correlation engine
//  4. Processor: sensitive-column masking and income/expense partitioning
//
// # Data Flow
//
// The typical flow through this package:
//
//	File A/B → Parser (Columns + timestamp normalization) → records →
//	Matcher → annotated transactions → Processor → (summary, income, expense)
//
// # Error Handling
//
// Structural failures (unreadable workbook, no sheets) and column-resolution
// failures are returned as errors; a *ColumnError carries the complete list of
// unresolved logical fields so the caller can offer a one-shot repair prompt.
// Row-level problems are not errors: empty or incomplete rows are skipped, and
// unparsable timestamps leave a record without an instant, excluded from
// time-based correlation. The matcher itself never fails; absence of a match
// is the data value "N/A".
package dataprocessing
