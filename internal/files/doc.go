// Package files provides spreadsheet discovery for single analyses and
// batch runs.
//
// Discovery finds Excel files under a base path. ScanPairs extends this to
// batch mode: it walks a folder tree and pairs the workbooks it finds by
// parent folder, using filename heuristics to tell transaction ledgers from
// IP logs. Folders that do not resolve to exactly one of each are reported
// as incomplete rather than guessed at.
package files
