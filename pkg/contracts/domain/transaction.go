package domain

import (
	"time"
)

// Transaction represents a single ledger row from File A (bank transaction export).
// Instant is the parsed form of Timestamp and is nil when the raw value did not
// match any known encoding; such rows still exist but are excluded from
// time-based correlation.
type Transaction struct {
	Instant    *time.Time `json:"-"`
	Timestamp  string     `json:"timestamp"`
	Account    string     `json:"account"`
	Income     *float64   `json:"income,omitempty"`
	Expense    *float64   `json:"expense,omitempty"`
	MatchedIP  string     `json:"matched_ip,omitempty"`
	IPCountry  string     `json:"ip_country,omitempty"`
	IPISP      string     `json:"ip_isp,omitempty"`
	RawColumns []string   `json:"raw_columns"`
	RowIndex   int        `json:"row_index"`
}

// IPRecord represents a single account-login row from File B (IP log export).
type IPRecord struct {
	Instant   *time.Time `json:"-"`
	Timestamp string     `json:"timestamp"`
	Account   string     `json:"account"`
	IPAddress string     `json:"ip_address"`
	RowIndex  int        `json:"row_index"`
}

// FileMetadata describes a loaded spreadsheet.
type FileMetadata struct {
	Path        string `json:"path,omitempty"`
	Filename    string `json:"filename"`
	RowCount    int    `json:"row_count"`
	ColumnCount int    `json:"column_count"`
	FileType    string `json:"file_type"`
}
