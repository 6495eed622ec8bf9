package dataprocessing

import (
	"fmt"
	"strings"
)

// FileAColumns binds the logical transaction fields to physical column indices
// in File A.
type FileAColumns struct {
	Timestamp int
	Account   int
	Expense   int
	Income    int
}

// FileBColumns binds the logical IP-log fields to physical column indices in
// File B.
type FileBColumns struct {
	Timestamp int
	Account   int
	IPAddress int
}

// Override field keys accepted in a user-supplied column mapping.
const (
	FieldTimestamp = "timestamp"
	FieldAccount   = "account"
	FieldExpense   = "expense"
	FieldIncome    = "income"
	FieldIPAddress = "ip_address"
)

// Default header candidates per logical field. The exports come from several
// banking systems, so both Chinese and English header variants are accepted.
var (
	fileATimestampCandidates = []string{"交易時間", "時間", "timestamp", "交易日期"}
	fileBTimestampCandidates = []string{"登入時間", "時間", "timestamp"}
	accountCandidates        = []string{"帳號", "account", "account_id"}
	expenseCandidates        = []string{"支出金額", "expense", "支出"}
	incomeCandidates         = []string{"存入金額", "收入金額", "income", "存入"}
	ipAddressCandidates      = []string{"ip位址", "ip地址", "ip", "ip address"}
)

// ColumnError reports every logical field that could not be bound to a header.
// Resolution is atomic: either all required fields resolve or the caller gets
// the complete missing list, so a repair UI can be offered in one shot.
type ColumnError struct {
	Missing []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// findColumn resolves one logical field against a header row. An override for
// the field is consulted first; if its target header is not present the
// default candidates are scanned left to right. The first matching column
// wins; later duplicate headers are never selected.
func findColumn(headers []string, candidates []string, mapping map[string]string, field string) (int, bool) {
	if target, ok := mapping[field]; ok {
		normTarget := normalizeHeader(target)
		for idx, header := range headers {
			if normalizeHeader(header) == normTarget {
				return idx, true
			}
		}
	}

	for idx, header := range headers {
		normalized := normalizeHeader(header)
		for _, candidate := range candidates {
			if normalized == normalizeHeader(candidate) {
				return idx, true
			}
		}
	}
	return 0, false
}

// ResolveFileAColumns locates the four required transaction columns in a File A
// header row. mapping may be nil.
func ResolveFileAColumns(headers []string, mapping map[string]string) (FileAColumns, error) {
	var cols FileAColumns
	var missing []string

	timestamp, ok := findColumn(headers, fileATimestampCandidates, mapping, FieldTimestamp)
	if !ok {
		missing = append(missing, "交易時間/timestamp")
	}
	account, ok := findColumn(headers, accountCandidates, mapping, FieldAccount)
	if !ok {
		missing = append(missing, "帳號/account")
	}
	expense, ok := findColumn(headers, expenseCandidates, mapping, FieldExpense)
	if !ok {
		missing = append(missing, "支出金額/expense")
	}
	income, ok := findColumn(headers, incomeCandidates, mapping, FieldIncome)
	if !ok {
		missing = append(missing, "存入金額/income")
	}

	if len(missing) > 0 {
		return cols, &ColumnError{Missing: missing}
	}

	cols = FileAColumns{
		Timestamp: timestamp,
		Account:   account,
		Expense:   expense,
		Income:    income,
	}
	return cols, nil
}

// ResolveFileBColumns locates the three required IP-log columns in a File B
// header row. mapping may be nil.
func ResolveFileBColumns(headers []string, mapping map[string]string) (FileBColumns, error) {
	var cols FileBColumns
	var missing []string

	timestamp, ok := findColumn(headers, fileBTimestampCandidates, mapping, FieldTimestamp)
	if !ok {
		missing = append(missing, "登入時間/timestamp")
	}
	account, ok := findColumn(headers, accountCandidates, mapping, FieldAccount)
	if !ok {
		missing = append(missing, "帳號/account")
	}
	ipAddress, ok := findColumn(headers, ipAddressCandidates, mapping, FieldIPAddress)
	if !ok {
		missing = append(missing, "IP位址/address")
	}

	if len(missing) > 0 {
		return cols, &ColumnError{Missing: missing}
	}

	cols = FileBColumns{
		Timestamp: timestamp,
		Account:   account,
		IPAddress: ipAddress,
	}
	return cols, nil
}
