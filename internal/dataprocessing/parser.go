package dataprocessing

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"bankflow/pkg/contracts/domain"
)

// ParseTransactions reads File A (the bank transaction ledger) from disk and
// extracts typed transaction records. mapping is an optional override from
// logical field name to the exact header text to bind, the sole repair
// mechanism for non-standard exports.
func ParseTransactions(filePath string, mapping map[string]string) ([]domain.Transaction, *domain.FileMetadata, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	txs, meta, err := parseTransactions(f, filepath.Base(filePath), mapping)
	if err != nil {
		return nil, nil, err
	}
	meta.Path = filePath
	return txs, meta, nil
}

// ParseTransactionsFromReader is the byte-stream variant of ParseTransactions,
// used when the file arrives as an upload rather than a path.
func ParseTransactionsFromReader(r io.Reader, filename string, mapping map[string]string) ([]domain.Transaction, *domain.FileMetadata, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return parseTransactions(f, filename, mapping)
}

// ParseIPRecords reads File B (the account-login/IP log) from disk.
func ParseIPRecords(filePath string, mapping map[string]string) ([]domain.IPRecord, *domain.FileMetadata, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	recs, meta, err := parseIPRecords(f, filepath.Base(filePath), mapping)
	if err != nil {
		return nil, nil, err
	}
	meta.Path = filePath
	return recs, meta, nil
}

// ParseIPRecordsFromReader is the byte-stream variant of ParseIPRecords.
func ParseIPRecordsFromReader(r io.Reader, filename string, mapping map[string]string) ([]domain.IPRecord, *domain.FileMetadata, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return parseIPRecords(f, filename, mapping)
}

// FileHeaders returns the raw first-row headers of a spreadsheet, so a caller
// can build an override mapping before retrying a failed resolution.
func FileHeaders(filePath string) ([]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	rows, err := sheetRows(f)
	if err != nil {
		return nil, err
	}
	return headerRow(rows), nil
}

// HeadersFromReader is the byte-stream variant of FileHeaders.
func HeadersFromReader(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	rows, err := sheetRows(f)
	if err != nil {
		return nil, err
	}
	return headerRow(rows), nil
}

func parseTransactions(f *excelize.File, filename string, mapping map[string]string) ([]domain.Transaction, *domain.FileMetadata, error) {
	rows, err := sheetRows(f)
	if err != nil {
		return nil, nil, err
	}

	headers := headerRow(rows)
	cols, err := ResolveFileAColumns(headers, mapping)
	if err != nil {
		return nil, nil, err
	}

	var transactions []domain.Transaction
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if rowIsEmpty(row) {
			continue
		}

		timestamp := cellText(row, cols.Timestamp)
		account := cellText(row, cols.Account)
		if timestamp == "" || account == "" {
			continue
		}

		raw := make([]string, len(row))
		for j, cell := range row {
			raw[j] = cellToText(cell)
		}

		tx := domain.Transaction{
			Timestamp:  timestamp,
			Account:    account,
			Income:     cellAmount(row, cols.Income),
			Expense:    cellAmount(row, cols.Expense),
			RawColumns: raw,
			RowIndex:   i + 1,
		}
		if instant, ok := ParseTimestamp(timestamp); ok {
			tx.Instant = &instant
		}
		transactions = append(transactions, tx)
	}

	meta := fileMetadata(filename, rows)
	slog.Debug("parsed transaction file",
		slog.String("filename", filename),
		slog.Int("rows", meta.RowCount),
		slog.Int("transactions", len(transactions)))

	return transactions, meta, nil
}

func parseIPRecords(f *excelize.File, filename string, mapping map[string]string) ([]domain.IPRecord, *domain.FileMetadata, error) {
	rows, err := sheetRows(f)
	if err != nil {
		return nil, nil, err
	}

	headers := headerRow(rows)
	cols, err := ResolveFileBColumns(headers, mapping)
	if err != nil {
		return nil, nil, err
	}

	var records []domain.IPRecord
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if rowIsEmpty(row) {
			continue
		}

		timestamp := cellText(row, cols.Timestamp)
		account := cellText(row, cols.Account)
		ipAddress := cellText(row, cols.IPAddress)
		if timestamp == "" || account == "" || ipAddress == "" {
			continue
		}

		rec := domain.IPRecord{
			Timestamp: timestamp,
			Account:   account,
			IPAddress: ipAddress,
			RowIndex:  i + 1,
		}
		if instant, ok := ParseTimestamp(timestamp); ok {
			rec.Instant = &instant
		}
		records = append(records, rec)
	}

	meta := fileMetadata(filename, rows)
	slog.Debug("parsed IP log file",
		slog.String("filename", filename),
		slog.Int("rows", meta.RowCount),
		slog.Int("records", len(records)))

	return records, meta, nil
}

// sheetRows reads the first worksheet as raw cell values. Raw values keep date
// cells as serial numbers so they can be routed through the serial conversion
// instead of excelize's display formatting.
func sheetRows(f *excelize.File) ([][]string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func headerRow(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	headers := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		headers[i] = cellToText(cell)
	}
	return headers
}

func fileMetadata(filename string, rows [][]string) *domain.FileMetadata {
	columns := 0
	for _, row := range rows {
		if len(row) > columns {
			columns = len(row)
		}
	}
	return &domain.FileMetadata{
		Filename:    filename,
		RowCount:    len(rows),
		ColumnCount: columns,
		FileType:    "xlsx",
	}
}

func rowIsEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cellText returns the normalized text of the cell at idx, or "" when the row
// is too short.
func cellText(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return cellToText(row[idx])
}

// cellToText converts a raw cell value to display text. Numeric values in the
// plausible serial-date range carrying a time fraction are rendered as
// datetimes; spreadsheet error values get an explicit marker so they cannot be
// mistaken for data.
func cellToText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if isErrorValue(trimmed) {
		return "#ERROR: " + trimmed
	}

	if v, err := strconv.ParseFloat(trimmed, 64); err == nil && looksLikeSerialDate(v) {
		if t, ok := ExcelSerialToTime(v); ok {
			return t.Format("2006-01-02 15:04:05")
		}
	}

	return trimmed
}

// isErrorValue matches stored spreadsheet error literals such as #DIV/0! or
// #VALUE!.
func isErrorValue(s string) bool {
	return s == "#N/A" || (strings.HasPrefix(s, "#") && strings.HasSuffix(s, "!"))
}

// cellAmount extracts an optional amount. An exactly-zero or unparsable value
// is treated as absent: by policy a transaction cannot carry an amount of
// precisely zero.
func cellAmount(row []string, idx int) *float64 {
	if idx >= len(row) {
		return nil
	}
	cleaned := strings.ReplaceAll(strings.TrimSpace(row[idx]), ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v == 0 {
		return nil
	}
	return &v
}
