package dataprocessing

import (
	"sort"
	"strings"

	"bankflow/pkg/contracts/domain"
)

// DefaultSensitiveColumns are the canonical positions (zero-based, 13-column
// A-M layout) removed when masking is enabled: C, F, L and M.
var DefaultSensitiveColumns = []int{2, 5, 11, 12}

// CounterpartyColumn is the canonical raw-column position of the counterparty
// account (column F). It must be read before masking, because it is itself a
// sensitive column.
const CounterpartyColumn = 5

// Processor applies the post-correlation transforms: sensitive-column masking
// and income/expense partitioning.
type Processor struct {
	hideSensitive    bool
	sensitiveColumns []int
}

// NewProcessor builds a processor masking the default sensitive columns.
func NewProcessor(hideSensitive bool) *Processor {
	return NewProcessorWithColumns(hideSensitive, DefaultSensitiveColumns)
}

// NewProcessorWithColumns builds a processor masking the given column indices.
func NewProcessorWithColumns(hideSensitive bool, sensitiveColumns []int) *Processor {
	cols := make([]int, len(sensitiveColumns))
	copy(cols, sensitiveColumns)
	return &Processor{hideSensitive: hideSensitive, sensitiveColumns: cols}
}

// Process applies the configured transforms in place. Masking must run at most
// once per record: removing a column shifts every later index.
func (p *Processor) Process(transactions []domain.Transaction) {
	if p.hideSensitive {
		p.hideColumns(transactions)
	}
}

// hideColumns removes the sensitive columns from each record's RawColumns,
// strictly descending so earlier removals cannot invalidate later indices.
// Structured fields are untouched.
func (p *Processor) hideColumns(transactions []domain.Transaction) {
	indices := make([]int, len(p.sensitiveColumns))
	copy(indices, p.sensitiveColumns)
	sort.Sort(sort.Reverse(sort.IntSlice(indices)))

	for i := range transactions {
		// Work on a copy: the income/expense projections share the original
		// backing array with the source collection.
		masked := make([]string, len(transactions[i].RawColumns))
		copy(masked, transactions[i].RawColumns)
		for _, idx := range indices {
			if idx < len(masked) {
				masked = append(masked[:idx], masked[idx+1:]...)
			}
		}
		transactions[i].RawColumns = masked
	}
}

// SplitIncomeExpense partitions transactions into the strictly-positive income
// and expense subsets. A transaction carrying both appears in both; one
// carrying neither appears in neither. This is a filtering projection: the
// source collection is unchanged and relative order is preserved.
func SplitIncomeExpense(transactions []domain.Transaction) (income, expense []domain.Transaction) {
	for _, tx := range transactions {
		if tx.Income != nil && *tx.Income > 0 {
			income = append(income, tx)
		}
		if tx.Expense != nil && *tx.Expense > 0 {
			expense = append(expense, tx)
		}
	}
	return income, expense
}

// ExtractCounterparties collects the unique non-empty counterparty accounts
// from the given transaction sets, sorted ascending. Callers pass the income
// and expense subsets when splitting is enabled, else the full set.
func ExtractCounterparties(sets ...[]domain.Transaction) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, tx := range set {
			if CounterpartyColumn >= len(tx.RawColumns) {
				continue
			}
			account := strings.TrimSpace(tx.RawColumns[CounterpartyColumn])
			if account == "" {
				continue
			}
			seen[account] = struct{}{}
		}
	}

	accounts := make([]string, 0, len(seen))
	for account := range seen {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts
}

// ProcessingStats aggregates amount totals over strictly-positive values only.
type ProcessingStats struct {
	Total        int     `json:"total"`
	IncomeCount  int     `json:"income_count"`
	ExpenseCount int     `json:"expense_count"`
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
}

// StatsFromTransactions computes processing statistics for a collection.
func StatsFromTransactions(transactions []domain.Transaction) ProcessingStats {
	stats := ProcessingStats{Total: len(transactions)}

	for _, tx := range transactions {
		if tx.Income != nil && *tx.Income > 0 {
			stats.IncomeCount++
			stats.TotalIncome += *tx.Income
		}
		if tx.Expense != nil && *tx.Expense > 0 {
			stats.ExpenseCount++
			stats.TotalExpense += *tx.Expense
		}
	}

	return stats
}
