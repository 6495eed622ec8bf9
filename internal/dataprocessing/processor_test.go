package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankflow/pkg/contracts/domain"
)

func float(v float64) *float64 {
	return &v
}

func thirteenColumns() []string {
	return []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M"}
}

func TestProcessorHideSensitive(t *testing.T) {
	transactions := []domain.Transaction{
		{RawColumns: thirteenColumns(), RowIndex: 2},
	}

	NewProcessor(true).Process(transactions)

	// Columns C, F, L, M (indices 2, 5, 11, 12) are gone; the rest keep order.
	assert.Equal(t, []string{"A", "B", "D", "E", "G", "H", "I", "J", "K"}, transactions[0].RawColumns)
	assert.Len(t, transactions[0].RawColumns, 13-4)
}

func TestProcessorHideSensitiveShortRow(t *testing.T) {
	// Only index 2 and 5 are in range for a 7-column row.
	transactions := []domain.Transaction{
		{RawColumns: []string{"A", "B", "C", "D", "E", "F", "G"}},
	}

	NewProcessor(true).Process(transactions)

	assert.Equal(t, []string{"A", "B", "D", "E", "G"}, transactions[0].RawColumns)
}

func TestProcessorDisabledIsNoOp(t *testing.T) {
	transactions := []domain.Transaction{
		{RawColumns: thirteenColumns()},
	}

	NewProcessor(false).Process(transactions)

	assert.Equal(t, thirteenColumns(), transactions[0].RawColumns)
}

func TestProcessorStructuredFieldsUntouched(t *testing.T) {
	transactions := []domain.Transaction{
		{
			Account:    "ACC-1",
			Income:     float(100),
			MatchedIP:  "10.0.0.1",
			RawColumns: thirteenColumns(),
		},
	}

	NewProcessor(true).Process(transactions)

	assert.Equal(t, "ACC-1", transactions[0].Account)
	assert.Equal(t, 100.0, *transactions[0].Income)
	assert.Equal(t, "10.0.0.1", transactions[0].MatchedIP)
}

func TestProcessorMaskingDoesNotAliasProjections(t *testing.T) {
	transactions := []domain.Transaction{
		{Income: float(100), RawColumns: thirteenColumns()},
	}
	income, _ := SplitIncomeExpense(transactions)
	require.Len(t, income, 1)

	NewProcessor(true).Process(transactions)

	// The pre-mask projection still sees the full row.
	assert.Equal(t, thirteenColumns(), income[0].RawColumns)
	assert.Len(t, transactions[0].RawColumns, 9)
}

func TestSplitIncomeExpense(t *testing.T) {
	transactions := []domain.Transaction{
		{RowIndex: 2, Income: float(100)},
		{RowIndex: 3, Expense: float(50)},
		{RowIndex: 4, Income: float(100), Expense: float(50)}, // both subsets
		{RowIndex: 5},                                         // neither
		{RowIndex: 6, Income: float(25)},
	}

	income, expense := SplitIncomeExpense(transactions)

	incomeRows := make([]int, 0, len(income))
	for _, tx := range income {
		incomeRows = append(incomeRows, tx.RowIndex)
	}
	expenseRows := make([]int, 0, len(expense))
	for _, tx := range expense {
		expenseRows = append(expenseRows, tx.RowIndex)
	}

	assert.Equal(t, []int{2, 4, 6}, incomeRows, "income subset preserves order")
	assert.Equal(t, []int{3, 4}, expenseRows, "expense subset preserves order")
	assert.Len(t, transactions, 5, "source collection unchanged")
}

func TestSplitIsNotAPartition(t *testing.T) {
	both := domain.Transaction{RowIndex: 2, Income: float(100), Expense: float(50)}
	neither := domain.Transaction{RowIndex: 3}

	income, expense := SplitIncomeExpense([]domain.Transaction{both, neither})

	assert.Len(t, income, 1)
	assert.Len(t, expense, 1)
	assert.Equal(t, 2, income[0].RowIndex)
	assert.Equal(t, 2, expense[0].RowIndex)
}

func TestExtractCounterparties(t *testing.T) {
	mk := func(counterparty string) domain.Transaction {
		row := thirteenColumns()
		row[CounterpartyColumn] = counterparty
		return domain.Transaction{RawColumns: row}
	}

	income := []domain.Transaction{mk("CP-2"), mk("CP-1")}
	expense := []domain.Transaction{mk("CP-1"), mk("  "), mk("CP-3")}

	accounts := ExtractCounterparties(income, expense)

	assert.Equal(t, []string{"CP-1", "CP-2", "CP-3"}, accounts, "deduplicated and sorted")
}

func TestExtractCounterpartiesShortRows(t *testing.T) {
	accounts := ExtractCounterparties([]domain.Transaction{
		{RawColumns: []string{"A", "B"}},
	})
	assert.Empty(t, accounts)
}

func TestStatsFromTransactions(t *testing.T) {
	transactions := []domain.Transaction{
		{Income: float(100)},
		{Expense: float(40)},
		{Income: float(60), Expense: float(10)},
		{},
	}

	stats := StatsFromTransactions(transactions)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.IncomeCount)
	assert.Equal(t, 2, stats.ExpenseCount)
	assert.Equal(t, 160.0, stats.TotalIncome)
	assert.Equal(t, 50.0, stats.TotalExpense)
}
