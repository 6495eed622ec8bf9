package operations

import (
	"bankflow/pkg/contracts/domain"
)

// State is the shared state threaded through the steps of one operation.
// Steps communicate only through it.
type State struct {
	OperationID string

	// Inputs
	PathA    string
	PathB    string
	Settings domain.AnalysisSettings

	// Intermediate collections
	Transactions []domain.Transaction
	IPRecords    []domain.IPRecord
	MetaA        domain.FileMetadata
	MetaB        domain.FileMetadata

	// Projections produced when income/expense splitting is enabled
	IncomeRecords  []domain.Transaction
	ExpenseRecords []domain.Transaction
	Counterparties []string

	// Outputs
	Result *domain.AnalysisResult
	Report []byte
}

// NewState creates an empty operation state
func NewState(operationID string) *State {
	return &State{OperationID: operationID}
}
