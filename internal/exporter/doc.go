// Package exporter renders the analysis report workbook.
//
// ReportExporter writes one worksheet per logical subset: Summary (all
// transactions), Income and Expense (the split projections, when enabled) and
// Counterparty (deduplicated counterparty accounts). Each transaction sheet
// carries the structured columns (Row, Timestamp, Account, Expense, Income,
// Matched IP, Country, ISP) followed by the raw source columns for audit.
//
// Example usage:
//
//	rep := exporter.NewReportExporter()
//	err := rep.ExportToFile("analysis.xlsx", summary, income, expense, counterparties)
package exporter
