package exporter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"bankflow/pkg/contracts/domain"
)

// Sheet names of the analysis report workbook.
const (
	SheetSummary      = "Summary"
	SheetIncome       = "Income"
	SheetExpense      = "Expense"
	SheetCounterparty = "Counterparty"
)

// structuredHeaders is the fixed column set written before the raw-column
// passthrough.
var structuredHeaders = []string{
	"Row", "Timestamp", "Account", "Expense", "Income", "Matched IP", "Country", "ISP",
}

// structuredWidths are the column widths for the structured columns.
var structuredWidths = []float64{8, 20, 15, 12, 12, 40, 10, 20}

// counterpartyHeader matches the header the downstream tooling greps for.
const counterpartyHeader = "Unique_Counterparty_Account"

type reportStyles struct {
	header  int
	data    int
	money   int
	ip      int
	multiIP int
}

// ReportExporter writes the analysis report workbook: a Summary sheet with
// every transaction, optional Income and Expense sheets, and a Counterparty
// sheet listing the deduplicated counterparty accounts.
type ReportExporter struct{}

// NewReportExporter creates a report exporter.
func NewReportExporter() *ReportExporter {
	return &ReportExporter{}
}

// ExportToBytes renders the report workbook in memory. The income and expense
// sheets are only written when the corresponding slice is non-nil, matching
// the split toggle; the counterparty sheet is written whenever accounts exist.
func (e *ReportExporter) ExportToBytes(summary, income, expense []domain.Transaction, counterparties []string) ([]byte, error) {
	f, err := e.buildWorkbook(summary, income, expense, counterparties)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to save workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToFile renders the report workbook to disk.
func (e *ReportExporter) ExportToFile(path string, summary, income, expense []domain.Transaction, counterparties []string) error {
	f, err := e.buildWorkbook(summary, income, expense, counterparties)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

func (e *ReportExporter) buildWorkbook(summary, income, expense []domain.Transaction, counterparties []string) (*excelize.File, error) {
	f := excelize.NewFile()

	fail := func(err error) (*excelize.File, error) {
		f.Close()
		return nil, err
	}

	styles, err := newReportStyles(f)
	if err != nil {
		return fail(fmt.Errorf("failed to create styles: %w", err))
	}

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fail(fmt.Errorf("failed to name summary sheet: %w", err))
	}
	if err := writeTransactionSheet(f, SheetSummary, summary, styles); err != nil {
		return fail(err)
	}

	if income != nil {
		if _, err := f.NewSheet(SheetIncome); err != nil {
			return fail(fmt.Errorf("failed to add sheet: %w", err))
		}
		if err := writeTransactionSheet(f, SheetIncome, income, styles); err != nil {
			return fail(err)
		}
	}
	if expense != nil {
		if _, err := f.NewSheet(SheetExpense); err != nil {
			return fail(fmt.Errorf("failed to add sheet: %w", err))
		}
		if err := writeTransactionSheet(f, SheetExpense, expense, styles); err != nil {
			return fail(err)
		}
	}

	if len(counterparties) > 0 {
		if err := writeCounterpartySheet(f, counterparties, styles); err != nil {
			return fail(err)
		}
	}

	return f, nil
}

func newReportStyles(f *excelize.File) (reportStyles, error) {
	var s reportStyles
	var err error

	s.header, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: colorHeaderFont},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{colorHeaderFill}},
		Border: thinBorder(),
	})
	if err != nil {
		return s, err
	}

	s.data, err = f.NewStyle(&excelize.Style{Border: thinBorder()})
	if err != nil {
		return s, err
	}

	money := moneyNumFmt
	s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &money, Border: thinBorder()})
	if err != nil {
		return s, err
	}

	s.ip, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Color: colorIPFont},
		Border: thinBorder(),
	})
	if err != nil {
		return s, err
	}

	s.multiIP, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: colorMultiIP},
		Border: thinBorder(),
	})
	return s, err
}

func writeTransactionSheet(f *excelize.File, sheet string, transactions []domain.Transaction, styles reportStyles) error {
	rawWidth := 0
	for i := range transactions {
		if len(transactions[i].RawColumns) > rawWidth {
			rawWidth = len(transactions[i].RawColumns)
		}
	}

	headers := make([]string, 0, len(structuredHeaders)+rawWidth)
	headers = append(headers, structuredHeaders...)
	for i := 0; i < rawWidth; i++ {
		headers = append(headers, fmt.Sprintf("Source %d", i+1))
	}

	for col, header := range headers {
		ref := cellRef(col, 0)
		if err := f.SetCellStr(sheet, ref, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := f.SetCellStyle(sheet, ref, ref, styles.header); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for i := range transactions {
		if err := writeTransactionRow(f, sheet, i+1, &transactions[i], styles); err != nil {
			return err
		}
	}

	for col, width := range structuredWidths {
		name := columnName(col)
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}

func writeTransactionRow(f *excelize.File, sheet string, row int, tx *domain.Transaction, styles reportStyles) error {
	set := func(col int, value interface{}, style int) error {
		ref := cellRef(col, row)
		if err := f.SetCellValue(sheet, ref, value); err != nil {
			return fmt.Errorf("failed to write cell %s!%s: %w", sheet, ref, err)
		}
		return f.SetCellStyle(sheet, ref, ref, style)
	}

	if err := set(0, tx.RowIndex, styles.data); err != nil {
		return err
	}
	if err := set(1, tx.Timestamp, styles.data); err != nil {
		return err
	}
	if err := set(2, tx.Account, styles.data); err != nil {
		return err
	}
	if tx.Expense != nil {
		if err := set(3, *tx.Expense, styles.money); err != nil {
			return err
		}
	}
	if tx.Income != nil {
		if err := set(4, *tx.Income, styles.money); err != nil {
			return err
		}
	}

	matched := tx.MatchedIP
	if matched == "" {
		matched = "N/A"
	}
	ipStyle := styles.ip
	if strings.Contains(matched, " | ") {
		ipStyle = styles.multiIP
	}
	if err := set(5, matched, ipStyle); err != nil {
		return err
	}

	if err := set(6, tx.IPCountry, styles.data); err != nil {
		return err
	}
	if err := set(7, tx.IPISP, styles.data); err != nil {
		return err
	}

	for i, raw := range tx.RawColumns {
		if err := set(len(structuredHeaders)+i, raw, styles.data); err != nil {
			return err
		}
	}
	return nil
}

func writeCounterpartySheet(f *excelize.File, counterparties []string, styles reportStyles) error {
	if _, err := f.NewSheet(SheetCounterparty); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	ref := cellRef(0, 0)
	if err := f.SetCellStr(SheetCounterparty, ref, counterpartyHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetCellStyle(SheetCounterparty, ref, ref, styles.header); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, account := range counterparties {
		ref := cellRef(0, i+1)
		if err := f.SetCellStr(SheetCounterparty, ref, account); err != nil {
			return fmt.Errorf("failed to write counterparty: %w", err)
		}
		if err := f.SetCellStyle(SheetCounterparty, ref, ref, styles.data); err != nil {
			return fmt.Errorf("failed to style counterparty: %w", err)
		}
	}

	return f.SetColWidth(SheetCounterparty, "A", "A", 30)
}
