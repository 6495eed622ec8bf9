package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// moneyNumFmt is the number format applied to amount columns.
const moneyNumFmt = "#,##0.00"

// Report palette. Matches the interactive tool the investigators already use.
const (
	colorHeaderFill = "1F2937"
	colorHeaderFont = "00FF9D"
	colorIPFont     = "00D2FF"
	colorMultiIP    = "FF0055"
)

func thinBorder() []excelize.Border {
	sides := []string{"left", "right", "top", "bottom"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Style: 1, Color: "000000"}
	}
	return borders
}

// cellRef builds an A1-style reference from zero-based coordinates.
func cellRef(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		// Coordinates are always derived from slice indices, so this cannot
		// happen with valid input.
		return fmt.Sprintf("A%d", row+1)
	}
	return name
}

// columnName converts a zero-based column index to its spreadsheet name.
func columnName(col int) string {
	name, _ := excelize.ColumnNumberToName(col + 1)
	return name
}
