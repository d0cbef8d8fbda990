package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/warp/vacation-calendar/vacation"
)

const (
	SheetName   = "Vacations"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var columns = []string{"Employee", "Employee ID", "Start", "End", "Days", "Comment"}

// WriteXLSX writes records as a single-sheet workbook, one row per record
// below a header row.
func WriteXLSX(w io.Writer, records []vacation.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, title := range columns {
		f.SetCellValue(SheetName, cell(i+1, 1), title)
	}
	f.SetCellStyle(SheetName, cell(1, 1), cell(len(columns), 1), headerStyle)

	for i, r := range records {
		row := i + 2
		f.SetCellValue(SheetName, cell(1, row), r.EmployeeName)
		f.SetCellValue(SheetName, cell(2, row), r.EmployeeID)
		f.SetCellValue(SheetName, cell(3, row), r.StartDate)
		f.SetCellValue(SheetName, cell(4, row), r.EndDate)
		f.SetCellValue(SheetName, cell(5, row), r.Days())
		f.SetCellValue(SheetName, cell(6, row), r.MessageText)
	}

	f.SetColWidth(SheetName, "A", "A", 28)
	f.SetColWidth(SheetName, "B", "B", 24)
	f.SetColWidth(SheetName, "C", "D", 12)
	f.SetColWidth(SheetName, "F", "F", 48)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
