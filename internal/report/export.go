// Package report renders monthly teacher reports as XLSX workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/edupulse/engine/internal/engine"
)

const (
	attendanceSheet = "Attendance"
	progressSheet   = "Progress"
)

var titleCaser = cases.Title(language.English)

// Monthly bundles everything that goes into one teacher's monthly report.
type Monthly struct {
	Teacher    string
	Attendance engine.AttendanceSummary
	Progress   []engine.ProgressRecord
}

// WriteXLSX renders the report as an XLSX workbook to w.
func WriteXLSX(w io.Writer, rep Monthly) error {
	f, err := buildWorkbook(rep)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func buildWorkbook(rep Monthly) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", attendanceSheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(progressSheet); err != nil {
		return nil, fmt.Errorf("creating progress sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	if err := writeAttendance(f, rep, header); err != nil {
		return nil, err
	}
	if err := writeProgress(f, rep, header); err != nil {
		return nil, err
	}
	return f, nil
}

func writeAttendance(f *excelize.File, rep Monthly, header int) error {
	rows := [][]any{
		{"Teacher", rep.Teacher},
		{"Month", rep.Attendance.MonthLabel},
		{"Working Days", rep.Attendance.WorkingDays},
		{"Days Present", rep.Attendance.DaysPresent},
		{"Attendance", fmt.Sprintf("%d%%", rep.Attendance.Percentage)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing attendance row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(attendanceSheet, cell, &row); err != nil {
			return fmt.Errorf("writing attendance row %d: %w", i+1, err)
		}
		if err := f.SetCellStyle(attendanceSheet, cell, cell, header); err != nil {
			return fmt.Errorf("styling attendance row %d: %w", i+1, err)
		}
	}
	return nil
}

func writeProgress(f *excelize.File, rep Monthly, header int) error {
	head := []any{"Class", "Subject", "Completed", "Total", "Progress"}
	if err := f.SetSheetRow(progressSheet, "A1", &head); err != nil {
		return fmt.Errorf("writing progress header: %w", err)
	}
	if err := f.SetCellStyle(progressSheet, "A1", "E1", header); err != nil {
		return fmt.Errorf("styling progress header: %w", err)
	}

	for i, rec := range rep.Progress {
		row := []any{
			titleCaser.String(rec.Class),
			titleCaser.String(rec.Subject),
			rec.CompletedActivities,
			rec.TotalActivities,
			fmt.Sprintf("%d%%", rec.ProgressPercent),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("addressing progress row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(progressSheet, cell, &row); err != nil {
			return fmt.Errorf("writing progress row %d: %w", i+2, err)
		}
	}
	return nil
}
