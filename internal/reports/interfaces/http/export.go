package http

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	reports "facility-cloud/internal/reports/application"
)

// table is the format-independent shape every report exports as.
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func alertsTable(report *reports.AlertsReport) table {
	t := table{
		title:   "Alerts Report",
		headers: []string{"ID", "Asset", "Title", "Severity", "Status", "Triggered At", "Resolved At"},
	}
	for _, row := range report.Rows {
		t.rows = append(t.rows, []string{
			row.ID,
			row.AssetID,
			row.Title,
			row.Severity,
			row.Status,
			row.TriggeredAt.Format(time.RFC3339),
			formatTime(row.ResolvedAt),
		})
	}
	return t
}

func workOrdersTable(report *reports.WorkOrdersReport) table {
	t := table{
		title:   "Work Orders Report",
		headers: []string{"ID", "Title", "Type", "Priority", "Status", "Assignee", "Created At", "Completed At", "Hours"},
	}
	for _, row := range report.Rows {
		t.rows = append(t.rows, []string{
			row.ID,
			row.Title,
			row.Type,
			row.Priority,
			row.Status,
			row.AssigneeID,
			row.CreatedAt.Format(time.RFC3339),
			formatTime(row.CompletedAt),
			strconv.FormatFloat(row.TimeSpentHours, 'f', 2, 64),
		})
	}
	return t
}

func energyTable(report *reports.EnergyReport) table {
	t := table{
		title:   "Energy Consumption Report",
		headers: []string{"Site ID", "Site Name", "Total"},
	}
	for _, row := range report.Rows {
		t.rows = append(t.rows, []string{
			row.SiteID,
			row.SiteName,
			strconv.FormatFloat(row.Total, 'f', 3, 64),
		})
	}
	return t
}

func buildCSV(t table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(t.headers); err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildXLSX(t table) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "report"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", t.title)
	for col, header := range t.headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 3)
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, row := range t.rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+4)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildPDF(t table) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, t.title)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	width := 277.0 / float64(len(t.headers))
	pdf.SetFont("Arial", "B", 9)
	for _, header := range t.headers {
		pdf.CellFormat(width, 6, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 8)
	for _, row := range t.rows {
		for _, value := range row {
			pdf.CellFormat(width, 6, value, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format(time.RFC3339)
}
