// Package report renders maintenance requests as spreadsheets.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ukydev/maintenance-hub/internal/models"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SheetName is the worksheet that holds the exported requests.
const SheetName = "Requests"

// ContentType is the MIME type of the exported workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Headers are the column titles of the export, in order.
var Headers = []string{
	"Request Number", "Title", "Type", "Priority", "Status", "Equipment",
	"Assigned Technician", "Assigned Team", "Created At", "Due Date",
	"Completed At", "Overdue", "SLA Breached", "Hours", "Labor Cost",
	"Parts Cost", "External Cost", "Total Cost",
}

// Row flattens one request into export cells.
func Row(req *models.MaintenanceRequest, now time.Time) []interface{} {
	d := req.Derive(now)
	return []interface{}{
		req.RequestNumber,
		req.Title,
		string(req.Type),
		string(req.Priority),
		string(req.Status),
		req.EquipmentID.Hex(),
		hexOrEmpty(req.AssignedTechnician),
		hexOrEmpty(req.AssignedTeam),
		req.CreatedAt.UTC().Format(time.RFC3339),
		timeOrEmpty(req.DueDate),
		timeOrEmpty(req.CompletedAt),
		strconv.FormatBool(d.IsOverdue),
		strconv.FormatBool(req.SLA.Breached),
		d.TotalHours,
		req.Cost.Labor,
		req.Cost.Parts,
		req.Cost.External,
		d.TotalCost,
	}
}

// WriteRequests writes an xlsx workbook with one row per request to w.
func WriteRequests(w io.Writer, requests []models.MaintenanceRequest, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i := range requests {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := Row(&requests[i], now)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(Headers))
	if err := f.SetColWidth(SheetName, "A", lastCol, 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	return f.Write(w)
}

// Filename names an export generated at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("maintenance-requests-%s.xlsx", now.UTC().Format("20060102-150405"))
}

func hexOrEmpty(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
