package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/maintenance-hub/internal/models"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestWriteRequests(t *testing.T) {
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)
	tech := primitive.NewObjectID()
	requests := []models.MaintenanceRequest{
		{
			RequestNumber:      "MR-202610-0001",
			Title:              "Chiller leaking",
			Type:               models.TypeCorrective,
			Priority:           models.PriorityHigh,
			Status:             models.StatusInProgress,
			EquipmentID:        primitive.NewObjectID(),
			AssignedTechnician: &tech,
			DueDate:            &due,
			Cost:               models.CostBreakdown{Labor: 100, Parts: 25, External: 10},
			WorkNotes:          []models.WorkNote{{HoursWorked: 1.5}, {HoursWorked: 2}},
			CreatedAt:          now.Add(-48 * time.Hour),
		},
		{
			RequestNumber: "MR-202610-0002",
			Title:         "Replace belt",
			Type:          models.TypePreventive,
			Priority:      models.PriorityLow,
			Status:        models.StatusNew,
			EquipmentID:   primitive.NewObjectID(),
			CreatedAt:     now,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRequests(&buf, requests, now))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])

	first := rows[1]
	assert.Equal(t, "MR-202610-0001", first[0])
	assert.Equal(t, "In Progress", first[4])
	assert.Equal(t, tech.Hex(), first[6])
	assert.Equal(t, "", first[7])
	assert.Equal(t, "true", first[11])
	assert.Equal(t, "3.5", first[13])
	assert.Equal(t, "135", first[17])

	second := rows[2]
	assert.Equal(t, "MR-202610-0002", second[0])
	assert.Equal(t, "", second[6])
	assert.Equal(t, "false", second[11])
}

func TestWriteRequests_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRequests(&buf, nil, time.Now()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "maintenance-requests-20261016-100000.xlsx",
		Filename(time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)))
}
