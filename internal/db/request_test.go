package db

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRequestFilterBSON(t *testing.T) {
	techID := primitive.NewObjectID()
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC)

	t.Run("empty filter matches everything", func(t *testing.T) {
		assert.Equal(t, bson.M{}, RequestFilterBSON(models.RequestFilter{}))
	})

	t.Run("explicit fields", func(t *testing.T) {
		query := RequestFilterBSON(models.RequestFilter{
			Status:       models.StatusAssigned,
			Priority:     models.PriorityHigh,
			TechnicianID: &techID,
			From:         &from,
			To:           &to,
		})
		assert.Equal(t, models.StatusAssigned, query["status"])
		assert.Equal(t, models.PriorityHigh, query["priority"])
		assert.Equal(t, techID, query["assigned_technician"])
		assert.Equal(t, bson.M{"$gte": from, "$lte": to}, query["created_at"])
	})

	t.Run("overdue implies open statuses", func(t *testing.T) {
		now := time.Now()
		query := RequestFilterBSON(models.RequestFilter{OverdueAt: &now})
		assert.Equal(t, bson.M{"$in": models.OpenStatuses()}, query["status"])
		assert.Equal(t, bson.M{"$lt": now}, query["due_date"])
	})

	t.Run("request number", func(t *testing.T) {
		query := RequestFilterBSON(models.RequestFilter{RequestNumber: "MR-202610-0042"})
		assert.Equal(t, bson.M{"request_number": "MR-202610-0042"}, query)
	})

	t.Run("explicit status wins over open only", func(t *testing.T) {
		query := RequestFilterBSON(models.RequestFilter{Status: models.StatusOnHold, OpenOnly: true})
		assert.Equal(t, models.StatusOnHold, query["status"])
	})
}

func newTestRequest(number string) *models.MaintenanceRequest {
	now := time.Now().UTC()
	return &models.MaintenanceRequest{
		RequestNumber: number,
		Title:         "Chiller leaking",
		Type:          models.TypeCorrective,
		EquipmentID:   primitive.NewObjectID(),
		Priority:      models.PriorityHigh,
		Urgency:       models.LevelHigh,
		Impact:        models.LevelMedium,
		CreatedBy:     primitive.NewObjectID(),
		Status:        models.StatusNew,
		DueDate:       &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestMongoRequestCollection_InsertAndFind(t *testing.T) {
	database := testDatabase(t)
	store := NewStore(database)
	ctx := context.Background()
	require.NoError(t, store.EnsureIndexes(ctx))

	req := newTestRequest("MR-202610-0001")
	require.NoError(t, store.Requests.InsertRequest(ctx, req))
	assert.False(t, req.ID.IsZero())

	found, err := store.Requests.FindRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "MR-202610-0001", found.RequestNumber)
	assert.NotNil(t, found.WorkNotes)

	dup := newTestRequest("MR-202610-0001")
	assert.ErrorIs(t, store.Requests.InsertRequest(ctx, dup), ErrDuplicateKey)

	_, err = store.Requests.FindRequestByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoRequestCollection_ReplaceVersioning(t *testing.T) {
	database := testDatabase(t)
	requests := NewStore(database).Requests
	ctx := context.Background()

	req := newTestRequest("MR-202610-0001")
	require.NoError(t, requests.InsertRequest(ctx, req))

	first, err := requests.FindRequestByID(ctx, req.ID)
	require.NoError(t, err)
	second, err := requests.FindRequestByID(ctx, req.ID)
	require.NoError(t, err)

	first.Status = models.StatusAssigned
	require.NoError(t, requests.ReplaceRequest(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second.Status = models.StatusRejected
	assert.ErrorIs(t, requests.ReplaceRequest(ctx, second), ErrVersionConflict)
	assert.Equal(t, int64(0), second.Version)

	missing := newTestRequest("MR-202610-0099")
	missing.ID = primitive.NewObjectID()
	assert.ErrorIs(t, requests.ReplaceRequest(ctx, missing), ErrNotFound)
}

func TestMongoRequestCollection_AppendLedgers(t *testing.T) {
	database := testDatabase(t)
	requests := NewStore(database).Requests
	ctx := context.Background()

	req := newTestRequest("MR-202610-0001")
	require.NoError(t, requests.InsertRequest(ctx, req))

	tech := primitive.NewObjectID()
	require.NoError(t, requests.AppendParts(ctx, req.ID, []models.PartUsage{
		{Name: "filter", Quantity: 2, UnitCost: 10, RequestedBy: tech},
	}))
	require.NoError(t, requests.AppendParts(ctx, req.ID, []models.PartUsage{
		{Name: "belt", Quantity: 1, UnitCost: 5, RequestedBy: tech},
	}))
	require.NoError(t, requests.AppendWorkNote(ctx, req.ID, models.WorkNote{TechnicianID: tech, Note: "swapped filter", HoursWorked: 1}))

	found, err := requests.FindRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, found.PartsUsed, 2)
	assert.Len(t, found.WorkNotes, 1)
	assert.Equal(t, 25.0, found.Cost.Parts)
	assert.Equal(t, found.CalculatePartsCost(), found.Cost.Parts)
	assert.Equal(t, int64(3), found.Version)

	assert.ErrorIs(t, requests.AppendWorkNote(ctx, primitive.NewObjectID(), models.WorkNote{}), ErrNotFound)

	// A request closed after the caller checked it takes no more entries.
	found.Status = models.StatusCompleted
	require.NoError(t, requests.ReplaceRequest(ctx, found))
	assert.ErrorIs(t, requests.AppendWorkNote(ctx, req.ID, models.WorkNote{TechnicianID: tech, Note: "late"}), ErrRequestClosed)
	assert.ErrorIs(t, requests.AppendParts(ctx, req.ID, []models.PartUsage{{Name: "belt", Quantity: 1}}), ErrRequestClosed)

	closed, err := requests.FindRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, closed.WorkNotes, 1)
	assert.Len(t, closed.PartsUsed, 2)
}

func TestMongoRequestCollection_MaxRequestSequence(t *testing.T) {
	database := testDatabase(t)
	requests := NewStore(database).Requests
	ctx := context.Background()

	seq, err := requests.MaxRequestSequence(ctx, "MR-202610")
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	for _, n := range []string{"MR-202610-0003", "MR-202610-0012", "MR-202609-0400"} {
		require.NoError(t, requests.InsertRequest(ctx, newTestRequest(n)))
	}

	seq, err = requests.MaxRequestSequence(ctx, "MR-202610")
	require.NoError(t, err)
	assert.Equal(t, int64(12), seq)

	// Past 9999 the sequence grows a digit and must still rank highest.
	for _, n := range []string{"MR-202610-9999", "MR-202610-10000"} {
		require.NoError(t, requests.InsertRequest(ctx, newTestRequest(n)))
	}
	seq, err = requests.MaxRequestSequence(ctx, "MR-202610")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), seq)
}

func TestMongoRequestCollection_FindRequests(t *testing.T) {
	database := testDatabase(t)
	requests := NewStore(database).Requests
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		req := newTestRequest(fmt.Sprintf("MR-202610-%04d", i))
		req.CreatedAt = req.CreatedAt.Add(time.Duration(i) * time.Minute)
		if i%2 == 0 {
			req.Status = models.StatusCompleted
		}
		require.NoError(t, requests.InsertRequest(ctx, req))
	}

	page, total, err := requests.FindRequests(ctx, models.RequestFilter{}, models.Page{Number: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, "MR-202610-0005", page[0].RequestNumber)

	open, err := requests.CountRequests(ctx, models.RequestFilter{OpenOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), open)
}

func TestMongoCounterCollection_Concurrent(t *testing.T) {
	database := testDatabase(t)
	counters := NewStore(database).Counters
	ctx := context.Background()

	const workers = 20
	var (
		mu   sync.Mutex
		seen = map[int64]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := counters.NextSequence(ctx, "MR-202610")
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[seq], "sequence %d handed out twice", seq)
			seen[seq] = true
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers)

	require.NoError(t, counters.EnsureSequenceAtLeast(ctx, "MR-202610", 100))
	require.NoError(t, counters.EnsureSequenceAtLeast(ctx, "MR-202610", 50))
	seq, err := counters.NextSequence(ctx, "MR-202610")
	require.NoError(t, err)
	assert.Equal(t, int64(101), seq)
}
