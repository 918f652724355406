package maintenance

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/ukydev/maintenance-hub/internal/db"
	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryRequests is an in-memory RequestCollection with the same unique
// request number and version semantics as the Mongo collection.
type memoryRequests struct {
	mu         sync.Mutex
	byID       map[primitive.ObjectID]models.MaintenanceRequest
	numbers    map[string]bool
	insertHook func(req *models.MaintenanceRequest) error
}

func newMemoryRequests() *memoryRequests {
	return &memoryRequests{
		byID:    map[primitive.ObjectID]models.MaintenanceRequest{},
		numbers: map[string]bool{},
	}
}

func cloneRequest(req models.MaintenanceRequest) models.MaintenanceRequest {
	req.WorkNotes = slices.Clone(req.WorkNotes)
	req.PartsUsed = slices.Clone(req.PartsUsed)
	return req
}

func (m *memoryRequests) InsertRequest(_ context.Context, req *models.MaintenanceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertHook != nil {
		if err := m.insertHook(req); err != nil {
			return err
		}
	}
	if m.numbers[req.RequestNumber] {
		return fmt.Errorf("%w: request_number %s", db.ErrDuplicateKey, req.RequestNumber)
	}
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	m.numbers[req.RequestNumber] = true
	m.byID[req.ID] = cloneRequest(*req)
	return nil
}

func (m *memoryRequests) FindRequestByID(_ context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	out := cloneRequest(req)
	return &out, nil
}

func (m *memoryRequests) matches(req models.MaintenanceRequest, f models.RequestFilter) bool {
	switch {
	case f.RequestNumber != "" && req.RequestNumber != f.RequestNumber:
		return false
	case f.Status != "" && req.Status != f.Status:
		return false
	case f.Status == "" && (f.OpenOnly || f.OverdueAt != nil) && req.Status.IsTerminal():
		return false
	case f.Priority != "" && req.Priority != f.Priority:
		return false
	case f.Type != "" && req.Type != f.Type:
		return false
	case f.TeamID != nil && (req.AssignedTeam == nil || *req.AssignedTeam != *f.TeamID):
		return false
	case f.TechnicianID != nil && (req.AssignedTechnician == nil || *req.AssignedTechnician != *f.TechnicianID):
		return false
	case f.EquipmentID != nil && req.EquipmentID != *f.EquipmentID:
		return false
	case f.OverdueAt != nil && (req.DueDate == nil || !req.DueDate.Before(*f.OverdueAt)):
		return false
	}
	return true
}

func (m *memoryRequests) FindRequests(_ context.Context, f models.RequestFilter, page models.Page) ([]models.MaintenanceRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.MaintenanceRequest{}
	for _, req := range m.byID {
		if m.matches(req, f) {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestNumber > out[j].RequestNumber })
	total := int64(len(out))
	if page.Limit > 0 {
		start := min(int(page.Skip()), len(out))
		end := min(start+page.Limit, len(out))
		out = out[start:end]
	}
	return out, total, nil
}

func (m *memoryRequests) CountRequests(ctx context.Context, f models.RequestFilter) (int64, error) {
	_, total, err := m.FindRequests(ctx, f, models.Page{})
	return total, err
}

func (m *memoryRequests) ReplaceRequest(_ context.Context, req *models.MaintenanceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[req.ID]
	if !ok {
		return db.ErrNotFound
	}
	if stored.Version != req.Version {
		return db.ErrVersionConflict
	}
	req.Version++
	req.UpdatedAt = time.Now()
	m.byID[req.ID] = cloneRequest(*req)
	return nil
}

func (m *memoryRequests) AppendWorkNote(_ context.Context, id primitive.ObjectID, note models.WorkNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.byID[id]
	if !ok {
		return db.ErrNotFound
	}
	if req.Status.IsTerminal() {
		return db.ErrRequestClosed
	}
	req = cloneRequest(req)
	req.WorkNotes = append(req.WorkNotes, note)
	req.Version++
	m.byID[id] = req
	return nil
}

func (m *memoryRequests) AppendParts(_ context.Context, id primitive.ObjectID, parts []models.PartUsage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.byID[id]
	if !ok {
		return db.ErrNotFound
	}
	if req.Status.IsTerminal() {
		return db.ErrRequestClosed
	}
	req = cloneRequest(req)
	req.PartsUsed = append(req.PartsUsed, parts...)
	req.Cost.Parts += models.PartsCost(parts)
	req.Version++
	m.byID[id] = req
	return nil
}

func (m *memoryRequests) MaxRequestSequence(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var highest int64
	for n := range m.numbers {
		if !strings.HasPrefix(n, prefix+"-") {
			continue
		}
		seq, err := strconv.ParseInt(strings.TrimPrefix(n, prefix+"-"), 10, 64)
		if err == nil && seq > highest {
			highest = seq
		}
	}
	return highest, nil
}

// put stores req directly, bypassing numbering.
func (m *memoryRequests) put(req models.MaintenanceRequest) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	m.numbers[req.RequestNumber] = true
	m.byID[req.ID] = cloneRequest(req)
	return req.ID
}

type memoryCounter struct {
	mu     sync.Mutex
	values map[string]int64
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{values: map[string]int64{}}
}

func (c *memoryCounter) NextSequence(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key]++
	return c.values[key], nil
}

func (c *memoryCounter) EnsureSequenceAtLeast(_ context.Context, key string, value int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values[key] < value {
		c.values[key] = value
	}
	return nil
}

type MockEquipmentDirectory struct {
	mock.Mock
}

func (m *MockEquipmentDirectory) FindEquipmentByID(ctx context.Context, id primitive.ObjectID) (*models.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Equipment), args.Error(1)
}

type MockTechnicianDirectory struct {
	mock.Mock
}

func (m *MockTechnicianDirectory) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockTechnicianDirectory) FindTechnicians(ctx context.Context, filter models.TechnicianFilter) ([]models.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockTechnicianDirectory) IncrementWorkload(ctx context.Context, id primitive.ObjectID, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockTechnicianDirectory) DecrementWorkload(ctx context.Context, id primitive.ObjectID, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

type MockTeamDirectory struct {
	mock.Mock
}

func (m *MockTeamDirectory) FindTeamByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Team), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyAssignment(ctx context.Context, technician *models.User, req *models.MaintenanceRequest) error {
	args := m.Called(ctx, technician, req)
	return args.Error(0)
}
