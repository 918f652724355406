package handlers

import (
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/ukydev/maintenance-hub/internal/db"
	"github.com/ukydev/maintenance-hub/internal/maintenance"
	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindTechnicians(ctx context.Context, filter models.TechnicianFilter) ([]models.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	args := m.Called(ctx, id, user)
	return args.Error(0)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserCollection) IncrementWorkload(ctx context.Context, id primitive.ObjectID, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockUserCollection) DecrementWorkload(ctx context.Context, id primitive.ObjectID, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

// MockRequestService is a mock implementation of RequestService.
type MockRequestService struct {
	mock.Mock
}

func requestResult(args mock.Arguments) (*models.MaintenanceRequest, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MaintenanceRequest), args.Error(1)
}

func (m *MockRequestService) Create(ctx context.Context, actor maintenance.Actor, in models.CreateRequestInput) (*models.MaintenanceRequest, error) {
	return requestResult(m.Called(ctx, actor, in))
}

func (m *MockRequestService) Get(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	return requestResult(m.Called(ctx, id))
}

func (m *MockRequestService) List(ctx context.Context, filter models.RequestFilter, page models.Page) ([]models.MaintenanceRequest, int64, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.MaintenanceRequest), args.Get(1).(int64), args.Error(2)
}

func (m *MockRequestService) Update(ctx context.Context, actor maintenance.Actor, id string, in models.UpdateRequestInput) (*models.MaintenanceRequest, error) {
	return requestResult(m.Called(ctx, actor, id, in))
}

func (m *MockRequestService) Assign(ctx context.Context, actor maintenance.Actor, id string, in models.AssignInput) (*models.MaintenanceRequest, error) {
	return requestResult(m.Called(ctx, actor, id, in))
}

func (m *MockRequestService) AutoAssign(ctx context.Context, actor maintenance.Actor, id string) (*models.MaintenanceRequest, error) {
	return requestResult(m.Called(ctx, actor, id))
}

func (m *MockRequestService) Transition(ctx context.Context, actor maintenance.Actor, id string, in models.TransitionInput) (*models.MaintenanceRequest, error) {
	return requestResult(m.Called(ctx, actor, id, in))
}

func (m *MockRequestService) AddWorkNote(ctx context.Context, actor maintenance.Actor, id string, in models.WorkNoteInput) (*models.MaintenanceRequest, error) {
	return requestResult(m.Called(ctx, actor, id, in))
}

func (m *MockRequestService) AddParts(ctx context.Context, actor maintenance.Actor, id string, in models.PartsInput) (*models.MaintenanceRequest, error) {
	return requestResult(m.Called(ctx, actor, id, in))
}

func (m *MockRequestService) Statistics(ctx context.Context, filter models.RequestFilter) (models.Statistics, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(models.Statistics), args.Error(1)
}

func (m *MockRequestService) TeamWorkload(ctx context.Context, teamID primitive.ObjectID) (models.TeamWorkload, error) {
	args := m.Called(ctx, teamID)
	return args.Get(0).(models.TeamWorkload), args.Error(1)
}

// memoryWorkshops, memoryTeams and memoryEquipment are map-backed directories.
type memoryWorkshops struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Workshop
}

func newMemoryWorkshops() *memoryWorkshops {
	return &memoryWorkshops{items: map[primitive.ObjectID]models.Workshop{}}
}

func (m *memoryWorkshops) InsertWorkshop(_ context.Context, ws *models.Workshop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Code == ws.Code {
			return db.ErrDuplicateKey
		}
	}
	if ws.ID.IsZero() {
		ws.ID = primitive.NewObjectID()
	}
	m.items[ws.ID] = *ws
	return nil
}

func (m *memoryWorkshops) FindWorkshopByID(_ context.Context, id primitive.ObjectID) (*models.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.items[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &ws, nil
}

func (m *memoryWorkshops) FindWorkshops(context.Context) ([]models.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Workshop{}
	for _, ws := range m.items {
		out = append(out, ws)
	}
	return out, nil
}

func (m *memoryWorkshops) UpdateWorkshop(_ context.Context, ws *models.Workshop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[ws.ID]; !ok {
		return db.ErrNotFound
	}
	m.items[ws.ID] = *ws
	return nil
}

type memoryTeams struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Team
}

func newMemoryTeams() *memoryTeams {
	return &memoryTeams{items: map[primitive.ObjectID]models.Team{}}
}

func (m *memoryTeams) InsertTeam(_ context.Context, team *models.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if team.ID.IsZero() {
		team.ID = primitive.NewObjectID()
	}
	m.items[team.ID] = *team
	return nil
}

func (m *memoryTeams) FindTeamByID(_ context.Context, id primitive.ObjectID) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.items[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &team, nil
}

func (m *memoryTeams) FindTeams(_ context.Context, workshopID *primitive.ObjectID) ([]models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Team{}
	for _, team := range m.items {
		if workshopID == nil || (team.WorkshopID != nil && *team.WorkshopID == *workshopID) {
			out = append(out, team)
		}
	}
	return out, nil
}

func (m *memoryTeams) UpdateTeam(_ context.Context, team *models.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[team.ID]; !ok {
		return db.ErrNotFound
	}
	m.items[team.ID] = *team
	return nil
}

type memoryEquipment struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Equipment
}

func newMemoryEquipment() *memoryEquipment {
	return &memoryEquipment{items: map[primitive.ObjectID]models.Equipment{}}
}

func (m *memoryEquipment) InsertEquipment(_ context.Context, eq *models.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.SerialNumber == eq.SerialNumber {
			return db.ErrDuplicateKey
		}
	}
	if eq.ID.IsZero() {
		eq.ID = primitive.NewObjectID()
	}
	m.items[eq.ID] = *eq
	return nil
}

func (m *memoryEquipment) FindEquipmentByID(_ context.Context, id primitive.ObjectID) (*models.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	eq, ok := m.items[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &eq, nil
}

func (m *memoryEquipment) FindEquipment(_ context.Context, workshopID *primitive.ObjectID, category string) ([]models.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Equipment{}
	for _, eq := range m.items {
		if workshopID != nil && (eq.WorkshopID == nil || *eq.WorkshopID != *workshopID) {
			continue
		}
		if category != "" && eq.Category != category {
			continue
		}
		out = append(out, eq)
	}
	return out, nil
}

func (m *memoryEquipment) UpdateEquipment(_ context.Context, eq *models.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[eq.ID]; !ok {
		return db.ErrNotFound
	}
	m.items[eq.ID] = *eq
	return nil
}

// fakeStore records uploads in memory.
type fakeStore struct {
	putErr  error
	uploads map[string]string
}

func (f *fakeStore) Put(_ context.Context, requestNumber, filename, _ string, body io.Reader, _ int64) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	data, _ := io.ReadAll(body)
	key := "requests/" + requestNumber + "/1_" + filename
	if f.uploads == nil {
		f.uploads = map[string]string{}
	}
	f.uploads[key] = string(data)
	return key, nil
}

func (f *fakeStore) URL(_ context.Context, key string) (string, error) {
	return "https://files.test/" + key, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }
