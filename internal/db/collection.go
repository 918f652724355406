package db

import (
	"context"

	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestCollection defines the persistence operations on maintenance requests.
//
// Every write bumps the document version. ReplaceRequest only succeeds when the
// stored version still equals the version the caller read, so whole-document
// writes never clobber concurrent appends; it returns ErrVersionConflict otherwise.
// Appends only apply to open requests and return ErrRequestClosed on closed ones.
type RequestCollection interface {
	InsertRequest(ctx context.Context, req *models.MaintenanceRequest) error
	FindRequestByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error)
	FindRequests(ctx context.Context, filter models.RequestFilter, page models.Page) ([]models.MaintenanceRequest, int64, error)
	ReplaceRequest(ctx context.Context, req *models.MaintenanceRequest) error
	AppendWorkNote(ctx context.Context, id primitive.ObjectID, note models.WorkNote) error
	AppendParts(ctx context.Context, id primitive.ObjectID, parts []models.PartUsage) error
	MaxRequestSequence(ctx context.Context, prefix string) (int64, error)
	CountRequests(ctx context.Context, filter models.RequestFilter) (int64, error)
}

// SequenceCounter hands out monotonically increasing numbers per key.
type SequenceCounter interface {
	NextSequence(ctx context.Context, key string) (int64, error)
	EnsureSequenceAtLeast(ctx context.Context, key string, value int64) error
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindTechnicians(ctx context.Context, filter models.TechnicianFilter) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, user models.User) error
	UpdateLastLogin(ctx context.Context, id string) error
	IncrementWorkload(ctx context.Context, id primitive.ObjectID, delta int) error
	DecrementWorkload(ctx context.Context, id primitive.ObjectID, delta int) error
}

// TeamCollection defines the interface for team data operations.
type TeamCollection interface {
	InsertTeam(ctx context.Context, team *models.Team) error
	FindTeamByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error)
	FindTeams(ctx context.Context, workshopID *primitive.ObjectID) ([]models.Team, error)
	UpdateTeam(ctx context.Context, team *models.Team) error
}

// EquipmentCollection defines the interface for equipment data operations.
type EquipmentCollection interface {
	InsertEquipment(ctx context.Context, equipment *models.Equipment) error
	FindEquipmentByID(ctx context.Context, id primitive.ObjectID) (*models.Equipment, error)
	FindEquipment(ctx context.Context, workshopID *primitive.ObjectID, category string) ([]models.Equipment, error)
	UpdateEquipment(ctx context.Context, equipment *models.Equipment) error
}

// WorkshopCollection defines the interface for workshop data operations.
type WorkshopCollection interface {
	InsertWorkshop(ctx context.Context, workshop *models.Workshop) error
	FindWorkshopByID(ctx context.Context, id primitive.ObjectID) (*models.Workshop, error)
	FindWorkshops(ctx context.Context) ([]models.Workshop, error)
	UpdateWorkshop(ctx context.Context, workshop *models.Workshop) error
}
