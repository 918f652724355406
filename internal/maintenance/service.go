package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/db"
	"github.com/ukydev/maintenance-hub/internal/metrics"
	"github.com/ukydev/maintenance-hub/internal/models"
	"github.com/ukydev/maintenance-hub/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxUpdateAttempts bounds optimistic retries of whole-request writes.
const maxUpdateAttempts = 5

// EquipmentDirectory looks up the equipment a request is raised against.
type EquipmentDirectory interface {
	FindEquipmentByID(ctx context.Context, id primitive.ObjectID) (*models.Equipment, error)
}

// TechnicianDirectory resolves technicians and keeps their workload counters.
type TechnicianDirectory interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindTechnicians(ctx context.Context, filter models.TechnicianFilter) ([]models.User, error)
	IncrementWorkload(ctx context.Context, id primitive.ObjectID, delta int) error
	DecrementWorkload(ctx context.Context, id primitive.ObjectID, delta int) error
}

// TeamDirectory resolves teams.
type TeamDirectory interface {
	FindTeamByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Requests  db.RequestCollection
	Counter   db.SequenceCounter
	Equipment EquipmentDirectory
	Users     TechnicianDirectory
	Teams     TeamDirectory
	Notifier  notify.Notifier
	Now       func() time.Time
}

// Service owns the maintenance request lifecycle.
type Service struct {
	requests  db.RequestCollection
	counter   db.SequenceCounter
	equipment EquipmentDirectory
	users     TechnicianDirectory
	teams     TeamDirectory
	notifier  notify.Notifier
	now       func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		requests:  d.Requests,
		counter:   d.Counter,
		equipment: d.Equipment,
		users:     d.Users,
		teams:     d.Teams,
		notifier:  d.Notifier,
		now:       d.Now,
	}
	if s.notifier == nil {
		s.notifier = notify.LogNotifier{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
	}
	return s
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   primitive.ObjectID
	Role models.Role
}

// ActorFromClaims builds an Actor from validated token claims.
func ActorFromClaims(claims *models.Claims) (Actor, error) {
	if claims == nil {
		return Actor{}, errForbidden
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return Actor{}, errForbidden
	}
	return Actor{ID: id, Role: claims.Role}, nil
}

func (a Actor) can(action string) bool {
	u := models.User{Role: a.Role}
	return u.HasPermission(action)
}

func (a Actor) isAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Create validates input, numbers the request and stores it.
func (s *Service) Create(ctx context.Context, actor Actor, in models.CreateRequestInput) (*models.MaintenanceRequest, error) {
	if !actor.can(models.ActionCreateRequest) {
		return nil, errForbidden
	}
	if err := validateCreate(&in); err != nil {
		return nil, err
	}

	equipmentID, err := primitive.ObjectIDFromHex(in.EquipmentID)
	if err != nil {
		return nil, validationError("invalid equipment_id")
	}
	equipment, err := s.equipment.FindEquipmentByID(ctx, equipmentID)
	if err != nil {
		return nil, storageErr("equipment", err)
	}

	now := s.now()
	sla, _ := ComputeSLA(in.Priority, now)
	req := &models.MaintenanceRequest{
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Type:          in.Type,
		EquipmentID:   equipment.ID,
		WorkshopID:    equipment.WorkshopID,
		Location:      in.Location,
		Priority:      in.Priority,
		Urgency:       in.Urgency,
		Impact:        in.Impact,
		CreatedBy:     actor.ID,
		Status:        models.StatusNew,
		ScheduledDate: in.ScheduledDate,
		WorkNotes:     []models.WorkNote{},
		PartsUsed:     []models.PartUsage{},
		SLA:           sla,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Location == nil {
		req.Location = equipment.Location
	}
	if in.DueDate != nil {
		due := in.DueDate.UTC()
		req.DueDate = &due
		req.DueDateExplicit = true
	} else {
		due := sla.ResolutionDeadline
		req.DueDate = &due
	}

	if err := s.insertNumbered(ctx, req, now); err != nil {
		return nil, err
	}

	metrics.RequestsCreated.WithLabelValues(string(req.Priority)).Inc()
	log.WithFields(log.Fields{
		"request_number": req.RequestNumber,
		"priority":       req.Priority,
		"equipment_id":   req.EquipmentID.Hex(),
	}).Info("Maintenance request created")
	return req, nil
}

// insertNumbered assigns the next request number of the month and inserts
// req. A unique index collision resynchronises the month counter with the
// stored maximum and retries.
func (s *Service) insertNumbered(ctx context.Context, req *models.MaintenanceRequest, now time.Time) error {
	prefix := MonthPrefix(now)
	var lastErr error
	for attempt := 1; attempt <= maxNumberingAttempts; attempt++ {
		seq, err := s.counter.NextSequence(ctx, prefix)
		if err != nil {
			return fmt.Errorf("next request sequence: %w", err)
		}
		req.ID = primitive.NilObjectID
		req.RequestNumber = FormatRequestNumber(now, seq)

		err = s.requests.InsertRequest(ctx, req)
		if err == nil {
			return nil
		}
		if !errors.Is(err, db.ErrDuplicateKey) {
			return fmt.Errorf("insert request: %w", err)
		}

		lastErr = err
		metrics.NumberingRetries.Inc()
		log.WithFields(log.Fields{"request_number": req.RequestNumber, "attempt": attempt}).
			Warn("Request number collision, renumbering")

		highest, err := s.requests.MaxRequestSequence(ctx, prefix)
		if err != nil {
			return fmt.Errorf("max request sequence: %w", err)
		}
		if err := s.counter.EnsureSequenceAtLeast(ctx, prefix, highest); err != nil {
			return fmt.Errorf("resync request sequence: %w", err)
		}
	}
	return &Error{
		Kind:    KindConflict,
		Code:    CodeCreationFailed,
		Message: fmt.Sprintf("could not assign a request number after %d attempts", maxNumberingAttempts),
		Err:     lastErr,
	}
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound("request")
	}
	req, err := s.requests.FindRequestByID(ctx, objectID)
	if err != nil {
		return nil, storageErr("request", err)
	}
	return req, nil
}

// List returns one page of requests matching filter and the total match count.
func (s *Service) List(ctx context.Context, filter models.RequestFilter, page models.Page) ([]models.MaintenanceRequest, int64, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, newError(KindValidation, CodeInvalidStatus, fmt.Sprintf("unknown status %q", filter.Status))
	}
	if filter.Priority != "" && !filter.Priority.IsValid() {
		return nil, 0, validationError("unknown priority %q", filter.Priority)
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, 0, validationError("unknown type %q", filter.Type)
	}
	if filter.RequestNumber != "" {
		if _, _, _, err := ParseRequestNumber(filter.RequestNumber); err != nil {
			return nil, 0, validationError("%v", err)
		}
	}
	requests, total, err := s.requests.FindRequests(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("find requests: %w", err)
	}
	return requests, total, nil
}

// TeamWorkload counts the open requests assigned to a team.
func (s *Service) TeamWorkload(ctx context.Context, teamID primitive.ObjectID) (models.TeamWorkload, error) {
	if _, err := s.teams.FindTeamByID(ctx, teamID); err != nil {
		return models.TeamWorkload{}, storageErr("team", err)
	}
	n, err := s.requests.CountRequests(ctx, models.RequestFilter{TeamID: &teamID, OpenOnly: true})
	if err != nil {
		return models.TeamWorkload{}, fmt.Errorf("count team requests: %w", err)
	}
	return models.TeamWorkload{TeamID: teamID, OpenRequests: n}, nil
}

// Update applies a typed edit. A priority change recomputes the SLA from
// now and, unless the due date was set explicitly, the due date with it.
func (s *Service) Update(ctx context.Context, actor Actor, id string, in models.UpdateRequestInput) (*models.MaintenanceRequest, error) {
	if !actor.can(models.ActionUpdateRequest) {
		return nil, errForbidden
	}
	if err := validateUpdate(in); err != nil {
		return nil, err
	}

	req, err := s.mutate(ctx, id, func(req *models.MaintenanceRequest) error {
		if req.Status.IsTerminal() {
			return errClosed
		}
		applyUpdate(req, in, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithField("request_number", req.RequestNumber).Info("Maintenance request updated")
	return req, nil
}

func applyUpdate(req *models.MaintenanceRequest, in models.UpdateRequestInput, now time.Time) {
	if in.Title != nil {
		req.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		req.Description = *in.Description
	}
	if in.Type != nil {
		req.Type = *in.Type
	}
	if in.Urgency != nil {
		req.Urgency = *in.Urgency
	}
	if in.Impact != nil {
		req.Impact = *in.Impact
	}
	if in.ScheduledDate != nil {
		scheduled := in.ScheduledDate.UTC()
		req.ScheduledDate = &scheduled
	}
	if in.Location != nil {
		req.Location = in.Location
	}
	if in.LaborCost != nil {
		req.Cost.Labor = *in.LaborCost
	}
	if in.ExternalCost != nil {
		req.Cost.External = *in.ExternalCost
	}
	if in.DueDate != nil {
		due := in.DueDate.UTC()
		req.DueDate = &due
		req.DueDateExplicit = true
	}
	if in.Priority != nil && *in.Priority != req.Priority {
		req.Priority = *in.Priority
		req.SLA, _ = ComputeSLA(req.Priority, now)
		if !req.DueDateExplicit {
			due := req.SLA.ResolutionDeadline
			req.DueDate = &due
		}
	}
}

// mutate loads the request, applies fn and writes it back, retrying from a
// fresh read when another writer got there first.
func (s *Service) mutate(ctx context.Context, id string, fn func(req *models.MaintenanceRequest) error) (*models.MaintenanceRequest, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound("request")
	}
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		req, err := s.requests.FindRequestByID(ctx, objectID)
		if err != nil {
			return nil, storageErr("request", err)
		}
		if err := fn(req); err != nil {
			return nil, err
		}
		err = s.requests.ReplaceRequest(ctx, req)
		if err == nil {
			return req, nil
		}
		if !errors.Is(err, db.ErrVersionConflict) {
			return nil, storageErr("request", err)
		}
		log.WithFields(log.Fields{"request_id": id, "attempt": attempt}).Debug("Request changed concurrently, retrying")
	}
	return nil, newError(KindConflict, CodeConcurrentUpdate, "request is being modified concurrently, try again")
}

func validateCreate(in *models.CreateRequestInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return validationError("title is required")
	}
	if in.EquipmentID == "" {
		return validationError("equipment_id is required")
	}
	if !in.Type.IsValid() {
		return validationError("unknown type %q", in.Type)
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.IsValid() {
		return validationError("unknown priority %q", in.Priority)
	}
	if in.Urgency == "" {
		in.Urgency = models.LevelMedium
	}
	if !in.Urgency.IsValid() {
		return validationError("unknown urgency %q", in.Urgency)
	}
	if in.Impact == "" {
		in.Impact = models.LevelMedium
	}
	if !in.Impact.IsValid() {
		return validationError("unknown impact %q", in.Impact)
	}
	return nil
}

func validateUpdate(in models.UpdateRequestInput) error {
	if in.IsEmpty() {
		return validationError("no fields to update")
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return validationError("title cannot be empty")
	}
	if in.Type != nil && !in.Type.IsValid() {
		return validationError("unknown type %q", *in.Type)
	}
	if in.Priority != nil && !in.Priority.IsValid() {
		return validationError("unknown priority %q", *in.Priority)
	}
	if in.Urgency != nil && !in.Urgency.IsValid() {
		return validationError("unknown urgency %q", *in.Urgency)
	}
	if in.Impact != nil && !in.Impact.IsValid() {
		return validationError("unknown impact %q", *in.Impact)
	}
	if in.LaborCost != nil && *in.LaborCost < 0 {
		return validationError("labor_cost must not be negative")
	}
	if in.ExternalCost != nil && *in.ExternalCost < 0 {
		return validationError("external_cost must not be negative")
	}
	return nil
}
