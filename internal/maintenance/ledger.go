package maintenance

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxHoursPerNote = 24

// AddWorkNote appends a labor entry to the request.
func (s *Service) AddWorkNote(ctx context.Context, actor Actor, id string, in models.WorkNoteInput) (*models.MaintenanceRequest, error) {
	if !actor.can(models.ActionLogWork) {
		return nil, errForbidden
	}
	if err := validateWorkNote(in); err != nil {
		return nil, err
	}
	req, err := s.openRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.requests.AppendWorkNote(ctx, req.ID, newWorkNote(actor.ID, in, s.now())); err != nil {
		return nil, storageErr("request", err)
	}
	log.WithFields(log.Fields{"request_number": req.RequestNumber, "hours": in.HoursWorked}).Info("Work note added")
	return s.Get(ctx, id)
}

// AddParts appends parts to the ledger. The cached parts cost moves with
// the append in the same write.
func (s *Service) AddParts(ctx context.Context, actor Actor, id string, in models.PartsInput) (*models.MaintenanceRequest, error) {
	if !actor.can(models.ActionLogWork) {
		return nil, errForbidden
	}
	if len(in.Parts) == 0 {
		return nil, validationError("parts are required")
	}
	for i, p := range in.Parts {
		switch {
		case strings.TrimSpace(p.Name) == "":
			return nil, validationError("parts[%d]: name is required", i)
		case p.Quantity < 1:
			return nil, validationError("parts[%d]: quantity must be at least 1", i)
		case p.UnitCost < 0:
			return nil, validationError("parts[%d]: unit_cost must not be negative", i)
		}
	}
	req, err := s.openRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	parts := make([]models.PartUsage, 0, len(in.Parts))
	for _, p := range in.Parts {
		parts = append(parts, models.PartUsage{
			Name:        strings.TrimSpace(p.Name),
			Quantity:    p.Quantity,
			UnitCost:    p.UnitCost,
			RequestedBy: actor.ID,
			RequestedAt: now,
		})
	}
	if err := s.requests.AppendParts(ctx, req.ID, parts); err != nil {
		return nil, storageErr("request", err)
	}
	log.WithFields(log.Fields{
		"request_number": req.RequestNumber,
		"parts":          len(parts),
		"cost":           models.PartsCost(parts),
	}).Info("Parts added")
	return s.Get(ctx, id)
}

func (s *Service) openRequest(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, errClosed
	}
	return req, nil
}

func validateWorkNote(in models.WorkNoteInput) error {
	if strings.TrimSpace(in.Note) == "" {
		return validationError("note is required")
	}
	if in.HoursWorked < 0 || in.HoursWorked > maxHoursPerNote {
		return validationError("hours_worked must be between 0 and %d", maxHoursPerNote)
	}
	return nil
}

func newWorkNote(technicianID primitive.ObjectID, in models.WorkNoteInput, now time.Time) models.WorkNote {
	attachments := in.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return models.WorkNote{
		TechnicianID: technicianID,
		Note:         strings.TrimSpace(in.Note),
		HoursWorked:  in.HoursWorked,
		Attachments:  attachments,
		CreatedAt:    now,
	}
}
