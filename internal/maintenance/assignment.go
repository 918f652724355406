package maintenance

import (
	"context"
	"errors"
	"fmt"
	"slices"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/db"
	"github.com/ukydev/maintenance-hub/internal/metrics"
	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assign binds a technician and/or a team to a request. Both references are
// resolved before anything is written.
func (s *Service) Assign(ctx context.Context, actor Actor, id string, in models.AssignInput) (*models.MaintenanceRequest, error) {
	if !actor.can(models.ActionAssignRequest) {
		return nil, errForbidden
	}
	if in.TechnicianID == nil && in.TeamID == nil {
		return nil, validationError("technician_id or team_id is required")
	}

	var (
		technician *models.User
		team       *models.Team
		err        error
	)
	if in.TechnicianID != nil {
		if technician, err = s.resolveTechnician(ctx, *in.TechnicianID); err != nil {
			return nil, err
		}
	}
	if in.TeamID != nil {
		if team, err = s.resolveTeam(ctx, *in.TeamID); err != nil {
			return nil, err
		}
	}
	return s.assign(ctx, id, technician, team, "manual")
}

// AutoAssign picks the least loaded available technician whose skills cover
// the equipment category and assigns them.
func (s *Service) AutoAssign(ctx context.Context, actor Actor, id string) (*models.MaintenanceRequest, error) {
	if !actor.can(models.ActionAssignRequest) {
		return nil, errForbidden
	}
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, errClosed
	}

	equipment, err := s.equipment.FindEquipmentByID(ctx, req.EquipmentID)
	if err != nil {
		return nil, storageErr("equipment", err)
	}
	candidates, err := s.users.FindTechnicians(ctx, models.TechnicianFilter{Skill: equipment.Category})
	if err != nil {
		return nil, fmt.Errorf("find technicians: %w", err)
	}
	technician, ok := PickTechnician(candidates, equipment.Category)
	if !ok {
		return nil, newError(KindConflict, CodeNoAvailableTechnicians,
			fmt.Sprintf("no available technician with skill %q", equipment.Category))
	}
	return s.assign(ctx, id, technician, nil, "auto")
}

// PickTechnician returns the available technician with skill and the lowest
// workload. Ties go to the earliest candidate, so callers control the
// tie-break through the order of candidates.
func PickTechnician(candidates []models.User, skill string) (*models.User, bool) {
	eligible := slices.DeleteFunc(slices.Clone(candidates), func(u models.User) bool {
		return u.Role != models.RoleTechnician || !u.IsActive || !u.IsAvailable || !u.HasSkill(skill)
	})
	if len(eligible) == 0 {
		return nil, false
	}
	best := slices.MinFunc(eligible, func(a, b models.User) int {
		return a.Workload - b.Workload
	})
	return &best, true
}

func (s *Service) assign(ctx context.Context, id string, technician *models.User, team *models.Team, mode string) (*models.MaintenanceRequest, error) {
	var previous *primitive.ObjectID
	req, err := s.mutate(ctx, id, func(req *models.MaintenanceRequest) error {
		if req.Status.IsTerminal() {
			return errClosed
		}
		previous = req.AssignedTechnician
		if technician != nil {
			techID := technician.ID
			req.AssignedTechnician = &techID
		}
		if team != nil {
			teamID := team.ID
			req.AssignedTeam = &teamID
		}
		// Work already under way keeps its status.
		if req.Status == models.StatusNew {
			req.Status = models.StatusAssigned
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if technician != nil && (previous == nil || *previous != technician.ID) {
		s.adjustWorkload(ctx, technician.ID, 1)
		if previous != nil {
			s.adjustWorkload(ctx, *previous, -1)
		}
	}

	metrics.Assignments.WithLabelValues(mode).Inc()
	fields := log.Fields{"request_number": req.RequestNumber, "mode": mode, "status": req.Status}
	if technician != nil {
		fields["technician_id"] = technician.ID.Hex()
	}
	if team != nil {
		fields["team_id"] = team.ID.Hex()
	}
	log.WithFields(fields).Info("Maintenance request assigned")

	if technician != nil {
		if err := s.notifier.NotifyAssignment(ctx, technician, req); err != nil {
			log.WithError(err).WithField("request_number", req.RequestNumber).Warn("Assignment notification failed")
		}
	}
	return req, nil
}

func (s *Service) resolveTechnician(ctx context.Context, id string) (*models.User, error) {
	invalid := newError(KindValidation, CodeInvalidTechnician, "technician does not exist")
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("find technician: %w", err)
	}
	if user.Role != models.RoleTechnician || !user.IsActive {
		return nil, invalid
	}
	return user, nil
}

func (s *Service) resolveTeam(ctx context.Context, id string) (*models.Team, error) {
	invalid := newError(KindValidation, CodeInvalidTeam, "team does not exist")
	teamID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, invalid
	}
	team, err := s.teams.FindTeamByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("find team: %w", err)
	}
	return team, nil
}
