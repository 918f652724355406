package maintenance

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/metrics"
	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transition moves a request to in.Status. Only the assigned technician or
// an administrator may do so. Closed requests stay closed.
func (s *Service) Transition(ctx context.Context, actor Actor, id string, in models.TransitionInput) (*models.MaintenanceRequest, error) {
	if !in.Status.IsValid() || in.Status == models.StatusNew {
		return nil, newError(KindValidation, CodeInvalidStatus, fmt.Sprintf("invalid target status %q", in.Status))
	}
	if in.Note != nil {
		if err := validateWorkNote(*in.Note); err != nil {
			return nil, err
		}
	}

	var (
		from    models.Status
		release *primitive.ObjectID
	)
	req, err := s.mutate(ctx, id, func(req *models.MaintenanceRequest) error {
		if !actor.isAdmin() && (req.AssignedTechnician == nil || *req.AssignedTechnician != actor.ID) {
			return errForbidden
		}
		if req.Status.IsTerminal() {
			return errClosed
		}

		from, release = req.Status, nil
		now := s.now()
		applyTransition(req, in.Status, now)
		if in.Status.IsTerminal() && req.AssignedTechnician != nil {
			tech := *req.AssignedTechnician
			release = &tech
		}
		if in.Note != nil {
			req.WorkNotes = append(req.WorkNotes, newWorkNote(actor.ID, *in.Note, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if release != nil {
		s.adjustWorkload(ctx, *release, -1)
	}
	metrics.StatusTransitions.WithLabelValues(string(req.Status)).Inc()
	log.WithFields(log.Fields{
		"request_number": req.RequestNumber,
		"from":           from,
		"to":             req.Status,
		"actor":          actor.ID.Hex(),
	}).Info("Maintenance request transitioned")
	return req, nil
}

// applyTransition sets the status and stamps the lifecycle dates. Dates that
// are already set are never moved or cleared.
func applyTransition(req *models.MaintenanceRequest, to models.Status, now time.Time) {
	req.Status = to
	switch to {
	case models.StatusInProgress:
		if req.ActualStartDate == nil {
			req.ActualStartDate = &now
		}
	case models.StatusCompleted:
		if req.ActualEndDate == nil {
			req.ActualEndDate = &now
		}
		if req.CompletedAt == nil {
			req.CompletedAt = &now
		}
		req.SLA.Breached = !req.SLA.ResolutionDeadline.IsZero() && now.After(req.SLA.ResolutionDeadline)
	}
}

// adjustWorkload changes a technician's workload after the request write has
// committed. A failure is logged; the request change stands.
func (s *Service) adjustWorkload(ctx context.Context, technicianID primitive.ObjectID, delta int) {
	var err error
	if delta > 0 {
		err = s.users.IncrementWorkload(ctx, technicianID, delta)
	} else {
		err = s.users.DecrementWorkload(ctx, technicianID, -delta)
	}
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"technician_id": technicianID.Hex(),
			"delta":         delta,
		}).Error("Failed to adjust technician workload")
	}
}
