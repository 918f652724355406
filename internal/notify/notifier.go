package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/config"
	"github.com/ukydev/maintenance-hub/internal/models"
	"golang.org/x/sync/errgroup"
)

// Notifier tells a technician about work assigned to them.
type Notifier interface {
	NotifyAssignment(ctx context.Context, technician *models.User, req *models.MaintenanceRequest) error
}

var ErrNoRecipient = errors.New("technician has no address for this channel")

// AssignmentEvent is the payload published for an assignment.
type AssignmentEvent struct {
	Event          string     `json:"event"`
	RequestID      string     `json:"request_id"`
	RequestNumber  string     `json:"request_number"`
	Title          string     `json:"title"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	TechnicianID   string     `json:"technician_id"`
	TechnicianName string     `json:"technician_name"`
	AssignedAt     time.Time  `json:"assigned_at"`
}

// NewAssignmentEvent builds the event for technician and req.
func NewAssignmentEvent(technician *models.User, req *models.MaintenanceRequest, at time.Time) AssignmentEvent {
	return AssignmentEvent{
		Event:          "assignment",
		RequestID:      req.ID.Hex(),
		RequestNumber:  req.RequestNumber,
		Title:          req.Title,
		Priority:       string(req.Priority),
		Status:         string(req.Status),
		DueDate:        req.DueDate,
		TechnicianID:   technician.ID.Hex(),
		TechnicianName: technician.FullName(),
		AssignedAt:     at,
	}
}

// Multi sends through every notifier concurrently and joins their errors.
type Multi []Notifier

func (m Multi) NotifyAssignment(ctx context.Context, technician *models.User, req *models.MaintenanceRequest) error {
	errs := make([]error, len(m))
	var g errgroup.Group
	for i, n := range m {
		i, n := i, n
		g.Go(func() error {
			errs[i] = n.NotifyAssignment(ctx, technician, req)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// LogNotifier only writes the assignment to the log.
type LogNotifier struct{}

func (LogNotifier) NotifyAssignment(_ context.Context, technician *models.User, req *models.MaintenanceRequest) error {
	log.WithFields(log.Fields{
		"request_number": req.RequestNumber,
		"technician":     technician.Username,
		"priority":       req.Priority,
	}).Info("Assignment notification")
	return nil
}

// FromConfig builds the notifier chain for the enabled channels. The returned
// close function releases broker connections.
func FromConfig(cfg *config.Config) (Notifier, func(), error) {
	var (
		chain   Multi
		closers []func()
	)
	if cfg.MQTT.Enabled {
		m, err := NewMQTTNotifier(cfg.MQTT)
		if err != nil {
			return nil, nil, fmt.Errorf("mqtt notifier: %w", err)
		}
		chain = append(chain, m)
		closers = append(closers, m.Close)
	}
	if cfg.SMTP.Enabled {
		chain = append(chain, NewSMTPNotifier(cfg.SMTP))
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	switch len(chain) {
	case 0:
		log.Info("No notification channel enabled, assignments are only logged")
		return LogNotifier{}, closeAll, nil
	case 1:
		return chain[0], closeAll, nil
	default:
		return chain, closeAll, nil
	}
}
