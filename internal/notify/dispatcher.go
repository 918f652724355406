package notify

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/models"
)

const defaultDispatchTimeout = 10 * time.Second

// Dispatcher sends notifications in the background. NotifyAssignment returns
// immediately and never reports the delivery outcome; failures are logged.
type Dispatcher struct {
	next    Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher wraps next. A zero timeout uses the default.
func NewDispatcher(next Notifier, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Dispatcher{next: next, timeout: timeout}
}

func (d *Dispatcher) NotifyAssignment(ctx context.Context, technician *models.User, req *models.MaintenanceRequest) error {
	// The caller's request may finish before delivery; keep its values only.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	techCopy := *technician
	reqCopy := *req

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Notification sender panicked")
			}
		}()

		if err := d.next.NotifyAssignment(sendCtx, &techCopy, &reqCopy); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"request_number": reqCopy.RequestNumber,
				"technician_id":  techCopy.ID.Hex(),
			}).Warn("Failed to deliver assignment notification")
		}
	}()
	return nil
}

// Wait blocks until every in-flight notification has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
