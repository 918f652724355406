package maintenance

import (
	"time"

	"github.com/ukydev/maintenance-hub/internal/models"
)

type slaTarget struct {
	response   float64
	resolution float64
}

// slaTable holds response and resolution targets in hours.
var slaTable = map[models.Priority]slaTarget{
	models.PriorityEmergency: {response: 0.5, resolution: 4},
	models.PriorityCritical:  {response: 2, resolution: 8},
	models.PriorityHigh:      {response: 4, resolution: 24},
	models.PriorityMedium:    {response: 8, resolution: 72},
	models.PriorityLow:       {response: 24, resolution: 168},
}

// ComputeSLA returns the SLA for priority measured from ref. The breach flag
// always starts false. ok is false for an unknown priority.
func ComputeSLA(priority models.Priority, ref time.Time) (models.SLA, bool) {
	target, ok := slaTable[priority]
	if !ok {
		return models.SLA{}, false
	}
	return models.SLA{
		ResponseHours:      target.response,
		ResolutionHours:    target.resolution,
		ResponseDeadline:   ref.Add(hours(target.response)),
		ResolutionDeadline: ref.Add(hours(target.resolution)),
	}, true
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
