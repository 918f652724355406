package maintenance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ukydev/maintenance-hub/internal/models"
)

// Statistics aggregates the requests matching filter.
func (s *Service) Statistics(ctx context.Context, filter models.RequestFilter) (models.Statistics, error) {
	requests, _, err := s.requests.FindRequests(ctx, filter, models.Page{})
	if err != nil {
		return models.Statistics{}, fmt.Errorf("find requests: %w", err)
	}
	return ComputeStatistics(requests, s.now()), nil
}

// ComputeStatistics counts requests by status, priority and type, counts the
// overdue ones at now and averages resolution time over completed requests.
func ComputeStatistics(requests []models.MaintenanceRequest, now time.Time) models.Statistics {
	stats := models.Statistics{
		Total:      len(requests),
		ByStatus:   map[models.Status]int{},
		ByPriority: map[models.Priority]int{},
		ByType:     map[models.MaintenanceType]int{},
	}

	var resolutionSum float64
	for i := range requests {
		req := &requests[i]
		stats.ByStatus[req.Status]++
		stats.ByPriority[req.Priority]++
		stats.ByType[req.Type]++
		stats.TotalCost += req.TotalCost()
		if req.IsOverdue(now) {
			stats.Overdue++
		}
		if h, ok := req.ResolutionHours(); ok {
			stats.Completed++
			resolutionSum += h
		}
	}
	if stats.Completed > 0 {
		stats.AverageResolutionHours = math.Round(resolutionSum/float64(stats.Completed)*100) / 100
	}
	return stats
}
