package models

import "time"

// CreateRequestInput is the body of a create-request call.
type CreateRequestInput struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Type          MaintenanceType `json:"type"`
	EquipmentID   string          `json:"equipment_id"`
	Location      *Location       `json:"location"`
	Priority      Priority        `json:"priority"`
	Urgency       Level           `json:"urgency"`
	Impact        Level           `json:"impact"`
	ScheduledDate *time.Time      `json:"scheduled_date"`
	DueDate       *time.Time      `json:"due_date"`
}

// UpdateRequestInput lists exactly the request fields that can be edited
// after creation. Nil fields are left unchanged.
type UpdateRequestInput struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Type          *MaintenanceType `json:"type"`
	Priority      *Priority        `json:"priority"`
	Urgency       *Level           `json:"urgency"`
	Impact        *Level           `json:"impact"`
	ScheduledDate *time.Time       `json:"scheduled_date"`
	DueDate       *time.Time       `json:"due_date"`
	Location      *Location        `json:"location"`
	LaborCost     *float64         `json:"labor_cost"`
	ExternalCost  *float64         `json:"external_cost"`
}

// IsEmpty reports whether the update changes nothing.
func (u UpdateRequestInput) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Type == nil && u.Priority == nil &&
		u.Urgency == nil && u.Impact == nil && u.ScheduledDate == nil && u.DueDate == nil &&
		u.Location == nil && u.LaborCost == nil && u.ExternalCost == nil
}

// AssignInput binds a technician and/or a team to a request.
type AssignInput struct {
	TechnicianID *string `json:"technician_id"`
	TeamID       *string `json:"team_id"`
}

// WorkNoteInput is a labor entry submitted by a technician.
type WorkNoteInput struct {
	Note        string   `json:"note"`
	HoursWorked float64  `json:"hours_worked"`
	Attachments []string `json:"attachments"`
}

// TransitionInput moves a request to Status, optionally logging a note.
type TransitionInput struct {
	Status Status         `json:"status"`
	Note   *WorkNoteInput `json:"note"`
}

// PartInput is one part consumed by the work.
type PartInput struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	UnitCost float64 `json:"unit_cost"`
}

// PartsInput appends parts to the ledger.
type PartsInput struct {
	Parts []PartInput `json:"parts"`
}

// Statistics is the dashboard rollup over a set of requests.
type Statistics struct {
	Total                  int                     `json:"total"`
	ByStatus               map[Status]int          `json:"by_status"`
	ByPriority             map[Priority]int        `json:"by_priority"`
	ByType                 map[MaintenanceType]int `json:"by_type"`
	Overdue                int                     `json:"overdue"`
	Completed              int                     `json:"completed"`
	AverageResolutionHours float64                 `json:"average_resolution_hours"`
	TotalCost              float64                 `json:"total_cost"`
}

// RequestView is a request with its derived values, as returned by the API.
type RequestView struct {
	*MaintenanceRequest
	Derived Derived `json:"derived"`
}
