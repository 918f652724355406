package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaintenanceType classifies the kind of work a request asks for.
type MaintenanceType string

const (
	TypeCorrective MaintenanceType = "Corrective"
	TypePreventive MaintenanceType = "Preventive"
	TypePredictive MaintenanceType = "Predictive"
	TypeEmergency  MaintenanceType = "Emergency"
)

// Priority drives the SLA targets of a request.
type Priority string

const (
	PriorityLow       Priority = "Low"
	PriorityMedium    Priority = "Medium"
	PriorityHigh      Priority = "High"
	PriorityCritical  Priority = "Critical"
	PriorityEmergency Priority = "Emergency"
)

// Level is the scale used for urgency and impact.
type Level string

const (
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

// Status is the lifecycle state of a request.
type Status string

const (
	StatusNew             Status = "New"
	StatusAssigned        Status = "Assigned"
	StatusInProgress      Status = "In Progress"
	StatusWaitingForParts Status = "Waiting for Parts"
	StatusOnHold          Status = "On Hold"
	StatusCompleted       Status = "Completed"
	StatusCancelled       Status = "Cancelled"
	StatusRejected        Status = "Rejected"
)

// AllStatuses lists every status in pipeline order.
var AllStatuses = []Status{
	StatusNew, StatusAssigned, StatusInProgress, StatusWaitingForParts,
	StatusOnHold, StatusCompleted, StatusCancelled, StatusRejected,
}

// AllPriorities lists priorities from least to most pressing.
var AllPriorities = []Priority{
	PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical, PriorityEmergency,
}

// AllTypes lists every maintenance type.
var AllTypes = []MaintenanceType{
	TypeCorrective, TypePreventive, TypePredictive, TypeEmergency,
}

func (t MaintenanceType) IsValid() bool {
	for _, v := range AllTypes {
		if t == v {
			return true
		}
	}
	return false
}

func (p Priority) IsValid() bool {
	for _, v := range AllPriorities {
		if p == v {
			return true
		}
	}
	return false
}

func (l Level) IsValid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return true
	default:
		return false
	}
}

func (s Status) IsValid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is expected from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

// OpenStatuses are the statuses counted as outstanding work.
func OpenStatuses() []Status {
	var open []Status
	for _, s := range AllStatuses {
		if !s.IsTerminal() {
			open = append(open, s)
		}
	}
	return open
}

// WorkNote is one entry of the append-only labor log.
type WorkNote struct {
	TechnicianID primitive.ObjectID `json:"technician_id" bson:"technician_id"`
	Note         string             `json:"note" bson:"note"`
	HoursWorked  float64            `json:"hours_worked" bson:"hours_worked"`
	Attachments  []string           `json:"attachments" bson:"attachments"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
}

// SLA holds the priority-derived service targets of a request.
type SLA struct {
	ResponseHours      float64   `json:"response_hours" bson:"response_hours"`
	ResolutionHours    float64   `json:"resolution_hours" bson:"resolution_hours"`
	ResponseDeadline   time.Time `json:"response_deadline" bson:"response_deadline"`
	ResolutionDeadline time.Time `json:"resolution_deadline" bson:"resolution_deadline"`
	Breached           bool      `json:"breached" bson:"breached"`
}

// MaintenanceRequest is a unit of maintenance work against one piece of equipment.
type MaintenanceRequest struct {
	ID                 primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	RequestNumber      string              `json:"request_number" bson:"request_number"`
	Title              string              `json:"title" bson:"title"`
	Description        string              `json:"description" bson:"description"`
	Type               MaintenanceType     `json:"type" bson:"type"`
	EquipmentID        primitive.ObjectID  `json:"equipment_id" bson:"equipment_id"`
	WorkshopID         *primitive.ObjectID `json:"workshop_id,omitempty" bson:"workshop_id,omitempty"`
	Location           *Location           `json:"location,omitempty" bson:"location,omitempty"`
	Priority           Priority            `json:"priority" bson:"priority"`
	Urgency            Level               `json:"urgency" bson:"urgency"`
	Impact             Level               `json:"impact" bson:"impact"`
	CreatedBy          primitive.ObjectID  `json:"created_by" bson:"created_by"`
	AssignedTechnician *primitive.ObjectID `json:"assigned_technician,omitempty" bson:"assigned_technician,omitempty"`
	AssignedTeam       *primitive.ObjectID `json:"assigned_team,omitempty" bson:"assigned_team,omitempty"`
	Status             Status              `json:"status" bson:"status"`
	ScheduledDate      *time.Time          `json:"scheduled_date,omitempty" bson:"scheduled_date,omitempty"`
	DueDate            *time.Time          `json:"due_date,omitempty" bson:"due_date,omitempty"`
	DueDateExplicit    bool                `json:"due_date_explicit" bson:"due_date_explicit"`
	ActualStartDate    *time.Time          `json:"actual_start_date,omitempty" bson:"actual_start_date,omitempty"`
	ActualEndDate      *time.Time          `json:"actual_end_date,omitempty" bson:"actual_end_date,omitempty"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	WorkNotes          []WorkNote          `json:"work_notes" bson:"work_notes"`
	PartsUsed          []PartUsage         `json:"parts_used" bson:"parts_used"`
	Cost               CostBreakdown       `json:"cost" bson:"cost"`
	SLA                SLA                 `json:"sla" bson:"sla"`
	Version            int64               `json:"-" bson:"version"`
	CreatedAt          time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" bson:"updated_at"`
}

// CalculatePartsCost recomputes the parts cost from the ledger and caches it in Cost.Parts.
func (r *MaintenanceRequest) CalculatePartsCost() float64 {
	r.Cost.Parts = PartsCost(r.PartsUsed)
	return r.Cost.Parts
}

// TotalCost sums labor, parts and external cost.
func (r *MaintenanceRequest) TotalCost() float64 {
	return r.Cost.Total()
}

// TotalHours sums the hours over every work note.
func (r *MaintenanceRequest) TotalHours() float64 {
	total := 0.0
	for _, n := range r.WorkNotes {
		total += n.HoursWorked
	}
	return total
}

// Duration is the time between the actual start and end dates, if both are set.
func (r *MaintenanceRequest) Duration() (time.Duration, bool) {
	if r.ActualStartDate == nil || r.ActualEndDate == nil {
		return 0, false
	}
	return r.ActualEndDate.Sub(*r.ActualStartDate), true
}

// AgeInDays is the number of whole days since creation.
func (r *MaintenanceRequest) AgeInDays(now time.Time) int {
	return int(now.Sub(r.CreatedAt).Hours() / 24)
}

// IsOverdue is true when the request is still open and its due date has passed.
func (r *MaintenanceRequest) IsOverdue(now time.Time) bool {
	if r.DueDate == nil || r.Status.IsTerminal() {
		return false
	}
	return r.DueDate.Before(now)
}

// ResolutionHours is the time from creation to completion, for completed requests.
func (r *MaintenanceRequest) ResolutionHours() (float64, bool) {
	if r.Status != StatusCompleted || r.CompletedAt == nil {
		return 0, false
	}
	return r.CompletedAt.Sub(r.CreatedAt).Hours(), true
}

// Derived holds the computed, non-stored values of a request.
type Derived struct {
	TotalCost     float64  `json:"total_cost"`
	TotalHours    float64  `json:"total_hours"`
	DurationHours *float64 `json:"duration_hours,omitempty"`
	AgeInDays     int      `json:"age_in_days"`
	IsOverdue     bool     `json:"is_overdue"`
}

// Derive computes the derived values of the request at now.
func (r *MaintenanceRequest) Derive(now time.Time) Derived {
	d := Derived{
		TotalCost:  r.TotalCost(),
		TotalHours: r.TotalHours(),
		AgeInDays:  r.AgeInDays(now),
		IsOverdue:  r.IsOverdue(now),
	}
	if dur, ok := r.Duration(); ok {
		h := math.Round(dur.Hours()*100) / 100
		d.DurationHours = &h
	}
	return d
}

// RequestFilter selects requests for listing, statistics and export.
type RequestFilter struct {
	RequestNumber string
	Status        Status
	Priority      Priority
	Type          MaintenanceType
	EquipmentID   *primitive.ObjectID
	WorkshopID    *primitive.ObjectID
	TeamID        *primitive.ObjectID
	TechnicianID  *primitive.ObjectID
	CreatedBy     *primitive.ObjectID
	From          *time.Time
	To            *time.Time
	OverdueAt     *time.Time
	OpenOnly      bool
}

// Page is an offset pagination window. A zero Limit means no limit.
type Page struct {
	Number int
	Limit  int
}

// Skip is the number of documents before the page.
func (p Page) Skip() int64 {
	if p.Number <= 1 || p.Limit <= 0 {
		return 0
	}
	return int64((p.Number - 1) * p.Limit)
}
