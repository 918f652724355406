package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/ukydev/maintenance-hub/internal/db"
	"github.com/ukydev/maintenance-hub/internal/models"
)

// RequestLister lists maintenance requests.
type RequestLister interface {
	List(ctx context.Context, filter models.RequestFilter, page models.Page) ([]models.MaintenanceRequest, int64, error)
}

// EquipmentHandler serves the equipment register.
type EquipmentHandler struct {
	equipment db.EquipmentCollection
	workshops db.WorkshopCollection
	teams     db.TeamCollection
	requests  RequestLister
}

func NewEquipmentHandler(equipment db.EquipmentCollection, workshops db.WorkshopCollection, teams db.TeamCollection, requests RequestLister) *EquipmentHandler {
	return &EquipmentHandler{equipment: equipment, workshops: workshops, teams: teams, requests: requests}
}

type equipmentInput struct {
	Name         string           `json:"name"`
	SerialNumber string           `json:"serial_number"`
	Category     string           `json:"category"`
	Manufacturer string           `json:"manufacturer"`
	Model        string           `json:"model"`
	WorkshopID   *string          `json:"workshop_id"`
	AssignedTeam *string          `json:"assigned_team"`
	Location     *models.Location `json:"location"`
	Status       string           `json:"status"`
}

func (h *EquipmentHandler) apply(ctx context.Context, in equipmentInput, eq *models.Equipment) error {
	eq.Name = strings.TrimSpace(in.Name)
	eq.SerialNumber = strings.TrimSpace(in.SerialNumber)
	if eq.Name == "" || eq.SerialNumber == "" {
		return errRequired("name and serial_number")
	}
	eq.Category = strings.TrimSpace(in.Category)
	eq.Manufacturer = in.Manufacturer
	eq.Model = in.Model
	eq.Location = in.Location

	if in.Status != "" {
		if !models.IsValidEquipmentStatus(in.Status) {
			return errInvalid("status")
		}
		eq.Status = in.Status
	}
	if eq.Status == "" {
		eq.Status = "operational"
	}

	workshopID, err := parseOptionalObjectID("workshop_id", in.WorkshopID)
	if err != nil {
		return err
	}
	if workshopID != nil {
		if _, err := h.workshops.FindWorkshopByID(ctx, *workshopID); err != nil {
			return errInvalid("workshop_id")
		}
	}
	eq.WorkshopID = workshopID

	teamID, err := parseOptionalObjectID("assigned_team", in.AssignedTeam)
	if err != nil {
		return err
	}
	if teamID != nil {
		if _, err := h.teams.FindTeamByID(ctx, *teamID); err != nil {
			return errInvalid("assigned_team")
		}
	}
	eq.AssignedTeam = teamID
	return nil
}

// List handles GET /api/equipment, filtered by workshop_id and category.
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	workshopID, err := optionalObjectID(r, "workshop_id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	equipment, err := h.equipment.FindEquipment(r.Context(), workshopID, r.URL.Query().Get("category"))
	if err != nil {
		writeStoreError(w, r, "equipment", err)
		return
	}
	writeJSON(w, http.StatusOK, equipment)
}

// Create handles POST /api/equipment.
func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in equipmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	eq := &models.Equipment{}
	if err := h.apply(r.Context(), in, eq); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.equipment.InsertEquipment(r.Context(), eq); err != nil {
		writeStoreError(w, r, "equipment", err)
		return
	}
	writeJSON(w, http.StatusCreated, eq)
}

// Get handles GET /api/equipment/{id}.
func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	eq, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

// Update handles PUT /api/equipment/{id}. Equipment is retired, never deleted.
func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	eq, ok := h.load(w, r)
	if !ok {
		return
	}
	var in equipmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.apply(r.Context(), in, eq); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.equipment.UpdateEquipment(r.Context(), eq); err != nil {
		writeStoreError(w, r, "equipment", err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

// History handles GET /api/equipment/{id}/history: the requests raised
// against the equipment, newest first.
func (h *EquipmentHandler) History(w http.ResponseWriter, r *http.Request) {
	eq, ok := h.load(w, r)
	if !ok {
		return
	}
	page, err := parsePage(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	requests, total, err := h.requests.List(r.Context(), models.RequestFilter{EquipmentID: &eq.ID}, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"equipment": eq,
		"requests":  requests,
		"total":     total,
	})
}

func (h *EquipmentHandler) load(w http.ResponseWriter, r *http.Request) (*models.Equipment, bool) {
	id, ok := pathObjectID(w, r, "equipment")
	if !ok {
		return nil, false
	}
	eq, err := h.equipment.FindEquipmentByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "equipment", err)
		return nil, false
	}
	return eq, true
}
