package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/ukydev/maintenance-hub/internal/db"
	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TeamWorkloader counts the open work of a team.
type TeamWorkloader interface {
	TeamWorkload(ctx context.Context, teamID primitive.ObjectID) (models.TeamWorkload, error)
}

// TeamHandler serves the team directory.
type TeamHandler struct {
	teams     db.TeamCollection
	workshops db.WorkshopCollection
	workload  TeamWorkloader
}

func NewTeamHandler(teams db.TeamCollection, workshops db.WorkshopCollection, workload TeamWorkloader) *TeamHandler {
	return &TeamHandler{teams: teams, workshops: workshops, workload: workload}
}

type teamInput struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	TeamLead       *string  `json:"team_lead"`
	Members        []string `json:"members"`
	Specialization []string `json:"specialization"`
	WorkshopID     *string  `json:"workshop_id"`
	IsActive       *bool    `json:"is_active"`
}

func (h *TeamHandler) apply(ctx context.Context, in teamInput, team *models.Team) error {
	team.Name = strings.TrimSpace(in.Name)
	if team.Name == "" {
		return errRequired("name")
	}
	team.Description = in.Description

	lead, err := parseOptionalObjectID("team_lead", in.TeamLead)
	if err != nil {
		return err
	}
	team.TeamLead = lead

	members, err := parseObjectIDs("members", in.Members)
	if err != nil {
		return err
	}
	team.Members = members

	team.Specialization = in.Specialization
	if team.Specialization == nil {
		team.Specialization = []string{}
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
	team.WorkshopID = workshopID

	if in.IsActive != nil {
		team.IsActive = *in.IsActive
	}
	return nil
}

// List handles GET /api/teams, optionally filtered by workshop_id.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	workshopID, err := optionalObjectID(r, "workshop_id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	teams, err := h.teams.FindTeams(r.Context(), workshopID)
	if err != nil {
		writeStoreError(w, r, "team", err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// Create handles POST /api/teams.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in teamInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	team := &models.Team{IsActive: true}
	if err := h.apply(r.Context(), in, team); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.teams.InsertTeam(r.Context(), team); err != nil {
		writeStoreError(w, r, "team", err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

// Get handles GET /api/teams/{id}.
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	team, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// Update handles PUT /api/teams/{id}. Teams are deactivated, never deleted.
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	team, ok := h.load(w, r)
	if !ok {
		return
	}
	var in teamInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.apply(r.Context(), in, team); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.teams.UpdateTeam(r.Context(), team); err != nil {
		writeStoreError(w, r, "team", err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// Workload handles GET /api/teams/{id}/workload.
func (h *TeamHandler) Workload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(w, r, "team")
	if !ok {
		return
	}
	workload, err := h.workload.TeamWorkload(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workload)
}

func (h *TeamHandler) load(w http.ResponseWriter, r *http.Request) (*models.Team, bool) {
	id, ok := pathObjectID(w, r, "team")
	if !ok {
		return nil, false
	}
	team, err := h.teams.FindTeamByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "team", err)
		return nil, false
	}
	return team, true
}
