package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/db"
	"github.com/ukydev/maintenance-hub/internal/models"
)

// SkillNormalizer cleans a submitted skill list.
type SkillNormalizer interface {
	NormalizeSkills(skills []string) ([]string, error)
}

// TechnicianHandler serves the technician directory.
type TechnicianHandler struct {
	users  db.UserCollection
	teams  db.TeamCollection
	skills SkillNormalizer
}

func NewTechnicianHandler(users db.UserCollection, teams db.TeamCollection, skills SkillNormalizer) *TechnicianHandler {
	return &TechnicianHandler{users: users, teams: teams, skills: skills}
}

// List handles GET /api/technicians: active, available technicians ordered
// by workload, optionally filtered by skill and team_id.
func (h *TechnicianHandler) List(w http.ResponseWriter, r *http.Request) {
	teamID, err := optionalObjectID(r, "team_id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	technicians, err := h.users.FindTechnicians(r.Context(), models.TechnicianFilter{
		Skill:  r.URL.Query().Get("skill"),
		TeamID: teamID,
	})
	if err != nil {
		writeStoreError(w, r, "technician", err)
		return
	}
	writeJSON(w, http.StatusOK, technicians)
}

// Update handles PUT /api/technicians/{id}.
func (h *TechnicianHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	user, err := h.users.FindUserByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "technician", err)
		return
	}
	if user.Role != models.RoleTechnician {
		writeStoreError(w, r, "technician", db.ErrNotFound)
		return
	}

	var in models.TechnicianUpdate
	if err := decodeStrictJSON(w, r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	if in.Skills != nil {
		skills, err := h.skills.NormalizeSkills(*in.Skills)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		user.Skills = skills
	}
	if in.TeamID != nil {
		teamID, err := parseOptionalObjectID("team_id", in.TeamID)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		if teamID != nil {
			if _, err := h.teams.FindTeamByID(r.Context(), *teamID); err != nil {
				badRequest(w, errInvalid("team_id").Error())
				return
			}
		}
		user.TeamID = teamID
	}
	if in.IsAvailable != nil {
		user.IsAvailable = *in.IsAvailable
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}

	if err := h.users.UpdateUser(r.Context(), id, *user); err != nil {
		writeStoreError(w, r, "technician", err)
		return
	}
	log.WithFields(log.Fields{"technician_id": id, "available": user.IsAvailable}).Info("Technician updated")
	writeJSON(w, http.StatusOK, user)
}
