package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/ukydev/maintenance-hub/internal/db"
	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkshopHandler serves the workshop directory.
type WorkshopHandler struct {
	workshops db.WorkshopCollection
}

func NewWorkshopHandler(workshops db.WorkshopCollection) *WorkshopHandler {
	return &WorkshopHandler{workshops: workshops}
}

type workshopInput struct {
	Name     string  `json:"name"`
	Code     string  `json:"code"`
	Address  string  `json:"address"`
	Manager  *string `json:"manager"`
	IsActive *bool   `json:"is_active"`
}

func (in workshopInput) apply(ws *models.Workshop) error {
	ws.Name = strings.TrimSpace(in.Name)
	ws.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	ws.Address = in.Address
	if ws.Name == "" || ws.Code == "" {
		return errRequired("name and code")
	}
	manager, err := parseOptionalObjectID("manager", in.Manager)
	if err != nil {
		return err
	}
	if manager != nil {
		ws.Manager = manager
	}
	if in.IsActive != nil {
		ws.IsActive = *in.IsActive
	}
	return nil
}

// List handles GET /api/workshops.
func (h *WorkshopHandler) List(w http.ResponseWriter, r *http.Request) {
	workshops, err := h.workshops.FindWorkshops(r.Context())
	if err != nil {
		writeStoreError(w, r, "workshop", err)
		return
	}
	writeJSON(w, http.StatusOK, workshops)
}

// Create handles POST /api/workshops.
func (h *WorkshopHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in workshopInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	ws := &models.Workshop{IsActive: true}
	if err := in.apply(ws); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.workshops.InsertWorkshop(r.Context(), ws); err != nil {
		writeStoreError(w, r, "workshop", err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

// Get handles GET /api/workshops/{id}.
func (h *WorkshopHandler) Get(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// Update handles PUT /api/workshops/{id}.
func (h *WorkshopHandler) Update(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.load(w, r)
	if !ok {
		return
	}
	var in workshopInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := in.apply(ws); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.workshops.UpdateWorkshop(r.Context(), ws); err != nil {
		writeStoreError(w, r, "workshop", err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (h *WorkshopHandler) load(w http.ResponseWriter, r *http.Request) (*models.Workshop, bool) {
	id, ok := pathObjectID(w, r, "workshop")
	if !ok {
		return nil, false
	}
	ws, err := h.workshops.FindWorkshopByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "workshop", err)
		return nil, false
	}
	return ws, true
}

// pathObjectID parses the {id} route variable; a malformed id is a 404.
func pathObjectID(w http.ResponseWriter, r *http.Request, what string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, r, what, db.ErrNotFound)
		return primitive.NilObjectID, false
	}
	return id, true
}
