package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/attachments"
	"github.com/ukydev/maintenance-hub/internal/maintenance"
	"github.com/ukydev/maintenance-hub/internal/models"
	"github.com/ukydev/maintenance-hub/internal/report"
)

// exportLimit caps the number of requests in one spreadsheet.
const exportLimit = 10000

// RequestService is the maintenance lifecycle as seen by the HTTP layer.
type RequestService interface {
	Create(ctx context.Context, actor maintenance.Actor, in models.CreateRequestInput) (*models.MaintenanceRequest, error)
	Get(ctx context.Context, id string) (*models.MaintenanceRequest, error)
	List(ctx context.Context, filter models.RequestFilter, page models.Page) ([]models.MaintenanceRequest, int64, error)
	Update(ctx context.Context, actor maintenance.Actor, id string, in models.UpdateRequestInput) (*models.MaintenanceRequest, error)
	Assign(ctx context.Context, actor maintenance.Actor, id string, in models.AssignInput) (*models.MaintenanceRequest, error)
	AutoAssign(ctx context.Context, actor maintenance.Actor, id string) (*models.MaintenanceRequest, error)
	Transition(ctx context.Context, actor maintenance.Actor, id string, in models.TransitionInput) (*models.MaintenanceRequest, error)
	AddWorkNote(ctx context.Context, actor maintenance.Actor, id string, in models.WorkNoteInput) (*models.MaintenanceRequest, error)
	AddParts(ctx context.Context, actor maintenance.Actor, id string, in models.PartsInput) (*models.MaintenanceRequest, error)
	Statistics(ctx context.Context, filter models.RequestFilter) (models.Statistics, error)
}

// RequestHandler serves the maintenance request API.
type RequestHandler struct {
	service     RequestService
	attachments attachments.Store
	now         func() time.Time
}

// NewRequestHandler creates a request handler. store may be nil when
// attachment storage is disabled.
func NewRequestHandler(service RequestService, store attachments.Store) *RequestHandler {
	return &RequestHandler{
		service:     service,
		attachments: store,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ListResponse is one page of requests.
type ListResponse struct {
	Requests []models.RequestView `json:"requests"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	Limit    int                  `json:"limit"`
}

func (h *RequestHandler) view(req *models.MaintenanceRequest) models.RequestView {
	return models.RequestView{MaintenanceRequest: req, Derived: req.Derive(h.now())}
}

func (h *RequestHandler) writeRequest(w http.ResponseWriter, status int, req *models.MaintenanceRequest) {
	writeJSON(w, status, h.view(req))
}

// Create handles POST /api/requests.
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in models.CreateRequestInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	req, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeRequest(w, http.StatusCreated, req)
}

// Get handles GET /api/requests/{id}.
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeRequest(w, http.StatusOK, req)
}

// List handles GET /api/requests.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	page, err := parsePage(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	requests, total, err := h.service.List(r.Context(), filter, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	views := make([]models.RequestView, len(requests))
	for i := range requests {
		views[i] = h.view(&requests[i])
	}
	writeJSON(w, http.StatusOK, ListResponse{Requests: views, Total: total, Page: page.Number, Limit: page.Limit})
}

// Update handles PATCH /api/requests/{id}. Unknown fields are rejected.
func (h *RequestHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in models.UpdateRequestInput
	if err := decodeStrictJSON(w, r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	req, err := h.service.Update(r.Context(), actor, mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeRequest(w, http.StatusOK, req)
}

// Assign handles POST /api/requests/{id}/assign.
func (h *RequestHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in models.AssignInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	req, err := h.service.Assign(r.Context(), actor, mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeRequest(w, http.StatusOK, req)
}

// AutoAssign handles POST /api/requests/{id}/auto-assign.
func (h *RequestHandler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	req, err := h.service.AutoAssign(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeRequest(w, http.StatusOK, req)
}

// Transition handles POST /api/requests/{id}/transition.
func (h *RequestHandler) Transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in models.TransitionInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	req, err := h.service.Transition(r.Context(), actor, mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeRequest(w, http.StatusOK, req)
}

// AddWorkNote handles POST /api/requests/{id}/notes.
func (h *RequestHandler) AddWorkNote(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in models.WorkNoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	req, err := h.service.AddWorkNote(r.Context(), actor, mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeRequest(w, http.StatusCreated, req)
}

// AddParts handles POST /api/requests/{id}/parts.
func (h *RequestHandler) AddParts(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in models.PartsInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	req, err := h.service.AddParts(r.Context(), actor, mux.Vars(r)["id"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeRequest(w, http.StatusCreated, req)
}

// Statistics handles GET /api/requests/stats with the list filters.
func (h *RequestHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	stats, err := h.service.Statistics(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Export handles GET /api/requests/export, streaming an xlsx workbook of
// the requests matching the list filters.
func (h *RequestHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	requests, total, err := h.service.List(r.Context(), filter, models.Page{Number: 1, Limit: exportLimit})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if total > exportLimit {
		log.WithFields(log.Fields{"total": total, "limit": exportLimit}).Warn("Export truncated")
	}

	now := h.now()
	var buf bytes.Buffer
	if err := report.WriteRequests(&buf, requests, now); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+report.Filename(now))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.WithError(err).Warn("Failed to write export")
	}
}

// UploadAttachment handles POST /api/requests/{id}/attachments as a
// multipart form with a "file" field. The returned key can be referenced
// from work note attachments.
func (h *RequestHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	if h.attachments == nil {
		writeError(w, http.StatusServiceUnavailable, "ATTACHMENTS_DISABLED", "Attachment storage is not configured")
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if !(&models.User{Role: actor.Role}).HasPermission(models.ActionLogWork) {
		writeError(w, http.StatusForbidden, maintenance.CodeForbidden, "not allowed to perform this action")
		return
	}
	req, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, attachments.MaxSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "file is required")
		return
	}
	defer file.Close()

	key, err := h.attachments.Put(r.Context(), req.RequestNumber, header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		if errors.Is(err, attachments.ErrEmptyFile) || header.Size > attachments.MaxSize {
			badRequest(w, err.Error())
			return
		}
		log.WithError(err).WithField("request_number", req.RequestNumber).Error("Attachment upload failed")
		writeError(w, http.StatusBadGateway, "STORAGE_FAILURE", "Failed to store attachment")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// AttachmentURL handles GET /api/requests/{id}/attachments?key=..., returning
// a time-limited download link for a key under the request.
func (h *RequestHandler) AttachmentURL(w http.ResponseWriter, r *http.Request) {
	if h.attachments == nil {
		writeError(w, http.StatusServiceUnavailable, "ATTACHMENTS_DISABLED", "Attachment storage is not configured")
		return
	}
	req, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	key := r.URL.Query().Get("key")
	if !attachments.BelongsTo(key, req.RequestNumber) {
		writeError(w, http.StatusNotFound, maintenance.CodeNotFound, "attachment not found")
		return
	}
	url, err := h.attachments.URL(r.Context(), key)
	if err != nil {
		log.WithError(err).WithField("key", key).Error("Presigning failed")
		writeError(w, http.StatusBadGateway, "STORAGE_FAILURE", "Failed to create download link")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"url": url, "expires_in": int(attachments.URLExpiry.Seconds())})
}

func (h *RequestHandler) parseFilter(r *http.Request) (models.RequestFilter, error) {
	q := r.URL.Query()
	filter := models.RequestFilter{
		RequestNumber: q.Get("request_number"),
		Status:        models.Status(q.Get("status")),
		Priority:      models.Priority(q.Get("priority")),
		Type:          models.MaintenanceType(q.Get("type")),
		OpenOnly:      q.Get("open") == "true",
	}
	var err error
	if filter.EquipmentID, err = optionalObjectID(r, "equipment_id"); err != nil {
		return filter, err
	}
	if filter.WorkshopID, err = optionalObjectID(r, "workshop_id"); err != nil {
		return filter, err
	}
	if filter.TeamID, err = optionalObjectID(r, "team_id"); err != nil {
		return filter, err
	}
	if filter.TechnicianID, err = optionalObjectID(r, "technician_id"); err != nil {
		return filter, err
	}
	if filter.CreatedBy, err = optionalObjectID(r, "created_by"); err != nil {
		return filter, err
	}
	if filter.From, err = optionalTime(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = optionalTime(r, "to"); err != nil {
		return filter, err
	}
	if q.Get("overdue") == "true" {
		now := h.now()
		filter.OverdueAt = &now
	}
	return filter, nil
}
