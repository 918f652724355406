package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ukydev/maintenance-hub/internal/middleware"
	"github.com/ukydev/maintenance-hub/internal/models"
	"github.com/ukydev/maintenance-hub/internal/ratelimit"
)

// Router collects the handlers and middleware served by the API.
type Router struct {
	Auth           *AuthHandler
	Requests       *RequestHandler
	Workshops      *WorkshopHandler
	Teams          *TeamHandler
	Equipment      *EquipmentHandler
	Technicians    *TechnicianHandler
	Health         *HealthHandler
	AuthMiddleware *middleware.AuthMiddleware
	Limiter        ratelimit.Limiter
}

// NewRouter wires every route.
func NewRouter(rt Router) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Recover, middleware.Observe)

	limited := func(scope string, h http.HandlerFunc) http.Handler {
		return middleware.RateLimit(rt.Limiter, scope)(h)
	}
	am := rt.AuthMiddleware
	permit := func(action string, h http.HandlerFunc) http.Handler {
		return am.RequirePermission(action)(h)
	}

	// Public routes
	r.HandleFunc("/health", rt.Health.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.Handle("/api/auth/login", limited("login", rt.Auth.Login)).Methods("POST")
	r.Handle("/api/auth/register", limited("register", rt.Auth.Register)).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(am.Authenticate)

	// Subrouters report their own method mismatches; without a handler
	// they surface as 404.
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	api.HandleFunc("/auth/profile", rt.Auth.GetProfile).Methods("GET")
	api.HandleFunc("/auth/profile", rt.Auth.UpdateProfile).Methods("PUT")
	api.HandleFunc("/auth/change-password", rt.Auth.ChangePassword).Methods("POST")

	// Maintenance requests. Fixed paths come before {id}.
	req := rt.Requests
	api.Handle("/requests", limited("create_request", req.Create)).Methods("POST")
	api.Handle("/requests", permit(models.ActionViewRequests, req.List)).Methods("GET")
	api.Handle("/requests/stats", permit(models.ActionViewStatistics, req.Statistics)).Methods("GET")
	api.Handle("/requests/export", permit(models.ActionExportRequests, req.Export)).Methods("GET")
	api.Handle("/requests/{id}", permit(models.ActionViewRequests, req.Get)).Methods("GET")
	api.HandleFunc("/requests/{id}", req.Update).Methods("PATCH", "PUT")
	api.HandleFunc("/requests/{id}/assign", req.Assign).Methods("POST")
	api.HandleFunc("/requests/{id}/auto-assign", req.AutoAssign).Methods("POST")
	api.HandleFunc("/requests/{id}/transition", req.Transition).Methods("POST")
	api.HandleFunc("/requests/{id}/notes", req.AddWorkNote).Methods("POST")
	api.HandleFunc("/requests/{id}/parts", req.AddParts).Methods("POST")
	api.HandleFunc("/requests/{id}/attachments", req.UploadAttachment).Methods("POST")
	api.Handle("/requests/{id}/attachments", permit(models.ActionViewRequests, req.AttachmentURL)).Methods("GET")

	// Reference data
	view := func(h http.HandlerFunc) http.Handler { return permit(models.ActionViewReference, h) }
	manage := func(h http.HandlerFunc) http.Handler { return permit(models.ActionManageReference, h) }

	api.Handle("/workshops", view(rt.Workshops.List)).Methods("GET")
	api.Handle("/workshops", manage(rt.Workshops.Create)).Methods("POST")
	api.Handle("/workshops/{id}", view(rt.Workshops.Get)).Methods("GET")
	api.Handle("/workshops/{id}", manage(rt.Workshops.Update)).Methods("PUT")

	api.Handle("/teams", view(rt.Teams.List)).Methods("GET")
	api.Handle("/teams", manage(rt.Teams.Create)).Methods("POST")
	api.Handle("/teams/{id}", view(rt.Teams.Get)).Methods("GET")
	api.Handle("/teams/{id}", manage(rt.Teams.Update)).Methods("PUT")
	api.Handle("/teams/{id}/workload", view(rt.Teams.Workload)).Methods("GET")

	api.Handle("/equipment", view(rt.Equipment.List)).Methods("GET")
	api.Handle("/equipment", manage(rt.Equipment.Create)).Methods("POST")
	api.Handle("/equipment/{id}", view(rt.Equipment.Get)).Methods("GET")
	api.Handle("/equipment/{id}", manage(rt.Equipment.Update)).Methods("PUT")
	api.Handle("/equipment/{id}/history", view(rt.Equipment.History)).Methods("GET")

	api.Handle("/technicians", view(rt.Technicians.List)).Methods("GET")
	api.Handle("/technicians/{id}", permit(models.ActionManageUsers, rt.Technicians.Update)).Methods("PUT")

	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}
