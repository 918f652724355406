package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/db"
	"github.com/ukydev/maintenance-hub/internal/maintenance"
	"github.com/ukydev/maintenance-hub/internal/middleware"
	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, maintenance.CodeValidation, message)
}

// writeServiceError maps a domain error kind onto an HTTP status. Anything
// unclassified is logged and reported as an opaque 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *maintenance.Error
	if errors.As(err, &domainErr) {
		status := http.StatusInternalServerError
		switch domainErr.Kind {
		case maintenance.KindNotFound:
			status = http.StatusNotFound
		case maintenance.KindValidation:
			status = http.StatusBadRequest
		case maintenance.KindAuthorization:
			status = http.StatusForbidden
		case maintenance.KindConflict:
			status = http.StatusConflict
		}
		if status == http.StatusInternalServerError || domainErr.Code == maintenance.CodeCreationFailed {
			log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		}
		writeError(w, status, domainErr.Code, domainErr.Message)
		return
	}
	log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
}

// writeStoreError maps reference-data storage errors.
func writeStoreError(w http.ResponseWriter, r *http.Request, what string, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, maintenance.CodeNotFound, what+" not found")
	case errors.Is(err, db.ErrDuplicateKey):
		writeError(w, http.StatusConflict, "DUPLICATE", what+" already exists")
	default:
		writeServiceError(w, r, err)
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// decodeStrictJSON is decodeJSON that also rejects fields v does not declare.
func decodeStrictJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// actorFrom returns the authenticated caller, writing a 401 when there is none.
func actorFrom(w http.ResponseWriter, r *http.Request) (maintenance.Actor, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "User context not found")
		return maintenance.Actor{}, false
	}
	actor, err := maintenance.ActorFromClaims(claims)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid user context")
		return maintenance.Actor{}, false
	}
	return actor, true
}

// optionalObjectID parses the named query parameter, if present.
func optionalObjectID(r *http.Request, name string) (*primitive.ObjectID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &id, nil
}

func optionalTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s, expected RFC3339", name)
	}
	return &t, nil
}

// parsePage reads page and limit, defaulting to the first page of 20.
func parsePage(r *http.Request) (models.Page, error) {
	page := models.Page{Number: 1, Limit: defaultPageLimit}
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, errors.New("invalid page")
		}
		page.Number = n
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageLimit {
			return page, fmt.Errorf("limit must be between 1 and %d", maxPageLimit)
		}
		page.Limit = n
	}
	return page, nil
}

func errRequired(what string) error {
	return fmt.Errorf("%s required", what)
}

func errInvalid(what string) error {
	return fmt.Errorf("invalid %s", what)
}

// parseObjectIDs parses a list of hex ids, naming field in the error.
func parseObjectIDs(field string, raw []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, errInvalid(field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseOptionalObjectID(field string, raw *string) (*primitive.ObjectID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(*raw)
	if err != nil {
		return nil, errInvalid(field)
	}
	return &id, nil
}
