package handlers

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/auth"
	"github.com/ukydev/maintenance-hub/internal/db"
	"github.com/ukydev/maintenance-hub/internal/middleware"
	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := decodeJSON(w, r, &loginReq); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}

	if loginReq.Username == "" || loginReq.Password == "" {
		badRequest(w, "Username and password are required")
		return
	}

	user, err := h.userCollection.FindUserByUsername(r.Context(), loginReq.Username)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			writeServiceError(w, r, err)
			return
		}
		unauthorized(w, "Invalid credentials")
		return
	}

	if !user.IsActive {
		unauthorized(w, "Account is deactivated")
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		unauthorized(w, "Invalid credentials")
		return
	}

	response, err := h.issueTokens(user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// A stale last-login stamp must not fail the login.
	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to update last login")
	}

	writeJSON(w, http.StatusOK, response)
}

// Register handles user registration. Anyone may register as a requester,
// technician or team lead; creating an administrator needs an admin token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var registerReq models.RegisterRequest
	if err := decodeJSON(w, r, &registerReq); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}

	if err := h.authService.ValidateUsername(registerReq.Username); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.authService.ValidateEmail(registerReq.Email); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.authService.ValidatePassword(registerReq.Password); err != nil {
		badRequest(w, err.Error())
		return
	}

	if registerReq.Role == "" {
		registerReq.Role = models.RoleRequester
	}
	if !models.IsValidRole(registerReq.Role) {
		badRequest(w, "Invalid role")
		return
	}
	if registerReq.Role == models.RoleAdmin && !h.callerIsAdmin(r) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Only administrators can create administrators")
		return
	}

	skills, err := h.authService.NormalizeSkills(registerReq.Skills)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if _, err := h.userCollection.FindUserByUsername(r.Context(), registerReq.Username); err == nil {
		writeError(w, http.StatusConflict, "DUPLICATE", "Username already exists")
		return
	}
	if _, err := h.userCollection.FindUserByEmail(r.Context(), strings.ToLower(registerReq.Email)); err == nil {
		writeError(w, http.StatusConflict, "DUPLICATE", "Email already exists")
		return
	}

	passwordHash, err := h.authService.HashPassword(registerReq.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	user := models.User{
		ID:           primitive.NewObjectID(),
		Username:     registerReq.Username,
		Email:        strings.ToLower(registerReq.Email),
		PasswordHash: passwordHash,
		Role:         registerReq.Role,
		FirstName:    registerReq.FirstName,
		LastName:     registerReq.LastName,
		Skills:       skills,
		IsAvailable:  registerReq.Role == models.RoleTechnician,
		IsActive:     true,
	}

	if err := h.userCollection.InsertUser(r.Context(), user); err != nil {
		if errors.Is(err, db.ErrDuplicateKey) {
			writeError(w, http.StatusConflict, "DUPLICATE", "Username or email already exists")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	response, err := h.issueTokens(&user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.WithFields(log.Fields{"username": user.Username, "role": user.Role}).Info("User registered")
	writeJSON(w, http.StatusCreated, response)
}

func (h *AuthHandler) callerIsAdmin(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if header == "" {
		return false
	}
	claims, err := h.authService.ValidateToken(header)
	return err == nil && claims.Role == models.RoleAdmin
}

func (h *AuthHandler) issueTokens(user *models.User) (models.LoginResponse, error) {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return models.LoginResponse{}, err
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		return models.LoginResponse{}, err
	}
	return models.LoginResponse{Token: token, RefreshToken: refreshToken, User: *user}, nil
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		unauthorized(w, "User context not found")
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeStoreError(w, r, "user", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile updates the current user's profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		unauthorized(w, "User context not found")
		return
	}

	var updateReq struct {
		FirstName string    `json:"first_name"`
		LastName  string    `json:"last_name"`
		Email     string    `json:"email"`
		Skills    *[]string `json:"skills"`
	}
	if err := decodeJSON(w, r, &updateReq); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeStoreError(w, r, "user", err)
		return
	}

	if updateReq.FirstName != "" {
		user.FirstName = updateReq.FirstName
	}
	if updateReq.LastName != "" {
		user.LastName = updateReq.LastName
	}
	if updateReq.Email != "" {
		if err := h.authService.ValidateEmail(updateReq.Email); err != nil {
			badRequest(w, err.Error())
			return
		}
		email := strings.ToLower(updateReq.Email)
		existingUser, err := h.userCollection.FindUserByEmail(r.Context(), email)
		if err == nil && existingUser.ID.Hex() != claims.UserID {
			writeError(w, http.StatusConflict, "DUPLICATE", "Email already exists")
			return
		}
		user.Email = email
	}
	if updateReq.Skills != nil {
		skills, err := h.authService.NormalizeSkills(*updateReq.Skills)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		user.Skills = skills
	}

	if err := h.userCollection.UpdateUser(r.Context(), claims.UserID, *user); err != nil {
		writeStoreError(w, r, "user", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Profile updated successfully"})
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		unauthorized(w, "User context not found")
		return
	}

	var passwordReq struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(w, r, &passwordReq); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}

	if passwordReq.CurrentPassword == "" || passwordReq.NewPassword == "" {
		badRequest(w, "Current password and new password are required")
		return
	}
	if err := h.authService.ValidatePassword(passwordReq.NewPassword); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeStoreError(w, r, "user", err)
		return
	}

	if !h.authService.CheckPassword(passwordReq.CurrentPassword, user.PasswordHash) {
		unauthorized(w, "Current password is incorrect")
		return
	}

	newPasswordHash, err := h.authService.HashPassword(passwordReq.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	user.PasswordHash = newPasswordHash
	if err := h.userCollection.UpdateUser(r.Context(), claims.UserID, *user); err != nil {
		writeStoreError(w, r, "user", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}
