package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTeamLead   Role = "team_lead"
	RoleTechnician Role = "technician"
	RoleRequester  Role = "requester"
)

// Permission actions checked by HasPermission.
const (
	ActionManageUsers     = "manage_users"
	ActionManageReference = "manage_reference"
	ActionViewReference   = "view_reference"
	ActionCreateRequest   = "create_request"
	ActionViewRequests    = "view_requests"
	ActionUpdateRequest   = "update_request"
	ActionAssignRequest   = "assign_request"
	ActionLogWork         = "log_work"
	ActionViewStatistics  = "view_statistics"
	ActionExportRequests  = "export_requests"
)

// User represents a user in the system. Technicians carry the skills and
// workload counter consulted by auto-assignment.
type User struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Username     string              `bson:"username" json:"username"`
	Email        string              `bson:"email" json:"email"`
	PasswordHash string              `bson:"password_hash" json:"-"`
	Role         Role                `bson:"role" json:"role"`
	FirstName    string              `bson:"first_name" json:"first_name"`
	LastName     string              `bson:"last_name" json:"last_name"`
	Skills       []string            `bson:"skills,omitempty" json:"skills,omitempty"`
	Workload     int                 `bson:"workload" json:"workload"`
	TeamID       *primitive.ObjectID `bson:"team_id,omitempty" json:"team_id,omitempty"`
	IsAvailable  bool                `bson:"is_available" json:"is_available"`
	IsActive     bool                `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time          `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Role      Role     `json:"role"`
	Skills    []string `json:"skills"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

// TechnicianUpdate is the set of technician profile fields an administrator may change.
type TechnicianUpdate struct {
	Skills      *[]string `json:"skills"`
	TeamID      *string   `json:"team_id"`
	IsAvailable *bool     `json:"is_available"`
	IsActive    *bool     `json:"is_active"`
}

// TechnicianFilter narrows the technician directory lookup used by auto-assignment.
type TechnicianFilter struct {
	Skill  string
	TeamID *primitive.ObjectID
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleTeamLead, RoleTechnician, RoleRequester:
		return true
	default:
		return false
	}
}

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(action string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleTeamLead:
		return action != ActionManageUsers
	case RoleTechnician:
		return action == ActionViewReference || action == ActionViewRequests ||
			action == ActionCreateRequest || action == ActionLogWork
	case RoleRequester:
		return action == ActionViewReference || action == ActionViewRequests ||
			action == ActionCreateRequest
	default:
		return false
	}
}

// HasSkill reports whether the user lists skill, ignoring case.
func (u *User) HasSkill(skill string) bool {
	for _, s := range u.Skills {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

// FullName returns the display name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
