package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// Equipment represents a serviceable asset.
type Equipment struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	SerialNumber string              `bson:"serial_number" json:"serial_number"`
	Category     string              `bson:"category" json:"category"` // matched against technician skills, e.g. "HVAC", "Electrical"
	Manufacturer string              `bson:"manufacturer" json:"manufacturer"`
	Model        string              `bson:"model" json:"model"`
	WorkshopID   *primitive.ObjectID `bson:"workshop_id,omitempty" json:"workshop_id,omitempty"`
	AssignedTeam *primitive.ObjectID `bson:"assigned_team,omitempty" json:"assigned_team,omitempty"`
	Location     *Location           `bson:"location,omitempty" json:"location,omitempty"`
	Status       string              `bson:"status" json:"status"` // "operational", "under_maintenance", "out_of_service", "retired"
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updated_at"`
}

// IsValidEquipmentStatus checks an equipment status value.
func IsValidEquipmentStatus(status string) bool {
	switch status {
	case "operational", "under_maintenance", "out_of_service", "retired":
		return true
	default:
		return false
	}
}
