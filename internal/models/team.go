package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// Team is a group of technicians led by a team lead.
type Team struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name           string               `bson:"name" json:"name"`
	Description    string               `bson:"description" json:"description"`
	TeamLead       *primitive.ObjectID  `bson:"team_lead,omitempty" json:"team_lead,omitempty"`
	Members        []primitive.ObjectID `bson:"members" json:"members"`
	Specialization []string             `bson:"specialization" json:"specialization"`
	WorkshopID     *primitive.ObjectID  `bson:"workshop_id,omitempty" json:"workshop_id,omitempty"`
	IsActive       bool                 `bson:"is_active" json:"is_active"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updated_at"`
}

// TeamWorkload is the read-time view of a team's open work.
type TeamWorkload struct {
	TeamID       primitive.ObjectID `json:"team_id"`
	OpenRequests int64              `json:"open_requests"`
}
