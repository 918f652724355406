package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// Workshop is a site that hosts equipment and teams.
type Workshop struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name      string              `bson:"name" json:"name"`
	Code      string              `bson:"code" json:"code"`
	Address   string              `bson:"address" json:"address"`
	Manager   *primitive.ObjectID `bson:"manager,omitempty" json:"manager,omitempty"`
	IsActive  bool                `bson:"is_active" json:"is_active"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}
