package db

import (
	"context"
	"time"

	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTeamCollection implements TeamCollection for MongoDB.
type MongoTeamCollection struct {
	Collection *mongo.Collection
}

// InsertTeam inserts a team.
func (c *MongoTeamCollection) InsertTeam(ctx context.Context, team *models.Team) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	if team.ID.IsZero() {
		team.ID = primitive.NewObjectID()
	}
	if team.Members == nil {
		team.Members = []primitive.ObjectID{}
	}
	team.CreatedAt = time.Now()
	team.UpdatedAt = team.CreatedAt
	_, err := c.Collection.InsertOne(ctx, team)
	return insertErr(err)
}

// FindTeamByID finds a team by its ID.
func (c *MongoTeamCollection) FindTeamByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error) {
	return findByID[models.Team](ctx, c.Collection, id)
}

// FindTeams lists teams, optionally restricted to one workshop.
func (c *MongoTeamCollection) FindTeams(ctx context.Context, workshopID *primitive.ObjectID) ([]models.Team, error) {
	filter := bson.M{}
	if workshopID != nil {
		filter["workshop_id"] = *workshopID
	}
	return findAll[models.Team](ctx, c.Collection, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

// UpdateTeam replaces a team.
func (c *MongoTeamCollection) UpdateTeam(ctx context.Context, team *models.Team) error {
	team.UpdatedAt = time.Now()
	return replaceByID(ctx, c.Collection, team.ID, team)
}
