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

// MongoWorkshopCollection implements WorkshopCollection for MongoDB.
type MongoWorkshopCollection struct {
	Collection *mongo.Collection
}

// InsertWorkshop inserts a workshop. A reused code is ErrDuplicateKey.
func (c *MongoWorkshopCollection) InsertWorkshop(ctx context.Context, workshop *models.Workshop) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	if workshop.ID.IsZero() {
		workshop.ID = primitive.NewObjectID()
	}
	workshop.CreatedAt = time.Now()
	workshop.UpdatedAt = workshop.CreatedAt
	_, err := c.Collection.InsertOne(ctx, workshop)
	return insertErr(err)
}

// FindWorkshopByID finds a workshop by its ID.
func (c *MongoWorkshopCollection) FindWorkshopByID(ctx context.Context, id primitive.ObjectID) (*models.Workshop, error) {
	return findByID[models.Workshop](ctx, c.Collection, id)
}

// FindWorkshops lists every workshop by name.
func (c *MongoWorkshopCollection) FindWorkshops(ctx context.Context) ([]models.Workshop, error) {
	return findAll[models.Workshop](ctx, c.Collection, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

// UpdateWorkshop replaces a workshop.
func (c *MongoWorkshopCollection) UpdateWorkshop(ctx context.Context, workshop *models.Workshop) error {
	workshop.UpdatedAt = time.Now()
	return replaceByID(ctx, c.Collection, workshop.ID, workshop)
}
