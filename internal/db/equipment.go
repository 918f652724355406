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

// MongoEquipmentCollection implements EquipmentCollection for MongoDB.
type MongoEquipmentCollection struct {
	Collection *mongo.Collection
}

// InsertEquipment inserts an equipment record. A reused serial number is ErrDuplicateKey.
func (c *MongoEquipmentCollection) InsertEquipment(ctx context.Context, equipment *models.Equipment) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	if equipment.ID.IsZero() {
		equipment.ID = primitive.NewObjectID()
	}
	equipment.CreatedAt = time.Now()
	equipment.UpdatedAt = equipment.CreatedAt
	_, err := c.Collection.InsertOne(ctx, equipment)
	return insertErr(err)
}

// FindEquipmentByID finds an equipment record by its ID.
func (c *MongoEquipmentCollection) FindEquipmentByID(ctx context.Context, id primitive.ObjectID) (*models.Equipment, error) {
	return findByID[models.Equipment](ctx, c.Collection, id)
}

// FindEquipment lists equipment, optionally restricted to a workshop and category.
func (c *MongoEquipmentCollection) FindEquipment(ctx context.Context, workshopID *primitive.ObjectID, category string) ([]models.Equipment, error) {
	filter := bson.M{}
	if workshopID != nil {
		filter["workshop_id"] = *workshopID
	}
	if category != "" {
		filter["category"] = category
	}
	return findAll[models.Equipment](ctx, c.Collection, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

// UpdateEquipment replaces an equipment record.
func (c *MongoEquipmentCollection) UpdateEquipment(ctx context.Context, equipment *models.Equipment) error {
	equipment.UpdatedAt = time.Now()
	return replaceByID(ctx, c.Collection, equipment.ID, equipment)
}
