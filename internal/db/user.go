package db

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserCollection implements UserCollection for MongoDB
type MongoUserCollection struct {
	Collection *mongo.Collection
}

// InsertUser inserts a new user into the database
func (c *MongoUserCollection) InsertUser(ctx context.Context, user models.User) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	user.IsActive = true

	_, err := c.Collection.InsertOne(ctx, user)
	return insertErr(err)
}

// FindUserByID finds a user by their ID
func (c *MongoUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return findByID[models.User](ctx, c.Collection, objectID)
}

// FindUserByUsername finds a user by their username
func (c *MongoUserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return c.findOne(ctx, bson.M{"username": username})
}

// FindUserByEmail finds a user by their email
func (c *MongoUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.findOne(ctx, bson.M{"email": email})
}

func (c *MongoUserCollection) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	var user models.User
	err := c.Collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindTechnicians returns active, available technicians matching the filter,
// ordered by ascending workload and then by ID for a stable tie-break.
func (c *MongoUserCollection) FindTechnicians(ctx context.Context, filter models.TechnicianFilter) ([]models.User, error) {
	query := bson.M{
		"role":         models.RoleTechnician,
		"is_active":    true,
		"is_available": true,
	}
	if filter.Skill != "" {
		query["skills"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(filter.Skill) + "$", Options: "i"}
	}
	if filter.TeamID != nil {
		query["team_id"] = *filter.TeamID
	}
	opts := options.Find().SetSort(bson.D{{Key: "workload", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[models.User](ctx, c.Collection, query, opts)
}

// UpdateUser writes the editable fields of a user. Workload, last login and
// creation time have their own atomic writers and are left untouched.
func (c *MongoUserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	if c.Collection == nil {
		return ErrNilCollection
	}

	set := bson.M{
		"username":      user.Username,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"role":          user.Role,
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"is_available":  user.IsAvailable,
		"is_active":     user.IsActive,
		"updated_at":    time.Now(),
	}
	unset := bson.M{}
	if len(user.Skills) > 0 {
		set["skills"] = user.Skills
	} else {
		unset["skills"] = ""
	}
	if user.TeamID != nil {
		set["team_id"] = *user.TeamID
	} else {
		unset["team_id"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return insertErr(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLastLogin updates the last login time for a user
func (c *MongoUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	if c.Collection == nil {
		return ErrNilCollection
	}

	now := time.Now()
	_, err = c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"last_login": now, "updated_at": now}},
	)
	return err
}

// IncrementWorkload atomically adds delta to a technician's workload.
func (c *MongoUserCollection) IncrementWorkload(ctx context.Context, id primitive.ObjectID, delta int) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"workload": delta}, "$set": bson.M{"updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementWorkload atomically subtracts delta from a technician's workload,
// never going below zero.
func (c *MongoUserCollection) DecrementWorkload(ctx context.Context, id primitive.ObjectID, delta int) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "workload", Value: bson.D{{Key: "$max", Value: bson.A{
				0,
				bson.D{{Key: "$subtract", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$workload", 0}}}, delta}}},
			}}}},
			{Key: "updated_at", Value: "$$NOW"},
		}}},
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
