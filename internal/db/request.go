package db

import (
	"context"
	"regexp"
	"time"

	"github.com/ukydev/maintenance-hub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRequestCollection implements RequestCollection for MongoDB.
type MongoRequestCollection struct {
	Collection *mongo.Collection
}

// InsertRequest inserts a new request. A request number collision is
// reported as ErrDuplicateKey so the caller can renumber and retry.
func (c *MongoRequestCollection) InsertRequest(ctx context.Context, req *models.MaintenanceRequest) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	normalizeLedgers(req)

	_, err := c.Collection.InsertOne(ctx, req)
	return insertErr(err)
}

// FindRequestByID finds a request by its ID.
func (c *MongoRequestCollection) FindRequestByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error) {
	return findByID[models.MaintenanceRequest](ctx, c.Collection, id)
}

// FindRequests returns one page of matching requests, newest first, with the total match count.
func (c *MongoRequestCollection) FindRequests(ctx context.Context, filter models.RequestFilter, page models.Page) ([]models.MaintenanceRequest, int64, error) {
	if c.Collection == nil {
		return nil, 0, ErrNilCollection
	}
	query := RequestFilterBSON(filter)

	total, err := c.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if page.Limit > 0 {
		findOptions.SetSkip(page.Skip()).SetLimit(int64(page.Limit))
	}

	requests, err := findAll[models.MaintenanceRequest](ctx, c.Collection, query, findOptions)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// CountRequests counts matching requests.
func (c *MongoRequestCollection) CountRequests(ctx context.Context, filter models.RequestFilter) (int64, error) {
	if c.Collection == nil {
		return 0, ErrNilCollection
	}
	return c.Collection.CountDocuments(ctx, RequestFilterBSON(filter))
}

// ReplaceRequest writes the whole request if nobody else wrote it since it was read.
func (c *MongoRequestCollection) ReplaceRequest(ctx context.Context, req *models.MaintenanceRequest) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	expected := req.Version
	req.Version = expected + 1
	req.UpdatedAt = time.Now()
	normalizeLedgers(req)

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": req.ID, "version": expected}, req)
	if err != nil {
		req.Version = expected
		return err
	}
	if result.MatchedCount == 0 {
		req.Version = expected
		n, err := c.Collection.CountDocuments(ctx, bson.M{"_id": req.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// AppendWorkNote pushes a note onto the request's work log.
func (c *MongoRequestCollection) AppendWorkNote(ctx context.Context, id primitive.ObjectID, note models.WorkNote) error {
	if note.Attachments == nil {
		note.Attachments = []string{}
	}
	return c.appendUpdate(ctx, id, bson.M{
		"$push": bson.M{"work_notes": note},
		"$inc":  bson.M{"version": 1},
		"$set":  bson.M{"updated_at": time.Now()},
	})
}

// AppendParts pushes parts onto the ledger and adds their cost to the
// cached parts total in the same atomic update.
func (c *MongoRequestCollection) AppendParts(ctx context.Context, id primitive.ObjectID, parts []models.PartUsage) error {
	if len(parts) == 0 {
		return nil
	}
	return c.appendUpdate(ctx, id, bson.M{
		"$push": bson.M{"parts_used": bson.M{"$each": parts}},
		"$inc":  bson.M{"version": 1, "cost.parts": models.PartsCost(parts)},
		"$set":  bson.M{"updated_at": time.Now()},
	})
}

// appendUpdate applies update to an open request. A request that exists but
// is closed reports ErrRequestClosed.
func (c *MongoRequestCollection) appendUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	filter := bson.M{"_id": id, "status": bson.M{"$in": models.OpenStatuses()}}
	result, err := c.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		n, err := c.Collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrRequestClosed
	}
	return nil
}

// MaxRequestSequence returns the highest sequence among request numbers
// starting with prefix, or 0 when there are none. Sequences are compared
// as numbers so five digit sequences rank above four digit ones.
func (c *MongoRequestCollection) MaxRequestSequence(ctx context.Context, prefix string) (int64, error) {
	if c.Collection == nil {
		return 0, ErrNilCollection
	}
	match := bson.M{"request_number": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix) + "-[0-9]+$"}}
	sequence := bson.D{{Key: "$toLong", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{
		bson.D{{Key: "$split", Value: bson.A{"$request_number", "-"}}},
		-1,
	}}}}}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "max", Value: bson.D{{Key: "$max", Value: sequence}}},
		}}},
	}

	cursor, err := c.Collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var result struct {
		Max int64 `bson:"max"`
	}
	if !cursor.Next(ctx) {
		return 0, cursor.Err()
	}
	if err := cursor.Decode(&result); err != nil {
		return 0, err
	}
	return result.Max, nil
}

// RequestFilterBSON translates a typed filter into a MongoDB query.
func RequestFilterBSON(f models.RequestFilter) bson.M {
	query := bson.M{}
	if f.RequestNumber != "" {
		query["request_number"] = f.RequestNumber
	}
	if f.Status != "" {
		query["status"] = f.Status
	} else if f.OpenOnly || f.OverdueAt != nil {
		query["status"] = bson.M{"$in": models.OpenStatuses()}
	}
	if f.Priority != "" {
		query["priority"] = f.Priority
	}
	if f.Type != "" {
		query["type"] = f.Type
	}
	if f.EquipmentID != nil {
		query["equipment_id"] = *f.EquipmentID
	}
	if f.WorkshopID != nil {
		query["workshop_id"] = *f.WorkshopID
	}
	if f.TeamID != nil {
		query["assigned_team"] = *f.TeamID
	}
	if f.TechnicianID != nil {
		query["assigned_technician"] = *f.TechnicianID
	}
	if f.CreatedBy != nil {
		query["created_by"] = *f.CreatedBy
	}
	if f.From != nil || f.To != nil {
		created := bson.M{}
		if f.From != nil {
			created["$gte"] = *f.From
		}
		if f.To != nil {
			created["$lte"] = *f.To
		}
		query["created_at"] = created
	}
	if f.OverdueAt != nil {
		query["due_date"] = bson.M{"$lt": *f.OverdueAt}
	}
	return query
}

// normalizeLedgers stores empty ledgers as arrays so $push always has a target.
func normalizeLedgers(req *models.MaintenanceRequest) {
	if req.WorkNotes == nil {
		req.WorkNotes = []models.WorkNote{}
	}
	if req.PartsUsed == nil {
		req.PartsUsed = []models.PartUsage{}
	}
}
