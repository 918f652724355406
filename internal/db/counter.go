package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCounterCollection implements SequenceCounter with one document per key,
// advanced by atomic $inc so concurrent callers never receive the same value.
type MongoCounterCollection struct {
	Collection *mongo.Collection
}

type counterDoc struct {
	Key string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// NextSequence atomically increments and returns the counter for key,
// creating it at 1 on first use.
func (c *MongoCounterCollection) NextSequence(ctx context.Context, key string) (int64, error) {
	if c.Collection == nil {
		return 0, ErrNilCollection
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc counterDoc
	err := c.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

// EnsureSequenceAtLeast raises the counter for key to value if it is lower.
func (c *MongoCounterCollection) EnsureSequenceAtLeast(ctx context.Context, key string, value int64) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	_, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$max": bson.M{"seq": value}},
		options.Update().SetUpsert(true),
	)
	return err
}
