package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository"
)

const (
	usersCollection         = "users"
	animalsCollection       = "animals"
	requestsCollection      = "treatment_requests"
	prescriptionsCollection = "prescriptions"
	billsCollection         = "bills"
	usageCollection         = "area_usage"
	snapshotsCollection     = "amu"
	recordsCollection       = "amu_records"
)

// MongoDBRepository owns the client and hands out per-collection stores.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoDBRepository connects to MongoDB and verifies the connection.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

// Store returns the repository set backed by this database.
func (r *MongoDBRepository) Store() repository.Store {
	return repository.Store{
		Users:         &userStore{coll: r.db.Collection(usersCollection)},
		Animals:       &animalStore{coll: r.db.Collection(animalsCollection)},
		Requests:      &requestStore{coll: r.db.Collection(requestsCollection)},
		Prescriptions: &prescriptionStore{coll: r.db.Collection(prescriptionsCollection)},
		Bills:         &billStore{coll: r.db.Collection(billsCollection)},
		Usage: &usageStore{
			coll:      r.db.Collection(usageCollection),
			snapshots: r.db.Collection(snapshotsCollection),
		},
		Records: &recordStore{coll: r.db.Collection(recordsCollection)},
	}
}

// EnsureIndexes creates the unique keys the domain invariants rely on.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "city", Value: 1}}},
		},
		animalsCollection: {
			{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "animalTagId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "animalTagId", Value: 1}}},
		},
		requestsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "farmerId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "vetId", Value: 1}, {Key: "status", Value: 1}}},
		},
		prescriptionsCollection: {
			{
				Keys: bson.D{{Key: "requestId", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"requestId": bson.M{"$type": "objectId"}}),
			},
			{Keys: bson.D{{Key: "vetId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "billId", Value: 1}}},
			{Keys: bson.D{{Key: "ledger.status", Value: 1}}},
		},
		billsCollection: {
			{Keys: bson.D{{Key: "prescriptionId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "pharmacistId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		usageCollection: {
			{Keys: bson.D{{Key: "area", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		snapshotsCollection: {
			{Keys: bson.D{{Key: "area", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		recordsCollection: {
			{Keys: bson.D{{Key: "animalId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for name, indexes := range specs {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Ping checks the connection, used by the health endpoint.
func (r *MongoDBRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}) (*T, error) {
	out := new(T)
	if err := coll.FindOne(ctx, filter).Decode(out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("find one in %s: %w", coll.Name(), err)
	}
	return out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

// missingOrConflict distinguishes an absent document from a failed condition
// after a conditional write matched nothing.
func missingOrConflict(ctx context.Context, coll *mongo.Collection, id interface{}) error {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check %s existence: %w", coll.Name(), err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return models.ErrConflict
}
