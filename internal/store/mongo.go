package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eudaimonent/freemoney-gobackend/internal/models"
)

const transactionCollection = "btc_transactions"

// MongoStore implements TransactionStore on a MongoDB collection.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(transactionCollection)}
}

// EnsureIndexes creates the unique indexes backing insert-if-absent and the
// secondary lookup by receiving address.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{Keys: bson.M{"transaction_code": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"receiving_address": 1}, Options: options.Index().SetUnique(true)},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create transaction indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByCode(ctx context.Context, code string) (*models.Transaction, error) {
	return s.findOne(ctx, bson.M{"transaction_code": code})
}

func (s *MongoStore) FindByAddress(ctx context.Context, address string) (*models.Transaction, error) {
	return s.findOne(ctx, bson.M{"receiving_address": address})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tx models.Transaction
	if err := s.collection.FindOne(ctx, filter).Decode(&tx); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	return &tx, nil
}

func (s *MongoStore) Insert(ctx context.Context, tx *models.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, tx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdateConfirmations(ctx context.Context, code string, received int, detectedAt time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// The $lt filter keeps the counter monotonic under concurrent and
	// duplicated deliveries; $min preserves the first detection time once
	// it is set.
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"transaction_code": code, "confirmations_received": bson.M{"$lt": received}},
		bson.M{
			"$set": bson.M{"confirmations_received": received},
			"$min": bson.M{"payment_detected_at": detectedAt},
		})
	if err != nil {
		return false, fmt.Errorf("failed to update confirmations: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) MarkNotified(ctx context.Context, code string, notifiedAt time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.collection.UpdateOne(ctx,
		bson.M{"transaction_code": code, "notified_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"notified_at": notifiedAt}})
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction notified: %w", err)
	}
	return res.ModifiedCount > 0, nil
}
