// Package mongo holds the MongoDB projection of the ledger used for audit reads.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// AuditCollectionName is the name of the ledger audit collection in MongoDB
	AuditCollectionName = "ledger_audit"
)

// AuditRepository implements the ledger.AuditRepository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB ledger audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique entry_id index that makes Create idempotent,
// plus the account history index.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "entry_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_entry_id"),
		},
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "sequence", Value: -1}},
			Options: options.Index().SetName("account_history"),
		},
	})
	if err != nil {
		r.logger.Error("Failed to create ledger audit indexes", "error", err)
		return fmt.Errorf("failed to create ledger audit indexes: %w", err)
	}

	return nil
}

// Create stores a projected entry. A second insert of the same entry id returns ErrDuplicateEntry.
func (r *AuditRepository) Create(ctx context.Context, record *ledger.AuditRecord) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrDuplicateEntry{EntryID: record.ID}
		}
		r.logger.Error("Failed to create ledger audit record",
			"entry_id", record.ID.String(),
			"error", err)
		return fmt.Errorf("failed to create ledger audit record: %w", err)
	}

	return nil
}

// GetByEntryID returns ErrEntryNotFound if the entry has not been projected yet.
func (r *AuditRepository) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*ledger.AuditRecord, error) {
	collection := r.db.Collection(AuditCollectionName)

	var record ledger.AuditRecord
	err := collection.FindOne(ctx, bson.M{"entry_id": entryID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrEntryNotFound{EntryID: entryID}
		}
		r.logger.Error("Failed to get ledger audit record",
			"entry_id", entryID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger audit record: %w", err)
	}

	return &record, nil
}

// ListByAccount returns projected entries newest first.
func (r *AuditRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.AuditRecord, error) {
	collection := r.db.Collection(AuditCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "sequence", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		r.logger.Error("Failed to list ledger audit records",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list ledger audit records: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]*ledger.AuditRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode ledger audit records",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger audit records: %w", err)
	}

	return records, nil
}

func (r *AuditRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	collection := r.db.Collection(AuditCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"account_id": accountID})
	if err != nil {
		r.logger.Error("Failed to count ledger audit records",
			"account_id", accountID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count ledger audit records: %w", err)
	}

	return count, nil
}
