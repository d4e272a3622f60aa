package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bookstore/backoffice/internal/core/domain"
	"github.com/bookstore/backoffice/internal/core/ports"
)

// Collection names for the four rotating secret stores.
const (
	CollectionEmployeeRefreshTokens = "employee_refresh_tokens"
	CollectionClientRefreshTokens   = "client_refresh_tokens"
	CollectionEmployeeResetCodes    = "employee_reset_codes"
	CollectionClientResetCodes      = "client_reset_codes"
)

// SecretRepository stores one secret document per owner. Every mutation is a
// single-document operation filtered on owner_id, which makes it atomic.
type SecretRepository struct {
	col *mongo.Collection
}

func NewSecretRepository(db *mongo.Database, collection string) *SecretRepository {
	return &SecretRepository{col: db.Collection(collection)}
}

// NewSecretRepositories returns the four stores keyed by role and purpose.
func NewSecretRepositories(db *mongo.Database) (ports.SecretRepositories, []*SecretRepository) {
	er := NewSecretRepository(db, CollectionEmployeeRefreshTokens)
	cr := NewSecretRepository(db, CollectionClientRefreshTokens)
	ec := NewSecretRepository(db, CollectionEmployeeResetCodes)
	cc := NewSecretRepository(db, CollectionClientResetCodes)
	return ports.SecretRepositories{
		EmployeeRefresh: er,
		ClientRefresh:   cr,
		EmployeeReset:   ec,
		ClientReset:     cc,
	}, []*SecretRepository{er, cr, ec, cc}
}

// Replace upserts rec on owner_id. A concurrent first insert for the same owner
// can lose the race on the unique index; the upsert is retried once, at which
// point the document exists and the replace matches it.
func (r *SecretRepository) Replace(ctx context.Context, rec domain.SecretRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"owner_id": rec.OwnerID}

	_, err := r.col.ReplaceOne(ctx, filter, rec, opts)
	if mongo.IsDuplicateKeyError(err) {
		_, err = r.col.ReplaceOne(ctx, filter, rec, opts)
	}
	if err != nil {
		return fmt.Errorf("replace secret: %w", err)
	}
	return nil
}

func (r *SecretRepository) FindByOwner(ctx context.Context, ownerID string) (*domain.SecretRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rec domain.SecretRecord
	if err := r.col.FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSecretNotFound
		}
		return nil, fmt.Errorf("find secret: %w", err)
	}
	return &rec, nil
}

func (r *SecretRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteMany(ctx, bson.M{"owner_id": ownerID}); err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}

func (r *SecretRepository) Swap(ctx context.Context, ownerID, expected string, next domain.SecretRecord, now time.Time) (bool, error) {
	if expected == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, liveFilter(ownerID, expected, now), next)
	if err != nil {
		return false, fmt.Errorf("swap secret: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *SecretRepository) DeleteIfMatch(ctx context.Context, ownerID, secret string, now time.Time) (bool, error) {
	if secret == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, liveFilter(ownerID, secret, now))
	if err != nil {
		return false, fmt.Errorf("consume secret: %w", err)
	}
	return res.DeletedCount == 1, nil
}

// EnsureIndexes creates the unique owner index and a TTL index that lets the
// server drop expired secrets.
func (r *SecretRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	}
	if _, err := r.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("ensure %s indexes: %w", r.col.Name(), err)
	}
	return nil
}

func liveFilter(ownerID, secret string, now time.Time) bson.M {
	return bson.M{
		"owner_id":   ownerID,
		"secret":     secret,
		"expires_at": bson.M{"$gt": now.UTC()},
	}
}
