package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bookstore/backoffice/internal/core/domain"
)

const (
	collectionEmployees      = "employees"
	collectionClients        = "clients"
	collectionBlockedClients = "blocked_clients"
)

type employeeDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Name         string             `bson:"name"`
	Surname      string             `bson:"surname"`
	Phone        string             `bson:"phone,omitempty"`
	BirthDate    time.Time          `bson:"birth_date,omitempty"`
}

func (d employeeDoc) toDomain() *domain.Employee {
	return &domain.Employee{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Name:         d.Name,
		Surname:      d.Surname,
		Phone:        d.Phone,
		BirthDate:    d.BirthDate,
	}
}

type clientDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Name         string             `bson:"name"`
	Surname      string             `bson:"surname"`
	Balance      float64            `bson:"balance"`
}

func (d clientDoc) toDomain() *domain.Client {
	return &domain.Client{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Name:         d.Name,
		Surname:      d.Surname,
		Balance:      d.Balance,
	}
}

type blockedDoc struct {
	Email     string    `bson:"email"`
	BlockedAt time.Time `bson:"blocked_at"`
}

// EmployeeRepository reads and updates the employees collection.
type EmployeeRepository struct {
	col *mongo.Collection
}

func NewEmployeeRepository(db *mongo.Database) *EmployeeRepository {
	return &EmployeeRepository{col: db.Collection(collectionEmployees)}
}

func (r *EmployeeRepository) FindByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc employeeDoc
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("find employee: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *EmployeeRepository) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	return updatePasswordHash(ctx, r.col, email, hash)
}

// EnsureIndexes creates the unique email index.
func (r *EmployeeRepository) EnsureIndexes(ctx context.Context) error {
	return ensureUniqueEmail(ctx, r.col)
}

// ClientRepository reads and updates the clients collection together with the
// blocked_clients side relation.
type ClientRepository struct {
	col     *mongo.Collection
	blocked *mongo.Collection
}

func NewClientRepository(db *mongo.Database) *ClientRepository {
	return &ClientRepository{
		col:     db.Collection(collectionClients),
		blocked: db.Collection(collectionBlockedClients),
	}
}

func (r *ClientRepository) FindByEmail(ctx context.Context, email string) (*domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc clientDoc
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ClientRepository) IsBlocked(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.blocked.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check blocked client: %w", err)
	}
	return n > 0, nil
}

// SetBlocked inserts or removes the blocked mark. Both directions are idempotent.
func (r *ClientRepository) SetBlocked(ctx context.Context, email string, blocked bool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if !blocked {
		if _, err := r.blocked.DeleteOne(ctx, bson.M{"email": email}); err != nil {
			return fmt.Errorf("unblock client: %w", err)
		}
		return nil
	}

	_, err := r.blocked.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$setOnInsert": blockedDoc{Email: email, BlockedAt: time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("block client: %w", err)
	}
	return nil
}

func (r *ClientRepository) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	return updatePasswordHash(ctx, r.col, email, hash)
}

// EnsureIndexes creates unique email indexes on clients and blocked_clients.
func (r *ClientRepository) EnsureIndexes(ctx context.Context) error {
	if err := ensureUniqueEmail(ctx, r.col); err != nil {
		return err
	}
	return ensureUniqueEmail(ctx, r.blocked)
}

func updatePasswordHash(ctx context.Context, col *mongo.Collection, email, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := col.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"password_hash": hash}})
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrPrincipalNotFound
	}
	return nil
}

func ensureUniqueEmail(ctx context.Context, col *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("ensure %s indexes: %w", col.Name(), err)
	}
	return nil
}
