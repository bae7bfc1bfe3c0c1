// Package mongostore keeps users and files in MongoDB collections shaped like
// the documents the service has always written.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sharedrive/internal/domain"
)

const (
	usersCollection = "users"
	filesCollection = "files"
)

// Connect dials uri and verifies the deployment is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique user keys and the per-owner file index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	_, err = db.Collection(filesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create file indexes: %w", err)
	}
	return nil
}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", domain.ErrAlreadyExists, err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", domain.ErrAlreadyExists, err)
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type FileRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewFileRepository(db *mongo.Database) *FileRepository {
	return &FileRepository{coll: db.Collection(filesCollection), now: time.Now}
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	// Mongo keeps millisecond precision.
	file.CreatedAt = r.now().UTC().Truncate(time.Millisecond)

	if _, err := r.coll.InsertOne(ctx, file); err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

func (r *FileRepository) FindByOwner(ctx context.Context, ownerID string) ([]domain.File, error) {
	return r.find(ctx, bson.M{"createdBy": ownerID})
}

func (r *FileRepository) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.File, error) {
	var file domain.File
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "createdBy": ownerID}).Decode(&file)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &file, nil
}

func (r *FileRepository) Search(ctx context.Context, ownerID string, filter domain.FileFilter) ([]domain.File, error) {
	return r.find(ctx, searchFilter(ownerID, filter))
}

func searchFilter(ownerID string, filter domain.FileFilter) bson.M {
	q := bson.M{"createdBy": ownerID}
	if filter.Name != "" {
		q["name"] = bson.M{"$regex": regexp.QuoteMeta(filter.Name), "$options": "i"}
	}
	if filter.Description != "" {
		q["description"] = bson.M{"$regex": regexp.QuoteMeta(filter.Description), "$options": "i"}
	}
	if filter.From != nil || filter.To != nil {
		created := bson.M{}
		if filter.From != nil {
			created["$gte"] = *filter.From
		}
		if filter.To != nil {
			created["$lte"] = *filter.To
		}
		q["createdAt"] = created
	}
	return q
}

func (r *FileRepository) find(ctx context.Context, filter bson.M) ([]domain.File, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find files: %w", err)
	}

	files := []domain.File{}
	if err := cur.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}
	return files, nil
}

func (r *FileRepository) UpdateNameDescription(ctx context.Context, id, name, description string) (*domain.File, error) {
	set := bson.M{}
	if name != "" {
		set["name"] = name
	}
	if description != "" {
		set["description"] = description
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var file domain.File
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&file)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update file: %w", err)
	}
	return &file, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
