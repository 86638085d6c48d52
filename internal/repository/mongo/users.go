package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lunemusic/internal/domain"
)

const usersCollection = "users"

type UserRepository struct {
	collection *mongo.Collection
}

type userDoc struct {
	UserID            int64     `bson:"userId"`
	FirstName         string    `bson:"firstName"`
	LastName          string    `bson:"lastName"`
	Username          string    `bson:"username"`
	IsBlocked         bool      `bson:"isBlocked"`
	CreatedAt         time.Time `bson:"createdAt"`
	LastActive        time.Time `bson:"lastActive"`
	TotalInteractions int64     `bson:"totalInteractions"`
}

func NewUserRepository(client *mongo.Client, dbName string) *UserRepository {
	return &UserRepository{collection: client.Database(dbName).Collection(usersCollection)}
}

func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "isBlocked", Value: 1}}},
		{Keys: bson.D{{Key: "lastActive", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

// Touch records an interaction, creating the user on first contact.
func (r *UserRepository) Touch(ctx context.Context, profile domain.UserProfile, now time.Time) error {
	now = now.UTC()
	update := bson.M{
		"$set": bson.M{
			"firstName":  profile.FirstName,
			"lastName":   profile.LastName,
			"username":   profile.Username,
			"lastActive": now,
		},
		"$setOnInsert": bson.M{
			"createdAt": now,
			"isBlocked": false,
		},
		"$inc": bson.M{"totalInteractions": 1},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"userId": profile.UserID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *UserRepository) Get(ctx context.Context, userID int64) (domain.User, error) {
	var doc userDoc
	if err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return fromUserDoc(doc), nil
}

func (r *UserRepository) ListReachable(ctx context.Context) ([]domain.User, error) {
	return r.list(ctx, bson.M{"isBlocked": false})
}

func (r *UserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	return r.list(ctx, bson.M{})
}

func (r *UserRepository) list(ctx context.Context, filter bson.M) ([]domain.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, fromUserDoc(doc))
	}
	return users, nil
}

func (r *UserRepository) MarkBlocked(ctx context.Context, userID int64) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{"$set": bson.M{"isBlocked": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Stats(ctx context.Context, activeSince time.Time) (domain.UserStats, error) {
	var stats domain.UserStats
	var err error
	if stats.Total, err = r.collection.CountDocuments(ctx, bson.M{}); err != nil {
		return domain.UserStats{}, err
	}
	if stats.Blocked, err = r.collection.CountDocuments(ctx, bson.M{"isBlocked": true}); err != nil {
		return domain.UserStats{}, err
	}
	stats.Active = stats.Total - stats.Blocked
	if stats.RecentActive, err = r.collection.CountDocuments(ctx, bson.M{"lastActive": bson.M{"$gte": activeSince.UTC()}}); err != nil {
		return domain.UserStats{}, err
	}
	return stats, nil
}

func fromUserDoc(doc userDoc) domain.User {
	return domain.User{
		UserID:       doc.UserID,
		FirstName:    doc.FirstName,
		LastName:     doc.LastName,
		Username:     doc.Username,
		Blocked:      doc.IsBlocked,
		CreatedAt:    doc.CreatedAt,
		LastActive:   doc.LastActive,
		Interactions: doc.TotalInteractions,
	}
}
