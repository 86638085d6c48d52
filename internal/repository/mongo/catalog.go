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

	"lunemusic/internal/domain"
)

// Collection names and provider id keys are shared with records written by
// earlier deployments of the bot.
var catalogCollections = map[domain.Namespace]string{
	domain.NamespaceVideo:  "youtubes",
	domain.NamespaceAudio:  "saavans",
	domain.NamespaceStream: "spotifies",
}

var providerIDFields = map[domain.Namespace]string{
	domain.NamespaceVideo:  "videoId",
	domain.NamespaceAudio:  "songId",
	domain.NamespaceStream: "songId",
}

type CatalogRepository struct {
	collections map[domain.Namespace]*mongo.Collection
	now         func() time.Time
}

type catalogDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	VideoID   string             `bson:"videoId,omitempty"`
	SongID    string             `bson:"songId,omitempty"`
	SaavnURL  string             `bson:"saavnUrl,omitempty"`
	Title     string             `bson:"title"`
	Artist    string             `bson:"artist"`
	MessageID int                `bson:"messageId"`
	Duration  int                `bson:"duration"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func NewCatalogRepository(client *mongo.Client, dbName string) *CatalogRepository {
	db := client.Database(dbName)
	collections := make(map[domain.Namespace]*mongo.Collection, len(catalogCollections))
	for ns, name := range catalogCollections {
		collections[ns] = db.Collection(name)
	}
	return &CatalogRepository{collections: collections, now: time.Now}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *CatalogRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil {
		return nil
	}
	for _, ns := range domain.CatalogNamespaces {
		coll := r.collections[ns]
		models := []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: providerIDFields[ns], Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		}
		if ns == domain.NamespaceAudio {
			models = append(models, mongo.IndexModel{Keys: bson.D{{Key: "saavnUrl", Value: 1}}})
		}
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", ns, err)
		}
	}
	return nil
}

func (r *CatalogRepository) collection(ns domain.Namespace) (*mongo.Collection, error) {
	coll, ok := r.collections[ns]
	if !ok {
		return nil, fmt.Errorf("unknown catalog namespace %q", ns)
	}
	return coll, nil
}

func (r *CatalogRepository) FindByID(ctx context.Context, ns domain.Namespace, id string) (domain.CatalogEntry, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.CatalogEntry{}, domain.ErrNotFound
	}
	return r.findOne(ctx, ns, bson.M{"_id": oid})
}

func (r *CatalogRepository) FindByProviderID(ctx context.Context, ns domain.Namespace, providerID string) (domain.CatalogEntry, error) {
	if providerID == "" {
		return domain.CatalogEntry{}, domain.ErrNotFound
	}
	return r.findOne(ctx, ns, bson.M{providerIDFields[ns]: providerID})
}

func (r *CatalogRepository) FindBySourceURL(ctx context.Context, ns domain.Namespace, sourceURL string) (domain.CatalogEntry, error) {
	if sourceURL == "" {
		return domain.CatalogEntry{}, domain.ErrNotFound
	}
	return r.findOne(ctx, ns, bson.M{"saavnUrl": sourceURL})
}

func (r *CatalogRepository) findOne(ctx context.Context, ns domain.Namespace, filter bson.M) (domain.CatalogEntry, error) {
	coll, err := r.collection(ns)
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	var doc catalogDoc
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.CatalogEntry{}, domain.ErrNotFound
		}
		return domain.CatalogEntry{}, err
	}
	return fromCatalogDoc(ns, doc), nil
}

func (r *CatalogRepository) Match(ctx context.Context, ns domain.Namespace, pattern string) ([]domain.CatalogEntry, error) {
	coll, err := r.collection(ns)
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		return nil, nil
	}
	regex := bson.M{"$regex": pattern, "$options": "i"}
	query := bson.M{"$or": bson.A{
		bson.M{"title": regex},
		bson.M{"artist": regex},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []catalogDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	entries := make([]domain.CatalogEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, fromCatalogDoc(ns, doc))
	}
	return entries, nil
}

func (r *CatalogRepository) Create(ctx context.Context, entry domain.CatalogEntry) (domain.CatalogEntry, error) {
	if err := entry.Validate(); err != nil {
		return domain.CatalogEntry{}, err
	}
	coll, err := r.collection(entry.Namespace)
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	doc := toCatalogDoc(entry)
	doc.ID = primitive.NewObjectID()
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.CatalogEntry{}, domain.ErrAlreadyExists
		}
		return domain.CatalogEntry{}, err
	}
	return fromCatalogDoc(entry.Namespace, doc), nil
}

func (r *CatalogRepository) Count(ctx context.Context, ns domain.Namespace) (int64, error) {
	coll, err := r.collection(ns)
	if err != nil {
		return 0, err
	}
	return coll.EstimatedDocumentCount(ctx)
}

func toCatalogDoc(entry domain.CatalogEntry) catalogDoc {
	doc := catalogDoc{
		Title:     entry.Title,
		Artist:    entry.Artist,
		MessageID: int(entry.DistributionRef),
		Duration:  entry.Duration,
		CreatedAt: entry.CreatedAt.UTC(),
	}
	if entry.ID != "" {
		if oid, err := primitive.ObjectIDFromHex(entry.ID); err == nil {
			doc.ID = oid
		}
	}
	switch entry.Namespace {
	case domain.NamespaceVideo:
		doc.VideoID = entry.ProviderID
	case domain.NamespaceAudio:
		doc.SongID = entry.ProviderID
		doc.SaavnURL = entry.SourceURL
	default:
		doc.SongID = entry.ProviderID
	}
	return doc
}

func fromCatalogDoc(ns domain.Namespace, doc catalogDoc) domain.CatalogEntry {
	entry := domain.CatalogEntry{
		Namespace:       ns,
		Title:           doc.Title,
		Artist:          doc.Artist,
		DistributionRef: domain.DistributionRef(doc.MessageID),
		Duration:        doc.Duration,
		SourceURL:       doc.SaavnURL,
		CreatedAt:       doc.CreatedAt,
	}
	if !doc.ID.IsZero() {
		entry.ID = doc.ID.Hex()
	}
	if ns == domain.NamespaceVideo {
		entry.ProviderID = doc.VideoID
	} else {
		entry.ProviderID = doc.SongID
	}
	return entry
}
