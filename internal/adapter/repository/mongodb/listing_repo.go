package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const listingCollectionName = "listings"

// ListingRepository implements domain.ListingRepository on MongoDB.
type ListingRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewListingRepository(db *mongo.Database, log *logger.Logger) *ListingRepository {
	return &ListingRepository{
		collection: db.Collection(listingCollectionName),
		logger:     log.Named("ListingRepository"),
	}
}

// EnsureIndexes creates the indexes the listing queries rely on.
func (r *ListingRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.Error("Failed to create indexes for listings collection", zap.Error(err))
		return fmt.Errorf("db create indexes failed: %w", err)
	}
	r.logger.Info("Successfully ensured indexes for listings collection")
	return nil
}

func (r *ListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	doc, err := toListingDocument(listing)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to insert listing into DB", zap.String("seller_id", listing.SellerID), zap.Error(err))
		return fmt.Errorf("%w: db insert failed: %v", domain.ErrStorage, err)
	}

	listing.ID = doc.ID.Hex()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	r.logger.Debug("Listing inserted", zap.String("listing_id", listing.ID))
	return nil
}

// FindByID reports an unknown or malformed id as domain.ErrNotFound.
func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s", domain.ErrNotFound, id)
	}
	var doc listingDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: listing %s", domain.ErrNotFound, id)
		}
		r.logger.Error("Failed to get listing by ID from DB", zap.String("listing_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: db findone failed: %v", domain.ErrStorage, err)
	}
	return toDomainListing(&doc), nil
}

// Update rewrites the editable fields and status. Images, seller and comments
// are not touched so a concurrent comment cannot be lost.
func (r *ListingRepository) Update(ctx context.Context, listing *domain.Listing) error {
	oid, err := primitive.ObjectIDFromHex(listing.ID)
	if err != nil {
		return fmt.Errorf("%w: listing %s", domain.ErrNotFound, listing.ID)
	}
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"title":       listing.Title,
		"description": listing.Description,
		"category":    listing.Category,
		"price":       listing.Price,
		"condition":   listing.Condition,
		"contact":     listing.Contact,
		"status":      listing.Status,
		"updated_at":  now,
	}}
	if err := r.updateOne(ctx, oid, update); err != nil {
		return err
	}
	listing.UpdatedAt = now
	return nil
}

func (r *ListingRepository) SaveComments(ctx context.Context, listingID string, comments []domain.Comment) error {
	oid, err := primitive.ObjectIDFromHex(listingID)
	if err != nil {
		return fmt.Errorf("%w: listing %s", domain.ErrNotFound, listingID)
	}
	update := bson.M{"$set": bson.M{
		"comments":   toCommentDocuments(comments),
		"updated_at": time.Now().UTC(),
	}}
	return r.updateOne(ctx, oid, update)
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: listing %s", domain.ErrNotFound, id)
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.logger.Error("Failed to delete listing from DB", zap.String("listing_id", id), zap.Error(err))
		return fmt.Errorf("%w: db delete failed: %v", domain.ErrStorage, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: listing %s", domain.ErrNotFound, id)
	}
	return nil
}

// List applies the filter, newest first, and counts all matches.
func (r *ListingRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Listing, int64, error) {
	filter = filter.Normalize()
	query := bson.M{}
	if filter.SellerID != "" {
		query["seller_id"] = filter.SellerID
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		r.logger.Error("Failed to count listings", zap.Any("query", query), zap.Error(err))
		return nil, 0, fmt.Errorf("%w: db count failed: %v", domain.ErrStorage, err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		r.logger.Error("Failed to find listings", zap.Any("query", query), zap.Error(err))
		return nil, 0, fmt.Errorf("%w: db find failed: %v", domain.ErrStorage, err)
	}
	defer cursor.Close(ctx)

	var docs []*listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("%w: db cursor decode failed: %v", domain.ErrStorage, err)
	}
	return toDomainListings(docs), total, nil
}

func (r *ListingRepository) updateOne(ctx context.Context, oid primitive.ObjectID, update bson.M) error {
	res, err := r.collection.UpdateByID(ctx, oid, update)
	if err != nil {
		r.logger.Error("Failed to update listing in DB", zap.String("listing_id", oid.Hex()), zap.Error(err))
		return fmt.Errorf("%w: db update failed: %v", domain.ErrStorage, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: listing %s", domain.ErrNotFound, oid.Hex())
	}
	return nil
}
