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

// UserRepository reads profiles from the users collection owned by the
// identity provider. The only fields it writes are the self-editable profile
// fields and the avatar.
type UserRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewUserRepository(db *mongo.Database, log *logger.Logger) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
		logger:     log.Named("UserRepository"),
	}
}

// FindProfiles looks up all ids with one query. Malformed and unknown ids are
// simply absent from the result.
func (r *UserRepository) FindProfiles(ctx context.Context, ids []string) (map[string]domain.PublicProfile, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			r.logger.Debug("Skipping malformed user id", zap.String("user_id", id))
			continue
		}
		oids = append(oids, oid)
	}
	profiles := make(map[string]domain.PublicProfile, len(oids))
	if len(oids) == 0 {
		return profiles, nil
	}

	opts := options.Find().SetProjection(bson.M{"password": 0, "email": 0})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}}, opts)
	if err != nil {
		r.logger.Error("Failed to find user profiles", zap.Int("count", len(oids)), zap.Error(err))
		return nil, fmt.Errorf("%w: db find users failed: %v", domain.ErrStorage, err)
	}
	defer cursor.Close(ctx)

	var docs []*userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: db cursor decode failed: %v", domain.ErrStorage, err)
	}
	for _, d := range docs {
		profiles[d.ID.Hex()] = toPublicProfile(d)
	}
	return profiles, nil
}

// GetEmailByID returns the e-mail address of a user for notifications.
func (r *UserRepository) GetEmailByID(ctx context.Context, userID string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return "", fmt.Errorf("%w: invalid user ID format %q", domain.ErrNotFound, userID)
	}

	var doc struct {
		Email string `bson:"email"`
	}
	opts := options.FindOne().SetProjection(bson.M{"email": 1})
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
		}
		r.logger.Error("Failed to find user e-mail", zap.String("user_id", userID), zap.Error(err))
		return "", fmt.Errorf("%w: db findone failed: %v", domain.ErrStorage, err)
	}
	return doc.Email, nil
}

// FindProfile returns the user's profile, or domain.ErrNotFound.
func (r *UserRepository) FindProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format %q", domain.ErrNotFound, userID)
	}
	var doc userDocument
	opts := options.FindOne().SetProjection(bson.M{"password": 0})
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
		}
		r.logger.Error("Failed to find user profile", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: db findone failed: %v", domain.ErrStorage, err)
	}
	return toProfile(&doc), nil
}

// UpdateProfile sets the patched fields and returns the profile as stored.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Bio != nil {
		set["bio"] = *patch.Bio
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	if patch.ContactInfo != nil {
		set["contact_info"] = *patch.ContactInfo
	}
	return r.findAndSet(ctx, userID, set)
}

// SetAvatar records the URL and object key of a newly uploaded avatar.
func (r *UserRepository) SetAvatar(ctx context.Context, userID string, avatar domain.Image) (*domain.Profile, error) {
	return r.findAndSet(ctx, userID, bson.M{
		"avatar":     avatar.URL,
		"avatar_key": avatar.DeleteHandle,
		"updated_at": time.Now().UTC(),
	})
}

func (r *UserRepository) findAndSet(ctx context.Context, userID string, set bson.M) (*domain.Profile, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format %q", domain.ErrNotFound, userID)
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"password": 0})
	var doc userDocument
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
		}
		r.logger.Error("Failed to update user profile", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: db findoneandupdate failed: %v", domain.ErrStorage, err)
	}
	return toProfile(&doc), nil
}
