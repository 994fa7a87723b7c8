package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ProfilePage is a user's profile together with a page of their listings.
type ProfilePage struct {
	Profile  *domain.Profile
	Listings *ListResult
}

// ProfileUsecase serves profile pages and lets users edit their own profile.
type ProfileUsecase struct {
	users          domain.ProfileRepository
	listings       *ListingUsecase
	avatars        ObjectStore
	events         EventPublisher
	metrics        *metrics.MetricsManager
	logger         *logger.Logger
	cleanupTimeout time.Duration
}

// NewProfileUsecase wires the profile service. avatars stores uploaded avatar
// images; events and m may be nil.
func NewProfileUsecase(
	users domain.ProfileRepository,
	listings *ListingUsecase,
	avatars ObjectStore,
	events EventPublisher,
	m *metrics.MetricsManager,
	log *logger.Logger,
	cleanupTimeout time.Duration,
) *ProfileUsecase {
	if cleanupTimeout <= 0 {
		cleanupTimeout = defaultCleanupTimeout
	}
	return &ProfileUsecase{
		users:          users,
		listings:       listings,
		avatars:        avatars,
		events:         events,
		metrics:        m,
		logger:         log.Named("ProfileUsecase"),
		cleanupTimeout: cleanupTimeout,
	}
}

// GetProfile returns the user and a page of the listings they sell.
// An unknown user is ErrNotFound.
func (uc *ProfileUsecase) GetProfile(ctx context.Context, userID string, filter domain.ListFilter) (*ProfilePage, error) {
	ctx, span := tracer.Start(ctx, "ProfileUsecase.GetProfile", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	profile, err := uc.findProfile(ctx, userID)
	if err != nil {
		return nil, spanError(span, err)
	}
	filter.SellerID = userID
	listings, err := uc.listings.ListListings(ctx, filter)
	if err != nil {
		return nil, spanError(span, err)
	}
	return &ProfilePage{Profile: profile, Listings: listings}, nil
}

// UpdateProfile changes bio, location and contact info of the actor's own
// profile. An empty patch returns the profile as stored.
func (uc *ProfileUsecase) UpdateProfile(ctx context.Context, actorID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "ProfileUsecase.UpdateProfile", trace.WithAttributes(attribute.String("user_id", actorID)))
	defer span.End()

	patch, err := patch.Normalize()
	if err != nil {
		return nil, spanError(span, err)
	}
	if patch.IsEmpty() {
		profile, err := uc.findProfile(ctx, actorID)
		if err != nil {
			return nil, spanError(span, err)
		}
		return profile, nil
	}
	if actorID == "" {
		return nil, spanError(span, fmt.Errorf("%w: user id is empty", domain.ErrNotFound))
	}

	profile, err := uc.users.UpdateProfile(ctx, actorID, patch)
	if err != nil {
		uc.logger.Error("Profile update failed", zap.String("user_id", actorID), zap.Error(err))
		return nil, spanError(span, asKind(err, domain.ErrStorage, "update profile %s", actorID))
	}
	publishEvent(ctx, uc.events, uc.logger, SubjectProfileUpdated, map[string]interface{}{
		"user_id":    actorID,
		"bio":        profile.Bio,
		"location":   profile.Location,
		"avatar_url": profile.Avatar,
	})
	uc.logger.Info("Profile updated", zap.String("user_id", actorID))
	return profile, nil
}

// UpdateAvatar stores a new avatar image and points the profile at it. If the
// profile cannot be updated the new image is removed again; a replaced
// uploaded avatar is removed once the profile no longer refers to it.
func (uc *ProfileUsecase) UpdateAvatar(ctx context.Context, actorID string, upload ImageUpload) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "ProfileUsecase.UpdateAvatar", trace.WithAttributes(attribute.String("user_id", actorID)))
	defer span.End()
	log := uc.logger.With(zap.String("user_id", actorID))

	images, err := prepareImages([]ImageUpload{upload})
	if err != nil {
		return nil, spanError(span, err)
	}
	current, err := uc.findProfile(ctx, actorID)
	if err != nil {
		return nil, spanError(span, err)
	}

	stored, err := uc.avatars.Upload(ctx, images[0].FileName, images[0].ContentType, images[0].Data)
	if err != nil {
		log.Error("Avatar upload failed", zap.Error(err))
		return nil, spanError(span, asKind(err, domain.ErrUpload, "avatar"))
	}
	profile, err := uc.users.SetAvatar(ctx, actorID, stored)
	if err != nil {
		log.Error("Saving avatar failed, removing uploaded image", zap.Error(err))
		uc.metrics.Compensation("avatar")
		uc.removeAvatar(ctx, actorID, "avatar_persist_failed", stored)
		return nil, spanError(span, asKind(err, domain.ErrStorage, "set avatar of %s", actorID))
	}

	if current.AvatarHandle != "" && current.AvatarHandle != stored.DeleteHandle {
		uc.removeAvatar(ctx, actorID, "avatar_replaced", domain.Image{URL: current.Avatar, DeleteHandle: current.AvatarHandle})
	}
	publishEvent(ctx, uc.events, uc.logger, SubjectProfileUpdated, map[string]interface{}{
		"user_id":    actorID,
		"avatar_url": profile.Avatar,
	})
	log.Info("Avatar updated")
	return profile, nil
}

func (uc *ProfileUsecase) findProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is empty", domain.ErrNotFound)
	}
	profile, err := uc.users.FindProfile(ctx, userID)
	if err != nil {
		return nil, asKind(err, domain.ErrStorage, "find profile %s", userID)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	return profile, nil
}

// removeAvatar deletes an avatar object on a context detached from the request.
func (uc *ProfileUsecase) removeAvatar(ctx context.Context, userID, reason string, img domain.Image) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cleanupTimeout)
	defer cancel()
	if err := uc.avatars.Delete(cleanupCtx, img.DeleteHandle); err != nil {
		uc.logger.Error("Avatar could not be removed from object store",
			zap.String("user_id", userID),
			zap.String("delete_handle", img.DeleteHandle),
			zap.String("reason", reason),
			zap.Error(err))
		uc.metrics.ImageDeleteFailed(reason)
		publishEvent(cleanupCtx, uc.events, uc.logger, SubjectImageOrphaned, map[string]interface{}{
			"user_id":       userID,
			"delete_handle": img.DeleteHandle,
			"url":           img.URL,
			"reason":        reason,
			"error":         err.Error(),
		})
	}
}
