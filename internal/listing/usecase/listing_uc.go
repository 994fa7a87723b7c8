package usecase

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultCleanupTimeout = 30 * time.Second
	maxParallelDeletes    = 5
)

var tracer = otel.Tracer("marketplace-service/listing/usecase")

type ListingUsecase struct {
	repo           domain.ListingRepository
	profiles       profileResolver
	store          ObjectStore
	cache          ListingCache
	events         EventPublisher
	metrics        *metrics.MetricsManager
	logger         *logger.Logger
	cleanupTimeout time.Duration
}

// NewListingUsecase wires the listing service. cache, events and m may be nil.
func NewListingUsecase(
	repo domain.ListingRepository,
	profiles domain.ProfileDirectory,
	store ObjectStore,
	cache ListingCache,
	events EventPublisher,
	m *metrics.MetricsManager,
	log *logger.Logger,
	cleanupTimeout time.Duration,
) *ListingUsecase {
	if cleanupTimeout <= 0 {
		cleanupTimeout = defaultCleanupTimeout
	}
	named := log.Named("ListingUsecase")
	return &ListingUsecase{
		repo:           repo,
		profiles:       profileResolver{dir: profiles, logger: named},
		store:          store,
		cache:          cache,
		events:         events,
		metrics:        m,
		logger:         named,
		cleanupTimeout: cleanupTimeout,
	}
}

// CreateListing validates the submission, uploads its images in order and
// persists the listing. Images already uploaded are removed again when a later
// step fails, so a failed create leaves nothing behind.
func (uc *ListingUsecase) CreateListing(ctx context.Context, sellerID string, input CreateListingInput) (*domain.ListingView, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.CreateListing",
		trace.WithAttributes(attribute.String("seller_id", sellerID), attribute.Int("images", len(input.Images))))
	defer span.End()
	log := uc.logger.With(zap.String("seller_id", sellerID))

	if sellerID == "" {
		return nil, spanError(span, fmt.Errorf("%w: seller is required", domain.ErrValidation))
	}
	fields := input.Fields.Normalize()
	if err := fields.Validate(); err != nil {
		log.Info("Rejected listing submission", zap.Error(err))
		return nil, spanError(span, err)
	}
	if err := domain.ValidateImageCount(len(input.Images)); err != nil {
		return nil, spanError(span, err)
	}
	images, err := prepareImages(input.Images)
	if err != nil {
		log.Info("Rejected listing images", zap.Error(err))
		return nil, spanError(span, err)
	}

	uploaded := make([]domain.Image, 0, len(images))
	for i, img := range images {
		stored, err := uc.store.Upload(ctx, img.FileName, img.ContentType, img.Data)
		if err != nil {
			log.Error("Image upload failed, rolling back", zap.Int("image", i+1), zap.Int("already_uploaded", len(uploaded)), zap.Error(err))
			uc.compensate(ctx, "upload", uploaded)
			return nil, spanError(span, asKind(err, domain.ErrUpload, "image %d of %d", i+1, len(images)))
		}
		uploaded = append(uploaded, stored)
	}

	listing := &domain.Listing{
		SellerID:    sellerID,
		Title:       fields.Title,
		Description: fields.Description,
		Category:    fields.Category,
		Price:       fields.Price,
		Condition:   fields.Condition,
		Contact:     fields.Contact,
		Status:      domain.StatusAvailable,
		Images:      uploaded,
		Comments:    []domain.Comment{},
	}
	if err := uc.repo.Create(ctx, listing); err != nil {
		log.Error("Persisting listing failed, rolling back images", zap.Int("images", len(uploaded)), zap.Error(err))
		uc.compensate(ctx, "persist", uploaded)
		return nil, spanError(span, asKind(err, domain.ErrStorage, "create listing"))
	}

	uc.metrics.ListingCreated()
	uc.publish(ctx, SubjectListingCreated, map[string]interface{}{
		"listing_id": listing.ID,
		"seller_id":  listing.SellerID,
		"title":      listing.Title,
		"category":   listing.Category,
		"price":      listing.Price,
		"created_at": listing.CreatedAt,
	})
	log.Info("Listing created", zap.String("listing_id", listing.ID), zap.Int("images", len(listing.Images)))
	span.SetAttributes(attribute.String("listing_id", listing.ID))

	return buildView(listing, uc.profiles.resolve(ctx, profileIDs(listing))), nil
}

// GetListing returns the listing with seller and comment authors resolved.
func (uc *ListingUsecase) GetListing(ctx context.Context, id string) (*domain.ListingView, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.GetListing", trace.WithAttributes(attribute.String("listing_id", id)))
	defer span.End()

	listing, err := uc.cachedListing(ctx, id)
	if err != nil {
		return nil, spanError(span, err)
	}
	return buildView(listing, uc.profiles.resolve(ctx, profileIDs(listing))), nil
}

// ListListings returns a page of listings. All sellers and comment authors on
// the page are resolved with a single directory lookup.
func (uc *ListingUsecase) ListListings(ctx context.Context, filter domain.ListFilter) (*ListResult, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.ListListings")
	defer span.End()

	filter = filter.Normalize()
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, spanError(span, fmt.Errorf("%w: category %q is not supported", domain.ErrValidation, filter.Category))
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, spanError(span, fmt.Errorf("%w: status %q is not one of Available, Pending, Sold", domain.ErrValidation, filter.Status))
	}

	listings, total, err := uc.repo.List(ctx, filter)
	if err != nil {
		uc.logger.Error("Listing query failed", zap.Any("filter", filter), zap.Error(err))
		return nil, spanError(span, asKind(err, domain.ErrStorage, "list listings"))
	}

	profiles := uc.profiles.resolve(ctx, profileIDs(listings...))
	views := make([]*domain.ListingView, 0, len(listings))
	for _, l := range listings {
		views = append(views, buildView(l, profiles))
	}
	return &ListResult{Listings: views, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// UpdateListing applies the seller's changes. An empty patch returns the
// listing as stored.
func (uc *ListingUsecase) UpdateListing(ctx context.Context, actorID, id string, patch domain.ListingPatch) (*domain.ListingView, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.UpdateListing", trace.WithAttributes(attribute.String("listing_id", id)))
	defer span.End()

	view, err := uc.update(ctx, actorID, id, patch, SubjectListingUpdated)
	if err != nil {
		return nil, spanError(span, err)
	}
	return view, nil
}

// UpdateListingStatus moves the listing between Available, Pending and Sold.
// Ownership is checked before the status value.
func (uc *ListingUsecase) UpdateListingStatus(ctx context.Context, actorID, id string, status domain.ListingStatus) (*domain.ListingView, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.UpdateListingStatus",
		trace.WithAttributes(attribute.String("listing_id", id), attribute.String("status", string(status))))
	defer span.End()

	view, err := uc.update(ctx, actorID, id, domain.ListingPatch{Status: &status}, SubjectListingStatusUpdated)
	if err != nil {
		return nil, spanError(span, err)
	}
	return view, nil
}

func (uc *ListingUsecase) update(ctx context.Context, actorID, id string, patch domain.ListingPatch, subject string) (*domain.ListingView, error) {
	log := uc.logger.With(zap.String("listing_id", id), zap.String("actor_id", actorID))

	listing, err := uc.ownedListing(ctx, actorID, id)
	if err != nil {
		log.Info("Update refused", zap.Error(err))
		return nil, err
	}
	if patch.IsEmpty() {
		log.Debug("No changes submitted")
		return buildView(listing, uc.profiles.resolve(ctx, profileIDs(listing))), nil
	}
	previousStatus := listing.Status
	if err := patch.ApplyTo(listing); err != nil {
		return nil, err
	}
	if err := uc.repo.Update(ctx, listing); err != nil {
		log.Error("Persisting listing update failed", zap.Error(err))
		return nil, asKind(err, domain.ErrStorage, "update listing %s", id)
	}
	uc.invalidate(ctx, id)

	payload := map[string]interface{}{
		"listing_id": listing.ID,
		"seller_id":  listing.SellerID,
		"status":     listing.Status,
		"updated_at": listing.UpdatedAt,
	}
	if subject == SubjectListingStatusUpdated {
		payload["previous_status"] = previousStatus
	}
	uc.publish(ctx, subject, payload)
	uc.settle(ctx, id)
	log.Info("Listing updated", zap.String("status", string(listing.Status)))

	return buildView(listing, uc.profiles.resolve(ctx, profileIDs(listing))), nil
}

// DeleteListing removes the listing and then every image it referenced.
// Once the record is gone the operation succeeds even if some images could
// not be removed; those are logged, counted and announced as orphaned.
func (uc *ListingUsecase) DeleteListing(ctx context.Context, actorID, id string) error {
	ctx, span := tracer.Start(ctx, "ListingUsecase.DeleteListing", trace.WithAttributes(attribute.String("listing_id", id)))
	defer span.End()
	log := uc.logger.With(zap.String("listing_id", id), zap.String("actor_id", actorID))

	listing, err := uc.ownedListing(ctx, actorID, id)
	if err != nil {
		log.Info("Delete refused", zap.Error(err))
		return spanError(span, err)
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		log.Error("Deleting listing record failed, images left untouched", zap.Error(err))
		return spanError(span, asKind(err, domain.ErrStorage, "delete listing %s", id))
	}
	uc.invalidate(ctx, id)

	orphaned := uc.removeImages(ctx, id, "listing_deleted", listing.Images)
	uc.metrics.ListingDeleted()
	uc.publish(ctx, SubjectListingDeleted, map[string]interface{}{
		"listing_id":      id,
		"seller_id":       listing.SellerID,
		"images_orphaned": orphaned,
	})
	uc.settle(ctx, id)
	log.Info("Listing deleted", zap.Int("images", len(listing.Images)), zap.Int("images_orphaned", orphaned))
	return nil
}

// cachedListing reads through the cache. Cache trouble only costs a lookup.
func (uc *ListingUsecase) cachedListing(ctx context.Context, id string) (*domain.Listing, error) {
	if uc.cache != nil {
		cached, err := uc.cache.GetListing(ctx, id)
		if err != nil {
			uc.logger.Warn("Listing cache read failed", zap.String("listing_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}
	listing, err := findListing(ctx, uc.repo, id)
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		if err := uc.cache.SetListing(ctx, listing); err != nil {
			uc.logger.Warn("Listing cache write failed", zap.String("listing_id", id), zap.Error(err))
		}
	}
	return listing, nil
}

func (uc *ListingUsecase) ownedListing(ctx context.Context, actorID, id string) (*domain.Listing, error) {
	listing, err := findListing(ctx, uc.repo, id)
	if err != nil {
		return nil, err
	}
	if !domain.IsOwner(actorID, listing.SellerID) {
		return nil, fmt.Errorf("%w: only the seller may change listing %s", domain.ErrForbidden, id)
	}
	return listing, nil
}

func (uc *ListingUsecase) invalidate(ctx context.Context, id string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeleteListing(ctx, id); err != nil {
		uc.logger.Warn("Listing cache invalidation failed", zap.String("listing_id", id), zap.Error(err))
	}
}

// settle evicts the entry a second time once the mutation is complete. A read
// that missed the cache before the write may have stored the old listing after
// the first eviction.
func (uc *ListingUsecase) settle(ctx context.Context, id string) {
	uc.invalidate(context.WithoutCancel(ctx), id)
}

// compensate removes images uploaded by a create that did not complete.
func (uc *ListingUsecase) compensate(ctx context.Context, step string, images []domain.Image) {
	if len(images) == 0 {
		return
	}
	uc.metrics.Compensation(step)
	orphaned := uc.removeImages(ctx, "", "create_"+step+"_failed", images)
	uc.logger.Info("Create rolled back", zap.String("failed_step", step), zap.Int("images", len(images)), zap.Int("images_orphaned", orphaned))
}

// removeImages deletes images concurrently on a context detached from the
// caller, so a disconnecting client cannot abort the cleanup. It returns the
// number of images that could not be removed.
func (uc *ListingUsecase) removeImages(ctx context.Context, listingID, reason string, images []domain.Image) int {
	if len(images) == 0 {
		return 0
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cleanupTimeout)
	defer cancel()

	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(maxParallelDeletes)
	for _, img := range images {
		img := img
		g.Go(func() error {
			if err := uc.store.Delete(cleanupCtx, img.DeleteHandle); err != nil {
				failed.Add(1)
				uc.reportOrphan(cleanupCtx, listingID, reason, img, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(failed.Load())
}

func (uc *ListingUsecase) reportOrphan(ctx context.Context, listingID, reason string, img domain.Image, cause error) {
	uc.logger.Error("Image could not be removed from object store",
		zap.String("listing_id", listingID),
		zap.String("delete_handle", img.DeleteHandle),
		zap.String("url", img.URL),
		zap.String("reason", reason),
		zap.Error(cause))
	uc.metrics.ImageDeleteFailed(reason)
	uc.publish(ctx, SubjectImageOrphaned, map[string]interface{}{
		"listing_id":    listingID,
		"delete_handle": img.DeleteHandle,
		"url":           img.URL,
		"reason":        reason,
		"error":         cause.Error(),
	})
}

func (uc *ListingUsecase) publish(ctx context.Context, subject string, payload interface{}) {
	publishEvent(ctx, uc.events, uc.logger, subject, payload)
}

func publishEvent(ctx context.Context, events EventPublisher, log *logger.Logger, subject string, payload interface{}) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, subject, payload); err != nil {
		log.Warn("Failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}

func findListing(ctx context.Context, repo domain.ListingRepository, id string) (*domain.Listing, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: listing id is empty", domain.ErrNotFound)
	}
	listing, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, asKind(err, domain.ErrStorage, "find listing %s", id)
	}
	if listing == nil {
		return nil, fmt.Errorf("%w: listing %s", domain.ErrNotFound, id)
	}
	return listing, nil
}

// prepareImages checks every image before anything is uploaded. The content
// type is sniffed from the bytes; the client's claim is not trusted.
func prepareImages(images []ImageUpload) ([]ImageUpload, error) {
	prepared := make([]ImageUpload, 0, len(images))
	for i, img := range images {
		if len(img.Data) == 0 {
			return nil, fmt.Errorf("%w: image %d is empty", domain.ErrValidation, i+1)
		}
		contentType := http.DetectContentType(img.Data)
		if _, ok := domain.AllowedImageTypes[contentType]; !ok {
			return nil, fmt.Errorf("%w: image %d has unsupported type %s", domain.ErrValidation, i+1, contentType)
		}
		img.ContentType = contentType
		prepared = append(prepared, img)
	}
	return prepared, nil
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
