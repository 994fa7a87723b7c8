package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const notifyTimeout = 15 * time.Second

// CommentUsecase manages the comments embedded in a listing. Every change is
// written back through SaveComments, which leaves the rest of the listing alone.
type CommentUsecase struct {
	repo     domain.ListingRepository
	dir      domain.ProfileDirectory
	profiles profileResolver
	cache    ListingCache
	events   EventPublisher
	notifier Notifier
	metrics  *metrics.MetricsManager
	logger   *logger.Logger

	now   func() time.Time
	newID func() string
	wg    sync.WaitGroup
}

// NewCommentUsecase wires the comment service. cache, events, notifier and m may be nil.
func NewCommentUsecase(
	repo domain.ListingRepository,
	profiles domain.ProfileDirectory,
	cache ListingCache,
	events EventPublisher,
	notifier Notifier,
	m *metrics.MetricsManager,
	log *logger.Logger,
) *CommentUsecase {
	named := log.Named("CommentUsecase")
	return &CommentUsecase{
		repo:     repo,
		dir:      profiles,
		profiles: profileResolver{dir: profiles, logger: named},
		cache:    cache,
		events:   events,
		notifier: notifier,
		metrics:  m,
		logger:   named,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// AddComment appends a comment by authorID. When the author is not the seller,
// the seller is e-mailed in the background.
func (uc *CommentUsecase) AddComment(ctx context.Context, authorID, listingID, text string) (*domain.CommentView, error) {
	ctx, span := tracer.Start(ctx, "CommentUsecase.AddComment", trace.WithAttributes(attribute.String("listing_id", listingID)))
	defer span.End()

	if authorID == "" {
		return nil, spanError(span, fmt.Errorf("%w: author is required", domain.ErrValidation))
	}
	text, err := domain.NormalizeCommentText(text)
	if err != nil {
		return nil, spanError(span, err)
	}
	listing, err := findListing(ctx, uc.repo, listingID)
	if err != nil {
		return nil, spanError(span, err)
	}

	now := uc.now()
	comment := domain.Comment{
		ID:        uc.newID(),
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	comments := append(append(make([]domain.Comment, 0, len(listing.Comments)+1), listing.Comments...), comment)
	if err := uc.save(ctx, listingID, comments); err != nil {
		return nil, spanError(span, err)
	}

	uc.metrics.CommentCreated()
	uc.publish(ctx, SubjectCommentCreated, map[string]interface{}{
		"listing_id": listingID,
		"comment_id": comment.ID,
		"author_id":  authorID,
		"seller_id":  listing.SellerID,
	})
	uc.evict(context.WithoutCancel(ctx), listingID)
	uc.logger.Info("Comment added", zap.String("listing_id", listingID), zap.String("comment_id", comment.ID), zap.String("author_id", authorID))

	view := uc.commentView(ctx, comment)
	if !domain.IsOwner(authorID, listing.SellerID) {
		uc.notifySeller(ctx, listing, view)
	}
	return &view, nil
}

// EditComment replaces the text of a comment. Only its author may do this,
// and a stranger is refused before the new text is looked at.
func (uc *CommentUsecase) EditComment(ctx context.Context, actorID, listingID, commentID, text string) (*domain.CommentView, error) {
	ctx, span := tracer.Start(ctx, "CommentUsecase.EditComment",
		trace.WithAttributes(attribute.String("listing_id", listingID), attribute.String("comment_id", commentID)))
	defer span.End()

	listing, i, err := uc.authoredComment(ctx, actorID, listingID, commentID)
	if err != nil {
		return nil, spanError(span, err)
	}
	text, err = domain.NormalizeCommentText(text)
	if err != nil {
		return nil, spanError(span, err)
	}

	comments := append([]domain.Comment(nil), listing.Comments...)
	comments[i].Text = text
	comments[i].UpdatedAt = uc.now()
	if err := uc.save(ctx, listingID, comments); err != nil {
		return nil, spanError(span, err)
	}

	uc.publish(ctx, SubjectCommentUpdated, map[string]interface{}{
		"listing_id": listingID,
		"comment_id": commentID,
		"author_id":  actorID,
	})
	uc.evict(context.WithoutCancel(ctx), listingID)
	uc.logger.Info("Comment edited", zap.String("listing_id", listingID), zap.String("comment_id", commentID))

	view := uc.commentView(ctx, comments[i])
	return &view, nil
}

// DeleteComment removes a comment. Only its author may do this.
func (uc *CommentUsecase) DeleteComment(ctx context.Context, actorID, listingID, commentID string) error {
	ctx, span := tracer.Start(ctx, "CommentUsecase.DeleteComment",
		trace.WithAttributes(attribute.String("listing_id", listingID), attribute.String("comment_id", commentID)))
	defer span.End()

	listing, i, err := uc.authoredComment(ctx, actorID, listingID, commentID)
	if err != nil {
		return spanError(span, err)
	}
	listing.RemoveComment(i)
	if err := uc.save(ctx, listingID, listing.Comments); err != nil {
		return spanError(span, err)
	}

	uc.publish(ctx, SubjectCommentDeleted, map[string]interface{}{
		"listing_id": listingID,
		"comment_id": commentID,
		"author_id":  actorID,
	})
	uc.evict(context.WithoutCancel(ctx), listingID)
	uc.logger.Info("Comment deleted", zap.String("listing_id", listingID), zap.String("comment_id", commentID))
	return nil
}

// ListComments returns the listing's comments in insertion order with authors resolved.
func (uc *CommentUsecase) ListComments(ctx context.Context, listingID string) ([]domain.CommentView, error) {
	ctx, span := tracer.Start(ctx, "CommentUsecase.ListComments", trace.WithAttributes(attribute.String("listing_id", listingID)))
	defer span.End()

	listing, err := findListing(ctx, uc.repo, listingID)
	if err != nil {
		return nil, spanError(span, err)
	}
	ids := make([]string, 0, len(listing.Comments))
	for _, c := range listing.Comments {
		ids = append(ids, c.AuthorID)
	}
	return buildCommentViews(listing.Comments, uc.profiles.resolve(ctx, ids)), nil
}

// Wait blocks until background notifications have finished.
func (uc *CommentUsecase) Wait() {
	uc.wg.Wait()
}

func (uc *CommentUsecase) authoredComment(ctx context.Context, actorID, listingID, commentID string) (*domain.Listing, int, error) {
	listing, err := findListing(ctx, uc.repo, listingID)
	if err != nil {
		return nil, -1, err
	}
	i := listing.FindComment(commentID)
	if i < 0 {
		return nil, -1, fmt.Errorf("%w: comment %s on listing %s", domain.ErrNotFound, commentID, listingID)
	}
	if !domain.IsOwner(actorID, listing.Comments[i].AuthorID) {
		uc.logger.Info("Comment change refused",
			zap.String("listing_id", listingID), zap.String("comment_id", commentID), zap.String("actor_id", actorID))
		return nil, -1, fmt.Errorf("%w: only the author may change comment %s", domain.ErrForbidden, commentID)
	}
	return listing, i, nil
}

func (uc *CommentUsecase) save(ctx context.Context, listingID string, comments []domain.Comment) error {
	if err := uc.repo.SaveComments(ctx, listingID, comments); err != nil {
		uc.logger.Error("Saving comments failed", zap.String("listing_id", listingID), zap.Error(err))
		return asKind(err, domain.ErrStorage, "save comments of listing %s", listingID)
	}
	uc.evict(ctx, listingID)
	return nil
}

// evict drops the cached listing. Mutations call it after the write and again
// once they are done, so a read racing the write cannot leave a stale copy.
func (uc *CommentUsecase) evict(ctx context.Context, listingID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeleteListing(ctx, listingID); err != nil {
		uc.logger.Warn("Listing cache invalidation failed", zap.String("listing_id", listingID), zap.Error(err))
	}
}

func (uc *CommentUsecase) commentView(ctx context.Context, c domain.Comment) domain.CommentView {
	profiles := uc.profiles.resolve(ctx, []string{c.AuthorID})
	return domain.CommentView{Comment: c, Author: profileOrID(profiles, c.AuthorID)}
}

func (uc *CommentUsecase) notifySeller(ctx context.Context, listing *domain.Listing, view domain.CommentView) {
	if uc.notifier == nil || uc.dir == nil {
		return
	}
	commenter := view.Author.Username
	if commenter == "" {
		commenter = "Someone"
	}
	sellerID, title, text := listing.SellerID, listing.Title, view.Comment.Text
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)

	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		defer cancel()
		email, err := uc.dir.GetEmailByID(bg, sellerID)
		if err != nil || email == "" {
			uc.logger.Warn("No e-mail for seller, skipping comment notification", zap.String("seller_id", sellerID), zap.Error(err))
			return
		}
		if err := uc.notifier.SendNewCommentEmail(email, title, commenter, text); err != nil {
			uc.logger.Error("Failed to send comment notification", zap.String("seller_id", sellerID), zap.Error(err))
			return
		}
		uc.logger.Debug("Comment notification sent", zap.String("seller_id", sellerID))
	}()
}

func (uc *CommentUsecase) publish(ctx context.Context, subject string, payload interface{}) {
	publishEvent(ctx, uc.events, uc.logger, subject, payload)
}
