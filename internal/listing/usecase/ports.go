package usecase

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
)

// ObjectStore holds listing images.
type ObjectStore interface {
	// Upload stores one image and returns its public URL and delete handle.
	Upload(ctx context.Context, fileName, contentType string, data []byte) (domain.Image, error)
	Delete(ctx context.Context, handle string) error
}

// ListingCache is a read-through cache for single listings.
// GetListing returns nil, nil on a miss.
type ListingCache interface {
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
	SetListing(ctx context.Context, listing *domain.Listing) error
	DeleteListing(ctx context.Context, id string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// Notifier tells sellers about activity on their listings.
type Notifier interface {
	SendNewCommentEmail(toEmail, listingTitle, commenterName, commentText string) error
}

// ImageUpload is one photo received from a client, not yet stored.
type ImageUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// CreateListingInput carries everything a seller submits for a new listing.
type CreateListingInput struct {
	Fields domain.ListingFields
	Images []ImageUpload
}

// ListResult is one page of listing views.
type ListResult struct {
	Listings []*domain.ListingView
	Total    int64
	Page     int
	Limit    int
}

const (
	SubjectListingCreated       = "listing.created"
	SubjectListingUpdated       = "listing.updated"
	SubjectListingStatusUpdated = "listing.status.updated"
	SubjectListingDeleted       = "listing.deleted"
	SubjectCommentCreated       = "listing.comment.created"
	SubjectCommentUpdated       = "listing.comment.updated"
	SubjectCommentDeleted       = "listing.comment.deleted"
	SubjectImageOrphaned        = "listing.image.orphaned"
	SubjectProfileUpdated       = "user.profile.updated"
)
