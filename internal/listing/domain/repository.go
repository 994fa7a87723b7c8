package domain

import "context"

// ListingRepository persists listings together with their embedded comments.
// Absent listings are reported as ErrNotFound, other failures wrap ErrStorage.
type ListingRepository interface {
	// Create assigns ID and timestamps on the passed listing.
	Create(ctx context.Context, listing *Listing) error
	FindByID(ctx context.Context, id string) (*Listing, error)
	// Update rewrites the seller-editable fields and status. Images, seller
	// and comments are left as stored.
	Update(ctx context.Context, listing *Listing) error
	// SaveComments replaces only the comment sequence of the listing.
	SaveComments(ctx context.Context, listingID string, comments []Comment) error
	Delete(ctx context.Context, id string) error
	// List returns a page of listings, newest first, and the total match count.
	List(ctx context.Context, filter ListFilter) ([]*Listing, int64, error)
}

// ProfileDirectory resolves user ids owned by the identity provider.
type ProfileDirectory interface {
	// FindProfiles returns the profiles it could find keyed by id.
	FindProfiles(ctx context.Context, ids []string) (map[string]PublicProfile, error)
	GetEmailByID(ctx context.Context, id string) (string, error)
}
