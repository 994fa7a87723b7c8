package mongodb

import (
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// listingDocument is a listing as stored in MongoDB. Comments are embedded.
type listingDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	SellerID    string               `bson:"seller_id"`
	Title       string               `bson:"title"`
	Description string               `bson:"description"`
	Category    domain.Category      `bson:"category"`
	Price       float64              `bson:"price"`
	Condition   domain.Condition     `bson:"condition"`
	Contact     string               `bson:"contact"`
	Status      domain.ListingStatus `bson:"status"`
	Images      []imageDocument      `bson:"images"`
	Comments    []commentDocument    `bson:"comments"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

type imageDocument struct {
	URL          string `bson:"url"`
	DeleteHandle string `bson:"delete_handle"`
}

type commentDocument struct {
	ID        string    `bson:"id"`
	AuthorID  string    `bson:"author_id"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// userDocument holds the fields of the identity provider's users collection
// this service reads. Anything else in the collection is ignored.
type userDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Username  string             `bson:"username"`
	Email     string             `bson:"email"`
	Avatar    string             `bson:"avatar"`
	Bio       string             `bson:"bio"`
	Location  string             `bson:"location"`
	CreatedAt time.Time          `bson:"created_at"`

	ContactInfo string `bson:"contact_info"`
	// AvatarKey is set once the user uploads an avatar through this service.
	AvatarKey string `bson:"avatar_key,omitempty"`
}

// toListingDocument leaves the ObjectID unset for listings without an ID so
// the insert can assign one.
func toListingDocument(l *domain.Listing) (*listingDocument, error) {
	var docID primitive.ObjectID
	if l.ID != "" {
		oid, err := primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return nil, fmt.Errorf("toListingDocument: invalid ID format '%s': %w", l.ID, err)
		}
		docID = oid
	}

	images := make([]imageDocument, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, imageDocument{URL: img.URL, DeleteHandle: img.DeleteHandle})
	}

	return &listingDocument{
		ID:          docID,
		SellerID:    l.SellerID,
		Title:       l.Title,
		Description: l.Description,
		Category:    l.Category,
		Price:       l.Price,
		Condition:   l.Condition,
		Contact:     l.Contact,
		Status:      l.Status,
		Images:      images,
		Comments:    toCommentDocuments(l.Comments),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}, nil
}

func toCommentDocuments(comments []domain.Comment) []commentDocument {
	docs := make([]commentDocument, 0, len(comments))
	for _, c := range comments {
		docs = append(docs, commentDocument{
			ID:        c.ID,
			AuthorID:  c.AuthorID,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	return docs
}

func toDomainListing(d *listingDocument) *domain.Listing {
	if d == nil {
		return nil
	}
	images := make([]domain.Image, 0, len(d.Images))
	for _, img := range d.Images {
		images = append(images, domain.Image{URL: img.URL, DeleteHandle: img.DeleteHandle})
	}
	comments := make([]domain.Comment, 0, len(d.Comments))
	for _, c := range d.Comments {
		comments = append(comments, domain.Comment{
			ID:        c.ID,
			AuthorID:  c.AuthorID,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	return &domain.Listing{
		ID:          d.ID.Hex(),
		SellerID:    d.SellerID,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Price:       d.Price,
		Condition:   d.Condition,
		Contact:     d.Contact,
		Status:      d.Status,
		Images:      images,
		Comments:    comments,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func toDomainListings(docs []*listingDocument) []*domain.Listing {
	listings := make([]*domain.Listing, 0, len(docs))
	for _, doc := range docs {
		listings = append(listings, toDomainListing(doc))
	}
	return listings
}

func toPublicProfile(d *userDocument) domain.PublicProfile {
	return domain.PublicProfile{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		Avatar:    d.Avatar,
		Bio:       d.Bio,
		Location:  d.Location,
		CreatedAt: d.CreatedAt,
	}
}

func toProfile(d *userDocument) *domain.Profile {
	return &domain.Profile{
		PublicProfile: toPublicProfile(d),
		Email:         d.Email,
		ContactInfo:   d.ContactInfo,
		AvatarHandle:  d.AvatarKey,
	}
}
