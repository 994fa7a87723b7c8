package handler

import (
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/usecase"
)

type profileResponse struct {
	ID        string     `json:"id"`
	Username  string     `json:"username,omitempty"`
	Avatar    string     `json:"avatar,omitempty"`
	Bio       string     `json:"bio,omitempty"`
	Location  string     `json:"location,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type imageResponse struct {
	URL string `json:"url"`
}

type commentResponse struct {
	ID        string          `json:"id"`
	Author    profileResponse `json:"author"`
	Text      string          `json:"text"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type listingResponse struct {
	ID          string            `json:"id"`
	Seller      profileResponse   `json:"seller"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Price       float64           `json:"price"`
	Condition   string            `json:"condition"`
	Contact     string            `json:"contact"`
	Status      string            `json:"status"`
	Images      []imageResponse   `json:"images"`
	Comments    []commentResponse `json:"comments"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type listingPageResponse struct {
	Listings []listingResponse `json:"listings"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

type commentsResponse struct {
	Comments []commentResponse `json:"comments"`
}

// updateListingRequest mirrors domain.ListingPatch; absent fields stay unchanged.
type updateListingRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Condition   *string  `json:"condition"`
	Contact     *string  `json:"contact"`
	Status      *string  `json:"status"`
}

func (r updateListingRequest) toPatch() domain.ListingPatch {
	p := domain.ListingPatch{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Contact:     r.Contact,
	}
	if r.Category != nil {
		c := domain.Category(*r.Category)
		p.Category = &c
	}
	if r.Condition != nil {
		c := domain.Condition(*r.Condition)
		p.Condition = &c
	}
	if r.Status != nil {
		s := domain.ListingStatus(*r.Status)
		p.Status = &s
	}
	return p
}

type statusRequest struct {
	Status string `json:"status"`
}

type commentRequest struct {
	Text string `json:"text"`
}

func toProfileResponse(p domain.PublicProfile) profileResponse {
	resp := profileResponse{
		ID:       p.ID,
		Username: p.Username,
		Avatar:   p.Avatar,
		Bio:      p.Bio,
		Location: p.Location,
	}
	if !p.CreatedAt.IsZero() {
		created := p.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}

func toCommentResponse(v domain.CommentView) commentResponse {
	return commentResponse{
		ID:        v.Comment.ID,
		Author:    toProfileResponse(v.Author),
		Text:      v.Comment.Text,
		CreatedAt: v.Comment.CreatedAt,
		UpdatedAt: v.Comment.UpdatedAt,
	}
}

func toCommentResponses(views []domain.CommentView) []commentResponse {
	out := make([]commentResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toCommentResponse(v))
	}
	return out
}

func toListingResponse(v *domain.ListingView) listingResponse {
	l := v.Listing
	images := make([]imageResponse, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, imageResponse{URL: img.URL})
	}
	return listingResponse{
		ID:          l.ID,
		Seller:      toProfileResponse(v.Seller),
		Title:       l.Title,
		Description: l.Description,
		Category:    string(l.Category),
		Price:       l.Price,
		Condition:   string(l.Condition),
		Contact:     l.Contact,
		Status:      string(l.Status),
		Images:      images,
		Comments:    toCommentResponses(v.Comments),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func toListingPageResponse(res *usecase.ListResult) listingPageResponse {
	listings := make([]listingResponse, 0, len(res.Listings))
	for _, v := range res.Listings {
		listings = append(listings, toListingResponse(v))
	}
	return listingPageResponse{Listings: listings, Total: res.Total, Page: res.Page, Limit: res.Limit}
}

// ownProfileResponse is what users see of their own account.
type ownProfileResponse struct {
	profileResponse
	Email       string `json:"email"`
	ContactInfo string `json:"contact_info"`
}

type profilePageResponse struct {
	User  interface{}         `json:"user"`
	Items listingPageResponse `json:"items"`
}

// updateProfileRequest mirrors domain.ProfilePatch; absent fields stay unchanged.
type updateProfileRequest struct {
	Bio         *string `json:"bio"`
	Location    *string `json:"location"`
	ContactInfo *string `json:"contact_info"`
}

func (r updateProfileRequest) toPatch() domain.ProfilePatch {
	return domain.ProfilePatch{Bio: r.Bio, Location: r.Location, ContactInfo: r.ContactInfo}
}

func toOwnProfileResponse(p *domain.Profile) ownProfileResponse {
	return ownProfileResponse{
		profileResponse: toProfileResponse(p.PublicProfile),
		Email:           p.Email,
		ContactInfo:     p.ContactInfo,
	}
}
