package domain

import "time"

type ListingStatus string

const (
	StatusAvailable ListingStatus = "Available"
	StatusPending   ListingStatus = "Pending"
	StatusSold      ListingStatus = "Sold"
)

// IsValid reports whether s is one of the known statuses.
func (s ListingStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusPending, StatusSold:
		return true
	}
	return false
}

type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryFurniture   Category = "Furniture & Home"
	CategoryWearables   Category = "Wearables"
	CategoryBooks       Category = "Books"
	CategorySports      Category = "Sports"
	CategoryHobbies     Category = "Hobbies"
	CategorySpareParts  Category = "Spare Parts"
	CategoryToys        Category = "Toys"
	CategoryVehicles    Category = "Vehicles"
	CategoryOther       Category = "Other"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryElectronics,
	CategoryFurniture,
	CategoryWearables,
	CategoryBooks,
	CategorySports,
	CategoryHobbies,
	CategorySpareParts,
	CategoryToys,
	CategoryVehicles,
	CategoryOther,
}

func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Condition string

const (
	ConditionNeverUsed Condition = "Never Used"
	ConditionUsedOnce  Condition = "Used Once"
	ConditionUsed      Condition = "Used"
)

func (c Condition) IsValid() bool {
	switch c {
	case ConditionNeverUsed, ConditionUsedOnce, ConditionUsed:
		return true
	}
	return false
}

// Image is a remote object attached to a listing. DeleteHandle is what the
// object store needs to remove it again.
type Image struct {
	URL          string
	DeleteHandle string
}

// Listing is an item for sale. Comments are owned by the listing and only
// ever persisted as part of it.
type Listing struct {
	ID          string
	SellerID    string
	Title       string
	Description string
	Category    Category
	Price       float64
	Condition   Condition
	Contact     string
	Status      ListingStatus
	Images      []Image
	Comments    []Comment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment is a remark on a listing by an authenticated user.
type Comment struct {
	ID        string
	AuthorID  string
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FindComment returns the index of the comment with the given id, or -1.
func (l *Listing) FindComment(commentID string) int {
	for i := range l.Comments {
		if l.Comments[i].ID == commentID {
			return i
		}
	}
	return -1
}

// RemoveComment drops the comment at index i keeping the others in order.
func (l *Listing) RemoveComment(i int) {
	comments := make([]Comment, 0, len(l.Comments)-1)
	comments = append(comments, l.Comments[:i]...)
	comments = append(comments, l.Comments[i+1:]...)
	l.Comments = comments
}

// PublicProfile is the part of a user account that may be shown to anyone.
type PublicProfile struct {
	ID        string
	Username  string
	Avatar    string
	Bio       string
	Location  string
	CreatedAt time.Time
}

// ListingView is a listing with its seller and comment authors resolved.
type ListingView struct {
	Listing  *Listing
	Seller   PublicProfile
	Comments []CommentView
}

type CommentView struct {
	Comment Comment
	Author  PublicProfile
}

// ListFilter narrows List results. Zero values mean "any".
type ListFilter struct {
	SellerID string
	Category Category
	Status   ListingStatus
	Page     int
	Limit    int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps paging to sane bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	} else if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f
}
