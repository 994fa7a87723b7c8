package domain

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
	MaxCommentLength     = 1000
	MinImages            = 1
	MaxImages            = 5
)

// AllowedImageTypes are the content types accepted for listing photos.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ListingFields are the seller-editable attributes of a listing.
type ListingFields struct {
	Title       string
	Description string
	Category    Category
	Price       float64
	Condition   Condition
	Contact     string
}

// Normalize trims the free-text fields.
func (f ListingFields) Normalize() ListingFields {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Contact = strings.TrimSpace(f.Contact)
	return f
}

// Validate checks every field and reports all problems at once.
// Contact is required for new listings.
func (f ListingFields) Validate() error {
	var problems []string
	problems = appendIf(problems, checkTitle(f.Title))
	problems = appendIf(problems, checkDescription(f.Description))
	problems = appendIf(problems, checkCategory(f.Category))
	problems = appendIf(problems, checkPrice(f.Price))
	problems = appendIf(problems, checkCondition(f.Condition))
	if f.Contact == "" {
		problems = append(problems, "contact is required")
	}
	return validationError(problems)
}

// ListingPatch carries the fields an Update may change. Nil means unchanged.
type ListingPatch struct {
	Title       *string
	Description *string
	Category    *Category
	Price       *float64
	Condition   *Condition
	Contact     *string
	Status      *ListingStatus
}

// IsEmpty reports whether the patch changes nothing.
func (p ListingPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Price == nil &&
		p.Condition == nil && p.Contact == nil && p.Status == nil
}

// ApplyTo validates the patch and writes it onto l. On error l is untouched.
func (p ListingPatch) ApplyTo(l *Listing) error {
	var problems []string
	var title, description, contact string
	if p.Title != nil {
		title = strings.TrimSpace(*p.Title)
		problems = appendIf(problems, checkTitle(title))
	}
	if p.Description != nil {
		description = strings.TrimSpace(*p.Description)
		problems = appendIf(problems, checkDescription(description))
	}
	if p.Category != nil {
		problems = appendIf(problems, checkCategory(*p.Category))
	}
	if p.Price != nil {
		problems = appendIf(problems, checkPrice(*p.Price))
	}
	if p.Condition != nil {
		problems = appendIf(problems, checkCondition(*p.Condition))
	}
	if p.Contact != nil {
		contact = strings.TrimSpace(*p.Contact)
	}
	if p.Status != nil && !p.Status.IsValid() {
		problems = append(problems, fmt.Sprintf("status %q is not one of Available, Pending, Sold", *p.Status))
	}
	if err := validationError(problems); err != nil {
		return err
	}

	if p.Title != nil {
		l.Title = title
	}
	if p.Description != nil {
		l.Description = description
	}
	if p.Category != nil {
		l.Category = *p.Category
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Condition != nil {
		l.Condition = *p.Condition
	}
	if p.Contact != nil {
		l.Contact = contact
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	return nil
}

// ValidateImageCount checks the 1..5 bound on attached images.
func ValidateImageCount(n int) error {
	if n < MinImages || n > MaxImages {
		return fmt.Errorf("%w: a listing needs between %d and %d images, got %d", ErrValidation, MinImages, MaxImages, n)
	}
	return nil
}

// NormalizeCommentText trims text and checks it is non-empty and bounded.
func NormalizeCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: comment text is required", ErrValidation)
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return "", fmt.Errorf("%w: comment text exceeds %d characters", ErrValidation, MaxCommentLength)
	}
	return text, nil
}

func checkTitle(title string) string {
	switch {
	case title == "":
		return "title is required"
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return fmt.Sprintf("title exceeds %d characters", MaxTitleLength)
	}
	return ""
}

func checkDescription(description string) string {
	switch {
	case description == "":
		return "description is required"
	case utf8.RuneCountInString(description) > MaxDescriptionLength:
		return fmt.Sprintf("description exceeds %d characters", MaxDescriptionLength)
	}
	return ""
}

func checkCategory(c Category) string {
	if !c.IsValid() {
		return fmt.Sprintf("category %q is not supported", c)
	}
	return ""
}

func checkPrice(price float64) string {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return "price must be a non-negative number"
	}
	return ""
}

func checkCondition(c Condition) string {
	if !c.IsValid() {
		return fmt.Sprintf("condition %q is not one of Never Used, Used Once, Used", c)
	}
	return ""
}

func appendIf(problems []string, problem string) []string {
	if problem != "" {
		return append(problems, problem)
	}
	return problems
}

func validationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
}
