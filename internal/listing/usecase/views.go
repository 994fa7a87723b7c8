package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"go.uber.org/zap"
)

// profileResolver turns user ids into public profiles. Users the directory
// does not know about come back as an id-only profile.
type profileResolver struct {
	dir    domain.ProfileDirectory
	logger *logger.Logger
}

func (r profileResolver) resolve(ctx context.Context, ids []string) map[string]domain.PublicProfile {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	profiles := map[string]domain.PublicProfile{}
	if len(unique) > 0 && r.dir != nil {
		found, err := r.dir.FindProfiles(ctx, unique)
		if err != nil {
			r.logger.Warn("Profile lookup failed, falling back to bare ids", zap.Int("count", len(unique)), zap.Error(err))
		} else if found != nil {
			profiles = found
		}
	}
	for _, id := range unique {
		if _, ok := profiles[id]; !ok {
			profiles[id] = domain.PublicProfile{ID: id}
		}
	}
	return profiles
}

func profileIDs(listings ...*domain.Listing) []string {
	var ids []string
	for _, l := range listings {
		ids = append(ids, l.SellerID)
		for _, c := range l.Comments {
			ids = append(ids, c.AuthorID)
		}
	}
	return ids
}

func buildView(l *domain.Listing, profiles map[string]domain.PublicProfile) *domain.ListingView {
	return &domain.ListingView{
		Listing:  l,
		Seller:   profileOrID(profiles, l.SellerID),
		Comments: buildCommentViews(l.Comments, profiles),
	}
}

func buildCommentViews(comments []domain.Comment, profiles map[string]domain.PublicProfile) []domain.CommentView {
	views := make([]domain.CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, domain.CommentView{Comment: c, Author: profileOrID(profiles, c.AuthorID)})
	}
	return views
}

func profileOrID(profiles map[string]domain.PublicProfile, id string) domain.PublicProfile {
	if p, ok := profiles[id]; ok {
		return p
	}
	return domain.PublicProfile{ID: id}
}

// asKind wraps err with kind unless it already carries one of the domain kinds.
func asKind(err error, kind error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	for _, known := range []error{domain.ErrValidation, domain.ErrNotFound, domain.ErrForbidden, domain.ErrUpload, domain.ErrStorage} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", msg, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", kind, msg, err)
}
