package domain

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

const MaxBioLength = 500

// Profile is the whole account record as its owner sees it. Only the
// embedded PublicProfile may be shown to other users.
type Profile struct {
	PublicProfile
	Email       string
	ContactInfo string
	// AvatarHandle is the object store key of an uploaded avatar. It is empty
	// while the user still has the default avatar.
	AvatarHandle string
}

// ProfilePatch carries the self-editable profile fields. Nil means unchanged.
type ProfilePatch struct {
	Bio         *string
	Location    *string
	ContactInfo *string
}

func (p ProfilePatch) IsEmpty() bool {
	return p.Bio == nil && p.Location == nil && p.ContactInfo == nil
}

// Normalize trims every set field and checks the bio length.
func (p ProfilePatch) Normalize() (ProfilePatch, error) {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		t := strings.TrimSpace(*s)
		return &t
	}
	out := ProfilePatch{Bio: trim(p.Bio), Location: trim(p.Location), ContactInfo: trim(p.ContactInfo)}
	if out.Bio != nil && utf8.RuneCountInString(*out.Bio) > MaxBioLength {
		return ProfilePatch{}, fmt.Errorf("%w: bio exceeds %d characters", ErrValidation, MaxBioLength)
	}
	return out, nil
}

// ProfileRepository reads and edits the profile part of user accounts.
// Unknown users are reported as ErrNotFound.
type ProfileRepository interface {
	FindProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*Profile, error)
	// SetAvatar points the profile at a newly stored avatar image.
	SetAvatar(ctx context.Context, userID string, avatar Image) (*Profile, error)
}
