package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/go-chi/chi/v5"
)

const avatarField = "avatar"

type ProfileService interface {
	GetProfile(ctx context.Context, userID string, filter domain.ListFilter) (*usecase.ProfilePage, error)
	UpdateProfile(ctx context.Context, actorID string, patch domain.ProfilePatch) (*domain.Profile, error)
	UpdateAvatar(ctx context.Context, actorID string, upload usecase.ImageUpload) (*domain.Profile, error)
}

// ProfileHandler serves public profile pages and the caller's own profile.
type ProfileHandler struct {
	profiles       ProfileService
	maxUploadBytes int64
	logger         *logger.Logger
}

func NewProfileHandler(profiles ProfileService, maxUploadBytes int64, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, maxUploadBytes: maxUploadBytes, logger: log.Named("ProfileHandler")}
}

// HandleGetUserProfile returns the public part of a profile and the user's listings.
func (h *ProfileHandler) HandleGetUserProfile(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFromQuery(r)
	if err != nil {
		writeError(w, h.logger, "GetUserProfile", err)
		return
	}
	page, err := h.profiles.GetProfile(r.Context(), chi.URLParam(r, "userId"), filter)
	if err != nil {
		writeError(w, h.logger, "GetUserProfile", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, profilePageResponse{
		User:  toProfileResponse(page.Profile.PublicProfile),
		Items: toListingPageResponse(page.Listings),
	})
}

// HandleGetMyProfile returns the caller's full profile and listings.
func (h *ProfileHandler) HandleGetMyProfile(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromContext(r.Context())
	filter, err := listFilterFromQuery(r)
	if err != nil {
		writeError(w, h.logger, "GetMyProfile", err)
		return
	}
	page, err := h.profiles.GetProfile(r.Context(), actorID, filter)
	if err != nil {
		writeError(w, h.logger, "GetMyProfile", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, profilePageResponse{
		User:  toOwnProfileResponse(page.Profile),
		Items: toListingPageResponse(page.Listings),
	})
}

func (h *ProfileHandler) HandleUpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromContext(r.Context())
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, "UpdateMyProfile", err)
		return
	}
	profile, err := h.profiles.UpdateProfile(r.Context(), actorID, req.toPatch())
	if err != nil {
		writeError(w, h.logger, "UpdateMyProfile", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toOwnProfileResponse(profile))
}

// HandleUpdateMyAvatar accepts a multipart form with exactly one file under "avatar".
func (h *ProfileHandler) HandleUpdateMyAvatar(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		if statusFor(err) != http.StatusRequestEntityTooLarge {
			err = fmt.Errorf("%w: expected a multipart form: %v", domain.ErrValidation, err)
		}
		writeError(w, h.logger, "UpdateMyAvatar", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[avatarField]
	if len(files) != 1 {
		writeError(w, h.logger, "UpdateMyAvatar", fmt.Errorf("%w: exactly one %q file is required, got %d", domain.ErrValidation, avatarField, len(files)))
		return
	}
	uploads, err := readImages(files)
	if err != nil {
		writeError(w, h.logger, "UpdateMyAvatar", err)
		return
	}

	profile, err := h.profiles.UpdateAvatar(r.Context(), actorID, uploads[0])
	if err != nil {
		writeError(w, h.logger, "UpdateMyAvatar", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toOwnProfileResponse(profile))
}
