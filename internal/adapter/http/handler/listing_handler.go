package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/go-chi/chi/v5"
)

const imagesField = "images"

type ListingService interface {
	CreateListing(ctx context.Context, sellerID string, input usecase.CreateListingInput) (*domain.ListingView, error)
	GetListing(ctx context.Context, id string) (*domain.ListingView, error)
	ListListings(ctx context.Context, filter domain.ListFilter) (*usecase.ListResult, error)
	UpdateListing(ctx context.Context, actorID, id string, patch domain.ListingPatch) (*domain.ListingView, error)
	UpdateListingStatus(ctx context.Context, actorID, id string, status domain.ListingStatus) (*domain.ListingView, error)
	DeleteListing(ctx context.Context, actorID, id string) error
}

// ListingHandler serves the listing endpoints.
type ListingHandler struct {
	listings       ListingService
	maxUploadBytes int64
	logger         *logger.Logger
}

func NewListingHandler(listings ListingService, maxUploadBytes int64, log *logger.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, maxUploadBytes: maxUploadBytes, logger: log.Named("ListingHandler")}
}

// HandleCreateListing accepts a multipart form with the listing fields and
// one to five files under "images".
func (h *ListingHandler) HandleCreateListing(w http.ResponseWriter, r *http.Request) {
	sellerID, _ := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		if statusFor(err) != http.StatusRequestEntityTooLarge {
			err = fmt.Errorf("%w: expected a multipart form: %v", domain.ErrValidation, err)
		}
		writeError(w, h.logger, "CreateListing", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fields, err := listingFieldsFromForm(r)
	if err != nil {
		writeError(w, h.logger, "CreateListing", err)
		return
	}
	images, err := readImages(r.MultipartForm.File[imagesField])
	if err != nil {
		writeError(w, h.logger, "CreateListing", err)
		return
	}

	view, err := h.listings.CreateListing(r.Context(), sellerID, usecase.CreateListingInput{Fields: fields, Images: images})
	if err != nil {
		writeError(w, h.logger, "CreateListing", err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toListingResponse(view))
}

func (h *ListingHandler) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	view, err := h.listings.GetListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, "GetListing", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toListingResponse(view))
}

// HandleListListings serves the public catalogue, filtered by query parameters.
func (h *ListingHandler) HandleListListings(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFromQuery(r)
	if err != nil {
		writeError(w, h.logger, "ListListings", err)
		return
	}
	h.list(w, r, filter)
}

// HandleListUserListings lists everything a given seller has posted.
func (h *ListingHandler) HandleListUserListings(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFromQuery(r)
	if err != nil {
		writeError(w, h.logger, "ListUserListings", err)
		return
	}
	filter.SellerID = chi.URLParam(r, "userId")
	h.list(w, r, filter)
}

// HandleListMyListings lists the caller's own listings.
func (h *ListingHandler) HandleListMyListings(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFromQuery(r)
	if err != nil {
		writeError(w, h.logger, "ListMyListings", err)
		return
	}
	filter.SellerID, _ = middleware.UserIDFromContext(r.Context())
	h.list(w, r, filter)
}

func (h *ListingHandler) list(w http.ResponseWriter, r *http.Request, filter domain.ListFilter) {
	res, err := h.listings.ListListings(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, "ListListings", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toListingPageResponse(res))
}

func (h *ListingHandler) HandleUpdateListing(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromContext(r.Context())
	var req updateListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, "UpdateListing", err)
		return
	}

	view, err := h.listings.UpdateListing(r.Context(), actorID, chi.URLParam(r, "id"), req.toPatch())
	if err != nil {
		writeError(w, h.logger, "UpdateListing", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toListingResponse(view))
}

func (h *ListingHandler) HandleUpdateListingStatus(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromContext(r.Context())
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, "UpdateListingStatus", err)
		return
	}

	view, err := h.listings.UpdateListingStatus(r.Context(), actorID, chi.URLParam(r, "id"), domain.ListingStatus(req.Status))
	if err != nil {
		writeError(w, h.logger, "UpdateListingStatus", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toListingResponse(view))
}

func (h *ListingHandler) HandleDeleteListing(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.listings.DeleteListing(r.Context(), actorID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, "DeleteListing", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func listingFieldsFromForm(r *http.Request) (domain.ListingFields, error) {
	fields := domain.ListingFields{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    domain.Category(r.FormValue("category")),
		Condition:   domain.Condition(r.FormValue("condition")),
		Contact:     r.FormValue("contact"),
	}
	raw := strings.TrimSpace(r.FormValue("price"))
	if raw == "" {
		return fields, fmt.Errorf("%w: price is required", domain.ErrValidation)
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fields, fmt.Errorf("%w: price %q is not a number", domain.ErrValidation, raw)
	}
	fields.Price = price
	return fields, nil
}

func readImages(headers []*multipart.FileHeader) ([]usecase.ImageUpload, error) {
	if len(headers) > domain.MaxImages {
		return nil, domain.ValidateImageCount(len(headers))
	}
	images := make([]usecase.ImageUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read image %s: %v", domain.ErrValidation, fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read image %s: %v", domain.ErrValidation, fh.Filename, err)
		}
		images = append(images, usecase.ImageUpload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return images, nil
}

func listFilterFromQuery(r *http.Request) (domain.ListFilter, error) {
	q := r.URL.Query()
	filter := domain.ListFilter{
		SellerID: q.Get("seller"),
		Category: domain.Category(q.Get("category")),
		Status:   domain.ListingStatus(q.Get("status")),
	}
	var err error
	if filter.Page, err = intParam(q.Get("page")); err != nil {
		return filter, fmt.Errorf("%w: page must be an integer", domain.ErrValidation)
	}
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		return filter, fmt.Errorf("%w: limit must be an integer", domain.ErrValidation)
	}
	return filter, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
	}
	return nil
}
