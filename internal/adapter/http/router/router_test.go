package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/handler"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/metrics"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "router-test-secret"

// stubListings records the actor of the last delete and serves one listing.
type stubListings struct {
	deletedBy string
}

func (s *stubListings) CreateListing(context.Context, string, usecase.CreateListingInput) (*domain.ListingView, error) {
	return nil, domain.ErrValidation
}

func (s *stubListings) GetListing(_ context.Context, id string) (*domain.ListingView, error) {
	if id != "l1" {
		return nil, domain.ErrNotFound
	}
	return &domain.ListingView{Listing: &domain.Listing{ID: "l1", SellerID: "u1"}, Seller: domain.PublicProfile{ID: "u1"}}, nil
}

func (s *stubListings) ListListings(context.Context, domain.ListFilter) (*usecase.ListResult, error) {
	return &usecase.ListResult{Page: 1, Limit: 20}, nil
}

func (s *stubListings) UpdateListing(context.Context, string, string, domain.ListingPatch) (*domain.ListingView, error) {
	return nil, domain.ErrForbidden
}

func (s *stubListings) UpdateListingStatus(context.Context, string, string, domain.ListingStatus) (*domain.ListingView, error) {
	return nil, domain.ErrForbidden
}

func (s *stubListings) DeleteListing(_ context.Context, actorID, _ string) error {
	s.deletedBy = actorID
	return nil
}

type stubComments struct{}

func (stubComments) AddComment(context.Context, string, string, string) (*domain.CommentView, error) {
	return nil, domain.ErrNotFound
}

func (stubComments) EditComment(context.Context, string, string, string, string) (*domain.CommentView, error) {
	return nil, domain.ErrNotFound
}

func (stubComments) DeleteComment(context.Context, string, string, string) error {
	return domain.ErrNotFound
}

func (stubComments) ListComments(context.Context, string) ([]domain.CommentView, error) {
	return []domain.CommentView{}, nil
}

type stubProfiles struct{}

func (stubProfiles) GetProfile(_ context.Context, userID string, _ domain.ListFilter) (*usecase.ProfilePage, error) {
	if userID != "u1" {
		return nil, domain.ErrNotFound
	}
	return &usecase.ProfilePage{
		Profile:  &domain.Profile{PublicProfile: domain.PublicProfile{ID: "u1"}},
		Listings: &usecase.ListResult{Page: 1, Limit: 20},
	}, nil
}

func (stubProfiles) UpdateProfile(context.Context, string, domain.ProfilePatch) (*domain.Profile, error) {
	return nil, domain.ErrValidation
}

func (stubProfiles) UpdateAvatar(context.Context, string, usecase.ImageUpload) (*domain.Profile, error) {
	return nil, domain.ErrValidation
}

func newTestRouter(listings *stubListings) (http.Handler, *metrics.MetricsManager) {
	log := logger.NewNop()
	m := metrics.NewMetricsManager("router-test")
	return New(
		handler.NewListingHandler(listings, 1<<20, log),
		handler.NewCommentHandler(stubComments{}, log),
		handler.NewProfileHandler(stubProfiles{}, 1<<20, log),
		Options{JWTSecret: secret, AllowedOrigins: []string{"http://localhost:3000"}, Logger: log, Metrics: m},
	), m
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouter_PublicReads(t *testing.T) {
	r, _ := newTestRouter(&stubListings{})
	for _, path := range []string{"/healthz", "/api/listings", "/api/listings/l1", "/api/listings/l1/comments", "/api/users/u1", "/api/users/u1/listings"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_MutationsNeedToken(t *testing.T) {
	r, _ := newTestRouter(&stubListings{})
	tests := []struct{ method, path string }{
		{http.MethodPost, "/api/listings"},
		{http.MethodPut, "/api/listings/l1"},
		{http.MethodPatch, "/api/listings/l1/status"},
		{http.MethodDelete, "/api/listings/l1"},
		{http.MethodPost, "/api/listings/l1/comments"},
		{http.MethodPut, "/api/listings/l1/comments/c1"},
		{http.MethodDelete, "/api/listings/l1/comments/c1"},
		{http.MethodGet, "/api/me/listings"},
		{http.MethodGet, "/api/me"},
		{http.MethodPatch, "/api/me"},
		{http.MethodPatch, "/api/me/avatar"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}")))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tt.method+" "+tt.path)
	}
}

func TestRouter_TokenIdentifiesActor(t *testing.T) {
	listings := &stubListings{}
	r, _ := newTestRouter(listings)

	req := httptest.NewRequest(http.MethodDelete, "/api/listings/l1", nil)
	req.Header.Set("Authorization", bearer(t, "u1"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u1", listings.deletedBy)
}

func TestRouter_UnknownUserProfileIsNotFound(t *testing.T) {
	r, _ := newTestRouter(&stubListings{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_RecordsErrorMetricsByPattern(t *testing.T) {
	r, m := newTestRouter(&stubListings{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/listings/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPErrorsTotal.WithLabelValues("/api/listings/{id}", "404")))
}

func TestRouter_CORSPreflight(t *testing.T) {
	r, _ := newTestRouter(&stubListings{})
	req := httptest.NewRequest(http.MethodOptions, "/api/listings", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
