package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) GetProfile(ctx context.Context, userID string, filter domain.ListFilter) (*usecase.ProfilePage, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ProfilePage), args.Error(1)
}

func (m *MockProfileService) UpdateProfile(ctx context.Context, actorID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	args := m.Called(ctx, actorID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileService) UpdateAvatar(ctx context.Context, actorID string, upload usecase.ImageUpload) (*domain.Profile, error) {
	args := m.Called(ctx, actorID, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func profileRouter(ps ProfileService) http.Handler {
	h := NewProfileHandler(ps, 1<<20, logger.NewNop())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if id := req.Header.Get("X-Test-User"); id != "" {
				req = req.WithContext(middleware.WithUserID(req.Context(), id))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/api/users/{userId}", h.HandleGetUserProfile)
	r.Get("/api/me", h.HandleGetMyProfile)
	r.Patch("/api/me", h.HandleUpdateMyProfile)
	r.Patch("/api/me/avatar", h.HandleUpdateMyAvatar)
	return r
}

func alicePage() *usecase.ProfilePage {
	return &usecase.ProfilePage{
		Profile: &domain.Profile{
			PublicProfile: domain.PublicProfile{ID: "u1", Username: "alice", Bio: "radios"},
			Email:         "alice@mail.test",
			ContactInfo:   "telegram @alice",
		},
		Listings: &usecase.ListResult{Listings: []*domain.ListingView{bikeView()}, Total: 1, Page: 1, Limit: 20},
	}
}

func avatarBody(t *testing.T, count int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for i := 0; i < count; i++ {
		part, err := mw.CreateFormFile(avatarField, "me.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\nrest"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandleGetUserProfile(t *testing.T) {
	ps := new(MockProfileService)
	ps.On("GetProfile", mock.Anything, "u1", domain.ListFilter{Page: 2}).Return(alicePage(), nil).Once()
	rec := httptest.NewRecorder()

	profileRouter(ps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/u1?page=2", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		User  map[string]interface{} `json:"user"`
		Items listingPageResponse    `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.User["username"])
	assert.NotContains(t, resp.User, "email")
	assert.NotContains(t, resp.User, "contact_info")
	assert.Equal(t, int64(1), resp.Items.Total)
	require.Len(t, resp.Items.Listings, 1)
	assert.Equal(t, "l1", resp.Items.Listings[0].ID)
	ps.AssertExpectations(t)
}

func TestHandleGetUserProfile_UnknownUser(t *testing.T) {
	ps := new(MockProfileService)
	ps.On("GetProfile", mock.Anything, "ghost", mock.Anything).Return(nil, domain.ErrNotFound).Once()
	rec := httptest.NewRecorder()

	profileRouter(ps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetMyProfile_IncludesPrivateFields(t *testing.T) {
	ps := new(MockProfileService)
	ps.On("GetProfile", mock.Anything, "u1", domain.ListFilter{}).Return(alicePage(), nil).Once()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("X-Test-User", "u1")
	rec := httptest.NewRecorder()

	profileRouter(ps).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"email":"alice@mail.test"`)
	assert.Contains(t, rec.Body.String(), `"contact_info":"telegram @alice"`)
}

func TestHandleUpdateMyProfile(t *testing.T) {
	ps := new(MockProfileService)
	ps.On("UpdateProfile", mock.Anything, "u1", mock.MatchedBy(func(p domain.ProfilePatch) bool {
		return p.Bio == nil && p.Location != nil && *p.Location == "Astana" && p.ContactInfo != nil && *p.ContactInfo == ""
	})).Return(alicePage().Profile, nil).Once()
	req := httptest.NewRequest(http.MethodPatch, "/api/me", strings.NewReader(`{"location":"Astana","contact_info":""}`))
	req.Header.Set("X-Test-User", "u1")
	rec := httptest.NewRecorder()

	profileRouter(ps).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	ps.AssertExpectations(t)
}

func TestHandleUpdateMyProfile_RejectsUnknownFields(t *testing.T) {
	ps := new(MockProfileService)
	req := httptest.NewRequest(http.MethodPatch, "/api/me", strings.NewReader(`{"email":"new@mail.test"}`))
	req.Header.Set("X-Test-User", "u1")
	rec := httptest.NewRecorder()

	profileRouter(ps).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ps.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleUpdateMyAvatar(t *testing.T) {
	ps := new(MockProfileService)
	updated := alicePage().Profile
	updated.Avatar = "http://minio/b/avatars/k1.png"
	ps.On("UpdateAvatar", mock.Anything, "u1", mock.MatchedBy(func(in usecase.ImageUpload) bool {
		return in.FileName == "me.png" && bytes.HasPrefix(in.Data, []byte("\x89PNG"))
	})).Return(updated, nil).Once()
	body, contentType := avatarBody(t, 1)
	req := httptest.NewRequest(http.MethodPatch, "/api/me/avatar", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Test-User", "u1")
	rec := httptest.NewRecorder()

	profileRouter(ps).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), updated.Avatar)
	ps.AssertExpectations(t)
}

func TestHandleUpdateMyAvatar_NeedsExactlyOneFile(t *testing.T) {
	for _, count := range []int{0, 2} {
		ps := new(MockProfileService)
		body, contentType := avatarBody(t, count)
		req := httptest.NewRequest(http.MethodPatch, "/api/me/avatar", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("X-Test-User", "u1")
		rec := httptest.NewRecorder()

		profileRouter(ps).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "files: %d", count)
		ps.AssertNotCalled(t, "UpdateAvatar", mock.Anything, mock.Anything, mock.Anything)
	}
}
