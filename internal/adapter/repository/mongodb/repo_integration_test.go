//go:build integration

package mongodb

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var testDB *mongo.Database

// TestMain starts a throwaway MongoDB container for the repository tests.
func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "6.0",
		Env: []string{
			"MONGO_INITDB_ROOT_USERNAME=root",
			"MONGO_INITDB_ROOT_PASSWORD=password",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start MongoDB resource: %s", err)
	}
	uri := fmt.Sprintf("mongodb://root:password@%s/?authSource=admin", resource.GetHostPort("27017/tcp"))

	var client *mongo.Client
	if err := pool.Retry(func() error {
		var errRetry error
		client, errRetry = mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
		if errRetry != nil {
			return errRetry
		}
		return client.Ping(context.Background(), nil)
	}); err != nil {
		log.Fatalf("Could not connect to MongoDB: %s", err)
	}
	testDB = client.Database("test_marketplace")

	code := m.Run()

	_ = client.Disconnect(context.Background())
	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge MongoDB resource: %s", err)
	}
	os.Exit(code)
}

func newTestListing(sellerID string) *domain.Listing {
	return &domain.Listing{
		SellerID:    sellerID,
		Title:       "Bike",
		Description: "Red road bike",
		Category:    domain.CategorySports,
		Price:       50,
		Condition:   domain.ConditionUsed,
		Contact:     "x@y.com",
		Status:      domain.StatusAvailable,
		Images:      []domain.Image{{URL: "http://minio/b/k1.png", DeleteHandle: "k1.png"}},
		Comments:    []domain.Comment{},
	}
}

func TestListingRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository(testDB, logger.NewNop())
	require.NoError(t, repo.EnsureIndexes(ctx))

	l := newTestListing(primitive.NewObjectID().Hex())
	require.NoError(t, repo.Create(ctx, l))
	require.NotEmpty(t, l.ID)

	got, err := repo.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.Images, got.Images)
	assert.Equal(t, domain.StatusAvailable, got.Status)

	comments := []domain.Comment{{ID: "c1", AuthorID: "u2", Text: "still available?", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}}
	require.NoError(t, repo.SaveComments(ctx, l.ID, comments))

	// Update must not clobber the comments written in between.
	l.Status = domain.StatusSold
	l.Title = "Sold bike"
	require.NoError(t, repo.Update(ctx, l))

	got, err = repo.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSold, got.Status)
	assert.Equal(t, "Sold bike", got.Title)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "still available?", got.Comments[0].Text)

	require.NoError(t, repo.Delete(ctx, l.ID))
	_, err = repo.FindByID(ctx, l.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, l.ID), domain.ErrNotFound)
}

func TestListingRepository_FindByMalformedID(t *testing.T) {
	repo := NewListingRepository(testDB, logger.NewNop())
	_, err := repo.FindByID(context.Background(), "not-an-object-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListingRepository_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository(testDB, logger.NewNop())
	seller := primitive.NewObjectID().Hex()

	for i := 0; i < 3; i++ {
		l := newTestListing(seller)
		l.Title = fmt.Sprintf("Item %d", i)
		require.NoError(t, repo.Create(ctx, l))
	}
	other := newTestListing(seller)
	other.Category = domain.CategoryBooks
	require.NoError(t, repo.Create(ctx, other))

	page, total, err := repo.List(ctx, domain.ListFilter{SellerID: seller, Category: domain.CategorySports, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "Item 2", page[0].Title)

	page, _, err = repo.List(ctx, domain.ListFilter{SellerID: seller, Category: domain.CategorySports, Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Item 0", page[0].Title)
}

func TestUserRepository_FindProfiles(t *testing.T) {
	ctx := context.Background()
	users := testDB.Collection("users")
	alice := primitive.NewObjectID()
	_, err := users.InsertOne(ctx, bson.M{
		"_id":      alice,
		"username": "alice",
		"email":    "alice@example.com",
		"password": "$2a$10$hash",
		"bio":      "cyclist",
	})
	require.NoError(t, err)

	repo := NewUserRepository(testDB, logger.NewNop())
	missing := primitive.NewObjectID().Hex()
	profiles, err := repo.FindProfiles(ctx, []string{alice.Hex(), missing, "garbage"})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "alice", profiles[alice.Hex()].Username)
	assert.Equal(t, "cyclist", profiles[alice.Hex()].Bio)

	email, err := repo.GetEmailByID(ctx, alice.Hex())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	_, err = repo.GetEmailByID(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_ProfileEdits(t *testing.T) {
	ctx := context.Background()
	users := testDB.Collection("users")
	bob := primitive.NewObjectID()
	_, err := users.InsertOne(ctx, bson.M{
		"_id":      bob,
		"username": "bob",
		"email":    "bob@example.com",
		"password": "$2a$10$hash",
		"avatar":   "assets/default.jpg",
		"location": "Almaty",
	})
	require.NoError(t, err)
	repo := NewUserRepository(testDB, logger.NewNop())

	profile, err := repo.FindProfile(ctx, bob.Hex())
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", profile.Email)
	assert.Empty(t, profile.AvatarHandle)

	bio := "sells bikes"
	profile, err = repo.UpdateProfile(ctx, bob.Hex(), domain.ProfilePatch{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "sells bikes", profile.Bio)
	assert.Equal(t, "Almaty", profile.Location, "unset fields are kept")

	profile, err = repo.SetAvatar(ctx, bob.Hex(), domain.Image{URL: "http://minio/b/avatars/a.png", DeleteHandle: "avatars/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "http://minio/b/avatars/a.png", profile.Avatar)
	assert.Equal(t, "avatars/a.png", profile.AvatarHandle)

	var raw bson.M
	require.NoError(t, users.FindOne(ctx, bson.M{"_id": bob}).Decode(&raw))
	assert.Equal(t, "$2a$10$hash", raw["password"])

	_, err = repo.FindProfile(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.UpdateProfile(ctx, "garbage", domain.ProfilePatch{Bio: &bio})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
