package router

import (
	"net/http"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/handler"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Logger         *logger.Logger
	Metrics        *metrics.MetricsManager
}

// New builds the HTTP API. Reads are public; anything that changes state
// needs a bearer token.
func New(listings *handler.ListingHandler, comments *handler.CommentHandler, profiles *handler.ProfileHandler, opts Options) http.Handler {
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.Tracing())
	mux.Use(middleware.AccessLog(opts.Logger.Named("http"), opts.Metrics))
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Route("/api", func(r chi.Router) {
		// public
		r.Get("/listings", listings.HandleListListings)
		r.Get("/listings/{id}", listings.HandleGetListing)
		r.Get("/listings/{id}/comments", comments.HandleListComments)
		r.Get("/users/{userId}", profiles.HandleGetUserProfile)
		r.Get("/users/{userId}/listings", listings.HandleListUserListings)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(opts.JWTSecret, opts.Logger))
			r.Use(chimw.Timeout(2 * time.Minute))

			r.Post("/listings", listings.HandleCreateListing)
			r.Put("/listings/{id}", listings.HandleUpdateListing)
			r.Patch("/listings/{id}/status", listings.HandleUpdateListingStatus)
			r.Delete("/listings/{id}", listings.HandleDeleteListing)

			r.Post("/listings/{id}/comments", comments.HandleAddComment)
			r.Put("/listings/{id}/comments/{commentId}", comments.HandleEditComment)
			r.Delete("/listings/{id}/comments/{commentId}", comments.HandleDeleteComment)

			r.Get("/me", profiles.HandleGetMyProfile)
			r.Patch("/me", profiles.HandleUpdateMyProfile)
			r.Patch("/me/avatar", profiles.HandleUpdateMyAvatar)
			r.Get("/me/listings", listings.HandleListMyListings)
		})
	})

	return mux
}
