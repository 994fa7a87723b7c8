package handler

import (
	"context"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/go-chi/chi/v5"
)

type CommentService interface {
	AddComment(ctx context.Context, authorID, listingID, text string) (*domain.CommentView, error)
	EditComment(ctx context.Context, actorID, listingID, commentID, text string) (*domain.CommentView, error)
	DeleteComment(ctx context.Context, actorID, listingID, commentID string) error
	ListComments(ctx context.Context, listingID string) ([]domain.CommentView, error)
}

type CommentHandler struct {
	comments CommentService
	logger   *logger.Logger
}

func NewCommentHandler(comments CommentService, log *logger.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: log.Named("CommentHandler")}
}

func (h *CommentHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	views, err := h.comments.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, "ListComments", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, commentsResponse{Comments: toCommentResponses(views)})
}

func (h *CommentHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	authorID, _ := middleware.UserIDFromContext(r.Context())
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, "AddComment", err)
		return
	}

	view, err := h.comments.AddComment(r.Context(), authorID, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		writeError(w, h.logger, "AddComment", err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toCommentResponse(*view))
}

func (h *CommentHandler) HandleEditComment(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromContext(r.Context())
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, "EditComment", err)
		return
	}

	view, err := h.comments.EditComment(r.Context(), actorID, chi.URLParam(r, "id"), chi.URLParam(r, "commentId"), req.Text)
	if err != nil {
		writeError(w, h.logger, "EditComment", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toCommentResponse(*view))
}

func (h *CommentHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.comments.DeleteComment(r.Context(), actorID, chi.URLParam(r, "id"), chi.URLParam(r, "commentId")); err != nil {
		writeError(w, h.logger, "DeleteComment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
