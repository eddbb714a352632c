package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sunil0336/MovieBuffs-sub000/pkg/httputil"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/middleware"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/pagination"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/validator"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/service"
)

// ReviewHandler handles HTTP requests for the review endpoints of one item kind.
type ReviewHandler struct {
	engine *service.Engine
	logger *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(engine *service.Engine, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		engine: engine,
		logger: logger,
	}
}

// --- Request DTOs ---

// ReviewRequest is the JSON body for creating or updating a review. Range
// and length bounds are enforced by the review policy.
type ReviewRequest struct {
	Rating           int    `json:"rating" validate:"required"`
	Title            string `json:"title" validate:"required"`
	Content          string `json:"content" validate:"required"`
	ContainsSpoilers bool   `json:"contains_spoilers"`
}

func (r ReviewRequest) fields() domain.ReviewFields {
	return domain.ReviewFields{
		Rating:           r.Rating,
		Title:            r.Title,
		Content:          r.Content,
		ContainsSpoilers: r.ContainsSpoilers,
	}
}

// CommentRequest is the JSON body for adding a comment.
type CommentRequest struct {
	Text string `json:"text"`
}

// VoteRequest is the JSON body for a helpfulness vote.
type VoteRequest struct {
	VoteType string `json:"vote_type" validate:"required"`
}

// --- Response DTOs ---

// ListResponse is the envelope of every review listing.
type ListResponse struct {
	Success    bool            `json:"success"`
	Count      int             `json:"count"`
	Pagination pagination.Info `json:"pagination"`
	Reviews    []domain.Review `json:"reviews"`
}

// --- Helpers ---

func requester(r *http.Request) service.Requester {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return service.Requester{}
	}
	return service.Requester{UserID: id.UserID, IsAdmin: id.IsAdmin()}
}

func listOptions(r *http.Request) (service.ListOptions, error) {
	q := r.URL.Query()
	page, err := pagination.FromQuery(q)
	if err != nil {
		return service.ListOptions{}, err
	}
	opts := service.ListOptions{Sort: q.Get("sort"), Page: page}
	if raw := q.Get("min_rating"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return service.ListOptions{}, domain.ValidationError("invalid listing", map[string]string{"min_rating": "must be an integer"})
		}
		opts.MinRating = v
	}
	return opts, nil
}

func writeList(w http.ResponseWriter, res *service.ListResult) {
	httputil.WriteJSON(w, http.StatusOK, ListResponse{
		Success:    true,
		Count:      len(res.Reviews),
		Pagination: res.Pagination,
		Reviews:    res.Reviews,
	})
}

// --- Review handlers ---

// ListReviews handles GET /reviews across every item of the kind.
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	opts.ItemID = r.URL.Query().Get("item_id")
	opts.AuthorID = r.URL.Query().Get("author_id")

	res, err := h.engine.Queries.List(r.Context(), opts)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeList(w, res)
}

// ListTopReviews handles GET /reviews/top.
func (h *ReviewHandler) ListTopReviews(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.engine.Queries.ListTop(r.Context(), opts)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeList(w, res)
}

// ListItemReviews handles GET /items/{itemId}/reviews.
func (h *ReviewHandler) ListItemReviews(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.engine.Reviews.ListByParent(r.Context(), chi.URLParam(r, "itemId"), opts)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeList(w, res)
}

// ListAuthorReviews handles GET /users/{authorId}/reviews.
func (h *ReviewHandler) ListAuthorReviews(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.engine.Reviews.ListByAuthor(r.Context(), chi.URLParam(r, "authorId"), opts)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeList(w, res)
}

// CreateReview handles POST /items/{itemId}/reviews.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, r, err)
		return
	}

	review, _, err := h.engine.Reviews.Create(r.Context(), requester(r), service.CreateReviewInput{
		ItemID:       chi.URLParam(r, "itemId"),
		ReviewFields: req.fields(),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, review)
}

// GetReview handles GET /reviews/{id}.
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.engine.Reviews.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// UpdateReview handles PUT /reviews/{id}.
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, r, err)
		return
	}

	review, _, err := h.engine.Reviews.Update(r.Context(), requester(r), chi.URLParam(r, "id"), req.fields())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// DeleteReview handles DELETE /reviews/{id}.
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.Reviews.Delete(r.Context(), requester(r), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "review deleted")
}

// --- Engagement handlers ---

// ToggleLike handles POST /reviews/{id}/like.
func (h *ReviewHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	eng, err := h.engine.Engagement.ToggleLike(r.Context(), requester(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, eng)
}

// ToggleDislike handles POST /reviews/{id}/dislike.
func (h *ReviewHandler) ToggleDislike(w http.ResponseWriter, r *http.Request) {
	eng, err := h.engine.Engagement.ToggleDislike(r.Context(), requester(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, eng)
}

// ListComments handles GET /reviews/{id}/comments.
func (h *ReviewHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.engine.Engagement.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, comments)
}

// AddComment handles POST /reviews/{id}/comments.
func (h *ReviewHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, r, err)
		return
	}

	comments, err := h.engine.Engagement.AddComment(r.Context(), requester(r), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, comments)
}

// DeleteComment handles DELETE /reviews/{id}/comments/{commentId}.
func (h *ReviewHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	comments, err := h.engine.Engagement.DeleteComment(r.Context(), requester(r),
		chi.URLParam(r, "id"), chi.URLParam(r, "commentId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, comments)
}

// RecordVote handles POST /reviews/{id}/votes. Votes are anonymous.
func (h *ReviewHandler) RecordVote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteBadRequest(w, r, err)
		return
	}

	tally, err := h.engine.Engagement.RecordVote(r.Context(), chi.URLParam(r, "id"), req.VoteType)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, tally)
}

// --- Rating handlers ---

// GetRating handles GET /items/{itemId}/rating.
func (h *ReviewHandler) GetRating(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.Ratings.GetRating(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// RecomputeRating handles POST /items/{itemId}/rating/recompute.
func (h *ReviewHandler) RecomputeRating(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.Ratings.Recompute(r.Context(), requester(r), chi.URLParam(r, "itemId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}
