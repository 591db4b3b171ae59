package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/identity"
	"github.com/ariefcatur/go-marketplace/internal/market"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type ReviewsHandler struct {
	Reviews     ReviewStore
	Ratings     RatingCache // optional
	Events      Events
	RequireUser func(http.Handler) http.Handler
	Log         logrus.FieldLogger
}

func (h *ReviewsHandler) Register(r *chi.Mux) {
	r.Get("/api/reviews/product/{productId}", h.listByProduct)
	r.Get("/api/reviews/product/{productId}/summary", h.summary)
	r.With(h.RequireUser).Post("/api/reviews", h.create)
}

func (h *ReviewsHandler) listByProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if !market.IsID(productID) {
		writeJSON(w, http.StatusOK, []market.Review{})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rs, err := h.Reviews.ListByProduct(ctx, productID)
	if err != nil {
		fail(w, r, h.Log, err, "failed to fetch reviews")
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (h *ReviewsHandler) summary(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if !market.IsID(productID) {
		writeJSON(w, http.StatusOK, market.NewRatingSummary(productID, 0, 0))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) aggregate kept by the ratings worker
	if h.Ratings != nil {
		count, sum, found, err := h.Ratings.RatingAggregate(ctx, productID)
		if err != nil {
			h.Log.WithError(err).WithField("product_id", productID).Warn("rating aggregate read")
		}
		if found {
			writeJSON(w, http.StatusOK, market.NewRatingSummary(productID, count, sum))
			return
		}
	}

	// 2) fallback SQL
	s, err := h.Reviews.Summary(ctx, productID)
	if err != nil {
		fail(w, r, h.Log, err, "failed to fetch rating summary")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *ReviewsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in market.ReviewInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := in.Validate(); err != nil {
		fail(w, r, h.Log, err, "invalid review")
		return
	}
	userID := identity.UserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rv, err := h.Reviews.Create(ctx, userID, in)
	if err != nil {
		fail(w, r, h.Log, err, "failed to submit review")
		return
	}
	h.Events.Emit(ctx, market.TopicReviewCreated, market.EventReviewCreated, rv.ProductID,
		market.ReviewCreatedPayload{ReviewID: rv.ID, ProductID: rv.ProductID, UserID: userID, Rating: rv.Rating})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "review submitted",
		"review":  rv,
	})
}
