package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/identity"
	"github.com/ariefcatur/go-marketplace/internal/market"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type CartHandler struct {
	Carts       CartStore
	Events      Events
	RequireUser func(http.Handler) http.Handler
	Log         logrus.FieldLogger
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(h.RequireUser)
		r.Get("/", h.view)
		r.Post("/", h.add)
		r.Delete("/", h.clear)
		r.Delete("/items/{itemId}", h.remove)
	})
}

// A missing item and someone else's item get the same answer.
const msgCartItemDenied = "access denied or item not found"

func (h *CartHandler) view(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	lines, err := h.Carts.Items(ctx, identity.UserID(r.Context()))
	if err != nil {
		fail(w, r, h.Log, err, "failed to fetch cart")
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var in market.AddItemInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := in.Validate(); err != nil {
		fail(w, r, h.Log, err, "invalid cart item")
		return
	}
	userID := identity.UserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	it, err := h.Carts.AddItem(ctx, userID, in)
	if err != nil {
		fail(w, r, h.Log, err, "failed to add item to cart")
		return
	}
	h.Events.Emit(ctx, market.TopicCartItemAdded, market.EventCartItemAdded, it.ID,
		market.CartItemPayload{ItemID: it.ID, CartID: it.CartID, UserID: userID, ProductID: it.ProductID, Quantity: it.Quantity})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "item added to cart",
		"item":    it,
	})
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	if !market.IsID(itemID) {
		writeError(w, http.StatusForbidden, msgCartItemDenied)
		return
	}
	userID := identity.UserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Carts.RemoveItem(ctx, itemID, userID); err != nil {
		if errors.Is(err, market.ErrNotFound) || errors.Is(err, market.ErrForbidden) {
			writeError(w, http.StatusForbidden, msgCartItemDenied)
			return
		}
		fail(w, r, h.Log, err, "failed to remove item")
		return
	}
	h.Events.Emit(ctx, market.TopicCartItemRemoved, market.EventCartItemRemoved, itemID,
		market.CartItemPayload{ItemID: itemID, UserID: userID})

	writeJSON(w, http.StatusOK, map[string]any{"message": "item removed from cart"})
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	n, err := h.Carts.Clear(ctx, identity.UserID(r.Context()))
	if err != nil {
		fail(w, r, h.Log, err, "failed to clear cart")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "cart cleared",
		"removed": n,
	})
}
