package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/identity"
	"github.com/ariefcatur/go-marketplace/internal/market"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type ProductsHandler struct {
	Products    ProductStore
	Cache       JSONCache // optional
	CacheTTL    time.Duration
	Events      Events
	RequireUser func(http.Handler) http.Handler
	Log         logrus.FieldLogger
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Get("/api/products", h.list)
	r.Get("/api/products/nearby", h.nearby)
	r.Get("/api/products/{id}", h.get)
	r.With(h.RequireUser).Post("/api/products", h.create)
	r.With(h.RequireUser).Put("/api/products/{id}", h.update)
	r.With(h.RequireUser).Delete("/api/products/{id}", h.delete)
	r.With(h.RequireUser).Get("/api/users/me/products", h.listMine)
}

const (
	msgProductNotFound = "product not found"
	msgNotProductOwner = "access denied: you are not the owner of this product"
)

// atoi returns 0 for anything unparsable so the query defaults apply.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq := market.NewListQuery(q.Get("search"), atoi(q.Get("page")), atoi(q.Get("limit")))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	page, err := h.Products.List(ctx, lq)
	if err != nil {
		fail(w, r, h.Log, err, "failed to fetch products")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *ProductsHandler) nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required and must be valid coordinates")
		return
	}
	radius, _ := strconv.ParseFloat(q.Get("radius"), 64)
	nq, err := market.NearbyQuery{Lat: lat, Lon: lon, RadiusM: radius, Limit: atoi(q.Get("limit"))}.Normalize()
	if err != nil {
		fail(w, r, h.Log, err, "invalid coordinates")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Products.Nearby(ctx, nq)
	if err != nil {
		fail(w, r, h.Log, err, "failed to fetch nearby products")
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !market.IsID(id) {
		writeError(w, http.StatusNotFound, msgProductNotFound)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache
	key := fmt.Sprintf(redisx.KeyProduct, id)
	if h.Cache != nil {
		var p market.Product
		found, err := h.Cache.GetJSON(ctx, key, &p)
		if err != nil {
			h.Log.WithError(err).WithField("key", key).Warn("product cache read")
		}
		if found {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}

	// 2) fallback DB
	p, err := h.Products.Get(ctx, id)
	if err != nil {
		if errors.Is(err, market.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgProductNotFound)
			return
		}
		fail(w, r, h.Log, err, "failed to fetch product")
		return
	}
	if h.Cache != nil {
		ttl := h.CacheTTL
		if ttl <= 0 {
			ttl = redisx.TTLProduct
		}
		if err := h.Cache.SetJSON(ctx, key, p, ttl); err != nil {
			h.Log.WithError(err).WithField("key", key).Warn("product cache write")
		}
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in market.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := in.Validate(); err != nil {
		fail(w, r, h.Log, err, "invalid product")
		return
	}
	userID := identity.UserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Products.Create(ctx, userID, in)
	if err != nil {
		fail(w, r, h.Log, err, "failed to create product")
		return
	}
	h.Events.Emit(ctx, market.TopicProductCreated, market.EventProductCreated, p.ID,
		market.ProductPayload{ProductID: p.ID, UserID: userID, Name: p.Name, Price: p.Price})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "product created",
		"product": p,
	})
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !market.IsID(id) {
		writeError(w, http.StatusNotFound, msgProductNotFound)
		return
	}
	// decoded by the repo after the ownership check
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	userID := identity.UserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Products.Update(ctx, id, userID, market.ProductJSON(body))
	if err != nil {
		h.ownerFailure(w, r, err, "failed to update product")
		return
	}
	h.invalidate(ctx, id, false)
	h.Events.Emit(ctx, market.TopicProductUpdated, market.EventProductUpdated, p.ID,
		market.ProductPayload{ProductID: p.ID, UserID: userID, Name: p.Name, Price: p.Price})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "product updated",
		"product": p,
	})
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !market.IsID(id) {
		writeError(w, http.StatusNotFound, msgProductNotFound)
		return
	}
	userID := identity.UserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Products.Delete(ctx, id, userID); err != nil {
		h.ownerFailure(w, r, err, "failed to delete product")
		return
	}
	h.invalidate(ctx, id, true)
	h.Events.Emit(ctx, market.TopicProductDeleted, market.EventProductDeleted, id,
		market.ProductPayload{ProductID: id, UserID: userID})

	writeJSON(w, http.StatusOK, map[string]any{"message": "product deleted"})
}

func (h *ProductsHandler) listMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Products.ListByOwner(ctx, identity.UserID(r.Context()))
	if err != nil {
		fail(w, r, h.Log, err, "failed to fetch user products")
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) ownerFailure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, market.ErrNotFound):
		writeError(w, http.StatusNotFound, msgProductNotFound)
	case errors.Is(err, market.ErrForbidden):
		writeError(w, http.StatusForbidden, msgNotProductOwner)
	default:
		fail(w, r, h.Log, err, fallback)
	}
}

// invalidate drops the cached product. A deleted product also loses its
// rating aggregate.
func (h *ProductsHandler) invalidate(ctx context.Context, id string, deleted bool) {
	if h.Cache == nil {
		return
	}
	keys := []string{fmt.Sprintf(redisx.KeyProduct, id)}
	if deleted {
		keys = append(keys, fmt.Sprintf(redisx.KeyRating, id))
	}
	if err := h.Cache.Delete(ctx, keys...); err != nil {
		h.Log.WithError(err).WithField("keys", keys).Warn("product cache invalidate")
	}
}
