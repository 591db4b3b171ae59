package market

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultPage        = 1
	DefaultLimit       = 8
	MaxLimit           = 100
	DefaultRadiusM     = 10000.0
	MaxRadiusM         = 500000.0
	DefaultNearbyLimit = 8
	MaxQuantity        = 10000
)

type ProductInput struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Price       float64  `json:"price"`
	ImageURL    *string  `json:"image_url"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (in ProductInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" || in.Price <= 0 {
		return Invalid("name and price are required")
	}
	if in.HasLocation() {
		if !validCoord(*in.Latitude, *in.Longitude) {
			return Invalid("latitude or longitude out of range")
		}
	}
	return nil
}

// ProductSource yields the input of an update. The repo calls it only once
// the caller has been confirmed as the owner.
type ProductSource func() (ProductInput, error)

func ProductFrom(in ProductInput) ProductSource {
	return func() (ProductInput, error) { return in, nil }
}

// ProductJSON defers decoding of a request body until after the ownership check.
func ProductJSON(body []byte) ProductSource {
	return func() (ProductInput, error) {
		var in ProductInput
		if err := json.Unmarshal(body, &in); err != nil {
			return ProductInput{}, Invalid("invalid json")
		}
		return in, nil
	}
}

// HasLocation reports whether both coordinates were supplied. A lone
// latitude or longitude is ignored.
func (in ProductInput) HasLocation() bool {
	return in.Latitude != nil && in.Longitude != nil
}

type ListQuery struct {
	Search string
	Page   int
	Limit  int
}

// NewListQuery applies the listing defaults: page 1, limit 8, limit capped.
func NewListQuery(search string, page, limit int) ListQuery {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return ListQuery{Search: strings.TrimSpace(search), Page: page, Limit: limit}
}

func (q ListQuery) Offset() int { return (q.Page - 1) * q.Limit }

// TotalPages is ceil(total/limit).
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// likePattern builds a case-insensitive substring pattern with LIKE
// metacharacters in search escaped.
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(search) + "%"
}

type NearbyQuery struct {
	Lat     float64
	Lon     float64
	RadiusM float64
	Limit   int
}

// validCoord rejects NaN and infinities along with out-of-range values.
func validCoord(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func (q NearbyQuery) Normalize() (NearbyQuery, error) {
	if !validCoord(q.Lat, q.Lon) {
		return q, Invalid("lat and lon are required and must be valid coordinates")
	}
	if q.RadiusM <= 0 || math.IsNaN(q.RadiusM) {
		q.RadiusM = DefaultRadiusM
	}
	if q.RadiusM > MaxRadiusM {
		q.RadiusM = MaxRadiusM
	}
	if q.Limit < 1 {
		q.Limit = DefaultNearbyLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q, nil
}

type AddItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (in AddItemInput) Validate() error {
	if in.ProductID == "" || in.Quantity == 0 {
		return Invalid("product_id and quantity are required")
	}
	if in.Quantity < 0 {
		return Invalid("quantity must be a positive integer")
	}
	if in.Quantity > MaxQuantity {
		return Invalid("quantity must be at most 10000")
	}
	if _, err := uuid.Parse(in.ProductID); err != nil {
		return Invalid("product does not exist")
	}
	return nil
}

type ReviewInput struct {
	ProductID string  `json:"product_id"`
	Rating    int     `json:"rating"`
	Comment   *string `json:"comment"`
}

func (in ReviewInput) Validate() error {
	if in.ProductID == "" || in.Rating == 0 {
		return Invalid("product_id and rating are required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return Invalid("rating must be between 1 and 5")
	}
	if _, err := uuid.Parse(in.ProductID); err != nil {
		return Invalid("product does not exist")
	}
	return nil
}

// IsID reports whether s looks like a row id.
func IsID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
