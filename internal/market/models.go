package market

import "time"

type Product struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       float64   `json:"price"`
	ImageURL    *string   `json:"image_url"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	DistanceM   *float64  `json:"distance_m,omitempty"` // set by nearby search only
	CreatedAt   time.Time `json:"created_at"`
}

type ProductPage struct {
	Data        []Product `json:"data"`
	Total       int       `json:"total"`
	TotalPages  int       `json:"totalPages"`
	CurrentPage int       `json:"currentPage"`
}

type CartItem struct {
	ID        string    `json:"id"`
	CartID    string    `json:"cart_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// CartLine is a cart item joined with the product fields the cart view shows.
type CartLine struct {
	ID       string         `json:"id"`
	Quantity int            `json:"quantity"`
	Product  ProductSummary `json:"products"`
}

type ProductSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL *string `json:"image_url"`
}

type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id,omitempty"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type RatingSummary struct {
	ProductID     string  `json:"product_id"`
	AverageRating float64 `json:"average_rating"`
	TotalCount    int64   `json:"total_count"`
}

// NewRatingSummary derives the average from a running count and sum.
func NewRatingSummary(productID string, count, sum int64) RatingSummary {
	s := RatingSummary{ProductID: productID, TotalCount: count}
	if count > 0 {
		s.AverageRating = float64(sum) / float64(count)
	}
	return s
}
