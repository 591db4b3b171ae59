package market

import (
	"encoding/json"
	"time"
)

const (
	EventProductCreated  = "ProductCreated"
	EventProductUpdated  = "ProductUpdated"
	EventProductDeleted  = "ProductDeleted"
	EventCartItemAdded   = "CartItemAdded"
	EventCartItemRemoved = "CartItemRemoved"
	EventReviewCreated   = "ReviewCreated"
)

const EnvelopeVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // the aggregate id
	Payload       json.RawMessage `json:"payload"`
}

type ProductPayload struct {
	ProductID string  `json:"product_id"`
	UserID    string  `json:"user_id"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price,omitempty"`
}

type CartItemPayload struct {
	ItemID    string `json:"item_id"`
	CartID    string `json:"cart_id,omitempty"`
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
}

type ReviewCreatedPayload struct {
	ReviewID  string `json:"review_id"`
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	Rating    int    `json:"rating"`
}
