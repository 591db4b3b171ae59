package httpx

import (
	"context"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/market"
	"github.com/ariefcatur/go-marketplace/internal/supabase"
)

type ProductStore interface {
	List(ctx context.Context, q market.ListQuery) (market.ProductPage, error)
	Nearby(ctx context.Context, q market.NearbyQuery) ([]market.Product, error)
	Get(ctx context.Context, id string) (market.Product, error)
	Create(ctx context.Context, userID string, in market.ProductInput) (market.Product, error)
	Update(ctx context.Context, id, userID string, src market.ProductSource) (market.Product, error)
	Delete(ctx context.Context, id, userID string) error
	ListByOwner(ctx context.Context, userID string) ([]market.Product, error)
}

type CartStore interface {
	Items(ctx context.Context, userID string) ([]market.CartLine, error)
	AddItem(ctx context.Context, userID string, in market.AddItemInput) (market.CartItem, error)
	RemoveItem(ctx context.Context, itemID, userID string) error
	Clear(ctx context.Context, userID string) (int64, error)
}

type ReviewStore interface {
	ListByProduct(ctx context.Context, productID string) ([]market.Review, error)
	Create(ctx context.Context, userID string, in market.ReviewInput) (market.Review, error)
	Summary(ctx context.Context, productID string) (market.RatingSummary, error)
}

// JSONCache is the read-through cache in front of single-product reads.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type RatingCache interface {
	RatingAggregate(ctx context.Context, productID string) (count, sum int64, found bool, err error)
}

type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*supabase.SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*supabase.Session, error)
}

type SignedUploader interface {
	CreateSignedUploadURL(ctx context.Context, bucket, objectPath string) (string, error)
	PublicURL(bucket, objectPath string) string
}

// Events publishes domain events after a successful mutation.
type Events interface {
	Emit(ctx context.Context, topic, eventType, aggregateID string, payload any)
}
