package redisx

import "time"

const (
	// Product by id: product:{id} -> product JSON
	KeyProduct = "product:%s"

	// Resolved bearer token: identity:{sha256(token)} -> identity JSON
	KeyIdentity = "identity:%s"

	// Rating aggregate per product: hash rating:{product_id} {count, sum}
	KeyRating = "rating:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLProduct  = 5 * time.Minute
	TTLIdentity = time.Minute
	TTLDedup    = 48 * time.Hour
	TTLRating   = 24 * time.Hour
)
