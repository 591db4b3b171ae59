package market

const (
	TopicProductCreated  = "market.product.created"
	TopicProductUpdated  = "market.product.updated"
	TopicProductDeleted  = "market.product.deleted"
	TopicCartItemAdded   = "market.cart.item_added"
	TopicCartItemRemoved = "market.cart.item_removed"
	TopicReviewCreated   = "market.review.created"
)

// PartitionKey keeps every event of one aggregate on one partition.
func PartitionKey(id string) []byte { return []byte(id) }
