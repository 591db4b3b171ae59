package market

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CartRepo struct{ DB *pgxpool.Pool }

// EnsureCart returns the id of userID's cart, creating it on first use.
// The upsert is one statement against the unique user_id constraint, so
// concurrent first calls all get the same row.
func (r *CartRepo) EnsureCart(ctx context.Context, userID string) (string, error) {
	var id string
	err := r.DB.QueryRow(ctx, `
		INSERT INTO carts (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id`, uuid.NewString(), userID).Scan(&id)
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

func (r *CartRepo) Items(ctx context.Context, userID string) ([]CartLine, error) {
	cartID, err := r.EnsureCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT ci.id, ci.quantity, p.id, p.name, p.price::float8, p.image_url
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CartLine, 0)
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ID, &l.Quantity, &l.Product.ID, &l.Product.Name, &l.Product.Price, &l.Product.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AddItem puts quantity of a product in the user's cart. A second add of
// the same product increments the existing row in a single statement.
func (r *CartRepo) AddItem(ctx context.Context, userID string, in AddItemInput) (CartItem, error) {
	if err := in.Validate(); err != nil {
		return CartItem{}, err
	}
	cartID, err := r.EnsureCart(ctx, userID)
	if err != nil {
		return CartItem{}, err
	}

	var it CartItem
	err = r.DB.QueryRow(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, cart_id, product_id, quantity, created_at`,
		uuid.NewString(), cartID, in.ProductID, in.Quantity,
	).Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.CreatedAt)
	if err != nil {
		return CartItem{}, classify(err)
	}
	return it, nil
}

const cartItemOwnerSQL = `
	SELECT c.user_id
	FROM cart_items ci
	JOIN carts c ON c.id = ci.cart_id
	WHERE ci.id = $1
	FOR UPDATE OF ci`

// RemoveItem deletes one item from the caller's cart. ErrNotFound and
// ErrForbidden are both possible; callers that must not reveal existence
// treat them alike.
func (r *CartRepo) RemoveItem(ctx context.Context, itemID, userID string) error {
	return authorize(ctx, r.DB, cartItemOwnerSQL, itemID, userID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id=$1`, itemID)
		return err
	})
}

// Clear empties the user's cart and reports how many items were removed.
func (r *CartRepo) Clear(ctx context.Context, userID string) (int64, error) {
	tag, err := r.DB.Exec(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id AND c.user_id = $1`, userID)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}
