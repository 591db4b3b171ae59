package market

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReviewRepo struct{ DB *pgxpool.Pool }

// ListByProduct returns reviews newest first. The author is returned as a
// bare user id; profiles are not resolved.
func (r *ReviewRepo) ListByProduct(ctx context.Context, productID string) ([]Review, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, rating, comment, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id`, productID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := make([]Review, 0)
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// Create inserts a review. A second review of the same product by the same
// user fails with ErrConflict via the (product_id, user_id) constraint.
func (r *ReviewRepo) Create(ctx context.Context, userID string, in ReviewInput) (Review, error) {
	if err := in.Validate(); err != nil {
		return Review{}, err
	}
	var rv Review
	err := r.DB.QueryRow(ctx, `
		INSERT INTO reviews (id, product_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, product_id, user_id, rating, comment, created_at`,
		uuid.NewString(), in.ProductID, userID, in.Rating, in.Comment,
	).Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrConflict) {
			return Review{}, newError(ErrConflict, "you have already reviewed this product")
		}
		return Review{}, err
	}
	return rv, nil
}

// Totals returns the review count and rating sum for a product.
func (r *ReviewRepo) Totals(ctx context.Context, productID string) (count, sum int64, err error) {
	err = r.DB.QueryRow(ctx, `
		SELECT count(*), coalesce(sum(rating), 0)
		FROM reviews WHERE product_id = $1`, productID).Scan(&count, &sum)
	if err != nil {
		return 0, 0, classify(err)
	}
	return count, sum, nil
}

func (r *ReviewRepo) Summary(ctx context.Context, productID string) (RatingSummary, error) {
	count, sum, err := r.Totals(ctx, productID)
	if err != nil {
		return RatingSummary{}, err
	}
	return NewRatingSummary(productID, count, sum), nil
}
