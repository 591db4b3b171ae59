package market

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepo struct{ DB *pgxpool.Pool }

const productColumns = `id, user_id, name, description, price::float8, image_url,
	ST_Y(location::geometry), ST_X(location::geometry), created_at`

func scanProduct(row pgx.Row, p *Product, extra ...any) error {
	dest := append([]any{
		&p.ID, &p.UserID, &p.Name, &p.Description, &p.Price, &p.ImageURL,
		&p.Latitude, &p.Longitude, &p.CreatedAt,
	}, extra...)
	return row.Scan(dest...)
}

func collectProducts(rows pgx.Rows, withDistance bool) ([]Product, error) {
	defer rows.Close()
	out := make([]Product, 0)
	for rows.Next() {
		var p Product
		var err error
		if withDistance {
			var d float64
			err = scanProduct(rows, &p, &d)
			p.DistanceM = &d
		} else {
			err = scanProduct(rows, &p)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// List returns one page of products, newest first, optionally filtered by a
// case-insensitive substring of the name.
func (r *ProductRepo) List(ctx context.Context, q ListQuery) (ProductPage, error) {
	var pattern *string
	if q.Search != "" {
		p := likePattern(q.Search)
		pattern = &p
	}

	var total int
	if err := r.DB.QueryRow(ctx,
		`SELECT count(*) FROM products WHERE $1::text IS NULL OR name ILIKE $1`, pattern,
	).Scan(&total); err != nil {
		return ProductPage{}, err
	}

	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+`
		FROM products
		WHERE $1::text IS NULL OR name ILIKE $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, pattern, q.Limit, q.Offset())
	if err != nil {
		return ProductPage{}, err
	}
	data, err := collectProducts(rows, false)
	if err != nil {
		return ProductPage{}, err
	}

	return ProductPage{
		Data:        data,
		Total:       total,
		TotalPages:  TotalPages(total, q.Limit),
		CurrentPage: q.Page,
	}, nil
}

// Nearby returns products within q.RadiusM metres of (q.Lat, q.Lon),
// closest first. Products without a location never match.
func (r *ProductRepo) Nearby(ctx context.Context, q NearbyQuery) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+`, ST_Distance(location, ref.geog)
		FROM products,
		     (SELECT ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography AS geog) AS ref
		WHERE location IS NOT NULL AND ST_DWithin(location, ref.geog, $3)
		ORDER BY location <-> ref.geog
		LIMIT $4`, q.Lon, q.Lat, q.RadiusM, q.Limit)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows, true)
}

func (r *ProductRepo) Get(ctx context.Context, id string) (Product, error) {
	var p Product
	err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id), &p)
	if err != nil {
		return Product{}, classify(err)
	}
	return p, nil
}

func (r *ProductRepo) Create(ctx context.Context, userID string, in ProductInput) (Product, error) {
	lat, lon := in.Latitude, in.Longitude
	if !in.HasLocation() {
		lat, lon = nil, nil
	}

	var p Product
	err := scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products (id, user_id, name, description, price, image_url, location)
		VALUES ($1, $2, $3, $4, $5, $6,
		        CASE WHEN $7::float8 IS NULL OR $8::float8 IS NULL THEN NULL
		             ELSE ST_SetSRID(ST_MakePoint($8, $7), 4326)::geography END)
		RETURNING `+productColumns,
		uuid.NewString(), userID, in.Name, in.Description, in.Price, in.ImageURL, lat, lon,
	), &p)
	if err != nil {
		return Product{}, classify(err)
	}
	return p, nil
}

const productOwnerSQL = `SELECT user_id FROM products WHERE id=$1 FOR UPDATE`

// Update changes name, description and price. src is only read after the
// ownership check, so a non-owner never learns why a body is bad.
func (r *ProductRepo) Update(ctx context.Context, id, userID string, src ProductSource) (Product, error) {
	var p Product
	err := authorize(ctx, r.DB, productOwnerSQL, id, userID, func(tx pgx.Tx) error {
		in, err := src()
		if err != nil {
			return err
		}
		if err := in.Validate(); err != nil {
			return err
		}
		return scanProduct(tx.QueryRow(ctx, `
			UPDATE products SET name=$2, description=$3, price=$4
			WHERE id=$1
			RETURNING `+productColumns, id, in.Name, in.Description, in.Price), &p)
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *ProductRepo) Delete(ctx context.Context, id, userID string) error {
	return authorize(ctx, r.DB, productOwnerSQL, id, userID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
		return err
	})
}

func (r *ProductRepo) ListByOwner(ctx context.Context, userID string) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+`
		FROM products WHERE user_id=$1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, classify(err)
	}
	return collectProducts(rows, false)
}
