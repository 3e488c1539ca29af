package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/zsiskos/roadstartire/internal/domain"
)

const tireColumns = `id, product_id, tread_id, name, brand, year, width, aspect_ratio, rim_size,
	season, pattern, loads, price, image_url, effective_at, created_at`

// currentTires yields exactly one row per product: its revision in effect at $1.
const currentTires = `SELECT DISTINCT ON (product_id) ` + tireColumns + `
	FROM tires WHERE effective_at <= $1
	ORDER BY product_id, effective_at DESC, id DESC`

func scanTire(row rowScanner) (domain.Tire, error) {
	var t domain.Tire
	err := row.Scan(
		&t.ID,
		&t.ProductID,
		&t.TreadID,
		&t.Name,
		&t.Brand,
		&t.Year,
		&t.Width,
		&t.AspectRatio,
		&t.RimSize,
		&t.Season,
		&t.Pattern,
		&t.Loads,
		&t.Price,
		&t.ImageURL,
		&t.EffectiveAt,
		&t.CreatedAt,
	)
	return t, err
}

func collectTires(rows *sql.Rows) ([]domain.Tire, error) {
	defer rows.Close()

	var tires []domain.Tire
	for rows.Next() {
		t, err := scanTire(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tire row: %w", err)
		}
		tires = append(tires, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tires, nil
}

func (q *queries) CreateProduct(ctx context.Context, p *domain.Product) error {
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO products (sku) VALUES ($1) RETURNING id, created_at`, p.SKU,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "products_sku_key") {
			return ErrDuplicateSKU
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (q *queries) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := q.db.QueryRowContext(ctx,
		`SELECT id, sku, created_at FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.SKU, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (q *queries) ProductsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	products := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, sku, created_at FROM products WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

// CreateTire appends a revision. Existing revisions are never touched.
func (q *queries) CreateTire(ctx context.Context, t *domain.Tire) error {
	query := `INSERT INTO tires (product_id, tread_id, name, brand, year, width, aspect_ratio, rim_size,
	              season, pattern, loads, price, image_url, effective_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	          RETURNING id, created_at`

	err := q.db.QueryRowContext(ctx, query,
		t.ProductID,
		t.TreadID,
		t.Name,
		t.Brand,
		t.Year,
		t.Width,
		t.AspectRatio,
		t.RimSize,
		t.Season,
		t.Pattern,
		t.Loads,
		t.Price,
		t.ImageURL,
		t.EffectiveAt,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			if violatedConstraint(err) == "tires_tread_id_fkey" {
				return ErrTreadNotFound
			}
			return ErrProductNotFound
		}
		return fmt.Errorf("insert tire: %w", err)
	}
	return nil
}

// ListRevisions returns newest first.
func (q *queries) ListRevisions(ctx context.Context, productID int64) ([]domain.Tire, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+tireColumns+` FROM tires WHERE product_id = $1 ORDER BY effective_at DESC, id DESC`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	return collectTires(rows)
}

func (q *queries) CurrentTire(ctx context.Context, productID int64, at time.Time) (*domain.Tire, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+tireColumns+` FROM tires
		 WHERE product_id = $1 AND effective_at <= $2
		 ORDER BY effective_at DESC, id DESC LIMIT 1`,
		productID, at)
	t, err := scanTire(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoCurrentRevision
	}
	if err != nil {
		return nil, fmt.Errorf("query current tire: %w", err)
	}
	return &t, nil
}

// SearchCurrentTires filters on the current revision only, so a product whose
// older revision matched but whose current one does not is excluded.
func (q *queries) SearchCurrentTires(ctx context.Context, tq domain.TireQuery, at time.Time) ([]domain.Tire, error) {
	args := []any{at}
	var where []string
	for _, c := range []struct{ col, val string }{
		{"width", tq.Width},
		{"brand", tq.Brand},
		{"season", tq.Season},
	} {
		if c.val == "" {
			continue
		}
		args = append(args, containsPattern(c.val))
		where = append(where, fmt.Sprintf(`%s ILIKE $%d ESCAPE '\'`, c.col, len(args)))
	}

	query := `SELECT ` + tireColumns + ` FROM (` + currentTires + `) cur`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY brand, name, id"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search tires: %w", err)
	}
	return collectTires(rows)
}

func (q *queries) ListCurrentTires(ctx context.Context, f domain.ProductFilter, at time.Time) ([]domain.Tire, error) {
	args := []any{at}
	var where []string
	if f.Brand != "" {
		args = append(args, f.Brand)
		where = append(where, fmt.Sprintf("brand = $%d", len(args)))
	}
	if f.Year != "" {
		args = append(args, f.Year)
		where = append(where, fmt.Sprintf("year = $%d", len(args)))
	}
	if f.Season != "" {
		args = append(args, f.Season)
		where = append(where, fmt.Sprintf("season = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, containsPattern(f.Search))
		n := len(args)
		where = append(where, fmt.Sprintf(
			`(name ILIKE $%d ESCAPE '\' OR brand ILIKE $%d ESCAPE '\' OR pattern ILIKE $%d ESCAPE '\')`, n, n, n))
	}

	query := `SELECT ` + tireColumns + ` FROM (` + currentTires + `) cur`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY product_id"
	query, args = paginate(query, args, f.Limit, f.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tires: %w", err)
	}
	return collectTires(rows)
}

func (q *queries) CreateTread(ctx context.Context, t *domain.Tread) error {
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO treads (name, description) VALUES ($1, $2) RETURNING id`,
		t.Name, t.Description,
	).Scan(&t.ID)
	if err != nil {
		if isUniqueViolation(err, "treads_name_key") {
			return ErrDuplicateTread
		}
		return fmt.Errorf("insert tread: %w", err)
	}
	return nil
}

func (q *queries) GetTread(ctx context.Context, id int64) (*domain.Tread, error) {
	var t domain.Tread
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM treads WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query tread: %w", err)
	}
	return &t, nil
}

func (q *queries) ListTreads(ctx context.Context) ([]domain.Tread, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name, description FROM treads ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query treads: %w", err)
	}
	defer rows.Close()

	var treads []domain.Tread
	for rows.Next() {
		var t domain.Tread
		if err := rows.Scan(&t.ID, &t.Name, &t.Description); err != nil {
			return nil, fmt.Errorf("scan tread row: %w", err)
		}
		treads = append(treads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return treads, nil
}

// AddImage appends the image after the product's existing ones.
func (q *queries) AddImage(ctx context.Context, img *domain.Image) error {
	query := `INSERT INTO images (product_id, url, position)
	          VALUES ($1, $2, (SELECT COALESCE(MAX(position) + 1, 0) FROM images WHERE product_id = $1))
	          RETURNING id, position, created_at`

	err := q.db.QueryRowContext(ctx, query, img.ProductID, img.URL).Scan(&img.ID, &img.Position, &img.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

func (q *queries) ListImages(ctx context.Context, productID int64) ([]domain.Image, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, product_id, url, position, created_at FROM images
		 WHERE product_id = $1 ORDER BY position, id`, productID)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	var images []domain.Image
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.Position, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return images, nil
}

func (q *queries) DeleteImage(ctx context.Context, imageID int64) (int64, error) {
	var productID int64
	err := q.db.QueryRowContext(ctx,
		`DELETE FROM images WHERE id = $1 RETURNING product_id`, imageID,
	).Scan(&productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrImageNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("delete image: %w", err)
	}
	return productID, nil
}
