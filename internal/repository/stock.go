package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/zsiskos/roadstartire/internal/domain"
)

// LockProducts takes row locks in id order so concurrent checkouts touching
// the same products cannot deadlock.
func (q *queries) LockProducts(ctx context.Context, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT id FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, pq.Array(productIDs))
	if err != nil {
		return fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	locked := 0
	for rows.Next() {
		locked++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	if locked != len(dedupe(productIDs)) {
		return ErrProductNotFound
	}
	return nil
}

func (q *queries) AppendStockEntry(ctx context.Context, e *domain.StockEntry) error {
	query := `INSERT INTO stock_entries (product_id, kind, quantity, cart_id, note)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id, created_at`

	err := q.db.QueryRowContext(ctx, query,
		e.ProductID,
		string(e.Kind),
		e.Quantity,
		e.CartID,
		e.Note,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			if violatedConstraint(err) == "stock_entries_cart_id_fkey" {
				return ErrCartNotFound
			}
			return ErrProductNotFound
		}
		return fmt.Errorf("insert stock entry: %w", err)
	}
	return nil
}

// StockLevels sums the ledger per kind. Products with no entries get a zero
// level so callers can index the map directly.
func (q *queries) StockLevels(ctx context.Context, productIDs []int64) (map[int64]domain.StockLevel, error) {
	levels := make(map[int64]domain.StockLevel, len(productIDs))
	for _, id := range productIDs {
		levels[id] = domain.StockLevel{ProductID: id}
	}
	if len(productIDs) == 0 {
		return levels, nil
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT product_id, kind, COALESCE(SUM(quantity), 0)
		 FROM stock_entries WHERE product_id = ANY($1)
		 GROUP BY product_id, kind`, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("query stock levels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID int64
			kind      string
			sum       int
		)
		if err := rows.Scan(&productID, &kind, &sum); err != nil {
			return nil, fmt.Errorf("scan stock level row: %w", err)
		}
		level := levels[productID]
		level.Apply(domain.StockEntry{Kind: domain.StockKind(kind), Quantity: sum})
		levels[productID] = level
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return levels, nil
}

func (q *queries) ListStockEntries(ctx context.Context, productID int64) ([]domain.StockEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, product_id, kind, quantity, cart_id, note, created_at
		 FROM stock_entries WHERE product_id = $1 ORDER BY created_at DESC, id DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("query stock entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.StockEntry
	for rows.Next() {
		var (
			e    domain.StockEntry
			kind string
		)
		if err := rows.Scan(&e.ID, &e.ProductID, &kind, &e.Quantity, &e.CartID, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock entry row: %w", err)
		}
		e.Kind = domain.StockKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
