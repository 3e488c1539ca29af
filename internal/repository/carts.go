package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/zsiskos/roadstartire/internal/domain"
)

const cartColumns = `c.id, c.user_id, c.status, c.discount_ratio_applied, c.tax_ratio_applied,
	c.created_at, c.updated_at, c.ordered_at, c.closed_at`

func scanCart(row rowScanner) (*domain.Cart, error) {
	var c domain.Cart
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Status,
		&c.DiscountRatioApplied,
		&c.TaxRatioApplied,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.OrderedAt,
		&c.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCurrentCart returns ErrCartNotFound when the user has no CURRENT cart.
func (q *queries) GetCurrentCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+cartColumns+` FROM carts c WHERE c.user_id = $1 AND c.status = $2`,
		userID, domain.CartStatusCurrent)
	return q.loadCart(ctx, row, "query current cart")
}

func (q *queries) GetCart(ctx context.Context, cartID int64) (*domain.Cart, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+cartColumns+` FROM carts c WHERE c.id = $1`, cartID)
	return q.loadCart(ctx, row, "query cart")
}

func (q *queries) LockCart(ctx context.Context, cartID int64) (*domain.Cart, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+cartColumns+` FROM carts c WHERE c.id = $1 FOR UPDATE`, cartID)
	return q.loadCart(ctx, row, "lock cart")
}

func (q *queries) loadCart(ctx context.Context, row *sql.Row, op string) (*domain.Cart, error) {
	c, err := scanCart(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := q.attachLines(ctx, []*domain.Cart{c}); err != nil {
		return nil, err
	}
	return c, nil
}

// attachLines loads the lines of all carts in one query.
func (q *queries) attachLines(ctx context.Context, carts []*domain.Cart) error {
	if len(carts) == 0 {
		return nil
	}
	ids := make([]int64, len(carts))
	byID := make(map[int64]*domain.Cart, len(carts))
	for i, c := range carts {
		ids[i] = c.ID
		c.Lines = []domain.CartLine{}
		byID[c.ID] = c
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT cd.id, cd.cart_id, cd.product_id, cd.tire_id, t.name, t.brand,
		        cd.quantity, cd.price_each, cd.created_at, cd.updated_at
		 FROM cart_details cd JOIN tires t ON t.id = cd.tire_id
		 WHERE cd.cart_id = ANY($1)
		 ORDER BY cd.cart_id, cd.id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(
			&l.ID,
			&l.CartID,
			&l.ProductID,
			&l.TireID,
			&l.ProductName,
			&l.Brand,
			&l.Quantity,
			&l.PriceEach,
			&l.CreatedAt,
			&l.UpdatedAt,
		); err != nil {
			return fmt.Errorf("scan cart line row: %w", err)
		}
		c := byID[l.CartID]
		c.Lines = append(c.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

func (q *queries) CreateCart(ctx context.Context, c *domain.Cart) error {
	query := `INSERT INTO carts (user_id, status, discount_ratio_applied, tax_ratio_applied)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, created_at, updated_at`

	err := q.db.QueryRowContext(ctx, query,
		c.UserID,
		c.Status,
		c.DiscountRatioApplied,
		c.TaxRatioApplied,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "uniq_carts_current_per_user") {
			return ErrCurrentCartExists
		}
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("insert cart: %w", err)
	}
	if c.Lines == nil {
		c.Lines = []domain.CartLine{}
	}
	return nil
}

func (q *queries) InsertCartLine(ctx context.Context, l *domain.CartLine) error {
	query := `INSERT INTO cart_details (cart_id, product_id, tire_id, quantity, price_each)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id, created_at, updated_at`

	err := q.db.QueryRowContext(ctx, query,
		l.CartID,
		l.ProductID,
		l.TireID,
		l.Quantity,
		l.PriceEach,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "uniq_cart_details_cart_product") {
			return ErrDuplicateLine
		}
		if isForeignKeyViolation(err) {
			if violatedConstraint(err) == "cart_details_cart_id_fkey" {
				return ErrCartNotFound
			}
			return ErrProductNotFound
		}
		return fmt.Errorf("insert cart line: %w", err)
	}
	return q.touchCart(ctx, l.CartID)
}

func (q *queries) UpdateCartLineQuantity(ctx context.Context, lineID int64, quantity int) error {
	var cartID int64
	err := q.db.QueryRowContext(ctx,
		`UPDATE cart_details SET quantity = $2, updated_at = NOW() WHERE id = $1 RETURNING cart_id`,
		lineID, quantity,
	).Scan(&cartID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLineNotFound
	}
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	return q.touchCart(ctx, cartID)
}

func (q *queries) DeleteCartLine(ctx context.Context, lineID int64) error {
	var cartID int64
	err := q.db.QueryRowContext(ctx,
		`DELETE FROM cart_details WHERE id = $1 RETURNING cart_id`, lineID,
	).Scan(&cartID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLineNotFound
	}
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return q.touchCart(ctx, cartID)
}

func (q *queries) touchCart(ctx context.Context, cartID int64) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

// UpdateCartStatus stamps ordered_at when the cart becomes an order and
// closed_at when it reaches a terminal status. Transition rules are the
// caller's concern.
func (q *queries) UpdateCartStatus(ctx context.Context, cartID int64, status domain.CartStatus, at time.Time) error {
	query := `UPDATE carts SET
	              status = $2,
	              updated_at = $3,
	              ordered_at = CASE WHEN $4::boolean THEN $3::timestamptz ELSE ordered_at END,
	              closed_at = CASE WHEN $5::boolean THEN $3::timestamptz ELSE closed_at END
	          WHERE id = $1`

	res, err := q.db.ExecContext(ctx, query,
		cartID,
		status,
		at,
		status == domain.CartStatusInProgress,
		status.IsClosed(),
	)
	if err != nil {
		if isUniqueViolation(err, "uniq_carts_current_per_user") {
			return ErrCurrentCartExists
		}
		return fmt.Errorf("update cart status: %w", err)
	}
	return expectOneRow(res, ErrCartNotFound)
}

func (q *queries) SetCartRatios(ctx context.Context, cartID int64, discount, tax decimal.Decimal) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE carts SET discount_ratio_applied = $2, tax_ratio_applied = $3, updated_at = NOW() WHERE id = $1`,
		cartID, discount, tax)
	if err != nil {
		return fmt.Errorf("set cart ratios: %w", err)
	}
	return expectOneRow(res, ErrCartNotFound)
}

var orderStatuses = []int64{
	int64(domain.CartStatusInProgress),
	int64(domain.CartStatusCancelled),
	int64(domain.CartStatusFulfilled),
}

func (q *queries) CountOrdersByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM carts WHERE user_id = $1 AND status = ANY($2)`,
		userID, pq.Array(orderStatuses),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// ListOrdersByUser skips CURRENT and ABANDONED carts, newest order first.
func (q *queries) ListOrdersByUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.Cart, error) {
	query, args := paginate(
		`SELECT `+cartColumns+` FROM carts c
		 WHERE c.user_id = $1 AND c.status = ANY($2)
		 ORDER BY c.ordered_at DESC NULLS LAST, c.id DESC`,
		[]any{userID, pq.Array(orderStatuses)}, limit, offset)
	return q.listCarts(ctx, query, args, "query orders")
}

func (q *queries) ListCarts(ctx context.Context, f domain.CartFilter) ([]*domain.Cart, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("c.status = $%d", len(args)))
	}
	if f.EmailSearch != "" {
		args = append(args, containsPattern(f.EmailSearch))
		where = append(where, fmt.Sprintf(`u.email ILIKE $%d ESCAPE '\'`, len(args)))
	}
	if f.OrderedAfter != nil {
		args = append(args, *f.OrderedAfter)
		where = append(where, fmt.Sprintf("c.ordered_at >= $%d", len(args)))
	}
	if f.OrderedTo != nil {
		args = append(args, *f.OrderedTo)
		where = append(where, fmt.Sprintf("c.ordered_at < $%d", len(args)))
	}

	query := `SELECT ` + cartColumns + ` FROM carts c JOIN users u ON u.id = c.user_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.updated_at DESC, c.id DESC"
	query, args = paginate(query, args, f.Limit, f.Offset)
	return q.listCarts(ctx, query, args, "query carts")
}

func (q *queries) listCarts(ctx context.Context, query string, args []any, op string) ([]*domain.Cart, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var carts []*domain.Cart
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		carts = append(carts, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	if err := q.attachLines(ctx, carts); err != nil {
		return nil, err
	}
	return carts, nil
}

func (q *queries) SaveShipping(ctx context.Context, s *domain.OrderShipping) error {
	query := `INSERT INTO order_shipping (cart_id, company_name, full_name, email, business_phone, address,
	              city, province_iso, postal_code, country_iso, hst_number, captured_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := q.db.ExecContext(ctx, query,
		s.CartID,
		s.CompanyName,
		s.FullName,
		s.Email,
		s.BusinessPhone,
		s.Address,
		s.City,
		s.ProvinceISO,
		s.PostalCode,
		s.CountryISO,
		s.HSTNumber,
		s.CapturedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCartNotFound
		}
		return fmt.Errorf("insert shipping: %w", err)
	}
	return nil
}

func (q *queries) GetShipping(ctx context.Context, cartID int64) (*domain.OrderShipping, error) {
	var s domain.OrderShipping
	err := q.db.QueryRowContext(ctx,
		`SELECT cart_id, company_name, full_name, email, business_phone, address, city,
		        province_iso, postal_code, country_iso, hst_number, captured_at
		 FROM order_shipping WHERE cart_id = $1`, cartID,
	).Scan(
		&s.CartID,
		&s.CompanyName,
		&s.FullName,
		&s.Email,
		&s.BusinessPhone,
		&s.Address,
		&s.City,
		&s.ProvinceISO,
		&s.PostalCode,
		&s.CountryISO,
		&s.HSTNumber,
		&s.CapturedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShippingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query shipping: %w", err)
	}
	return &s, nil
}
