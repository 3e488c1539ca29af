package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zsiskos/roadstartire/internal/domain"
)

const userColumns = `id, email, password_hash, first_name, last_name, is_active, is_staff, date_joined,
	company_name, business_phone, country_iso, province_iso, city, address, postal_code, hst_number,
	discount_ratio, tax_ratio, timezone`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.IsActive,
		&u.IsStaff,
		&u.DateJoined,
		&u.CompanyName,
		&u.BusinessPhone,
		&u.CountryISO,
		&u.ProvinceISO,
		&u.City,
		&u.Address,
		&u.PostalCode,
		&u.HSTNumber,
		&u.DiscountRatio,
		&u.TaxRatio,
		&u.Timezone,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (q *queries) CreateUser(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (email, password_hash, first_name, last_name, is_active, is_staff,
	              company_name, business_phone, country_iso, province_iso, city, address, postal_code,
	              hst_number, discount_ratio, tax_ratio, timezone)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	          RETURNING id, date_joined`

	err := q.db.QueryRowContext(ctx, query,
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.IsActive,
		u.IsStaff,
		u.CompanyName,
		u.BusinessPhone,
		u.CountryISO,
		u.ProvinceISO,
		u.City,
		u.Address,
		u.PostalCode,
		u.HSTNumber,
		u.DiscountRatio,
		u.TaxRatio,
		u.Timezone,
	).Scan(&u.ID, &u.DateJoined)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (q *queries) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return u, nil
}

// GetUserByEmail matches the address case-insensitively.
func (q *queries) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return u, nil
}

// UpdateUserProfile writes the self-editable fields and the active flag.
func (q *queries) UpdateUserProfile(ctx context.Context, u *domain.User) error {
	query := `UPDATE users SET email = $2, first_name = $3, last_name = $4, company_name = $5,
	              business_phone = $6, country_iso = $7, province_iso = $8, city = $9, address = $10,
	              postal_code = $11, hst_number = $12, timezone = $13, is_active = $14
	          WHERE id = $1`

	res, err := q.db.ExecContext(ctx, query,
		u.ID,
		u.Email,
		u.FirstName,
		u.LastName,
		u.CompanyName,
		u.BusinessPhone,
		u.CountryISO,
		u.ProvinceISO,
		u.City,
		u.Address,
		u.PostalCode,
		u.HSTNumber,
		u.Timezone,
		u.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return ErrEmailTaken
		}
		return fmt.Errorf("update user profile: %w", err)
	}
	return expectOneRow(res, ErrUserNotFound)
}

func (q *queries) SetUserActive(ctx context.Context, id int64, active bool) error {
	res, err := q.db.ExecContext(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return expectOneRow(res, ErrUserNotFound)
}

func (q *queries) SetUserPricing(ctx context.Context, id int64, discount, tax decimal.Decimal) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE users SET discount_ratio = $2, tax_ratio = $3 WHERE id = $1`, id, discount, tax)
	if err != nil {
		return fmt.Errorf("set user pricing: %w", err)
	}
	return expectOneRow(res, ErrUserNotFound)
}

func (q *queries) ListUsers(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	var (
		where []string
		args  []any
	)
	if f.Search != "" {
		args = append(args, containsPattern(f.Search))
		n := len(args)
		where = append(where, fmt.Sprintf(
			`(email ILIKE $%[1]d ESCAPE '\' OR first_name ILIKE $%[1]d ESCAPE '\' OR last_name ILIKE $%[1]d ESCAPE '\' OR company_name ILIKE $%[1]d ESCAPE '\')`, n))
	}
	if f.Active != nil {
		args = append(args, *f.Active)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date_joined DESC, id DESC"
	query, args = paginate(query, args, f.Limit, f.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return users, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s literally anywhere in an ILIKE ... ESCAPE '\'.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
