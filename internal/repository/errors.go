package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email is already registered")
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateSKU      = errors.New("product with this sku already exists")
	ErrNoCurrentRevision = errors.New("product has no effective revision")
	ErrTreadNotFound     = errors.New("tread not found")
	ErrDuplicateTread    = errors.New("tread with this name already exists")
	ErrImageNotFound     = errors.New("image not found")
	ErrCartNotFound      = errors.New("cart not found")
	ErrCurrentCartExists = errors.New("user already has a current cart")
	ErrLineNotFound      = errors.New("cart line not found")
	ErrDuplicateLine     = errors.New("product is already in this cart")
	ErrShippingNotFound  = errors.New("shipping snapshot not found")
	ErrEventNotFound     = errors.New("outbox event not found")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}

func violatedConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}
