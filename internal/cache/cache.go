package cache

import (
	"context"
	"errors"

	"github.com/zsiskos/roadstartire/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, userID int64) (*domain.Cart, error)
	Set(ctx context.Context, userID int64, cart *domain.Cart) error
	Delete(ctx context.Context, userID int64) error
}

type ProductCache interface {
	Get(ctx context.Context, productID int64) (*domain.CatalogItem, error)
	Set(ctx context.Context, item *domain.CatalogItem) error
	// SetNotFound remembers a miss for a short while so unknown ids do not hit the db.
	SetNotFound(ctx context.Context, productID int64) error
	Delete(ctx context.Context, productIDs ...int64) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrCachedNotFound means the database was asked recently and had nothing.
	ErrCachedNotFound = errors.New("cached not found")
)
