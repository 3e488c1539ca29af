package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zsiskos/roadstartire/internal/domain"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUserProfile(ctx context.Context, u *domain.User) error
	SetUserActive(ctx context.Context, id int64, active bool) error
	SetUserPricing(ctx context.Context, id int64, discount, tax decimal.Decimal) error
	ListUsers(ctx context.Context, f domain.UserFilter) ([]*domain.User, error)
}

type CatalogStore interface {
	CreateProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ProductsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
	CreateTire(ctx context.Context, t *domain.Tire) error
	ListRevisions(ctx context.Context, productID int64) ([]domain.Tire, error)
	CurrentTire(ctx context.Context, productID int64, at time.Time) (*domain.Tire, error)
	SearchCurrentTires(ctx context.Context, q domain.TireQuery, at time.Time) ([]domain.Tire, error)
	ListCurrentTires(ctx context.Context, f domain.ProductFilter, at time.Time) ([]domain.Tire, error)
	CreateTread(ctx context.Context, t *domain.Tread) error
	GetTread(ctx context.Context, id int64) (*domain.Tread, error)
	ListTreads(ctx context.Context) ([]domain.Tread, error)
	AddImage(ctx context.Context, img *domain.Image) error
	ListImages(ctx context.Context, productID int64) ([]domain.Image, error)
	DeleteImage(ctx context.Context, imageID int64) (productID int64, err error)
}

type StockStore interface {
	// LockProducts serializes stock checks on the given products until the tx ends.
	LockProducts(ctx context.Context, productIDs []int64) error
	AppendStockEntry(ctx context.Context, e *domain.StockEntry) error
	StockLevels(ctx context.Context, productIDs []int64) (map[int64]domain.StockLevel, error)
	ListStockEntries(ctx context.Context, productID int64) ([]domain.StockEntry, error)
}

type CartStore interface {
	GetCurrentCart(ctx context.Context, userID int64) (*domain.Cart, error)
	CreateCart(ctx context.Context, c *domain.Cart) error
	GetCart(ctx context.Context, cartID int64) (*domain.Cart, error)
	// LockCart loads the cart with SELECT ... FOR UPDATE.
	LockCart(ctx context.Context, cartID int64) (*domain.Cart, error)
	InsertCartLine(ctx context.Context, l *domain.CartLine) error
	UpdateCartLineQuantity(ctx context.Context, lineID int64, quantity int) error
	DeleteCartLine(ctx context.Context, lineID int64) error
	UpdateCartStatus(ctx context.Context, cartID int64, status domain.CartStatus, at time.Time) error
	SetCartRatios(ctx context.Context, cartID int64, discount, tax decimal.Decimal) error
	CountOrdersByUser(ctx context.Context, userID int64) (int, error)
	ListOrdersByUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.Cart, error)
	ListCarts(ctx context.Context, f domain.CartFilter) ([]*domain.Cart, error)
	SaveShipping(ctx context.Context, s *domain.OrderShipping) error
	GetShipping(ctx context.Context, cartID int64) (*domain.OrderShipping, error)
}

type OutboxStore interface {
	InsertOutboxEvent(ctx context.Context, aggregateID string, eventType domain.EventType, payload []byte) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

// Queries is everything that can run inside WithTx.
type Queries interface {
	UserStore
	CatalogStore
	StockStore
	CartStore
	OutboxStore
}

type RepoInterface interface {
	Queries
	WithTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
	RunMigrations(*Credentials) error
	Close() error
}
