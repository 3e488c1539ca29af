package http

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/notifylog"
	"github.com/zsiskos/roadstartire/internal/repository"
	"github.com/zsiskos/roadstartire/internal/service"
)

type UsersMock struct {
	users map[int64]*domain.User
	token string
	err   error

	signup  service.SignupInput
	profile service.ProfileInput
	active  *bool
	pricing [2]decimal.Decimal
	filter  domain.UserFilter
}

func newUsersMock(users ...*domain.User) *UsersMock {
	m := &UsersMock{users: map[int64]*domain.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *UsersMock) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *UsersMock) Signup(ctx context.Context, in service.SignupInput) (*domain.User, error) {
	m.signup = in
	if m.err != nil {
		return nil, m.err
	}
	return &domain.User{ID: 99, Email: in.Email, FirstName: in.FirstName, Timezone: "America/Toronto"}, nil
}

func (m *UsersMock) Authenticate(ctx context.Context, email, password string) (*domain.User, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, m.token, nil
		}
	}
	return nil, "", service.ErrInvalidCredentials
}

func (m *UsersMock) UpdateProfile(ctx context.Context, userID int64, in service.ProfileInput) (*domain.User, error) {
	m.profile = in
	if m.err != nil {
		return nil, m.err
	}
	u := *m.users[userID]
	u.Email = in.Email
	u.IsActive = false
	return &u, nil
}

func (m *UsersMock) SetActive(ctx context.Context, userID int64, active bool) (*domain.User, error) {
	m.active = &active
	if m.err != nil {
		return nil, m.err
	}
	u, err := m.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.IsActive = active
	return u, nil
}

func (m *UsersMock) SetPricing(ctx context.Context, userID int64, discount, tax decimal.Decimal) (*domain.User, error) {
	m.pricing = [2]decimal.Decimal{discount, tax}
	if m.err != nil {
		return nil, m.err
	}
	u, err := m.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.DiscountRatio, u.TaxRatio = discount, tax
	return u, nil
}

func (m *UsersMock) ListUsers(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	m.filter = f
	var out []*domain.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, m.err
}

type CartsMock struct {
	cart   *domain.Cart
	order  *domain.Order
	orders []domain.Order
	page   *service.OrderPage
	err    error

	userID    int64
	productID int64
	lineID    int64
	cartID    int64
	quantity  int
	rawPage   string
	filter    domain.CartFilter
	ratios    [2]decimal.Decimal
}

func (m *CartsMock) GetCurrentCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	m.userID = userID
	return m.cart, m.err
}

func (m *CartsMock) AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error) {
	m.userID, m.productID, m.quantity = userID, productID, quantity
	return m.cart, m.err
}

func (m *CartsMock) UpdateQuantity(ctx context.Context, userID, lineID int64, quantity int) (*domain.Cart, error) {
	m.userID, m.lineID, m.quantity = userID, lineID, quantity
	return m.cart, m.err
}

func (m *CartsMock) RemoveItem(ctx context.Context, userID, lineID int64) (*domain.Cart, error) {
	m.userID, m.lineID = userID, lineID
	return m.cart, m.err
}

func (m *CartsMock) PlaceOrder(ctx context.Context, userID, cartID int64) (*domain.Order, error) {
	m.userID, m.cartID = userID, cartID
	return m.order, m.err
}

func (m *CartsMock) CancelOrder(ctx context.Context, userID, cartID int64) (*domain.Order, error) {
	m.userID, m.cartID = userID, cartID
	return m.order, m.err
}

func (m *CartsMock) GetOrder(ctx context.Context, userID, cartID int64) (*domain.Order, error) {
	m.userID, m.cartID = userID, cartID
	return m.order, m.err
}

func (m *CartsMock) ListOrders(ctx context.Context, userID int64, rawPage string) (*service.OrderPage, error) {
	m.userID, m.rawPage = userID, rawPage
	return m.page, m.err
}

func (m *CartsMock) GetCart(ctx context.Context, cartID int64) (*domain.Order, error) {
	m.cartID = cartID
	return m.order, m.err
}

func (m *CartsMock) ListCarts(ctx context.Context, f domain.CartFilter) ([]domain.Order, error) {
	m.filter = f
	return m.orders, m.err
}

func (m *CartsMock) FulfillOrder(ctx context.Context, cartID int64) (*domain.Order, error) {
	m.cartID = cartID
	return m.order, m.err
}

func (m *CartsMock) CancelOrderAsStaff(ctx context.Context, cartID int64) (*domain.Order, error) {
	m.cartID = cartID
	return m.order, m.err
}

func (m *CartsMock) SetCartRatios(ctx context.Context, cartID int64, discount, tax decimal.Decimal) (*domain.Cart, error) {
	m.cartID = cartID
	m.ratios = [2]decimal.Decimal{discount, tax}
	return m.cart, m.err
}

type CatalogMock struct {
	item  *domain.CatalogItem
	items []domain.CatalogItem
	tires []domain.Tire
	err   error

	sku         string
	spec        domain.TireSpec
	effectiveAt time.Time
	query       domain.TireQuery
	filter      domain.ProductFilter
	removed     int64
}

func (m *CatalogMock) CreateProduct(ctx context.Context, sku string, spec domain.TireSpec) (*domain.CatalogItem, error) {
	m.sku, m.spec = sku, spec
	return m.item, m.err
}

func (m *CatalogMock) ReviseProduct(ctx context.Context, productID int64, spec domain.TireSpec, effectiveAt time.Time) (*domain.Tire, error) {
	m.spec, m.effectiveAt = spec, effectiveAt
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Tire{ID: 2, ProductID: productID, EffectiveAt: effectiveAt, TireSpec: spec}, nil
}

func (m *CatalogMock) GetProduct(ctx context.Context, productID int64) (*domain.CatalogItem, error) {
	return m.item, m.err
}

func (m *CatalogMock) ListRevisions(ctx context.Context, productID int64) ([]domain.Tire, error) {
	return m.tires, m.err
}

func (m *CatalogMock) Search(ctx context.Context, q domain.TireQuery) ([]domain.Tire, error) {
	m.query = q
	if q.Empty() {
		return nil, service.ErrEmptySearch
	}
	return m.tires, m.err
}

func (m *CatalogMock) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.CatalogItem, error) {
	m.filter = f
	return m.items, m.err
}

func (m *CatalogMock) CreateTread(ctx context.Context, name, description string) (*domain.Tread, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Tread{ID: 1, Name: name, Description: description}, nil
}

func (m *CatalogMock) ListTreads(ctx context.Context) ([]domain.Tread, error) {
	return []domain.Tread{{ID: 1, Name: "Highway"}}, m.err
}

func (m *CatalogMock) AddImage(ctx context.Context, productID int64, url string) (*domain.Image, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Image{ID: 5, ProductID: productID, URL: url}, nil
}

func (m *CatalogMock) RemoveImage(ctx context.Context, imageID int64) error {
	m.removed = imageID
	return m.err
}

type StockMock struct {
	entries []domain.StockEntry
	err     error

	kind     domain.StockKind
	quantity int
	note     string
}

func (m *StockMock) Receive(ctx context.Context, productID int64, quantity int, note string) (*domain.StockEntry, error) {
	return m.record(domain.StockReceived, productID, quantity, note)
}

func (m *StockMock) Shrink(ctx context.Context, productID int64, quantity int, note string) (*domain.StockEntry, error) {
	return m.record(domain.StockShrink, productID, quantity, note)
}

func (m *StockMock) record(kind domain.StockKind, productID int64, quantity int, note string) (*domain.StockEntry, error) {
	m.kind, m.quantity, m.note = kind, quantity, note
	if m.err != nil {
		return nil, m.err
	}
	return &domain.StockEntry{ID: 1, ProductID: productID, Kind: kind, Quantity: quantity, Note: note}, nil
}

func (m *StockMock) History(ctx context.Context, productID int64) ([]domain.StockEntry, error) {
	return m.entries, m.err
}

type DeliveriesMock struct {
	deliveries []notifylog.Delivery
	recipient  string
	limit      int64
}

func (m *DeliveriesMock) ListByRecipient(ctx context.Context, recipient string, limit int64) ([]notifylog.Delivery, error) {
	m.recipient, m.limit = recipient, limit
	return m.deliveries, nil
}
