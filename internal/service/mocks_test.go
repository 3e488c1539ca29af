package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zsiskos/roadstartire/internal/cache"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/repository"
)

// memRepo is an in-memory RepoInterface. WithTx runs fn against the same
// store and discards every change when fn fails.
type memRepo struct {
	mu sync.Mutex

	nextID    int64
	users     map[int64]*domain.User
	products  map[int64]*domain.Product
	tires     []domain.Tire
	treads    map[int64]*domain.Tread
	images    []domain.Image
	stock     []domain.StockEntry
	carts     map[int64]*domain.Cart
	shipping  map[int64]*domain.OrderShipping
	outbox    []*repository.OutboxEvent
	processed map[int64]bool

	// failOn makes the named method return the error once.
	failOn map[string]error
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:     map[int64]*domain.User{},
		products:  map[int64]*domain.Product{},
		treads:    map[int64]*domain.Tread{},
		carts:     map[int64]*domain.Cart{},
		shipping:  map[int64]*domain.OrderShipping{},
		processed: map[int64]bool{},
		failOn:    map[string]error{},
	}
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) fail(name string) error {
	if err, ok := m.failOn[name]; ok {
		delete(m.failOn, name)
		return err
	}
	return nil
}

type memSnapshot struct {
	nextID   int64
	users    map[int64]domain.User
	products map[int64]domain.Product
	tires    []domain.Tire
	treads   map[int64]domain.Tread
	images   []domain.Image
	stock    []domain.StockEntry
	carts    map[int64]domain.Cart
	shipping map[int64]domain.OrderShipping
	outbox   []*repository.OutboxEvent
}

func (m *memRepo) snapshot() memSnapshot {
	s := memSnapshot{
		nextID:   m.nextID,
		users:    map[int64]domain.User{},
		products: map[int64]domain.Product{},
		tires:    append([]domain.Tire(nil), m.tires...),
		treads:   map[int64]domain.Tread{},
		images:   append([]domain.Image(nil), m.images...),
		stock:    append([]domain.StockEntry(nil), m.stock...),
		carts:    map[int64]domain.Cart{},
		shipping: map[int64]domain.OrderShipping{},
		outbox:   append([]*repository.OutboxEvent(nil), m.outbox...),
	}
	for k, v := range m.users {
		s.users[k] = *v
	}
	for k, v := range m.products {
		s.products[k] = *v
	}
	for k, v := range m.treads {
		s.treads[k] = *v
	}
	for k, v := range m.carts {
		c := *v
		c.Lines = append([]domain.CartLine(nil), v.Lines...)
		s.carts[k] = c
	}
	for k, v := range m.shipping {
		s.shipping[k] = *v
	}
	return s
}

func (m *memRepo) restore(s memSnapshot) {
	m.nextID = s.nextID
	m.users = map[int64]*domain.User{}
	for k, v := range s.users {
		u := v
		m.users[k] = &u
	}
	m.products = map[int64]*domain.Product{}
	for k, v := range s.products {
		p := v
		m.products[k] = &p
	}
	m.tires = s.tires
	m.treads = map[int64]*domain.Tread{}
	for k, v := range s.treads {
		t := v
		m.treads[k] = &t
	}
	m.images = s.images
	m.stock = s.stock
	m.carts = map[int64]*domain.Cart{}
	for k, v := range s.carts {
		c := v
		m.carts[k] = &c
	}
	m.shipping = map[int64]*domain.OrderShipping{}
	for k, v := range s.shipping {
		sh := v
		m.shipping[k] = &sh
	}
	m.outbox = s.outbox
}

func (m *memRepo) WithTx(_ context.Context, fn func(q repository.Queries) error) error {
	m.mu.Lock()
	snap := m.snapshot()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memRepo) Ping(context.Context) error { return nil }
func (m *memRepo) RunMigrations(*repository.Credentials) error { return nil }
func (m *memRepo) Close() error { return nil }

// users

func (m *memRepo) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateUser"); err != nil {
		return err
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrEmailTaken
		}
	}
	u.ID = m.id()
	u.DateJoined = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepo) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memRepo) UpdateUserProfile(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	hash, staff, discount, tax := existing.PasswordHash, existing.IsStaff, existing.DiscountRatio, existing.TaxRatio
	cp := *u
	cp.PasswordHash, cp.IsStaff, cp.DiscountRatio, cp.TaxRatio = hash, staff, discount, tax
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepo) SetUserActive(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (m *memRepo) SetUserPricing(_ context.Context, id int64, discount, tax decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.DiscountRatio, u.TaxRatio = discount, tax
	return nil
}

func (m *memRepo) ListUsers(_ context.Context, f domain.UserFilter) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for _, u := range m.users {
		if f.Active != nil && u.IsActive != *f.Active {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(u.Email+u.CompanyName), strings.ToLower(f.Search)) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// catalog

func (m *memRepo) CreateProduct(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.products {
		if existing.SKU == p.SKU {
			return repository.ErrDuplicateSKU
		}
	}
	p.ID = m.id()
	p.CreatedAt = time.Now()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *memRepo) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) ProductsByIDs(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]domain.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

func (m *memRepo) CreateTire(_ context.Context, t *domain.Tire) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[t.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	if t.TreadID != nil {
		if _, ok := m.treads[*t.TreadID]; !ok {
			return repository.ErrTreadNotFound
		}
	}
	t.ID = m.id()
	t.CreatedAt = time.Now()
	m.tires = append(m.tires, *t)
	return nil
}

func (m *memRepo) revisions(productID int64) []domain.Tire {
	var out []domain.Tire
	for _, t := range m.tires {
		if t.ProductID == productID {
			out = append(out, t)
		}
	}
	return out
}

func (m *memRepo) ListRevisions(_ context.Context, productID int64) ([]domain.Tire, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.revisions(productID)
	sort.Slice(out, func(i, j int) bool {
		if out[i].EffectiveAt.Equal(out[j].EffectiveAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].EffectiveAt.After(out[j].EffectiveAt)
	})
	return out, nil
}

func (m *memRepo) CurrentTire(_ context.Context, productID int64, at time.Time) (*domain.Tire, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := domain.CurrentRevision(m.revisions(productID), at)
	if !ok {
		return nil, repository.ErrNoCurrentRevision
	}
	cp := *cur
	return &cp, nil
}

func (m *memRepo) currentTires(at time.Time) []domain.Tire {
	var out []domain.Tire
	ids := make([]int64, 0, len(m.products))
	for id := range m.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if cur, ok := domain.CurrentRevision(m.revisions(id), at); ok {
			out = append(out, *cur)
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (m *memRepo) SearchCurrentTires(_ context.Context, q domain.TireQuery, at time.Time) ([]domain.Tire, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Tire
	for _, t := range m.currentTires(at) {
		if containsFold(t.Width, q.Width) && containsFold(t.Brand, q.Brand) && containsFold(t.Season, q.Season) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memRepo) ListCurrentTires(_ context.Context, f domain.ProductFilter, at time.Time) ([]domain.Tire, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Tire
	for _, t := range m.currentTires(at) {
		if f.Brand != "" && t.Brand != f.Brand {
			continue
		}
		if f.Season != "" && t.Season != f.Season {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memRepo) CreateTread(_ context.Context, t *domain.Tread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.treads {
		if existing.Name == t.Name {
			return repository.ErrDuplicateTread
		}
	}
	t.ID = m.id()
	cp := *t
	m.treads[t.ID] = &cp
	return nil
}

func (m *memRepo) GetTread(_ context.Context, id int64) (*domain.Tread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.treads[id]
	if !ok {
		return nil, repository.ErrTreadNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memRepo) ListTreads(context.Context) ([]domain.Tread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Tread
	for _, t := range m.treads {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memRepo) AddImage(_ context.Context, img *domain.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[img.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	pos := 0
	for _, existing := range m.images {
		if existing.ProductID == img.ProductID && existing.Position >= pos {
			pos = existing.Position + 1
		}
	}
	img.ID = m.id()
	img.Position = pos
	img.CreatedAt = time.Now()
	m.images = append(m.images, *img)
	return nil
}

func (m *memRepo) ListImages(_ context.Context, productID int64) ([]domain.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Image
	for _, img := range m.images {
		if img.ProductID == productID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (m *memRepo) DeleteImage(_ context.Context, imageID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, img := range m.images {
		if img.ID == imageID {
			m.images = append(m.images[:i:i], m.images[i+1:]...)
			return img.ProductID, nil
		}
	}
	return 0, repository.ErrImageNotFound
}

// stock

func (m *memRepo) LockProducts(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if _, ok := m.products[id]; !ok {
			return repository.ErrProductNotFound
		}
	}
	return nil
}

func (m *memRepo) AppendStockEntry(_ context.Context, e *domain.StockEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AppendStockEntry"); err != nil {
		return err
	}
	if _, ok := m.products[e.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	e.ID = m.id()
	e.CreatedAt = time.Now()
	m.stock = append(m.stock, *e)
	return nil
}

func (m *memRepo) StockLevels(_ context.Context, ids []int64) (map[int64]domain.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]domain.StockLevel{}
	for _, id := range ids {
		level := domain.StockLevel{ProductID: id}
		for _, e := range m.stock {
			if e.ProductID == id {
				level.Apply(e)
			}
		}
		out[id] = level
	}
	return out, nil
}

func (m *memRepo) ListStockEntries(_ context.Context, productID int64) ([]domain.StockEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StockEntry
	for i := len(m.stock) - 1; i >= 0; i-- {
		if m.stock[i].ProductID == productID {
			out = append(out, m.stock[i])
		}
	}
	return out, nil
}

// carts

func (m *memRepo) cartCopy(c *domain.Cart) *domain.Cart {
	cp := *c
	cp.Lines = []domain.CartLine{}
	for _, l := range c.Lines {
		for _, t := range m.tires {
			if t.ID == l.TireID {
				l.ProductName, l.Brand = t.Name, t.Brand
			}
		}
		cp.Lines = append(cp.Lines, l)
	}
	return &cp
}

func (m *memRepo) GetCurrentCart(_ context.Context, userID int64) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if c.UserID == userID && c.Status == domain.CartStatusCurrent {
			return m.cartCopy(c), nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (m *memRepo) CreateCart(_ context.Context, c *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.Status == domain.CartStatusCurrent {
		for _, existing := range m.carts {
			if existing.UserID == c.UserID && existing.Status == domain.CartStatusCurrent {
				return repository.ErrCurrentCartExists
			}
		}
	}
	c.ID = m.id()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	c.Lines = []domain.CartLine{}
	cp := *c
	m.carts[c.ID] = &cp
	return nil
}

func (m *memRepo) GetCart(_ context.Context, cartID int64) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return m.cartCopy(c), nil
}

func (m *memRepo) LockCart(ctx context.Context, cartID int64) (*domain.Cart, error) {
	return m.GetCart(ctx, cartID)
}

func (m *memRepo) InsertCartLine(_ context.Context, l *domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[l.CartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	for _, existing := range c.Lines {
		if existing.ProductID == l.ProductID {
			return repository.ErrDuplicateLine
		}
	}
	l.ID = m.id()
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	c.Lines = append(c.Lines, *l)
	return nil
}

func (m *memRepo) findLine(lineID int64) (*domain.Cart, int) {
	for _, c := range m.carts {
		for i, l := range c.Lines {
			if l.ID == lineID {
				return c, i
			}
		}
	}
	return nil, -1
}

func (m *memRepo) UpdateCartLineQuantity(_ context.Context, lineID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, i := m.findLine(lineID)
	if c == nil {
		return repository.ErrLineNotFound
	}
	c.Lines[i].Quantity = quantity
	return nil
}

func (m *memRepo) DeleteCartLine(_ context.Context, lineID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, i := m.findLine(lineID)
	if c == nil {
		return repository.ErrLineNotFound
	}
	c.Lines = append(c.Lines[:i:i], c.Lines[i+1:]...)
	return nil
}

func (m *memRepo) UpdateCartStatus(_ context.Context, cartID int64, status domain.CartStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	c.Status = status
	c.UpdatedAt = at
	if status == domain.CartStatusInProgress {
		c.OrderedAt = &at
	}
	if status.IsClosed() {
		c.ClosedAt = &at
	}
	return nil
}

func (m *memRepo) SetCartRatios(_ context.Context, cartID int64, discount, tax decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	c.DiscountRatioApplied, c.TaxRatioApplied = discount, tax
	return nil
}

func (m *memRepo) orders(userID int64) []*domain.Cart {
	var out []*domain.Cart
	for _, c := range m.carts {
		if c.UserID == userID && c.Status.IsOrder() {
			out = append(out, m.cartCopy(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderedAt.Equal(*out[j].OrderedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].OrderedAt.After(*out[j].OrderedAt)
	})
	return out
}

func (m *memRepo) CountOrdersByUser(_ context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders(userID)), nil
}

func (m *memRepo) ListOrdersByUser(_ context.Context, userID int64, limit, offset int) ([]*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.orders(userID)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memRepo) ListCarts(_ context.Context, f domain.CartFilter) ([]*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Cart
	for _, c := range m.carts {
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.EmailSearch != "" && !containsFold(m.users[c.UserID].Email, f.EmailSearch) {
			continue
		}
		out = append(out, m.cartCopy(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memRepo) SaveShipping(_ context.Context, s *domain.OrderShipping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.shipping[s.CartID] = &cp
	return nil
}

func (m *memRepo) GetShipping(_ context.Context, cartID int64) (*domain.OrderShipping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shipping[cartID]
	if !ok {
		return nil, repository.ErrShippingNotFound
	}
	cp := *s
	return &cp, nil
}

// outbox

func (m *memRepo) InsertOutboxEvent(_ context.Context, aggregateID string, eventType domain.EventType, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbox = append(m.outbox, &repository.OutboxEvent{
		ID:          m.id(),
		AggregateId: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   time.Now(),
	})
	return nil
}

func (m *memRepo) GetUnprocessedEvents(_ context.Context, limit int) ([]*repository.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*repository.OutboxEvent
	for _, e := range m.outbox {
		if !m.processed[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memRepo) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[id] = true
	return nil
}

func (m *memRepo) eventTypes() []domain.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EventType, len(m.outbox))
	for i, e := range m.outbox {
		out[i] = e.EventType
	}
	return out
}

// caches

type memCartCache struct {
	mu      sync.Mutex
	carts   map[int64]*domain.Cart
	deletes int
}

func newMemCartCache() *memCartCache {
	return &memCartCache{carts: map[int64]*domain.Cart{}}
}

func (c *memCartCache) Get(_ context.Context, userID int64) (*domain.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cart, ok := c.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (c *memCartCache) Set(_ context.Context, userID int64, cart *domain.Cart) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carts[userID] = cart
	return nil
}

func (c *memCartCache) Delete(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, userID)
	c.deletes++
	return nil
}

type memProductCache struct {
	mu       sync.Mutex
	items    map[int64]*domain.CatalogItem
	notFound map[int64]bool
	deleted  []int64
}

func newMemProductCache() *memProductCache {
	return &memProductCache{items: map[int64]*domain.CatalogItem{}, notFound: map[int64]bool{}}
}

func (c *memProductCache) Get(_ context.Context, productID int64) (*domain.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notFound[productID] {
		return nil, cache.ErrCachedNotFound
	}
	item, ok := c.items[productID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return item, nil
}

func (c *memProductCache) Set(_ context.Context, item *domain.CatalogItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.Product.ID] = item
	return nil
}

func (c *memProductCache) SetNotFound(_ context.Context, productID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notFound[productID] = true
	return nil
}

func (c *memProductCache) Delete(_ context.Context, productIDs ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range productIDs {
		delete(c.items, id)
		delete(c.notFound, id)
		c.deleted = append(c.deleted, id)
	}
	return nil
}

func (c *memProductCache) has(productID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[productID]
	return ok
}
