package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zsiskos/roadstartire/internal/cache"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/repository"
	"golang.org/x/sync/singleflight"
)

const MaxLineQuantity = 999

type CartService struct {
	repo     repository.RepoInterface
	cache    cache.CartCache
	products cache.ProductCache
	sfg      singleflight.Group // Prevents cache stampede
	now      func() time.Time

	// generations counts invalidations per user. A cache fill that saw an
	// older generation must not be written back.
	genMu       sync.Mutex
	generations map[int64]uint64
}

func NewCartService(repo repository.RepoInterface, cache cache.CartCache, products cache.ProductCache) *CartService {
	return &CartService{
		repo:        repo,
		cache:       cache,
		products:    products,
		now:         time.Now,
		generations: map[int64]uint64{},
	}
}

// GetCurrentCart returns an empty cart view when the user has none.
func (s *CartService) GetCurrentCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err)
		}

		gen := s.generation(userID)
		cart, errGet := s.repo.GetCurrentCart(ctx, userID)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			return s.emptyCart(userID), nil
		}
		if errGet != nil {
			return nil, errGet
		}

		s.fillCache(userID, gen, cart)
		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem puts qty of the product in the user's CURRENT cart, creating the
// cart if needed. A product already in the cart has its quantity increased
// and keeps the price it was added at.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error) {
	if err := validateLineQuantity(quantity); err != nil {
		return nil, err
	}

	var cartID int64
	add := func(q repository.Queries) error {
		user, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return ErrAccountInactive
		}

		cart, err := s.currentOrNewCart(ctx, q, user)
		if err != nil {
			return err
		}
		cartID = cart.ID

		if line, ok := cart.LineForProduct(productID); ok {
			total := line.Quantity + quantity
			if err := validateLineQuantity(total); err != nil {
				return err
			}
			return q.UpdateCartLineQuantity(ctx, line.ID, total)
		}

		if _, err := q.GetProduct(ctx, productID); err != nil {
			return err
		}
		tire, err := q.CurrentTire(ctx, productID, s.now())
		if errors.Is(err, repository.ErrNoCurrentRevision) {
			return ErrProductNotAvailable
		}
		if err != nil {
			return err
		}

		return q.InsertCartLine(ctx, &domain.CartLine{
			CartID:    cart.ID,
			ProductID: productID,
			TireID:    tire.ID,
			Quantity:  quantity,
			PriceEach: tire.Price,
		})
	}

	// a concurrent request may create the CURRENT cart first; the unique
	// index rejects ours and the retry picks theirs up.
	err := s.repo.WithTx(ctx, add)
	if errors.Is(err, repository.ErrCurrentCartExists) || errors.Is(err, repository.ErrDuplicateLine) {
		err = s.repo.WithTx(ctx, add)
	}
	if err != nil {
		return nil, err
	}

	s.invalidateCart(userID)
	return s.repo.GetCart(ctx, cartID)
}

// currentOrNewCart locks the user's CURRENT cart. A cart that was ordered or
// abandoned between the read and the lock is left alone and a new one is
// created.
func (s *CartService) currentOrNewCart(ctx context.Context, q repository.Queries, user *domain.User) (*domain.Cart, error) {
	current, err := q.GetCurrentCart(ctx, user.ID)
	switch {
	case err == nil:
		cart, err := q.LockCart(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		if cart.Status == domain.CartStatusCurrent {
			return cart, nil
		}
		log.Printf("cart id = %v became %v before it was locked, starting a new cart", cart.ID, cart.Status)
	case !errors.Is(err, repository.ErrCartNotFound):
		return nil, err
	}

	cart := &domain.Cart{
		UserID:               user.ID,
		Status:               domain.CartStatusCurrent,
		DiscountRatioApplied: user.DiscountRatio,
		TaxRatioApplied:      user.TaxRatio,
	}
	if err := q.CreateCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateQuantity sets a line's quantity; zero removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, lineID int64, quantity int) (*domain.Cart, error) {
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, lineID)
	}
	if err := validateLineQuantity(quantity); err != nil {
		return nil, err
	}

	var cartID int64
	errTx := s.repo.WithTx(ctx, func(q repository.Queries) error {
		cart, err := s.lineOwner(ctx, q, userID, lineID)
		if err != nil {
			return err
		}
		cartID = cart.ID
		return q.UpdateCartLineQuantity(ctx, lineID, quantity)
	})
	if errTx != nil {
		return nil, errTx
	}

	s.invalidateCart(userID)
	return s.repo.GetCart(ctx, cartID)
}

// RemoveItem deletes a line. Removing the last line abandons the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, lineID int64) (*domain.Cart, error) {
	var (
		cartID    int64
		abandoned bool
	)
	errTx := s.repo.WithTx(ctx, func(q repository.Queries) error {
		cart, err := s.lineOwner(ctx, q, userID, lineID)
		if err != nil {
			return err
		}
		cartID = cart.ID
		if err := q.DeleteCartLine(ctx, lineID); err != nil {
			return err
		}
		if len(cart.Lines) > 1 {
			return nil
		}
		abandoned = true
		return q.UpdateCartStatus(ctx, cart.ID, domain.CartStatusAbandoned, s.now())
	})
	if errTx != nil {
		return nil, errTx
	}

	s.invalidateCart(userID)
	if abandoned {
		log.Printf("cart id = %v abandoned after its last line was removed", cartID)
		return s.emptyCart(userID), nil
	}
	return s.repo.GetCart(ctx, cartID)
}

// lineOwner locks the user's CURRENT cart and checks the line belongs to it.
func (s *CartService) lineOwner(ctx context.Context, q repository.Queries, userID, lineID int64) (*domain.Cart, error) {
	current, err := q.GetCurrentCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, repository.ErrLineNotFound
	}
	if err != nil {
		return nil, err
	}
	cart, err := q.LockCart(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if cart.Status != domain.CartStatusCurrent {
		return nil, repository.ErrLineNotFound
	}
	if _, ok := cart.Line(lineID); !ok {
		return nil, repository.ErrLineNotFound
	}
	return cart, nil
}

// PlaceOrder submits the user's CURRENT cart. Stock is checked under row
// locks, and in one transaction the shipping address is snapshotted, SOLD
// entries are written and the cart moves to IN_PROGRESS.
func (s *CartService) PlaceOrder(ctx context.Context, userID, cartID int64) (*domain.Order, error) {
	order := &domain.Order{}
	errTx := s.repo.WithTx(ctx, func(q repository.Queries) error {
		user, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return ErrAccountInactive
		}

		cart, err := q.LockCart(ctx, cartID)
		if err != nil {
			return err
		}
		if cart.UserID != userID {
			return repository.ErrCartNotFound
		}
		if !domain.CanTransitionTo(cart.Status, domain.CartStatusInProgress) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, cart.Status, domain.CartStatusInProgress)
		}
		if cart.IsEmpty() {
			return ErrEmptyCart
		}

		ids := productIDs(cart)
		if err := q.LockProducts(ctx, ids); err != nil {
			return err
		}
		levels, err := q.StockLevels(ctx, ids)
		if err != nil {
			return err
		}
		for _, line := range cart.Lines {
			if available := levels[line.ProductID].Current(); available < line.Quantity {
				return &InsufficientStockError{
					ProductID:   line.ProductID,
					ProductName: line.ProductName,
					Requested:   line.Quantity,
					Available:   available,
				}
			}
		}

		now := s.now()
		shipping := domain.ShippingFromUser(cart.ID, user, now)
		if err := q.SaveShipping(ctx, shipping); err != nil {
			return err
		}

		note := fmt.Sprintf("Order #%d", cart.ID)
		for _, line := range cart.Lines {
			if err := q.AppendStockEntry(ctx, &domain.StockEntry{
				ProductID: line.ProductID,
				Kind:      domain.StockSold,
				Quantity:  line.Quantity,
				CartID:    &cart.ID,
				Note:      note,
			}); err != nil {
				return err
			}
		}

		if err := q.UpdateCartStatus(ctx, cart.ID, domain.CartStatusInProgress, now); err != nil {
			return err
		}
		cart.Status = domain.CartStatusInProgress
		cart.OrderedAt = &now
		cart.UpdatedAt = now

		order.Cart = cart
		order.Shipping = shipping
		order.Pricing = cart.Pricing()
		return enqueueOrderEvent(ctx, q, domain.EventOrderPlaced, cart, user, now)
	})
	if errTx != nil {
		return nil, errTx
	}

	log.Printf("order placed id = %v user id = %v total = %v", order.Cart.ID, userID, order.Pricing.Total)
	s.invalidateCart(userID)
	invalidateProducts(s.products, productIDs(order.Cart)...)
	return order, nil
}

// CancelOrder lets the owner cancel an IN_PROGRESS order.
func (s *CartService) CancelOrder(ctx context.Context, userID, cartID int64) (*domain.Order, error) {
	return s.cancel(ctx, cartID, &userID)
}

func (s *CartService) CancelOrderAsStaff(ctx context.Context, cartID int64) (*domain.Order, error) {
	return s.cancel(ctx, cartID, nil)
}

// cancel returns the sold quantities to stock by appending negative SOLD
// entries.
func (s *CartService) cancel(ctx context.Context, cartID int64, ownerID *int64) (*domain.Order, error) {
	order := &domain.Order{}
	errTx := s.repo.WithTx(ctx, func(q repository.Queries) error {
		cart, err := q.LockCart(ctx, cartID)
		if err != nil {
			return err
		}
		if ownerID != nil && cart.UserID != *ownerID {
			return repository.ErrCartNotFound
		}
		if !domain.CanTransitionTo(cart.Status, domain.CartStatusCancelled) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, cart.Status, domain.CartStatusCancelled)
		}

		note := fmt.Sprintf("Order #%d cancelled", cart.ID)
		for _, line := range cart.Lines {
			if err := q.AppendStockEntry(ctx, &domain.StockEntry{
				ProductID: line.ProductID,
				Kind:      domain.StockSold,
				Quantity:  -line.Quantity,
				CartID:    &cart.ID,
				Note:      note,
			}); err != nil {
				return err
			}
		}

		now := s.now()
		if err := q.UpdateCartStatus(ctx, cart.ID, domain.CartStatusCancelled, now); err != nil {
			return err
		}
		cart.Status = domain.CartStatusCancelled
		cart.ClosedAt = &now
		cart.UpdatedAt = now

		if err := s.fillOrder(ctx, q, order, cart); err != nil {
			return err
		}
		owner, err := q.GetUserByID(ctx, cart.UserID)
		if err != nil {
			return err
		}
		return enqueueOrderEvent(ctx, q, domain.EventOrderCancelled, cart, owner, now)
	})
	if errTx != nil {
		return nil, errTx
	}

	log.Printf("order cancelled id = %v", cartID)
	s.invalidateCart(order.Cart.UserID)
	invalidateProducts(s.products, productIDs(order.Cart)...)
	return order, nil
}

func (s *CartService) FulfillOrder(ctx context.Context, cartID int64) (*domain.Order, error) {
	order := &domain.Order{}
	errTx := s.repo.WithTx(ctx, func(q repository.Queries) error {
		cart, err := q.LockCart(ctx, cartID)
		if err != nil {
			return err
		}
		if !domain.CanTransitionTo(cart.Status, domain.CartStatusFulfilled) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, cart.Status, domain.CartStatusFulfilled)
		}

		now := s.now()
		if err := q.UpdateCartStatus(ctx, cart.ID, domain.CartStatusFulfilled, now); err != nil {
			return err
		}
		cart.Status = domain.CartStatusFulfilled
		cart.ClosedAt = &now
		cart.UpdatedAt = now

		if err := s.fillOrder(ctx, q, order, cart); err != nil {
			return err
		}
		owner, err := q.GetUserByID(ctx, cart.UserID)
		if err != nil {
			return err
		}
		return enqueueOrderEvent(ctx, q, domain.EventOrderFulfilled, cart, owner, now)
	})
	if errTx != nil {
		return nil, errTx
	}

	log.Printf("order fulfilled id = %v", cartID)
	return order, nil
}

type OrderPage struct {
	Page   Page           `json:"page"`
	Orders []domain.Order `json:"orders"`
}

// ListOrders pages through the user's submitted carts, newest first.
func (s *CartService) ListOrders(ctx context.Context, userID int64, rawPage string) (*OrderPage, error) {
	count, err := s.repo.CountOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	page := NewPaginator(count, OrdersPerPage, OrdersOrphans).GetPage(rawPage)
	result := &OrderPage{Page: page, Orders: []domain.Order{}}
	if page.Limit == 0 {
		return result, nil
	}

	carts, err := s.repo.ListOrdersByUser(ctx, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	for _, c := range carts {
		result.Orders = append(result.Orders, domain.Order{Cart: c, Pricing: c.Pricing()})
	}
	return result, nil
}

// GetOrder only shows the caller their own submitted carts.
func (s *CartService) GetOrder(ctx context.Context, userID, cartID int64) (*domain.Order, error) {
	cart, err := s.repo.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.UserID != userID || !cart.Status.IsOrder() {
		return nil, repository.ErrCartNotFound
	}

	order := &domain.Order{}
	if err := s.fillOrder(ctx, s.repo, order, cart); err != nil {
		return nil, err
	}
	return order, nil
}

// GetCart is the staff view of any cart.
func (s *CartService) GetCart(ctx context.Context, cartID int64) (*domain.Order, error) {
	cart, err := s.repo.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	order := &domain.Order{}
	if err := s.fillOrder(ctx, s.repo, order, cart); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *CartService) ListCarts(ctx context.Context, f domain.CartFilter) ([]domain.Order, error) {
	carts, err := s.repo.ListCarts(ctx, f)
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(carts))
	for _, c := range carts {
		orders = append(orders, domain.Order{Cart: c, Pricing: c.Pricing()})
	}
	return orders, nil
}

// SetCartRatios overrides the discount and tax of a cart that is not closed.
func (s *CartService) SetCartRatios(ctx context.Context, cartID int64, discount, tax decimal.Decimal) (*domain.Cart, error) {
	if err := domain.ValidateRatio(discount); err != nil {
		return nil, err
	}
	if err := domain.ValidateRatio(tax); err != nil {
		return nil, err
	}

	var userID int64
	errTx := s.repo.WithTx(ctx, func(q repository.Queries) error {
		cart, err := q.LockCart(ctx, cartID)
		if err != nil {
			return err
		}
		if cart.Status.IsClosed() {
			return ErrCartClosed
		}
		userID = cart.UserID
		return q.SetCartRatios(ctx, cartID, discount.Round(2), tax.Round(4))
	})
	if errTx != nil {
		return nil, errTx
	}

	s.invalidateCart(userID)
	return s.repo.GetCart(ctx, cartID)
}

func (s *CartService) fillOrder(ctx context.Context, q repository.Queries, order *domain.Order, cart *domain.Cart) error {
	order.Cart = cart
	order.Pricing = cart.Pricing()
	if !cart.Status.IsOrder() {
		return nil
	}
	shipping, err := q.GetShipping(ctx, cart.ID)
	if errors.Is(err, repository.ErrShippingNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	order.Shipping = shipping
	return nil
}

func (s *CartService) emptyCart(userID int64) *domain.Cart {
	now := s.now()
	return &domain.Cart{
		UserID:    userID,
		Status:    domain.CartStatusCurrent,
		Lines:     []domain.CartLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *CartService) generation(userID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[userID]
}

// fillCache stores a cart read at generation gen. An invalidation that lands
// after the Set is seen by the second check and the entry is dropped again.
func (s *CartService) fillCache(userID int64, gen uint64, cart *domain.Cart) {
	if s.generation(userID) != gen {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if errSet := s.cache.Set(ctx, userID, cart); errSet != nil {
		log.Printf("cache set error: %v", errSet)
		return
	}
	if s.generation(userID) != gen {
		s.deleteCached(userID)
	}
}

func (s *CartService) invalidateCart(userID int64) {
	s.genMu.Lock()
	s.generations[userID]++
	s.genMu.Unlock()
	s.deleteCached(userID)
}

func (s *CartService) deleteCached(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errInvalidate := s.cache.Delete(ctx, userID)
	if errInvalidate != nil {
		log.Printf("cache invalidate error: %v", errInvalidate)
	}
}

func validateLineQuantity(quantity int) error {
	if quantity < 1 || quantity > MaxLineQuantity {
		return fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidQuantity, MaxLineQuantity, quantity)
	}
	return nil
}

func productIDs(cart *domain.Cart) []int64 {
	ids := make([]int64, len(cart.Lines))
	for i, l := range cart.Lines {
		ids[i] = l.ProductID
	}
	return ids
}
