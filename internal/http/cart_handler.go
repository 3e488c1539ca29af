package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/service"
)

type CartAPI interface {
	GetCurrentCart(ctx context.Context, userID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userID, lineID int64, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, lineID int64) (*domain.Cart, error)
	PlaceOrder(ctx context.Context, userID, cartID int64) (*domain.Order, error)
	CancelOrder(ctx context.Context, userID, cartID int64) (*domain.Order, error)
	GetOrder(ctx context.Context, userID, cartID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64, rawPage string) (*service.OrderPage, error)

	GetCart(ctx context.Context, cartID int64) (*domain.Order, error)
	ListCarts(ctx context.Context, f domain.CartFilter) ([]domain.Order, error)
	FulfillOrder(ctx context.Context, cartID int64) (*domain.Order, error)
	CancelOrderAsStaff(ctx context.Context, cartID int64) (*domain.Order, error)
	SetCartRatios(ctx context.Context, cartID int64, discount, tax decimal.Decimal) (*domain.Cart, error)
}

type CartHandler struct {
	carts   CartAPI
	timeout time.Duration
}

func NewCartHandler(carts CartAPI, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1,lte=999"`
}

// UpdateQuantityRequestDTO allows 0, which removes the line.
type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=999"`
}

type RatiosRequestDTO struct {
	DiscountRatio *decimal.Decimal `json:"discount_ratio" validate:"required"`
	TaxRatio      *decimal.Decimal `json:"tax_ratio" validate:"required"`
}

// CartResponse is a cart together with its computed totals.
type CartResponse struct {
	*domain.Cart
	Pricing domain.Pricing `json:"pricing"`
}

func cartResponse(c *domain.Cart, loc *time.Location) CartResponse {
	return CartResponse{Cart: localCart(c, loc), Pricing: c.Pricing()}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cart, err := h.carts.GetCurrentCart(ctx, user.ID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart, user.Location()))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.carts.AddItem(ctx, user.ID, req.ProductID, req.Quantity)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, cartResponse(cart, user.Location()))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	lineID, ok := pathID(w, r, "line_id")
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, user.ID, lineID, *req.Quantity)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart, user.Location()))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	lineID, ok := pathID(w, r, "line_id")
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(ctx, user.ID, lineID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart, user.Location()))
}

func (h *CartHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cartID, ok := pathID(w, r, "cart_id")
	if !ok {
		return
	}

	order, err := h.carts.PlaceOrder(ctx, user.ID, cartID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, localOrder(*order, user.Location()))
}

func (h *CartHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cartID, ok := pathID(w, r, "cart_id")
	if !ok {
		return
	}

	order, err := h.carts.GetOrder(ctx, user.ID, cartID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localOrder(*order, user.Location()))
}

func (h *CartHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cartID, ok := pathID(w, r, "cart_id")
	if !ok {
		return
	}

	order, err := h.carts.CancelOrder(ctx, user.ID, cartID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localOrder(*order, user.Location()))
}

// ListCarts is the staff listing. ordered_after and ordered_to are dates
// in the staff member's timezone, ordered_to inclusive.
func (h *CartHandler) ListCarts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	loc := locationFrom(r.Context())
	limit, offset, err := queryPage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	q := r.URL.Query()
	f := domain.CartFilter{
		EmailSearch: strings.TrimSpace(q.Get("email")),
		Limit:       limit,
		Offset:      offset,
	}
	if v := q.Get("status"); v != "" {
		status, err := domain.ParseCartStatus(strings.ToUpper(v))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
			return
		}
		f.Status = &status
	}
	if v := q.Get("ordered_after"); v != "" {
		day, err := time.ParseInLocation(time.DateOnly, v, loc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_argument", "ordered_after must be YYYY-MM-DD")
			return
		}
		f.OrderedAfter = &day
	}
	if v := q.Get("ordered_to"); v != "" {
		day, err := time.ParseInLocation(time.DateOnly, v, loc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_argument", "ordered_to must be YYYY-MM-DD")
			return
		}
		end := day.AddDate(0, 0, 1)
		f.OrderedTo = &end
	}

	orders, err := h.carts.ListCarts(ctx, f)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localOrders(orders, loc))
}

func (h *CartHandler) GetCartAsStaff(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := pathID(w, r, "cart_id")
	if !ok {
		return
	}

	order, err := h.carts.GetCart(ctx, cartID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localOrder(*order, locationFrom(r.Context())))
}

func (h *CartHandler) FulfillOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := pathID(w, r, "cart_id")
	if !ok {
		return
	}

	order, err := h.carts.FulfillOrder(ctx, cartID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localOrder(*order, locationFrom(r.Context())))
}

func (h *CartHandler) CancelOrderAsStaff(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := pathID(w, r, "cart_id")
	if !ok {
		return
	}

	order, err := h.carts.CancelOrderAsStaff(ctx, cartID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localOrder(*order, locationFrom(r.Context())))
}

func (h *CartHandler) SetRatios(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, ok := pathID(w, r, "cart_id")
	if !ok {
		return
	}

	var req RatiosRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.carts.SetCartRatios(ctx, cartID, *req.DiscountRatio, *req.TaxRatio)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart, locationFrom(r.Context())))
}
