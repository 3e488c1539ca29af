package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/repository"
	"github.com/zsiskos/roadstartire/internal/service"
)

func sampleCart() *domain.Cart {
	created := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	return &domain.Cart{
		ID:                   7,
		UserID:               customerID,
		Status:               domain.CartStatusCurrent,
		DiscountRatioApplied: decimal.Zero,
		TaxRatioApplied:      decimal.RequireFromString("0.13"),
		CreatedAt:            created,
		UpdatedAt:            created,
		Lines: []domain.CartLine{{
			ID:          11,
			CartID:      7,
			ProductID:   3,
			ProductName: "Blizzak WS90",
			Brand:       "Bridgestone",
			Quantity:    2,
			PriceEach:   decimal.RequireFromString("100.50"),
			CreatedAt:   created,
			UpdatedAt:   created,
		}},
	}
}

func TestGetCart_WithPricing(t *testing.T) {
	api := newAPI(t)
	api.carts.cart = sampleCart()

	rec := api.do(t, http.MethodGet, "/api/v1/cart", customerID, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, customerID, api.carts.userID)

	body := decodeBody[map[string]any](t, rec)
	assert.EqualValues(t, 7, body["id"])
	assert.Equal(t, "2024-03-01T12:00:00-08:00", body["created_at"])
	pricing := body["pricing"].(map[string]any)
	assert.Equal(t, "201", pricing["subtotal"])
	assert.Equal(t, "26.13", pricing["tax"])
	assert.Equal(t, "227.13", pricing["total"])
	assert.EqualValues(t, 2, pricing["item_count"])
}

func TestGetCart_DoesNotMutateSharedCart(t *testing.T) {
	api := newAPI(t)
	cart := sampleCart()
	api.carts.cart = cart

	api.do(t, http.MethodGet, "/api/v1/cart", customerID, nil)

	assert.Equal(t, time.UTC, cart.CreatedAt.Location())
	assert.Equal(t, time.UTC, cart.Lines[0].CreatedAt.Location())
}

func TestAddItem(t *testing.T) {
	api := newAPI(t)
	api.carts.cart = sampleCart()

	rec := api.do(t, http.MethodPost, "/api/v1/cart/items", customerID, map[string]any{
		"product_id": 3,
		"quantity":   2,
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(3), api.carts.productID)
	assert.Equal(t, 2, api.carts.quantity)
}

func TestAddItem_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero quantity", map[string]any{"product_id": 3, "quantity": 0}},
		{"too many", map[string]any{"product_id": 3, "quantity": 1000}},
		{"missing product", map[string]any{"quantity": 1}},
		{"negative product", map[string]any{"product_id": -1, "quantity": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newAPI(t)

			rec := api.do(t, http.MethodPost, "/api/v1/cart/items", customerID, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, api.carts.productID)
		})
	}
}

func TestAddItem_ProductNotAvailable(t *testing.T) {
	api := newAPI(t)
	api.carts.err = service.ErrProductNotAvailable

	rec := api.do(t, http.MethodPost, "/api/v1/cart/items", customerID, map[string]any{"product_id": 3, "quantity": 1})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	api := newAPI(t)
	api.carts.cart = &domain.Cart{UserID: customerID, Lines: []domain.CartLine{}}

	rec := api.do(t, http.MethodPut, "/api/v1/cart/items/11", customerID, map[string]any{"quantity": 0})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(11), api.carts.lineID)
	assert.Equal(t, 0, api.carts.quantity)
}

func TestUpdateQuantity_MissingQuantity(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodPut, "/api/v1/cart/items/11", customerID, map[string]any{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveItem(t *testing.T) {
	api := newAPI(t)
	api.carts.cart = sampleCart()

	rec := api.do(t, http.MethodDelete, "/api/v1/cart/items/11", customerID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(11), api.carts.lineID)
}

func TestRemoveItem_InvalidID(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodDelete, "/api/v1/cart/items/abc", customerID, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_line_id", decodeBody[ErrorResponse](t, rec).Code)
}

func TestRemoveItem_OtherUsersLine(t *testing.T) {
	api := newAPI(t)
	api.carts.err = repository.ErrLineNotFound

	rec := api.do(t, http.MethodDelete, "/api/v1/cart/items/11", customerID, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody[ErrorResponse](t, rec).Code)
}

func TestPlaceOrder(t *testing.T) {
	api := newAPI(t)
	cart := sampleCart()
	cart.Status = domain.CartStatusInProgress
	ordered := time.Date(2024, 3, 2, 15, 30, 0, 0, time.UTC)
	cart.OrderedAt = &ordered
	api.carts.order = &domain.Order{
		Cart:     cart,
		Shipping: &domain.OrderShipping{CartID: 7, CompanyName: "Dana Tires", CapturedAt: ordered},
		Pricing:  cart.Pricing(),
	}

	rec := api.do(t, http.MethodPost, "/api/v1/cart/7/order", customerID, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(7), api.carts.cartID)

	body := decodeBody[map[string]any](t, rec)
	c := body["cart"].(map[string]any)
	assert.Equal(t, "2024-03-02T07:30:00-08:00", c["ordered_at"])
	shipping := body["shipping"].(map[string]any)
	assert.Equal(t, "Dana Tires", shipping["company_name"])
	assert.Equal(t, "2024-03-02T07:30:00-08:00", shipping["captured_at"])
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	api := newAPI(t)
	api.carts.err = &service.InsufficientStockError{ProductID: 3, ProductName: "Blizzak WS90", Requested: 4, Available: 1}

	rec := api.do(t, http.MethodPost, "/api/v1/cart/7/order", customerID, nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	type stockError struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	}
	resp := decodeBody[stockError](t, rec)
	assert.Equal(t, "insufficient_stock", resp.Code)
	assert.EqualValues(t, 3, resp.Details["product_id"])
	assert.EqualValues(t, 1, resp.Details["available"])
}

func TestPlaceOrder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"empty cart", service.ErrEmptyCart, http.StatusConflict},
		{"already ordered", service.ErrIllegalTransition, http.StatusConflict},
		{"not found", repository.ErrCartNotFound, http.StatusNotFound},
		{"inactive", service.ErrAccountInactive, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newAPI(t)
			api.carts.err = tt.err

			rec := api.do(t, http.MethodPost, "/api/v1/cart/7/order", customerID, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGetOrder_AndCancel(t *testing.T) {
	api := newAPI(t)
	cart := sampleCart()
	cart.Status = domain.CartStatusCancelled
	api.carts.order = &domain.Order{Cart: cart, Pricing: cart.Pricing()}

	rec := api.do(t, http.MethodGet, "/api/v1/orders/7", customerID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/orders/7/cancel", customerID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), api.carts.cartID)
	assert.Equal(t, customerID, api.carts.userID)
}

func TestListCarts_Filters(t *testing.T) {
	api := newAPI(t)
	api.carts.orders = []domain.Order{}

	rec := api.do(t, http.MethodGet,
		"/api/v1/admin/carts?status=in_progress&email=dana&ordered_after=2024-03-01&ordered_to=2024-03-31&limit=20&offset=40",
		staffID, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f := api.carts.filter
	require.NotNil(t, f.Status)
	assert.Equal(t, domain.CartStatusInProgress, *f.Status)
	assert.Equal(t, "dana", f.EmailSearch)
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, 40, f.Offset)

	toronto, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)
	assert.True(t, f.OrderedAfter.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, toronto)))
	assert.True(t, f.OrderedTo.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, toronto)))
}

func TestListCarts_BadInput(t *testing.T) {
	tests := []string{
		"/api/v1/admin/carts?status=LOST",
		"/api/v1/admin/carts?ordered_after=03/01/2024",
		"/api/v1/admin/carts?limit=-1",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			api := newAPI(t)
			rec := api.do(t, http.MethodGet, path, staffID, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestStaffCartActions(t *testing.T) {
	api := newAPI(t)
	cart := sampleCart()
	api.carts.order = &domain.Order{Cart: cart, Pricing: cart.Pricing()}

	for _, path := range []string{"/api/v1/admin/carts/7/fulfill", "/api/v1/admin/carts/7/cancel"} {
		rec := api.do(t, http.MethodPost, path, staffID, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := api.do(t, http.MethodGet, "/api/v1/admin/carts/7", staffID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), api.carts.cartID)
}

func TestFulfill_IllegalTransition(t *testing.T) {
	api := newAPI(t)
	api.carts.err = service.ErrIllegalTransition

	rec := api.do(t, http.MethodPost, "/api/v1/admin/carts/7/fulfill", staffID, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "failed_precondition", decodeBody[ErrorResponse](t, rec).Code)
}

func TestSetRatios(t *testing.T) {
	api := newAPI(t)
	api.carts.cart = sampleCart()

	rec := api.do(t, http.MethodPut, "/api/v1/admin/carts/7/ratios", staffID, `{"discount_ratio":"0.10","tax_ratio":0.05}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, api.carts.ratios[0].Equal(decimal.RequireFromString("0.1")))
	assert.True(t, api.carts.ratios[1].Equal(decimal.RequireFromString("0.05")))
}

func TestSetRatios_Missing(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodPut, "/api/v1/admin/carts/7/ratios", staffID, `{"discount_ratio":"0.10"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Error, "tax_ratio is required")
}

func TestSetRatios_Closed(t *testing.T) {
	api := newAPI(t)
	api.carts.err = service.ErrCartClosed

	rec := api.do(t, http.MethodPut, "/api/v1/admin/carts/7/ratios", staffID, `{"discount_ratio":"0","tax_ratio":"0.13"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
