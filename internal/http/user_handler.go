package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/notifylog"
)

// DeliveryLister reads the notifier's delivery log.
type DeliveryLister interface {
	ListByRecipient(ctx context.Context, recipient string, limit int64) ([]notifylog.Delivery, error)
}

// UserHandler serves the staff side of account management.
type UserHandler struct {
	users      UserAPI
	deliveries DeliveryLister
	timeout    time.Duration
}

func NewUserHandler(users UserAPI, deliveries DeliveryLister, timeout time.Duration) *UserHandler {
	return &UserHandler{
		users:      users,
		deliveries: deliveries,
		timeout:    timeout,
	}
}

type ActiveRequestDTO struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type PricingRequestDTO struct {
	DiscountRatio *decimal.Decimal `json:"discount_ratio" validate:"required"`
	TaxRatio      *decimal.Decimal `json:"tax_ratio" validate:"required"`
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit, offset, err := queryPage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	f := domain.UserFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
		Offset: offset,
	}
	if v := r.URL.Query().Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_argument", "active must be true or false")
			return
		}
		f.Active = &active
	}

	users, err := h.users.ListUsers(ctx, f)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localUsers(users, locationFrom(r.Context())))
}

// SetActive verifies or disables an account.
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req ActiveRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.SetActive(ctx, userID, *req.IsActive)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localUser(user, locationFrom(r.Context())))
}

func (h *UserHandler) SetPricing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req PricingRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.SetPricing(ctx, userID, *req.DiscountRatio, *req.TaxRatio)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localUser(user, locationFrom(r.Context())))
}

// ListDeliveries shows the mails the notifier sent to one account.
func (h *UserHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if h.deliveries == nil {
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "delivery log is not configured")
		return
	}

	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	limit, _, err := queryPage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	user, err := h.users.GetProfile(ctx, userID)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	deliveries, err := h.deliveries.ListByRecipient(ctx, user.Email, int64(limit))
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localDeliveries(deliveries, locationFrom(r.Context())))
}
