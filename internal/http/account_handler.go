package http

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/service"
)

type UserAPI interface {
	UserLoader
	Signup(ctx context.Context, in service.SignupInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, string, error)
	UpdateProfile(ctx context.Context, userID int64, in service.ProfileInput) (*domain.User, error)
	SetActive(ctx context.Context, userID int64, active bool) (*domain.User, error)
	SetPricing(ctx context.Context, userID int64, discount, tax decimal.Decimal) (*domain.User, error)
	ListUsers(ctx context.Context, f domain.UserFilter) ([]*domain.User, error)
}

type AccountHandler struct {
	users   UserAPI
	carts   CartAPI
	timeout time.Duration
}

func NewAccountHandler(users UserAPI, carts CartAPI, timeout time.Duration) *AccountHandler {
	return &AccountHandler{
		users:   users,
		carts:   carts,
		timeout: timeout,
	}
}

type ProfileRequestDTO struct {
	Email         string `json:"email" validate:"required,email"`
	FirstName     string `json:"first_name" validate:"required,max=30"`
	LastName      string `json:"last_name" validate:"required,max=30"`
	CompanyName   string `json:"company_name" validate:"required,max=50"`
	BusinessPhone string `json:"business_phone" validate:"required,max=30"`
	CountryISO    string `json:"country_iso" validate:"omitempty,len=3"`
	ProvinceISO   string `json:"province_iso" validate:"omitempty,len=2"`
	City          string `json:"city" validate:"max=30"`
	Address       string `json:"address" validate:"max=100"`
	PostalCode    string `json:"postal_code" validate:"max=10"`
	HSTNumber     string `json:"hst_number" validate:"max=15"`
	Timezone      string `json:"timezone" validate:"max=64"`
}

func (d ProfileRequestDTO) input() service.ProfileInput {
	return service.ProfileInput{
		Email:         d.Email,
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		CompanyName:   d.CompanyName,
		BusinessPhone: d.BusinessPhone,
		CountryISO:    d.CountryISO,
		ProvinceISO:   d.ProvinceISO,
		City:          d.City,
		Address:       d.Address,
		PostalCode:    d.PostalCode,
		HSTNumber:     d.HSTNumber,
		Timezone:      d.Timezone,
	}
}

type SignupRequestDTO struct {
	ProfileRequestDTO
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequestDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SignupRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Signup(ctx, service.SignupInput{
		ProfileInput: req.input(),
		Password:     req.Password,
	})
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, localUser(user, user.Location()))
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{Token: token, User: localUser(user, user.Location())})
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	respondJSON(w, http.StatusOK, localUser(user, user.Location()))
}

// UpdateAccount saves the profile. The account is deactivated until staff
// verify it again, so the caller's token stops working afterwards.
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req ProfileRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.users.UpdateProfile(ctx, user.ID, req.input())
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, localUser(updated, updated.Location()))
}

func (h *AccountHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	page, err := h.carts.ListOrders(ctx, user.ID, r.URL.Query().Get("page"))
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	page.Orders = localOrders(page.Orders, user.Location())
	respondJSON(w, http.StatusOK, page)
}
