package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zsiskos/roadstartire/internal/auth"
	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/repository"
)

type SignupInput struct {
	ProfileInput
	Password string
}

// ProfileInput holds the fields a customer may edit on their own account.
type ProfileInput struct {
	Email         string
	FirstName     string
	LastName      string
	CompanyName   string
	BusinessPhone string
	CountryISO    string
	ProvinceISO   string
	City          string
	Address       string
	PostalCode    string
	HSTNumber     string
	Timezone      string
}

type UserService struct {
	repo   repository.RepoInterface
	tokens *auth.TokenManager
	now    func() time.Time
}

func NewUserService(repo repository.RepoInterface, tokens *auth.TokenManager) *UserService {
	return &UserService{repo: repo, tokens: tokens, now: time.Now}
}

// Signup creates an inactive account that staff must verify before it can
// log in or shop.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	u := &domain.User{
		DiscountRatio: decimal.Zero,
		TaxRatio:      domain.DefaultTaxRatio,
	}
	if err := applyProfile(u, in.ProfileInput); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, invalidInput("%v", err)
		}
		return nil, err
	}
	u.PasswordHash = hash

	errTx := s.repo.WithTx(ctx, func(q repository.Queries) error {
		if err := q.CreateUser(ctx, u); err != nil {
			return err
		}
		return enqueueUserEvent(ctx, q, domain.EventUserSignedUp, u, s.now())
	})
	if errTx != nil {
		return nil, errTx
	}

	log.Printf("user signed up id = %v email = %v", u.ID, u.Email)
	return u, nil
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, string, error) {
	u, err := s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			log.Printf("password check failed for user id = %v with error %v", u.ID, err)
		}
		return nil, "", ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, "", ErrAccountInactive
	}

	token, _, err := s.tokens.Issue(u.ID, u.IsStaff)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// UpdateProfile saves the edit and deactivates the account until staff
// verify it again.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*domain.User, error) {
	var u *domain.User
	errTx := s.repo.WithTx(ctx, func(q repository.Queries) error {
		var err error
		u, err = q.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := applyProfile(u, in); err != nil {
			return err
		}
		u.IsActive = false
		if err := q.UpdateUserProfile(ctx, u); err != nil {
			return err
		}
		return enqueueUserEvent(ctx, q, domain.EventUserProfileEdit, u, s.now())
	})
	if errTx != nil {
		return nil, errTx
	}
	return u, nil
}

// SetActive only announces a change when the flag actually flips.
func (s *UserService) SetActive(ctx context.Context, userID int64, active bool) (*domain.User, error) {
	var u *domain.User
	errTx := s.repo.WithTx(ctx, func(q repository.Queries) error {
		var err error
		u, err = q.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u.IsActive == active {
			return nil
		}
		if err := q.SetUserActive(ctx, userID, active); err != nil {
			return err
		}
		u.IsActive = active

		eventType := domain.EventUserDeactivated
		if active {
			eventType = domain.EventUserVerified
		}
		return enqueueUserEvent(ctx, q, eventType, u, s.now())
	})
	if errTx != nil {
		return nil, errTx
	}
	return u, nil
}

func (s *UserService) SetPricing(ctx context.Context, userID int64, discount, tax decimal.Decimal) (*domain.User, error) {
	if err := domain.ValidateRatio(discount); err != nil {
		return nil, err
	}
	if err := domain.ValidateRatio(tax); err != nil {
		return nil, err
	}
	discount = discount.Round(2)
	tax = tax.Round(4)

	if err := s.repo.SetUserPricing(ctx, userID, discount, tax); err != nil {
		return nil, err
	}
	return s.repo.GetUserByID(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.ListUsers(ctx, f)
}

func applyProfile(u *domain.User, in ProfileInput) error {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return invalidInput("email %q", in.Email)
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return invalidInput("first and last name are required")
	}

	country := strings.ToUpper(strings.TrimSpace(in.CountryISO))
	if country == "" {
		country = domain.DefaultCountry
	}
	province := strings.ToUpper(strings.TrimSpace(in.ProvinceISO))
	if province == "" {
		province = domain.DefaultProvince
	}
	if err := domain.ValidateRegion(country, province); err != nil {
		return err
	}

	tz := strings.TrimSpace(in.Timezone)
	if tz == "" {
		tz = domain.DefaultTimezone
	}
	if err := domain.ValidateTimezone(tz); err != nil {
		return fmt.Errorf("profile: %w", err)
	}

	u.Email = email
	u.FirstName = strings.TrimSpace(in.FirstName)
	u.LastName = strings.TrimSpace(in.LastName)
	u.CompanyName = strings.TrimSpace(in.CompanyName)
	u.BusinessPhone = strings.TrimSpace(in.BusinessPhone)
	u.CountryISO = country
	u.ProvinceISO = province
	u.City = strings.TrimSpace(in.City)
	u.Address = strings.TrimSpace(in.Address)
	u.PostalCode = strings.TrimSpace(in.PostalCode)
	u.HSTNumber = strings.TrimSpace(in.HSTNumber)
	u.Timezone = tz
	return nil
}
