package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRatio    = errors.New("ratio must be a number from 0 to 1")
	ErrInvalidTimezone = errors.New("unknown timezone")
	ErrInvalidCountry  = errors.New("unknown country code")
	ErrInvalidProvince = errors.New("unknown province code")
)

const (
	DefaultCountry  = "CAN"
	DefaultProvince = "ON"
	DefaultTimezone = "America/Toronto"
)

// DefaultTaxRatio is Ontario HST.
var DefaultTaxRatio = decimal.RequireFromString("0.13")

var Countries = map[string]string{
	"CAN": "Canada",
	"USA": "United States",
}

var Provinces = map[string]string{
	"AB": "Alberta",
	"BC": "British Columbia",
	"MB": "Manitoba",
	"NB": "New Brunswick",
	"NL": "Newfoundland and Labrador",
	"NS": "Nova Scotia",
	"NT": "Northwest Territories",
	"NU": "Nunavut",
	"ON": "Ontario",
	"PE": "Prince Edward Island",
	"QC": "Quebec",
	"SK": "Saskatchewan",
	"YT": "Yukon",
}

type User struct {
	ID            int64           `json:"id"`
	Email         string          `json:"email"`
	PasswordHash  string          `json:"-"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	IsActive      bool            `json:"is_active"`
	IsStaff       bool            `json:"is_staff"`
	DateJoined    time.Time       `json:"date_joined"`
	CompanyName   string          `json:"company_name"`
	BusinessPhone string          `json:"business_phone"`
	CountryISO    string          `json:"country_iso"`
	ProvinceISO   string          `json:"province_iso"`
	City          string          `json:"city"`
	Address       string          `json:"address"`
	PostalCode    string          `json:"postal_code"`
	HSTNumber     string          `json:"hst_number"`
	DiscountRatio decimal.Decimal `json:"discount_ratio"`
	TaxRatio      decimal.Decimal `json:"tax_ratio"`
	Timezone      string          `json:"timezone"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Location falls back to UTC when the stored zone cannot be loaded.
func (u *User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NormalizeEmail lower-cases the domain part and trims whitespace.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

func ValidateRatio(r decimal.Decimal) error {
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s", ErrInvalidRatio, r.String())
	}
	return nil
}

func ValidateTimezone(tz string) error {
	if tz == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTimezone)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimezone, tz)
	}
	return nil
}

func ValidateRegion(country, province string) error {
	if _, ok := Countries[country]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidCountry, country)
	}
	if _, ok := Provinces[province]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidProvince, province)
	}
	return nil
}
