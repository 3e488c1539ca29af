package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID                   int64           `json:"id"`
	UserID               int64           `json:"user_id"`
	Status               CartStatus      `json:"status"`
	DiscountRatioApplied decimal.Decimal `json:"discount_ratio_applied"`
	TaxRatioApplied      decimal.Decimal `json:"tax_ratio_applied"`
	Lines                []CartLine      `json:"lines"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	OrderedAt            *time.Time      `json:"ordered_at,omitempty"`
	ClosedAt             *time.Time      `json:"closed_at,omitempty"`
}

// CartLine is a CartDetail: one product in one cart.
type CartLine struct {
	ID          int64           `json:"id"`
	CartID      int64           `json:"cart_id"`
	ProductID   int64           `json:"product_id"`
	TireID      int64           `json:"tire_id"`
	ProductName string          `json:"product_name"`
	Brand       string          `json:"brand"`
	Quantity    int             `json:"quantity"`
	PriceEach   decimal.Decimal `json:"price_each"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.PriceEach.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Pricing is derived from the lines on every read, never stored.
type Pricing struct {
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Taxable   decimal.Decimal `json:"taxable"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

func (c *Cart) Pricing() Pricing {
	subtotal := decimal.Zero
	count := 0
	for _, line := range c.Lines {
		subtotal = subtotal.Add(line.Subtotal())
		count += line.Quantity
	}
	subtotal = RoundMoney(subtotal)

	discount := RoundMoney(subtotal.Mul(c.DiscountRatioApplied))
	taxable := subtotal.Sub(discount)
	tax := RoundMoney(taxable.Mul(c.TaxRatioApplied))

	return Pricing{
		ItemCount: count,
		Subtotal:  subtotal,
		Discount:  discount,
		Taxable:   taxable,
		Tax:       tax,
		Total:     taxable.Add(tax),
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) Line(lineID int64) (*CartLine, bool) {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return &c.Lines[i], true
		}
	}
	return nil, false
}

func (c *Cart) LineForProduct(productID int64) (*CartLine, bool) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i], true
		}
	}
	return nil, false
}

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// OrderShipping is the address snapshot taken when a cart is ordered.
type OrderShipping struct {
	CartID        int64     `json:"cart_id"`
	CompanyName   string    `json:"company_name"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	BusinessPhone string    `json:"business_phone"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	ProvinceISO   string    `json:"province_iso"`
	PostalCode    string    `json:"postal_code"`
	CountryISO    string    `json:"country_iso"`
	HSTNumber     string    `json:"hst_number"`
	CapturedAt    time.Time `json:"captured_at"`
}

func ShippingFromUser(cartID int64, u *User, at time.Time) *OrderShipping {
	return &OrderShipping{
		CartID:        cartID,
		CompanyName:   u.CompanyName,
		FullName:      u.FullName(),
		Email:         u.Email,
		BusinessPhone: u.BusinessPhone,
		Address:       u.Address,
		City:          u.City,
		ProvinceISO:   u.ProvinceISO,
		PostalCode:    u.PostalCode,
		CountryISO:    u.CountryISO,
		HSTNumber:     u.HSTNumber,
		CapturedAt:    at,
	}
}

// Order is a submitted cart together with its shipping snapshot.
type Order struct {
	Cart     *Cart          `json:"cart"`
	Shipping *OrderShipping `json:"shipping,omitempty"`
	Pricing  Pricing        `json:"pricing"`
}
