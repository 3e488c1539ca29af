package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventUserSignedUp    EventType = "user.signed_up"
	EventUserVerified    EventType = "user.verified"
	EventUserDeactivated EventType = "user.deactivated"
	EventUserProfileEdit EventType = "user.profile_edited"
	EventOrderPlaced     EventType = "order.placed"
	EventOrderCancelled  EventType = "order.cancelled"
	EventOrderFulfilled  EventType = "order.fulfilled"
)

func (t EventType) IsOrderEvent() bool {
	return t == EventOrderPlaced || t == EventOrderCancelled || t == EventOrderFulfilled
}

// UserEvent is the payload of every user.* event.
type UserEvent struct {
	EventID     string    `json:"event_id"`
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	CompanyName string    `json:"company_name"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type OrderEventLine struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Brand       string          `json:"brand"`
	Quantity    int             `json:"quantity"`
	PriceEach   decimal.Decimal `json:"price_each"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderEvent is the payload of every order.* event.
type OrderEvent struct {
	EventID     string           `json:"event_id"`
	CartID      int64            `json:"cart_id"`
	UserID      int64            `json:"user_id"`
	Email       string           `json:"email"`
	FullName    string           `json:"full_name"`
	CompanyName string           `json:"company_name"`
	Status      string           `json:"status"`
	Lines       []OrderEventLine `json:"lines"`
	Pricing     Pricing          `json:"pricing"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

func NewOrderEvent(eventID string, cart *Cart, owner *User, at time.Time) OrderEvent {
	lines := make([]OrderEventLine, len(cart.Lines))
	for i, l := range cart.Lines {
		lines[i] = OrderEventLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Brand:       l.Brand,
			Quantity:    l.Quantity,
			PriceEach:   l.PriceEach,
			Subtotal:    l.Subtotal(),
		}
	}
	return OrderEvent{
		EventID:     eventID,
		CartID:      cart.ID,
		UserID:      owner.ID,
		Email:       owner.Email,
		FullName:    owner.FullName(),
		CompanyName: owner.CompanyName,
		Status:      cart.Status.String(),
		Lines:       lines,
		Pricing:     cart.Pricing(),
		OccurredAt:  at,
	}
}

func NewUserEvent(eventID string, u *User, at time.Time) UserEvent {
	return UserEvent{
		EventID:     eventID,
		UserID:      u.ID,
		Email:       u.Email,
		FullName:    u.FullName(),
		CompanyName: u.CompanyName,
		OccurredAt:  at,
	}
}
