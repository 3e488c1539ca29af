package domain

import "fmt"

// CartStatus values are persisted as integers; never renumber them.
type CartStatus int

const (
	CartStatusCurrent    CartStatus = 0
	CartStatusInProgress CartStatus = 1
	CartStatusCancelled  CartStatus = 2
	CartStatusFulfilled  CartStatus = 3
	CartStatusAbandoned  CartStatus = 4
)

var cartStatusNames = map[CartStatus]string{
	CartStatusCurrent:    "CURRENT",
	CartStatusInProgress: "IN_PROGRESS",
	CartStatusCancelled:  "CANCELLED",
	CartStatusFulfilled:  "FULFILLED",
	CartStatusAbandoned:  "ABANDONED",
}

// allowed forward moves, anything not listed here is illegal
var cartTransitions = map[CartStatus][]CartStatus{
	CartStatusCurrent:    {CartStatusInProgress, CartStatusAbandoned},
	CartStatusInProgress: {CartStatusFulfilled, CartStatusCancelled},
}

func (s CartStatus) String() string {
	if name, ok := cartStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CartStatus(%d)", int(s))
}

// Readable is the label shown to customers.
func (s CartStatus) Readable() string {
	switch s {
	case CartStatusCurrent:
		return "Current"
	case CartStatusInProgress:
		return "In progress"
	case CartStatusCancelled:
		return "Cancelled"
	case CartStatusFulfilled:
		return "Fulfilled"
	case CartStatusAbandoned:
		return "Abandoned"
	default:
		return "Unknown"
	}
}

func (s CartStatus) Valid() bool {
	_, ok := cartStatusNames[s]
	return ok
}

// IsClosed reports whether the cart reached a terminal state.
func (s CartStatus) IsClosed() bool {
	return s == CartStatusCancelled || s == CartStatusFulfilled || s == CartStatusAbandoned
}

// IsOrder reports whether the cart has been submitted at some point.
func (s CartStatus) IsOrder() bool {
	return s == CartStatusInProgress || s == CartStatusCancelled || s == CartStatusFulfilled
}

func CanTransitionTo(from, to CartStatus) bool {
	for _, next := range cartTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ParseCartStatus(s string) (CartStatus, error) {
	for status, name := range cartStatusNames {
		if name == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown cart status %q", s)
}
