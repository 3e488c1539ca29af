package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type StockKind string

const (
	StockReceived StockKind = "RECEIVED"
	StockSold     StockKind = "SOLD"
	StockShrink   StockKind = "SHRINK"
)

func (k StockKind) Valid() bool {
	return k == StockReceived || k == StockSold || k == StockShrink
}

func ParseStockKind(s string) (StockKind, error) {
	k := StockKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown stock kind %q", s)
	}
	return k, nil
}

// StockEntry is one row of the append-only ledger. Quantity is signed:
// reversals are recorded as new entries with a negative quantity.
type StockEntry struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Kind      StockKind `json:"kind"`
	Quantity  int       `json:"quantity"`
	CartID    *int64    `json:"cart_id,omitempty"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// StockLevel is aggregated from the ledger at read time.
type StockLevel struct {
	ProductID int64 `json:"product_id"`
	Received  int   `json:"received"`
	Sold      int   `json:"sold"`
	Shrink    int   `json:"shrink"`
}

func (s StockLevel) Current() int {
	return s.Received - s.Sold - s.Shrink
}

func (s StockLevel) Total() int {
	return s.Current() + s.Sold
}

func (s StockLevel) MarshalJSON() ([]byte, error) {
	type level StockLevel
	return json.Marshal(struct {
		level
		Current int `json:"current"`
		Total   int `json:"total"`
	}{level(s), s.Current(), s.Total()})
}

// Apply folds one ledger entry into the level.
func (s *StockLevel) Apply(e StockEntry) {
	switch e.Kind {
	case StockReceived:
		s.Received += e.Quantity
	case StockSold:
		s.Sold += e.Quantity
	case StockShrink:
		s.Shrink += e.Quantity
	}
}
