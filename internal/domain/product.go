package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product groups every dated Tire revision of one sellable item.
type Product struct {
	ID        int64     `json:"id"`
	SKU       string    `json:"sku"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxPrice is the first price too large for the price columns.
var MaxPrice = decimal.NewFromInt(100000)

// TireSpec is the editable part of a revision.
type TireSpec struct {
	TreadID     *int64          `json:"tread_id,omitempty"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Year        string          `json:"year"`
	Width       string          `json:"width"`
	AspectRatio string          `json:"aspect_ratio"`
	RimSize     string          `json:"rim_size"`
	Season      string          `json:"season"`
	Pattern     string          `json:"pattern"`
	Loads       string          `json:"loads"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
}

// Tire is one immutable revision of a product, effective from EffectiveAt.
type Tire struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	EffectiveAt time.Time `json:"effective_at"`
	CreatedAt   time.Time `json:"created_at"`
	TireSpec
}

type Tread struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Image struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	URL       string    `json:"url"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// CatalogItem is a product as shown to buyers: its current revision,
// pictures and derived stock levels.
type CatalogItem struct {
	Product Product    `json:"product"`
	Current Tire       `json:"current"`
	Tread   *Tread     `json:"tread,omitempty"`
	Images  []Image    `json:"images"`
	Stock   StockLevel `json:"stock"`

	// NextRevisionAt is when a scheduled revision replaces Current. Cached
	// copies must not outlive it.
	NextRevisionAt *time.Time `json:"-"`
}

// CurrentRevision picks the revision with the greatest EffectiveAt not
// after at; ties go to the greater id.
func CurrentRevision(revisions []Tire, at time.Time) (*Tire, bool) {
	var best *Tire
	for i := range revisions {
		r := &revisions[i]
		if r.EffectiveAt.After(at) {
			continue
		}
		if best == nil ||
			r.EffectiveAt.After(best.EffectiveAt) ||
			(r.EffectiveAt.Equal(best.EffectiveAt) && r.ID > best.ID) {
			best = r
		}
	}
	return best, best != nil
}

// TireQuery is the customer search form: width, brand and season, each
// matched as a case-insensitive substring.
type TireQuery struct {
	Width  string
	Brand  string
	Season string
}

func (q TireQuery) Empty() bool {
	return q.Width == "" && q.Brand == "" && q.Season == ""
}

// ProductFilter drives the staff listing.
type ProductFilter struct {
	Brand  string
	Year   string
	Season string
	Search string
	Limit  int
	Offset int
}

// NextRevisionAt returns the earliest EffectiveAt after at.
func NextRevisionAt(revisions []Tire, at time.Time) (time.Time, bool) {
	var next time.Time
	for _, r := range revisions {
		if r.EffectiveAt.After(at) && (next.IsZero() || r.EffectiveAt.Before(next)) {
			next = r.EffectiveAt
		}
	}
	return next, !next.IsZero()
}
