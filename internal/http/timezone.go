package http

import (
	"context"
	"time"

	"github.com/zsiskos/roadstartire/internal/domain"
	"github.com/zsiskos/roadstartire/internal/notifylog"
)

// The helpers below copy before converting: carts and catalog items may be
// shared through the caches.

// locationFrom is the caller's timezone, Toronto for anonymous requests.
func locationFrom(ctx context.Context) *time.Location {
	if user := getUserFromContext(ctx); user != nil {
		return user.Location()
	}
	loc, err := time.LoadLocation(domain.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func localTimePtr(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	local := t.In(loc)
	return &local
}

func localUser(u *domain.User, loc *time.Location) *domain.User {
	out := *u
	out.DateJoined = u.DateJoined.In(loc)
	return &out
}

func localUsers(users []*domain.User, loc *time.Location) []*domain.User {
	out := make([]*domain.User, len(users))
	for i, u := range users {
		out[i] = localUser(u, loc)
	}
	return out
}

func localCart(c *domain.Cart, loc *time.Location) *domain.Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.CreatedAt = c.CreatedAt.In(loc)
	out.UpdatedAt = c.UpdatedAt.In(loc)
	out.OrderedAt = localTimePtr(c.OrderedAt, loc)
	out.ClosedAt = localTimePtr(c.ClosedAt, loc)
	out.Lines = make([]domain.CartLine, len(c.Lines))
	for i, l := range c.Lines {
		l.CreatedAt = l.CreatedAt.In(loc)
		l.UpdatedAt = l.UpdatedAt.In(loc)
		out.Lines[i] = l
	}
	return &out
}

func localOrder(o domain.Order, loc *time.Location) domain.Order {
	o.Cart = localCart(o.Cart, loc)
	if o.Shipping != nil {
		shipping := *o.Shipping
		shipping.CapturedAt = shipping.CapturedAt.In(loc)
		o.Shipping = &shipping
	}
	return o
}

func localOrders(orders []domain.Order, loc *time.Location) []domain.Order {
	out := make([]domain.Order, len(orders))
	for i, o := range orders {
		out[i] = localOrder(o, loc)
	}
	return out
}

func localTire(t domain.Tire, loc *time.Location) domain.Tire {
	t.EffectiveAt = t.EffectiveAt.In(loc)
	t.CreatedAt = t.CreatedAt.In(loc)
	return t
}

func localTires(tires []domain.Tire, loc *time.Location) []domain.Tire {
	out := make([]domain.Tire, len(tires))
	for i, t := range tires {
		out[i] = localTire(t, loc)
	}
	return out
}

func localItem(item domain.CatalogItem, loc *time.Location) domain.CatalogItem {
	item.Product.CreatedAt = item.Product.CreatedAt.In(loc)
	item.Current = localTire(item.Current, loc)
	images := make([]domain.Image, len(item.Images))
	for i, img := range item.Images {
		images[i] = localImage(img, loc)
	}
	item.Images = images
	return item
}

func localItems(items []domain.CatalogItem, loc *time.Location) []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(items))
	for i, item := range items {
		out[i] = localItem(item, loc)
	}
	return out
}

func localImage(img domain.Image, loc *time.Location) domain.Image {
	img.CreatedAt = img.CreatedAt.In(loc)
	return img
}

func localEntries(entries []domain.StockEntry, loc *time.Location) []domain.StockEntry {
	out := make([]domain.StockEntry, len(entries))
	for i, e := range entries {
		e.CreatedAt = e.CreatedAt.In(loc)
		out[i] = e
	}
	return out
}

func localDeliveries(deliveries []notifylog.Delivery, loc *time.Location) []notifylog.Delivery {
	out := make([]notifylog.Delivery, len(deliveries))
	for i, d := range deliveries {
		d.SentAt = d.SentAt.In(loc)
		out[i] = d
	}
	return out
}
