package domain

import "time"

// CartFilter drives the staff cart listing.
type CartFilter struct {
	Status       *CartStatus
	EmailSearch  string
	OrderedAfter *time.Time
	OrderedTo    *time.Time
	Limit        int
	Offset       int
}

type UserFilter struct {
	Search string
	Active *bool
	Limit  int
	Offset int
}
