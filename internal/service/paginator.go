package service

import "strconv"

const (
	OrdersPerPage = 5
	OrdersOrphans = 3
)

// Paginator splits count items into pages. A trailing page holding no more
// than orphans items is folded into the page before it.
type Paginator struct {
	count   int
	perPage int
	orphans int
}

type Page struct {
	Number      int  `json:"number"`
	NumPages    int  `json:"num_pages"`
	Count       int  `json:"count"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
	Offset      int  `json:"-"`
	Limit       int  `json:"-"`
}

func NewPaginator(count, perPage, orphans int) Paginator {
	if perPage < 1 {
		perPage = 1
	}
	if orphans < 0 {
		orphans = 0
	}
	return Paginator{count: count, perPage: perPage, orphans: orphans}
}

func (p Paginator) NumPages() int {
	if p.count == 0 {
		return 1
	}
	hits := p.count - p.orphans
	if hits < 1 {
		hits = 1
	}
	return (hits + p.perPage - 1) / p.perPage
}

// GetPage never fails: a non-numeric page gives the first page and a number
// outside the range gives the last one.
func (p Paginator) GetPage(raw string) Page {
	number, err := strconv.Atoi(raw)
	if err != nil {
		number = 1
	}
	numPages := p.NumPages()
	if number < 1 || number > numPages {
		number = numPages
	}

	bottom := (number - 1) * p.perPage
	top := bottom + p.perPage
	if top+p.orphans >= p.count {
		top = p.count
	}

	return Page{
		Number:      number,
		NumPages:    numPages,
		Count:       p.count,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
		Offset:      bottom,
		Limit:       top - bottom,
	}
}
