package core

// Page is one slice of a paginated list.
type Page[T any] struct {
	Items      []T
	Number     int // 1-based
	PerPage    int
	TotalItems int
	TotalPages int
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }
func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages }
func (p Page[T]) Prev() int     { return p.Number - 1 }
func (p Page[T]) Next() int     { return p.Number + 1 }

// Paginate returns page number page of items. Out-of-range pages are
// clamped to the first or last page; perPage below 1 means 10. An empty
// list still has one (empty) page.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage < 1 {
		perPage = 10
	}
	n := len(items)
	total := max(1, (n+perPage-1)/perPage)
	if page > total {
		page = total
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	end := min(start+perPage, n)
	if start > n {
		start = n
	}
	return Page[T]{
		Items:      items[start:end],
		Number:     page,
		PerPage:    perPage,
		TotalItems: n,
		TotalPages: total,
	}
}
