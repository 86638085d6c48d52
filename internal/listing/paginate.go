// Package listing pages search results and renders them as an inline keyboard.
package listing

import "lunemusic/internal/domain"

const DefaultPageSize = 10

type Page struct {
	Items      []domain.SearchResultItem
	Number     int
	Total      int
	TotalPages int
	// Offset is the zero-based index of Items[0] within the full result set.
	Offset int
}

// Paginate returns the 1-indexed page of results. Pages outside
// [1, TotalPages] come back with no items.
func Paginate(results []domain.SearchResultItem, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(results)
	out := Page{
		Number:     page,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
		Items:      []domain.SearchResultItem{},
	}
	if page < 1 || page > out.TotalPages {
		return out
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	out.Offset = start
	out.Items = results[start:end]
	return out
}

func (p Page) HasPrev() bool { return p.Number > 1 }

func (p Page) HasNext() bool { return p.Number < p.TotalPages }
