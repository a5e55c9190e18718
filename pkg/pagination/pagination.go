// Package pagination computes page slices and the bounded page-selector window
// shared by every list view of the portal.
package pagination

// WindowSize is the maximum number of page links rendered by a page selector.
const WindowSize = 5

// Page is one page of a list plus the numbers needed for a
// "Showing X to Y of Z" line.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
	StartIndex int `json:"start_index"` // 1-based, 0 when Total is 0
	EndIndex   int `json:"end_index"`   // 1-based, 0 when Total is 0
}

// Window is the set of page links to render.
type Window struct {
	Pages            []int `json:"pages"`
	TrailingEllipsis bool  `json:"trailing_ellipsis"`
	LastPage         int   `json:"last_page"`
}

// Paginate returns the items of the requested page. It does not clamp page:
// a page past the end yields an empty slice, callers reset to page one.
// perPage must be at least 1 (see Normalize).
func Paginate[T any](items []T, page, perPage int) Page[T] {
	total := len(items)
	p := Page[T]{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: TotalPages(total, perPage),
		Items:      []T{},
	}
	if total == 0 {
		return p
	}

	start := (page - 1) * perPage
	end := page * perPage
	start = clamp(start, 0, total)
	end = clamp(end, 0, total)
	if start < end {
		p.Items = items[start:end]
	}

	p.StartIndex = min((page-1)*perPage+1, total)
	p.EndIndex = min(page*perPage, total)
	return p
}

// TotalPages is max(1, ceil(total/perPage)).
func TotalPages(total, perPage int) int {
	if perPage < 1 {
		perPage = 1
	}
	pages := (total + perPage - 1) / perPage
	if pages < 1 {
		return 1
	}
	return pages
}

// VisiblePageWindow returns at most WindowSize page numbers around page.
func VisiblePageWindow(page, totalPages int) Window {
	if totalPages < 1 {
		totalPages = 1
	}
	w := Window{LastPage: totalPages}

	var first, last int
	switch {
	case totalPages <= WindowSize:
		first, last = 1, totalPages
	case page <= 3:
		first, last = 1, WindowSize
	case page >= totalPages-2:
		first, last = totalPages-WindowSize+1, totalPages
	default:
		first, last = page-2, page+2
	}

	w.Pages = make([]int, 0, last-first+1)
	for n := first; n <= last; n++ {
		w.Pages = append(w.Pages, n)
	}
	w.TrailingEllipsis = totalPages > WindowSize && page < totalPages-2
	return w
}

// Normalize guards the caller contract of Paginate: page >= 1, perPage >= 1.
func Normalize(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	return page, perPage
}

// ResetIfOutOfRange sends a page that no longer exists (for example after a
// filter shrank the result set) back to page one.
func ResetIfOutOfRange(page, totalPages int) int {
	if page > totalPages {
		return 1
	}
	return page
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
