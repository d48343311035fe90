package shared

import (
	"net/url"
	"strconv"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Page describes a bounded listing window.
type Page struct {
	Number int
	Size   int
}

// PageFromQuery reads page and limit query params, clamping to sane bounds.
func PageFromQuery(q url.Values) Page {
	number, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("limit"))
	return NewPage(number, size)
}

// NewPage normalises page number and size.
func NewPage(number, size int) Page {
	if number <= 0 {
		number = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset returns the SQL offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
