// Package paging implements the stateless pagination used by owner-facing
// selection menus. Callers keep the full item list and page size in session
// state and re-run Paginate for prev/next moves.
package paging

import "errors"

var ErrPageOutOfBounds = errors.New("page out of bounds")

// Nav describes which navigation affordances the rendered page should offer.
type Nav int

const (
	NavNeither Nav = iota
	NavPrevOnly
	NavNextOnly
	NavBoth
)

type Page struct {
	Items []string
	Index int
	Last  int
	Nav   Nav
}

// Paginate clamps page into [0, last] and slices out the requested window.
// An empty list yields a single empty page.
func Paginate(items []string, page, size int) Page {
	if size < 1 {
		size = 1
	}
	last := 0
	if len(items) > 0 {
		last = (len(items) - 1) / size
	}
	if page < 0 {
		page = 0
	}
	if page > last {
		page = last
	}

	lo := page * size
	hi := lo + size
	if hi > len(items) {
		hi = len(items)
	}

	nav := NavNeither
	switch {
	case page > 0 && page < last:
		nav = NavBoth
	case page > 0:
		nav = NavPrevOnly
	case page < last:
		nav = NavNextOnly
	}

	return Page{Items: items[lo:hi], Index: page, Last: last, Nav: nav}
}

// Move validates a prev/next request against the current snapshot and returns
// the target page. Requests that would leave [0, last] are rejected.
func Move(items []string, current, size, delta int) (Page, error) {
	if len(items) == 0 {
		return Page{}, ErrPageOutOfBounds
	}
	if size < 1 {
		size = 1
	}
	target := current + delta
	last := (len(items) - 1) / size
	if target < 0 || target > last {
		return Page{}, ErrPageOutOfBounds
	}
	return Paginate(items, target, size), nil
}
