// Package pagination computes page windows and next-page links for listings.
package pagination

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// PageSize is the fixed number of items per page.
const PageSize = 10

// MaxPage is the largest page whose skip still fits in an int. Larger
// requests are clamped to it and land past the end of any listing.
const MaxPage = math.MaxInt/PageSize + 1

// Window is the page selected by a request and the slice of rows it covers.
type Window struct {
	Page  int
	Skip  int
	Limit int
}

// Parse resolves the requested page. Anything missing, non-numeric or below 2
// is page 1. Pages above MaxPage, including ones too large for an int, are MaxPage.
func Parse(raw string) Window {
	page := 1
	n, err := strconv.Atoi(raw)
	switch {
	case err == nil && n >= 2:
		page = min(n, MaxPage)
	case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-"):
		page = MaxPage
	}
	return Window{
		Page:  page,
		Skip:  (page - 1) * PageSize,
		Limit: PageSize,
	}
}

// TotalPages returns ceil(total / PageSize).
func TotalPages(total int64) int {
	if total <= 0 {
		return 0
	}
	return int((total + PageSize - 1) / PageSize)
}

// NextURL returns base with its page parameter set to page+1, or nil when
// page is the last one. Every other query parameter on base is kept.
func NextURL(base string, page, totalPages int) *string {
	if page >= totalPages {
		return nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page+1))
	u.RawQuery = q.Encode()
	next := u.String()
	return &next
}
