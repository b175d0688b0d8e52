package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Ceasar-x/sschool/store"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100

	// maxPage keeps (page-1)*limit within int64.
	maxPage = math.MaxInt64 / maxLimit
)

type pageParams struct {
	Page   int64
	Limit  int64
	Search string
}

// parsePage reads page, limit and search. Missing, non-numeric or non-positive
// values fall back to the defaults.
func parsePage(r *http.Request) pageParams {
	q := r.URL.Query()
	p := pageParams{
		Page:   positiveInt(q.Get("page"), defaultPage),
		Limit:  positiveInt(q.Get("limit"), defaultLimit),
		Search: strings.TrimSpace(q.Get("search")),
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

func (p pageParams) store() store.Page {
	return store.Page{Skip: (p.Page - 1) * p.Limit, Limit: p.Limit}
}

func positiveInt(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

type pageResponse struct {
	Items       any   `json:"items"`
	TotalPages  int64 `json:"totalPages"`
	CurrentPage int64 `json:"currentPage"`
	Total       int64 `json:"total"`
}

func newPage(items any, total int64, p pageParams) pageResponse {
	return pageResponse{
		Items:       items,
		TotalPages:  (total + p.Limit - 1) / p.Limit,
		CurrentPage: p.Page,
		Total:       total,
	}
}
