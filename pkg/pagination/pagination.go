package pagination

import (
	"net/url"
	"strconv"

	apperrors "github.com/sunil0336/MovieBuffs-sub000/pkg/errors"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds the page/limit pair requested by a client.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// DefaultParams returns the defaults used when the query omits page and limit.
func DefaultParams() Params {
	return Params{Page: DefaultPage, Limit: DefaultLimit}
}

// Offset returns the number of rows to skip for this page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Validate rejects out-of-range values instead of clamping them.
func (p Params) Validate() error {
	fields := map[string]string{}
	if p.Page < 1 {
		fields["page"] = "must be at least 1"
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		fields["limit"] = "must be between 1 and " + strconv.Itoa(MaxLimit)
	}
	if len(fields) > 0 {
		return apperrors.Validation("invalid pagination", fields)
	}
	return nil
}

// FromQuery extracts page and limit from URL query values. Absent values take
// their defaults; malformed or out-of-range values are a validation error.
func FromQuery(q url.Values) (Params, error) {
	p := DefaultParams()
	fields := map[string]string{}

	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			fields["page"] = "must be an integer"
		} else {
			p.Page = v
		}
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			fields["limit"] = "must be an integer"
		} else {
			p.Limit = v
		}
	}
	if len(fields) > 0 {
		return Params{}, apperrors.Validation("invalid pagination", fields)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Info is the pagination block returned alongside every listing.
type Info struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// Pages returns ceil(total/limit).
func Pages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit > 0 {
		pages++
	}
	return pages
}

// NewInfo builds the pagination block for a result with the given total.
func NewInfo(total int, p Params) Info {
	return Info{Total: total, Page: p.Page, Pages: Pages(total, p.Limit)}
}
