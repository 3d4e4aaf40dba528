package services

import (
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/ctxvault/internal/server/validate"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// Page is a limit/offset window of a listing.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads limit and offset query values. Empty values take the
// defaults; anything out of range is a validate.FieldError.
func ParsePage(limit, offset string) (Page, error) {
	p := Page{Limit: DefaultPageLimit}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > MaxPageLimit {
			return Page{}, &validate.FieldError{Field: "limit", Reason: fmt.Sprintf("must be an integer between 1 and %d", MaxPageLimit)}
		}
		p.Limit = n
	}
	if offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return Page{}, &validate.FieldError{Field: "offset", Reason: "must be a non-negative integer"}
		}
		p.Offset = n
	}
	return p, nil
}
