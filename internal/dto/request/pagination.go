package request

import (
	"math"

	"yamdb/pkg/utils"
)

type PaginatedRequest struct {
	Page    int `json:"page" validate:"min=1"`
	PerPage int `json:"per_page" validate:"min=1,max=100"`
}

func (p PaginatedRequest) Offset() int {
	return utils.CalculateOffset(p.Page, p.Limit())
}

func (p PaginatedRequest) Limit() int {
	if p.PerPage < 1 {
		return 10
	}
	if p.PerPage > 100 {
		return 100
	}
	return p.PerPage
}

// NewPaginatedRequest normalizes raw query values into a request.
func NewPaginatedRequest(page, perPage int) *PaginatedRequest {
	req := &PaginatedRequest{Page: page, PerPage: perPage}
	if req.Page < 1 {
		req.Page = 1
	}
	req.PerPage = req.Limit()
	// keeps (page-1)*per_page inside int
	if req.Page > math.MaxInt/req.PerPage {
		req.Page = math.MaxInt / req.PerPage
	}
	return req
}
