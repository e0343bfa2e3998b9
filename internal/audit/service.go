package audit

import (
	"context"
	"fmt"
	"strings"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Repository reads timeline rows.
type Repository interface {
	TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error)
}

// Service serves the operator activity log.
type Service struct {
	repo Repository
}

// NewService creates the timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of the activity log.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	params := windowParams(filters)
	params.Offset = (page - 1) * pageSize
	params.Limit = pageSize + 1

	rows, err := s.repo.TimelineWindow(ctx, params)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every matching row without paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.TimelineWindow(ctx, windowParams(filters))
}

func windowParams(f TimelineFilters) WindowParams {
	return WindowParams{
		From:   f.From,
		To:     f.To,
		Actor:  strings.TrimSpace(f.Actor),
		Entity: strings.TrimSpace(f.Entity),
		Action: strings.TrimSpace(f.Action),
	}
}
