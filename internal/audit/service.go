// Package audit reads back the audit trail written by admin operations.
package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Service serves the audit timeline.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of entries, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
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

	rows, err := s.repo.Window(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("audit timeline: %w", err)
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
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

// Export returns every matching entry without paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	rows, err := s.repo.Window(ctx, windowParams(filters))
	if err != nil {
		return nil, fmt.Errorf("audit export: %w", err)
	}
	return rows, nil
}

func windowParams(f TimelineFilters) WindowParams {
	return WindowParams{
		From:     toPgTime(f.From),
		To:       toPgTime(f.To),
		ActorID:  optionalID(f.ActorID),
		Entity:   optionalText(f.Entity),
		EntityID: optionalText(f.EntityID),
		Action:   optionalText(f.Action),
	}
}

// WriteCSV encodes rows with the meta column as compact JSON.
func WriteCSV(w io.Writer, rows []TimelineRow) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true
	if err := writer.Write([]string{"At", "Actor", "Action", "Entity", "Entity ID", "Meta"}); err != nil {
		return err
	}
	for _, row := range rows {
		meta, err := json.Marshal(row.Meta)
		if err != nil {
			return err
		}
		actor := row.Actor
		if actor == "" {
			actor = strconv.FormatInt(row.ActorID, 10)
		}
		if err := writer.Write([]string{
			row.At.UTC().Format(time.RFC3339),
			actor,
			row.Action,
			row.Entity,
			row.EntityID,
			string(meta),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
