package audit

import (
	"context"
	"testing"
	"time"
)

type mockTimelineRepo struct {
	rows    []TimelineRow
	err     error
	calls   int
	gotOff  int
	gotLim  int
	filters TimelineFilters
}

func (m *mockTimelineRepo) Timeline(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	m.calls++
	m.filters = filters
	m.gotOff = offset
	m.gotLim = limit
	if m.err != nil {
		return nil, m.err
	}
	if offset >= len(m.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.rows) {
		end = len(m.rows)
	}
	return m.rows[offset:end], nil
}

func makeRows(n int) []TimelineRow {
	rows := make([]TimelineRow, n)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range rows {
		rows[i] = TimelineRow{
			At:       base.Add(time.Duration(i) * time.Minute),
			Actor:    "admin-1",
			Action:   ActionGrant,
			UserID:   "u1",
			RoleCode: "editor",
			Scope:    "global",
		}
	}
	return rows
}

func TestTimelineDefaultsAndPaging(t *testing.T) {
	repo := &mockTimelineRepo{rows: makeRows(25)}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), TimelineFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 20 {
		t.Fatalf("expected 20 rows, got %d", len(res.Rows))
	}
	if !res.Paging.HasNext || res.Paging.NextPage != 2 {
		t.Fatalf("expected next page 2, got %+v", res.Paging)
	}
	if repo.gotLim != 21 {
		t.Fatalf("expected look-ahead limit 21, got %d", repo.gotLim)
	}

	res, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 5 {
		t.Fatalf("expected 5 rows on page 2, got %d", len(res.Rows))
	}
	if res.Paging.HasNext {
		t.Fatal("page 2 should be the last page")
	}
	if res.Paging.PrevPage != 1 {
		t.Fatalf("expected prev page 1, got %d", res.Paging.PrevPage)
	}
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &mockTimelineRepo{rows: makeRows(60)}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 50 {
		t.Fatalf("expected clamp to 50 rows, got %d", len(res.Rows))
	}
}

func TestTimelineEmptyResult(t *testing.T) {
	svc := NewService(&mockTimelineRepo{})
	res, err := svc.Timeline(context.Background(), TimelineFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Rows == nil || len(res.Rows) != 0 {
		t.Fatalf("expected empty non-nil rows, got %v", res.Rows)
	}
}
