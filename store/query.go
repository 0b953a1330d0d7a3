package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/theoremus-urban-solutions/gtfsrt-alerts/incident"
)

// Status selects incidents by where "now" falls relative to their window.
type Status string

const (
	StatusAny       Status = ""
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusUpcoming  Status = "upcoming"
)

// Pagination bounds applied by Filter.normalize.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter shapes a read-API listing.
type Filter struct {
	Status    Status
	Route     string // exact membership against route_ids
	Stop      string // exact membership against stop_ids
	TimeFrame string // "today" | "week" | "month"
	Page      int
	PageSize  int
	SortBy    string // time_start | time_end | header_text | created_at | updated_at
	SortOrder string // asc | desc
}

var sortColumns = map[string]string{
	"timeStart":  "time_start",
	"timeEnd":    "time_end",
	"headerText": "header_text",
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
}

func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > MaxPageSize {
		f.PageSize = DefaultPageSize
	}
	if _, ok := sortColumns[f.SortBy]; !ok {
		f.SortBy = "timeStart"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
}

func (f *Filter) apply(db *gorm.DB, now time.Time) *gorm.DB {
	q := db
	switch f.Status {
	case StatusActive:
		q = q.Where("time_start <= ?", now).
			Where("time_end IS NULL OR time_end >= ?", now)
	case StatusCompleted:
		q = q.Where("time_end IS NOT NULL AND time_end < ?", now)
	case StatusUpcoming:
		q = q.Where("time_start > ?", now)
	}

	switch f.TimeFrame {
	case "today":
		q = q.Where("time_start >= ?", startOfDay(now))
	case "week":
		start := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
		q = q.Where("time_start >= ?", start)
	case "month":
		q = q.Where("time_start >= ?", time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()))
	}

	// Coarse SQL pre-filter; the exact membership test runs in Go.
	if f.Route != "" {
		q = q.Where("route_ids LIKE ?", "%"+incident.NormalizeID(f.Route)+"%")
	}
	if f.Stop != "" {
		q = q.Where("stop_ids LIKE ?", "%"+incident.NormalizeID(f.Stop)+"%")
	}
	return q
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// List returns one page of incidents plus the total match count. Identifier
// filters are refined to exact membership after the coarse SQL pass, so
// pagination for those runs in memory over the (small) refined set.
func (s *Store) List(ctx context.Context, f Filter) ([]incident.Incident, int64, error) {
	f.normalize()
	now := time.Now()
	order := sortColumns[f.SortBy] + " " + f.SortOrder

	base := f.apply(s.db.WithContext(ctx).Model(&incident.Incident{}), now)

	if f.Route == "" && f.Stop == "" {
		var total int64
		if err := base.Count(&total).Error; err != nil {
			return nil, 0, fmt.Errorf("count incidents: %w", err)
		}
		var rows []incident.Incident
		err := base.Order(order).
			Limit(f.PageSize).
			Offset((f.Page - 1) * f.PageSize).
			Preload("Complements").
			Find(&rows).Error
		if err != nil {
			return nil, 0, fmt.Errorf("list incidents: %w", err)
		}
		return rows, total, nil
	}

	var rows []incident.Incident
	if err := base.Order(order).Preload("Complements").Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list incidents: %w", err)
	}

	refined := rows[:0]
	for _, row := range rows {
		if f.Route != "" && !row.RouteIDs.ContainsID(f.Route) {
			continue
		}
		if f.Stop != "" && !row.StopIDs.ContainsID(f.Stop) {
			continue
		}
		refined = append(refined, row)
	}

	total := int64(len(refined))
	lo := (f.Page - 1) * f.PageSize
	if lo > len(refined) {
		return nil, total, nil
	}
	hi := lo + f.PageSize
	if hi > len(refined) {
		hi = len(refined)
	}
	return refined[lo:hi], total, nil
}
