package shared

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Rating Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Rating represents a feedback rating value (1-5).
type Rating int

const (
	MinRating Rating = 1
	MaxRating Rating = 5
)

// IsValid checks if the rating is within valid range.
func (r Rating) IsValid() bool {
	return r >= MinRating && r <= MaxRating
}

// Int returns the underlying int value.
func (r Rating) Int() int {
	return int(r)
}

// NewRating creates a new Rating with validation.
func NewRating(value int) (Rating, error) {
	if value < int(MinRating) || value > int(MaxRating) {
		return 0, ErrInvalidRating
	}
	return Rating(value), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Percentage Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Round2 rounds half away from zero to two decimal places. It rounds the
// shortest decimal form of v, so 1.005 becomes 1.01.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	whole, frac, _ := strings.Cut(strconv.FormatFloat(math.Abs(v), 'f', -1, 64), ".")
	if len(frac) <= 2 {
		return v
	}
	cents, err := strconv.ParseInt(whole+frac[:2], 10, 64)
	if err != nil {
		return math.Round(v*100) / 100
	}
	if frac[2] >= '5' {
		cents++
	}
	return math.Copysign(float64(cents)/100, v)
}

// PercentOf returns part/whole*100 rounded to two decimals. whole must be non-zero.
func PercentOf(part, whole int) float64 {
	return math.Round(float64(part)*10000/float64(whole)) / 100
}

// Percent returns part/whole*100 rounded to two decimals, or nil when whole is zero.
func Percent(part, whole int) *float64 {
	if whole == 0 {
		return nil
	}
	p := PercentOf(part, whole)
	return &p
}

// Ratio returns sum/count rounded to two decimals, or nil when count is zero.
func Ratio(sum float64, count int) *float64 {
	if count == 0 {
		return nil
	}
	r := Round2(sum / float64(count))
	return &r
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a time period. Either bound may be zero (open).
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks that a closed range is not inverted.
func (t TimeRange) IsValid() bool {
	if t.From.IsZero() || t.To.IsZero() {
		return true
	}
	return !t.From.After(t.To)
}

// Contains checks if a time is within the range, bounds inclusive.
func (t TimeRange) Contains(tm time.Time) bool {
	if !t.From.IsZero() && tm.Before(t.From) {
		return false
	}
	if !t.To.IsZero() && tm.After(t.To) {
		return false
	}
	return true
}

// LastNDays returns a TimeRange covering the n days before now.
func LastNDays(now time.Time, n int) TimeRange {
	return TimeRange{
		From: now.AddDate(0, 0, -n),
		To:   now,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// DefaultPagination returns default pagination.
func DefaultPagination() Pagination {
	return NewPagination(1, DefaultPageSize)
}

// Page slices items according to p. Used by stores that filter in memory.
func Page[T any](items []T, p Pagination) []T {
	off := p.Offset()
	if off >= len(items) {
		return []T{}
	}
	end := off + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[off:end]
}

// ContainsFold reports whether substr is within s, case-insensitively.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
