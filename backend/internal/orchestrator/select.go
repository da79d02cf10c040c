package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bu-isciii/tierarch/backend/internal/services"
)

var ErrInvalidRange = errors.New("invalid date range")

// `Inventory` is implemented by `inventory.Client`.
type Inventory interface {
	Service(ctx context.Context, requestId string) ([]services.Record, error)
	Delivered(ctx context.Context, from, until time.Time) ([]services.Record, error)
}

// `Selection` is either a single service or an inclusive date range.
type Selection struct {
	Service string
	From    time.Time
	Until   time.Time
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// `ValidateRange()` requires `from <= until <= today`, compared by day.
func ValidateRange(from, until, now time.Time) error {
	if from.IsZero() || until.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidRange)
	}
	today := day(now)
	switch {
	case day(until).Before(day(from)):
		return fmt.Errorf(
			"%w: until %s is before from %s", ErrInvalidRange,
			until.Format("2006-01-02"), from.Format("2006-01-02"),
		)
	case day(from).After(today):
		return fmt.Errorf(
			"%w: from %s is in the future", ErrInvalidRange,
			from.Format("2006-01-02"),
		)
	case day(until).After(today):
		return fmt.Errorf(
			"%w: until %s is in the future", ErrInvalidRange,
			until.Format("2006-01-02"),
		)
	}
	return nil
}

// `MonthRange()` returns the inclusive range of a year, or of one month in
// it if `month` is not zero.  A range that extends beyond `now` ends at
// `now`.
func MonthRange(year, month int, now time.Time) (time.Time, time.Time, error) {
	if year < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf(
			"%w: year %d", ErrInvalidRange, year,
		)
	}
	if month < 0 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf(
			"%w: month %d", ErrInvalidRange, month,
		)
	}

	var from, until time.Time
	if month == 0 {
		from = time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		until = from.AddDate(1, 0, -1)
	} else {
		from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		until = from.AddDate(0, 1, -1)
	}
	if today := day(now); until.After(today) {
		until = today
	}
	return from, until, ValidateRange(from, until, now)
}

// `Select()` queries the inventory.  It returns `ErrNotFound` if nothing
// matches.  Duplicate request ids are dropped.
func Select(
	ctx context.Context, inv Inventory, sel Selection, now time.Time,
) ([]services.Record, error) {
	var recs []services.Record
	var err error
	if sel.Service != "" {
		recs, err = inv.Service(ctx, sel.Service)
	} else {
		if err := ValidateRange(sel.From, sel.Until, now); err != nil {
			return nil, err
		}
		recs, err = inv.Delivered(ctx, sel.From, sel.Until)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	out := make([]services.Record, 0, len(recs))
	for _, r := range recs {
		if seen[r.RequestId] {
			continue
		}
		seen[r.RequestId] = true
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
