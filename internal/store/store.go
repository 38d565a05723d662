package store

import (
	"context"
	"errors"
	"time"

	"stockpulse/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidRange = errors.New("invalid range")

	ErrSchemaMissing = errors.New("analytics tables are missing")
)

// Repository is the read-only aggregate surface the analytics engine needs.
// Every method is scoped to a single owning user and to the half-open range
// [from, to). Rows are sparse: groups without data are absent, never zero.
type Repository interface {
	SumTransactionsByPeriod(ctx context.Context, userID string, unit domain.TruncUnit, from time.Time, to time.Time, loc *time.Location) ([]domain.PeriodTotal, error)
	SumQuantityByProduct(ctx context.Context, userID string, from time.Time, to time.Time, order domain.SortOrder, limit int) ([]domain.ProductQuantity, error)
	GetProductName(ctx context.Context, userID string, productID string) (string, error)
	SumTransactionsByPaymentMethod(ctx context.Context, userID string, from time.Time, to time.Time) ([]domain.PaymentMethodTotal, error)
}

// Truncate returns the start of the unit containing t, in loc.
func Truncate(t time.Time, unit domain.TruncUnit, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	switch unit {
	case domain.TruncYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc)
	case domain.TruncMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	}
}

func ValidRange(from time.Time, to time.Time) error {
	if !from.Before(to) {
		return ErrInvalidRange
	}
	return nil
}
