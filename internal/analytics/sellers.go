package analytics

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"stockpulse/backend/internal/domain"
	"stockpulse/backend/internal/store"
)

const nameLookupConcurrency = 8

// selectExtreme returns the single best (desc) or worst (asc) selling product in
// [from, to), or nil when the user sold nothing in that span.
func selectExtreme(ctx context.Context, repo store.Repository, userID string, from time.Time, to time.Time, order domain.SortOrder) (*domain.ExtremeSeller, error) {
	rows, err := repo.SumQuantityByProduct(ctx, userID, from, to, order, 1)
	if err != nil {
		return nil, fetchError("quantity by product", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	name, err := resolveName(ctx, repo, userID, rows[0].ProductID)
	if err != nil {
		return nil, err
	}
	return &domain.ExtremeSeller{Name: name, UnitsSold: rows[0].Quantity}, nil
}

func rankSellers(ctx context.Context, repo store.Repository, userID string, from time.Time, to time.Time, order domain.SortOrder, limit int) ([]domain.RankedSeller, error) {
	rows, err := repo.SumQuantityByProduct(ctx, userID, from, to, order, limit)
	if err != nil {
		return nil, fetchError("quantity by product", err)
	}

	sellers := make([]domain.RankedSeller, len(rows))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(nameLookupConcurrency)
	for i, row := range rows {
		i, row := i, row
		group.Go(func() error {
			name, err := resolveName(groupCtx, repo, userID, row.ProductID)
			if err != nil {
				return err
			}
			sellers[i] = domain.RankedSeller{ProductID: row.ProductID, Name: name, UnitsSold: row.Quantity}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return sellers, nil
}

// resolveName looks up a product's display name. A product deleted after the
// sale resolves to nil rather than failing the response.
func resolveName(ctx context.Context, repo store.Repository, userID string, productID string) (*string, error) {
	name, err := repo.GetProductName(ctx, userID, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fetchError("product name", err)
	}
	if name == "" {
		return nil, nil
	}
	return &name, nil
}
