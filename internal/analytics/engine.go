package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"stockpulse/backend/internal/domain"
	"stockpulse/backend/internal/store"
)

const (
	DefaultRankLimit     = 10
	MaxRankLimit         = 100
	DefaultBreakdownDays = 30
	MaxBreakdownDays     = 3650
)

// Engine answers analytics requests over a Repository. It holds no per-request
// state and can be shared by any number of goroutines.
type Engine struct {
	repo store.Repository
	now  func() time.Time
	loc  *time.Location
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func NewEngine(repo store.Repository, opts ...Option) *Engine {
	e := &Engine{
		repo: repo,
		now:  time.Now,
		loc:  time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Location() *time.Location {
	return e.loc
}

func (e *Engine) SalesAnalytics(ctx context.Context, userID string, g domain.Granularity) (domain.SalesAnalytics, error) {
	if err := requireUser(userID); err != nil {
		return domain.SalesAnalytics{}, err
	}

	spec := Resolve(g, e.now().In(e.loc), e.loc)
	rows, err := e.repo.SumTransactionsByPeriod(ctx, userID, spec.Unit, spec.From, spec.To, e.loc)
	if err != nil {
		return domain.SalesAnalytics{}, fetchError("revenue by period", err)
	}

	current := Sequence(spec.Current, spec.Unit, rows, e.loc)
	comparison := Sequence(spec.Comparison, spec.Unit, rows, e.loc)
	return AssembleSales(Buckets(spec, current), Compare(current, comparison)), nil
}

// GeneralAnalytics selects the best and worst seller in the trailing window.
// Both selections run concurrently and share nothing but the window.
func (e *Engine) GeneralAnalytics(ctx context.Context, userID string, g domain.Granularity) (domain.GeneralAnalytics, error) {
	if err := requireUser(userID); err != nil {
		return domain.GeneralAnalytics{}, err
	}

	from, to := TrailingWindow(g, e.now())
	var top, low *domain.ExtremeSeller

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		top, err = selectExtreme(groupCtx, e.repo, userID, from, to, domain.SortDesc)
		return err
	})
	group.Go(func() error {
		var err error
		low, err = selectExtreme(groupCtx, e.repo, userID, from, to, domain.SortAsc)
		return err
	})
	if err := group.Wait(); err != nil {
		return domain.GeneralAnalytics{}, err
	}

	return AssembleGeneral(top, low), nil
}

func (e *Engine) RankSellers(ctx context.Context, userID string, order domain.SortOrder, limit int, g domain.Granularity) (domain.SellerRanking, error) {
	if err := requireUser(userID); err != nil {
		return domain.SellerRanking{}, err
	}
	if order != domain.SortAsc {
		order = domain.SortDesc
	}
	if limit < 1 {
		limit = DefaultRankLimit
	}
	if limit > MaxRankLimit {
		limit = MaxRankLimit
	}

	from, to := TrailingWindow(g, e.now())
	sellers, err := rankSellers(ctx, e.repo, userID, from, to, order, limit)
	if err != nil {
		return domain.SellerRanking{}, err
	}
	return domain.SellerRanking{Order: order, Count: len(sellers), Sellers: sellers}, nil
}

func (e *Engine) PaymentBreakdown(ctx context.Context, userID string, days int) (domain.PaymentBreakdown, error) {
	if err := requireUser(userID); err != nil {
		return domain.PaymentBreakdown{}, err
	}
	if days < 1 {
		days = DefaultBreakdownDays
	}
	if days > MaxBreakdownDays {
		days = MaxBreakdownDays
	}

	to := e.now()
	from := to.Add(-time.Duration(days) * 24 * time.Hour)
	rows, err := e.repo.SumTransactionsByPaymentMethod(ctx, userID, from, to)
	if err != nil {
		return domain.PaymentBreakdown{}, fetchError("revenue by payment method", err)
	}
	if rows == nil {
		rows = []domain.PaymentMethodTotal{}
	}
	return domain.PaymentBreakdown{Days: days, Breakdown: rows}, nil
}
