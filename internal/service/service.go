package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"stockpulse/backend/internal/analytics"
	"stockpulse/backend/internal/cache"
	"stockpulse/backend/internal/domain"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	engine   *analytics.Engine
	cache    cache.ResponseCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

func New(engine *analytics.Engine, cacheStore cache.ResponseCache, cacheTTL time.Duration, logger *slog.Logger) *Service {
	if cacheStore == nil {
		cacheStore = cache.NoopCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		engine:   engine,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		logger:   logger.With("component", "analytics"),
	}
}

// Sales returns the revenue series for the actor on ctx. An unrecognised
// filter is treated as year.
func (s *Service) Sales(ctx context.Context, filter string) (domain.SalesAnalytics, error) {
	userID := actorUserID(ctx)
	g := analytics.ParseGranularity(filter)
	return cached(ctx, s, "sales", cache.Key("sales", userID, string(g)), func() (domain.SalesAnalytics, error) {
		return s.engine.SalesAnalytics(ctx, userID, g)
	})
}

// General returns the best and worst seller for the actor on ctx. An empty
// filter selects the monthly lookback.
func (s *Service) General(ctx context.Context, filter string) (domain.GeneralAnalytics, error) {
	userID := actorUserID(ctx)
	g := domain.GranularityMonth
	if strings.TrimSpace(filter) != "" {
		g = analytics.ParseGranularity(filter)
	}
	return cached(ctx, s, "general", cache.Key("general", userID, string(g)), func() (domain.GeneralAnalytics, error) {
		return s.engine.GeneralAnalytics(ctx, userID, g)
	})
}

func (s *Service) Sellers(ctx context.Context, order domain.SortOrder, limit int, filter string) (domain.SellerRanking, error) {
	userID := actorUserID(ctx)
	g := domain.GranularityMonth
	if strings.TrimSpace(filter) != "" {
		g = analytics.ParseGranularity(filter)
	}
	key := cache.Key("sellers", userID, string(order), strconv.Itoa(limit), string(g))
	return cached(ctx, s, "sellers", key, func() (domain.SellerRanking, error) {
		return s.engine.RankSellers(ctx, userID, order, limit, g)
	})
}

func (s *Service) Payments(ctx context.Context, days int) (domain.PaymentBreakdown, error) {
	userID := actorUserID(ctx)
	return cached(ctx, s, "payments", cache.Key("payments", userID, strconv.Itoa(days)), func() (domain.PaymentBreakdown, error) {
		return s.engine.PaymentBreakdown(ctx, userID, days)
	})
}

// cached serves key from the response cache, computing and storing it on a
// miss. Cache failures are logged and never fail the request.
func cached[T any](ctx context.Context, s *Service, op string, key string, compute func() (T, error)) (T, error) {
	var hit T
	if ok, err := s.cache.Get(ctx, key, &hit); err != nil {
		s.logger.WarnContext(ctx, "cache read failed", "op", op, "key", key, "error", err)
	} else if ok {
		return hit, nil
	}

	startedAt := time.Now()
	result, err := compute()
	if err != nil {
		var zero T
		s.logFailure(ctx, op, err)
		return zero, err
	}
	s.logger.DebugContext(ctx, "analytics computed", "op", op, "duration_ms", time.Since(startedAt).Milliseconds())

	if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "op", op, "key", key, "error", err)
	}
	return result, nil
}

func (s *Service) logFailure(ctx context.Context, op string, err error) {
	attrs := []any{"op", op, "user_id", actorUserID(ctx), "error", err}
	switch {
	case errors.Is(err, analytics.ErrMissingUser):
		s.logger.WarnContext(ctx, "analytics request rejected", attrs...)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.WarnContext(ctx, "analytics request aborted", attrs...)
	default:
		s.logger.ErrorContext(ctx, "analytics request failed", attrs...)
	}
}

func actorUserID(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	return strings.TrimSpace(actor.UserID)
}
