package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockpulse/backend/internal/analytics"
	"stockpulse/backend/internal/domain"
	"stockpulse/backend/internal/store/memory"
)

var testNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	sets    int
	failGet bool
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return false, errors.New("cache offline")
	}
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func newTestService(t *testing.T, c *mapCache, logs *bytes.Buffer) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	engine := analytics.NewEngine(repo,
		analytics.WithClock(func() time.Time { return testNow }),
		analytics.WithLocation(time.UTC),
	)
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(engine, c, time.Minute, logger), repo
}

func actorCtx(userID string) context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: userID})
}

func TestSalesIsCachedPerUserAndFilter(t *testing.T) {
	c := newMapCache()
	var logs bytes.Buffer
	svc, repo := newTestService(t, c, &logs)

	if _, err := repo.AddTransaction(domain.Transaction{
		UserID:        "u1",
		TotalAmount:   decimal.NewFromInt(120),
		PaymentMethod: "cash",
		CreatedAt:     testNow.Add(-time.Hour),
	}, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	first, err := svc.Sales(actorCtx("u1"), "weekly")
	if err != nil {
		t.Fatalf("sales: %v", err)
	}
	if first.TotalRevenue != 120 || len(first.CurrentPeriod) != 7 {
		t.Fatalf("unexpected sales response %+v", first)
	}

	// A sale recorded after the first read is hidden until the entry expires.
	if _, err := repo.AddTransaction(domain.Transaction{
		UserID:      "u1",
		TotalAmount: decimal.NewFromInt(80),
		CreatedAt:   testNow.Add(-2 * time.Hour),
	}, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	second, err := svc.Sales(actorCtx("u1"), "week")
	if err != nil {
		t.Fatalf("sales: %v", err)
	}
	if second.TotalRevenue != 120 {
		t.Fatalf("expected cached total 120, got %v", second.TotalRevenue)
	}
	if c.sets != 1 {
		t.Fatalf("expected one cache write, got %d", c.sets)
	}

	other, err := svc.Sales(actorCtx("u2"), "week")
	if err != nil {
		t.Fatalf("sales for other user: %v", err)
	}
	if other.TotalRevenue != 0 {
		t.Fatalf("expected isolated zero total, got %v", other.TotalRevenue)
	}
}

func TestGeneralDefaultsToMonth(t *testing.T) {
	c := newMapCache()
	var logs bytes.Buffer
	svc, repo := newTestService(t, c, &logs)

	if err := repo.AddProduct(domain.Product{ID: "p-a", UserID: "u1", Name: "Kopi"}); err != nil {
		t.Fatalf("add product: %v", err)
	}
	// Twenty days back is inside the monthly lookback but outside the weekly one.
	if _, err := repo.AddTransaction(domain.Transaction{
		UserID:      "u1",
		TotalAmount: decimal.NewFromInt(10),
		CreatedAt:   testNow.Add(-20 * 24 * time.Hour),
	}, []domain.TransactionItem{{ProductID: "p-a", Quantity: 3}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := svc.General(actorCtx("u1"), "")
	if err != nil {
		t.Fatalf("general: %v", err)
	}
	if got.TopProduct == nil || *got.TopProduct.Name != "Kopi" {
		t.Fatalf("expected Kopi as top product, got %+v", got.TopProduct)
	}

	weekly, err := svc.General(actorCtx("u1"), "week")
	if err != nil {
		t.Fatalf("general weekly: %v", err)
	}
	if weekly.TopProduct != nil {
		t.Fatalf("expected no weekly top product, got %+v", weekly.TopProduct)
	}
}

func TestMissingActorIsRejectedAndLogged(t *testing.T) {
	c := newMapCache()
	var logs bytes.Buffer
	svc, _ := newTestService(t, c, &logs)

	_, err := svc.Payments(context.Background(), 30)
	if !errors.Is(err, analytics.ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
	if c.sets != 0 {
		t.Fatalf("failed requests must not be cached")
	}
	if !strings.Contains(logs.String(), "analytics request rejected") {
		t.Fatalf("expected rejection to be logged, got %s", logs.String())
	}
}

func TestCacheReadFailureFallsThrough(t *testing.T) {
	c := newMapCache()
	c.failGet = true
	var logs bytes.Buffer
	svc, _ := newTestService(t, c, &logs)

	got, err := svc.Sellers(actorCtx("u1"), domain.SortAsc, 5, "year")
	if err != nil {
		t.Fatalf("sellers: %v", err)
	}
	if got.Order != domain.SortAsc || got.Count != 0 || got.Sellers == nil {
		t.Fatalf("unexpected ranking %+v", got)
	}
	if !strings.Contains(logs.String(), "cache read failed") {
		t.Fatalf("expected cache failure to be logged, got %s", logs.String())
	}
}

func TestNilCacheUsesNoop(t *testing.T) {
	engine := analytics.NewEngine(memory.New(), analytics.WithClock(func() time.Time { return testNow }))
	svc := New(engine, nil, 0, nil)

	got, err := svc.Payments(actorCtx("u1"), 0)
	if err != nil {
		t.Fatalf("payments: %v", err)
	}
	if got.Days != analytics.DefaultBreakdownDays {
		t.Fatalf("expected default days, got %d", got.Days)
	}
}
