package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stockpulse/backend/internal/domain"
	"stockpulse/backend/internal/store"
	"stockpulse/backend/internal/xid"
)

const DemoUserID = "demo-user"

type Store struct {
	mu           sync.RWMutex
	products     map[string]domain.Product
	transactions []domain.Transaction
	items        []domain.TransactionItem
}

func New() *Store {
	return &Store{
		products:     make(map[string]domain.Product),
		transactions: make([]domain.Transaction, 0, 256),
		items:        make([]domain.TransactionItem, 0, 512),
	}
}

// NewSeeded returns a store holding two years of deterministic demo sales for
// DemoUserID, ending yesterday.
func NewSeeded() *Store {
	s := New()

	products := []domain.Product{
		{ID: "prd-rice", UserID: DemoUserID, Name: "Rice Bag 5kg"},
		{ID: "prd-oil", UserID: DemoUserID, Name: "Cooking Oil 1L"},
		{ID: "prd-sugar", UserID: DemoUserID, Name: "Sugar 1kg"},
		{ID: "prd-tea", UserID: DemoUserID, Name: "Tea Bags"},
		{ID: "prd-soap", UserID: DemoUserID, Name: "Bath Soap"},
	}
	for _, p := range products {
		_ = s.AddProduct(p)
	}

	prices := []int64{75, 32, 18, 12, 9}
	methods := []string{"cash", "card", "upi"}
	today := time.Now()
	for day := 0; day < 730; day++ {
		if day%4 == 3 {
			continue
		}
		at := time.Date(today.Year(), today.Month(), today.Day()-day-1, 9+day%10, (day*7)%60, 0, 0, time.Local)
		first := day % len(products)
		second := (day + 2) % len(products)
		lines := []domain.TransactionItem{
			{ProductID: products[first].ID, Quantity: int64(1 + day%3)},
			{ProductID: products[second].ID, Quantity: int64(1 + day%2)},
		}
		total := prices[first]*lines[0].Quantity + prices[second]*lines[1].Quantity
		_, _ = s.AddTransaction(domain.Transaction{
			UserID:        DemoUserID,
			TotalAmount:   decimal.NewFromInt(total),
			PaymentMethod: methods[day%len(methods)],
			CreatedAt:     at,
		}, lines)
	}

	slog.Default().Info("memory store seeded", "user_id", DemoUserID, "transactions", len(s.transactions))
	return s
}

func (s *Store) AddProduct(product domain.Product) error {
	if strings.TrimSpace(product.UserID) == "" || strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("product requires user id and name")
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[productKey(product.UserID, product.ID)] = product
	return nil
}

func (s *Store) DeleteProduct(userID string, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, productKey(userID, productID))
}

// AddTransaction records a sale and its line items atomically. Line items
// inherit the transaction's owner and timestamp.
func (s *Store) AddTransaction(tx domain.Transaction, items []domain.TransactionItem) (*domain.Transaction, error) {
	if strings.TrimSpace(tx.UserID) == "" {
		return nil, fmt.Errorf("transaction requires user id")
	}
	if tx.TotalAmount.IsNegative() {
		return nil, fmt.Errorf("transaction total must not be negative")
	}
	for _, item := range items {
		if item.ProductID == "" || item.Quantity < 1 {
			return nil, fmt.Errorf("line items require a product and a positive quantity")
		}
	}
	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, tx)
	for _, item := range items {
		if item.ID == "" {
			item.ID = xid.New("txi")
		}
		item.UserID = tx.UserID
		item.TransactionID = tx.ID
		item.CreatedAt = tx.CreatedAt
		s.items = append(s.items, item)
	}

	created := tx
	return &created, nil
}

func (s *Store) SumTransactionsByPeriod(_ context.Context, userID string, unit domain.TruncUnit, from time.Time, to time.Time, loc *time.Location) ([]domain.PeriodTotal, error) {
	if err := store.ValidRange(from, to); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[time.Time]decimal.Decimal)
	for _, tx := range s.transactions {
		if tx.UserID != userID || !inRange(tx.CreatedAt, from, to) {
			continue
		}
		period := store.Truncate(tx.CreatedAt, unit, loc)
		totals[period] = totals[period].Add(tx.TotalAmount)
	}

	rows := make([]domain.PeriodTotal, 0, len(totals))
	for period, total := range totals {
		rows = append(rows, domain.PeriodTotal{Period: period, Total: total})
	}
	slices.SortFunc(rows, func(a, b domain.PeriodTotal) int {
		return a.Period.Compare(b.Period)
	})
	return rows, nil
}

func (s *Store) SumQuantityByProduct(_ context.Context, userID string, from time.Time, to time.Time, order domain.SortOrder, limit int) ([]domain.ProductQuantity, error) {
	if err := store.ValidRange(from, to); err != nil {
		return nil, err
	}

	s.mu.RLock()
	totals := make(map[string]int64)
	for _, item := range s.items {
		if item.UserID != userID || !inRange(item.CreatedAt, from, to) {
			continue
		}
		totals[item.ProductID] += item.Quantity
	}
	s.mu.RUnlock()

	rows := make([]domain.ProductQuantity, 0, len(totals))
	for productID, qty := range totals {
		rows = append(rows, domain.ProductQuantity{ProductID: productID, Quantity: qty})
	}
	slices.SortFunc(rows, func(a, b domain.ProductQuantity) int {
		if a.Quantity != b.Quantity {
			if order == domain.SortAsc {
				return compareInt64(a.Quantity, b.Quantity)
			}
			return compareInt64(b.Quantity, a.Quantity)
		}
		return strings.Compare(a.ProductID, b.ProductID)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Store) GetProductName(_ context.Context, userID string, productID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[productKey(userID, productID)]
	if !ok {
		return "", store.ErrNotFound
	}
	return product.Name, nil
}

func (s *Store) SumTransactionsByPaymentMethod(_ context.Context, userID string, from time.Time, to time.Time) ([]domain.PaymentMethodTotal, error) {
	if err := store.ValidRange(from, to); err != nil {
		return nil, err
	}

	s.mu.RLock()
	byMethod := make(map[string]*domain.PaymentMethodTotal)
	for _, tx := range s.transactions {
		if tx.UserID != userID || !inRange(tx.CreatedAt, from, to) {
			continue
		}
		row, ok := byMethod[tx.PaymentMethod]
		if !ok {
			row = &domain.PaymentMethodTotal{Method: tx.PaymentMethod}
			byMethod[tx.PaymentMethod] = row
		}
		row.Total = row.Total.Add(tx.TotalAmount)
		row.Transactions++
	}
	s.mu.RUnlock()

	rows := make([]domain.PaymentMethodTotal, 0, len(byMethod))
	for _, row := range byMethod {
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(a, b domain.PaymentMethodTotal) int {
		return strings.Compare(a.Method, b.Method)
	})
	return rows, nil
}

func productKey(userID string, productID string) string {
	return userID + "|" + productID
}

func inRange(at time.Time, from time.Time, to time.Time) bool {
	return !at.Before(from) && at.Before(to)
}

func compareInt64(a int64, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
