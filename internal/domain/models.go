package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}

type TransactionItem struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	ProductID     string    `json:"product_id"`
	Quantity      int64     `json:"quantity"`
	CreatedAt     time.Time `json:"created_at"`
}

type Product struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type Granularity string

const (
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// TruncUnit is the calendar unit a timestamp is truncated to when grouping.
type TruncUnit string

const (
	TruncDay   TruncUnit = "day"
	TruncMonth TruncUnit = "month"
	TruncYear  TruncUnit = "year"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// PeriodTotal is one sparse row of a grouped-sum-by-truncated-date query.
type PeriodTotal struct {
	Period time.Time       `json:"period"`
	Total  decimal.Decimal `json:"total"`
}

// ProductQuantity is one sparse row of a grouped-sum-by-product query.
type ProductQuantity struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type PaymentMethodTotal struct {
	Method       string          `json:"method"`
	Total        decimal.Decimal `json:"totalAmount"`
	Transactions int64           `json:"transactionCount"`
}

// MarshalJSON writes totalAmount as a JSON number. Decoding accepts both the
// number and the quoted form through decimal.Decimal.
func (p PaymentMethodTotal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Method       string      `json:"method"`
		Total        json.Number `json:"totalAmount"`
		Transactions int64       `json:"transactionCount"`
	}{
		Method:       p.Method,
		Total:        json.Number(p.Total.String()),
		Transactions: p.Transactions,
	})
}

type Bucket struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

type ComparisonResult struct {
	TotalRevenue     float64 `json:"totalRevenue"`
	PercentageChange float64 `json:"percentageChange"`
	IsPositive       bool    `json:"isPositive"`
}

type SalesAnalytics struct {
	CurrentPeriod    []Bucket `json:"currentPeriod"`
	TotalRevenue     float64  `json:"totalRevenue"`
	PercentageChange float64  `json:"percentageChange"`
	IsPositive       bool     `json:"isPositive"`
}

type ExtremeSeller struct {
	Name      *string `json:"name"`
	UnitsSold int64   `json:"unitsSold"`
}

type GeneralAnalytics struct {
	TopProduct *ExtremeSeller `json:"topProduct"`
	LowProduct *ExtremeSeller `json:"lowProduct"`
}

type RankedSeller struct {
	ProductID string  `json:"productId"`
	Name      *string `json:"name"`
	UnitsSold int64   `json:"unitsSold"`
}

type SellerRanking struct {
	Order   SortOrder      `json:"order"`
	Count   int            `json:"count"`
	Sellers []RankedSeller `json:"sellers"`
}

type PaymentBreakdown struct {
	Days      int                  `json:"days"`
	Breakdown []PaymentMethodTotal `json:"breakdown"`
}

type Actor struct {
	UserID string
}
