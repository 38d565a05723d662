package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"stockpulse/backend/internal/domain"
	"stockpulse/backend/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id text PRIMARY KEY,
	user_id text NOT NULL,
	name text
);

CREATE TABLE IF NOT EXISTS transactions (
	id text PRIMARY KEY,
	user_id text NOT NULL,
	total_amount numeric(14,2) NOT NULL DEFAULT 0,
	payment_method text NOT NULL DEFAULT '',
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transaction_items (
	id text PRIMARY KEY,
	user_id text NOT NULL,
	transaction_id text NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
	product_id text NOT NULL,
	quantity bigint NOT NULL CHECK (quantity > 0),
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS transactions_user_created_idx ON transactions (user_id, created_at);
CREATE INDEX IF NOT EXISTS transaction_items_user_created_idx ON transaction_items (user_id, created_at);
`

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables the analytics queries read from when they
// do not exist yet. Existing tables are left untouched.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) SumTransactionsByPeriod(ctx context.Context, userID string, unit domain.TruncUnit, from time.Time, to time.Time, loc *time.Location) ([]domain.PeriodTotal, error) {
	if err := store.ValidRange(from, to); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}

	if name, ok := zoneName(loc); ok {
		return s.sumByNamedZone(ctx, userID, unit, from, to, loc, name)
	}
	return s.sumByQuarterHour(ctx, userID, unit, from, to, loc)
}

func (s *Store) sumByNamedZone(ctx context.Context, userID string, unit domain.TruncUnit, from time.Time, to time.Time, loc *time.Location, zone string) ([]domain.PeriodTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date_trunc($1::text, created_at AT TIME ZONE $2::text) AS period,
			COALESCE(SUM(total_amount), 0)::numeric
		FROM transactions
		WHERE user_id = $3
			AND created_at >= $4
			AND created_at < $5
		GROUP BY period
		ORDER BY period
	`, string(unit), zone, userID, from, to)
	if err != nil {
		return nil, classify("sum transactions by period", err)
	}
	defer rows.Close()

	totals := make([]domain.PeriodTotal, 0, 24)
	for rows.Next() {
		var (
			wall  time.Time
			total decimal.Decimal
		)
		if err := rows.Scan(&wall, &total); err != nil {
			return nil, err
		}
		// date_trunc over a zoned timestamp yields wall-clock fields with no
		// zone attached; rebuild them in loc.
		period := time.Date(wall.Year(), wall.Month(), wall.Day(), 0, 0, 0, 0, loc)
		totals = append(totals, domain.PeriodTotal{Period: period, Total: total})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("sum transactions by period", err)
	}

	return totals, nil
}

// sumByQuarterHour serves zones the server cannot name. It sums in UTC bins
// small enough that no real offset splits one, then truncates each bin in loc.
func (s *Store) sumByQuarterHour(ctx context.Context, userID string, unit domain.TruncUnit, from time.Time, to time.Time, loc *time.Location) ([]domain.PeriodTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT floor(extract(epoch FROM created_at) / $1::integer)::bigint AS bin,
			COALESCE(SUM(total_amount), 0)::numeric
		FROM transactions
		WHERE user_id = $2
			AND created_at >= $3
			AND created_at < $4
		GROUP BY bin
		ORDER BY bin
	`, binSeconds, userID, from, to)
	if err != nil {
		return nil, classify("sum transactions by period", err)
	}
	defer rows.Close()

	bins := make([]domain.PeriodTotal, 0, 64)
	for rows.Next() {
		var (
			bin   int64
			total decimal.Decimal
		)
		if err := rows.Scan(&bin, &total); err != nil {
			return nil, err
		}
		bins = append(bins, domain.PeriodTotal{Period: time.Unix(bin*binSeconds, 0), Total: total})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("sum transactions by period", err)
	}

	return regroup(bins, unit, loc), nil
}

const binSeconds = 15 * 60

// regroup folds ascending bins into the calendar units of loc.
func regroup(bins []domain.PeriodTotal, unit domain.TruncUnit, loc *time.Location) []domain.PeriodTotal {
	totals := make([]domain.PeriodTotal, 0, 24)
	for _, bin := range bins {
		period := store.Truncate(bin.Period, unit, loc)
		if n := len(totals); n > 0 && totals[n-1].Period.Equal(period) {
			totals[n-1].Total = totals[n-1].Total.Add(bin.Total)
			continue
		}
		totals = append(totals, domain.PeriodTotal{Period: period, Total: bin.Total})
	}
	return totals
}

func (s *Store) SumQuantityByProduct(ctx context.Context, userID string, from time.Time, to time.Time, order domain.SortOrder, limit int) ([]domain.ProductQuantity, error) {
	if err := store.ValidRange(from, to); err != nil {
		return nil, err
	}
	direction := "DESC"
	if order == domain.SortAsc {
		direction = "ASC"
	}
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT product_id, COALESCE(SUM(quantity), 0)::bigint AS total
		FROM transaction_items
		WHERE user_id = $1
			AND created_at >= $2
			AND created_at < $3
		GROUP BY product_id
		ORDER BY total %s, product_id ASC
		LIMIT $4
	`, direction), userID, from, to, limitArg)
	if err != nil {
		return nil, classify("sum quantity by product", err)
	}
	defer rows.Close()

	quantities := make([]domain.ProductQuantity, 0, 16)
	for rows.Next() {
		var row domain.ProductQuantity
		if err := rows.Scan(&row.ProductID, &row.Quantity); err != nil {
			return nil, err
		}
		quantities = append(quantities, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("sum quantity by product", err)
	}

	return quantities, nil
}

func (s *Store) GetProductName(ctx context.Context, userID string, productID string) (string, error) {
	var name sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT name
		FROM products
		WHERE user_id = $1 AND id = $2
	`, userID, productID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", classify("get product name", err)
	}
	return name.String, nil
}

func (s *Store) SumTransactionsByPaymentMethod(ctx context.Context, userID string, from time.Time, to time.Time) ([]domain.PaymentMethodTotal, error) {
	if err := store.ValidRange(from, to); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COUNT(*)::bigint, COALESCE(SUM(total_amount), 0)::numeric
		FROM transactions
		WHERE user_id = $1
			AND created_at >= $2
			AND created_at < $3
		GROUP BY payment_method
		ORDER BY payment_method
	`, userID, from, to)
	if err != nil {
		return nil, classify("sum transactions by payment method", err)
	}
	defer rows.Close()

	breakdown := make([]domain.PaymentMethodTotal, 0, 4)
	for rows.Next() {
		var row domain.PaymentMethodTotal
		if err := rows.Scan(&row.Method, &row.Transactions, &row.Total); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("sum transactions by payment method", err)
	}

	return breakdown, nil
}

const localtimePath = "/etc/localtime"

// zoneName returns the tz database name PostgreSQL should group in. The
// process zone is resolved from TZ or the /etc/localtime link, since
// time.Local only reports itself as "Local".
func zoneName(loc *time.Location) (string, bool) {
	name := loc.String()
	if loc == time.Local || name == "Local" {
		name = localZoneName()
	}
	if name == "" {
		return "", false
	}
	if _, err := time.LoadLocation(name); err != nil {
		return "", false
	}
	return name, true
}

func localZoneName() string {
	if tz, ok := os.LookupEnv("TZ"); ok {
		if tz == "" {
			return "UTC"
		}
		return zoneinfoName(strings.TrimPrefix(tz, ":"))
	}
	target, err := os.Readlink(localtimePath)
	if err != nil {
		return ""
	}
	return zoneinfoName(target)
}

func zoneinfoName(path string) string {
	const marker = "zoneinfo/"
	if i := strings.LastIndex(path, marker); i >= 0 {
		return path[i+len(marker):]
	}
	return path
}

func classify(op string, err error) error {
	if isUndefinedTable(err) {
		return fmt.Errorf("%s: %w", op, store.ErrSchemaMissing)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}
	return false
}
