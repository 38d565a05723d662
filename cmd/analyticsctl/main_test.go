package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpulse/backend/internal/config"
	"stockpulse/backend/internal/domain"
	"stockpulse/backend/internal/store"
	"stockpulse/backend/internal/store/memory"
)

func fixtureOpen(t *testing.T) openFunc {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("LOG_LEVEL", "error")

	repo := memory.New()
	require.NoError(t, repo.AddProduct(domain.Product{ID: "p-kopi", UserID: "u1", Name: "Kopi Susu"}))
	require.NoError(t, repo.AddProduct(domain.Product{ID: "p-teh", UserID: "u1", Name: "Teh Manis"}))
	_, err := repo.AddTransaction(domain.Transaction{
		UserID:        "u1",
		TotalAmount:   decimal.NewFromInt(45),
		PaymentMethod: "cash",
		CreatedAt:     time.Now().Add(-time.Hour),
	}, []domain.TransactionItem{{ProductID: "p-kopi", Quantity: 3}, {ProductID: "p-teh", Quantity: 1}})
	require.NoError(t, err)

	closed := false
	t.Cleanup(func() { assert.True(t, closed, "repository was not released") })
	return func(context.Context, config.Config) (store.Repository, func() error, error) {
		return repo, func() error { closed = true; return nil }, nil
	}
}

func runCLI(t *testing.T, open openFunc, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr, open)
	return code, stdout.String(), stderr.String()
}

func TestSalesCommand(t *testing.T) {
	code, out, _ := runCLI(t, fixtureOpen(t), "sales", "u1", "week")
	require.Equal(t, 0, code)

	var sales domain.SalesAnalytics
	require.NoError(t, json.Unmarshal([]byte(out), &sales))
	assert.Len(t, sales.CurrentPeriod, 7)
	assert.Equal(t, 45.0, sales.TotalRevenue)
	assert.Equal(t, 100.0, sales.PercentageChange)
	assert.True(t, sales.IsPositive)
}

func TestGeneralCommandDefaultsToMonth(t *testing.T) {
	code, out, _ := runCLI(t, fixtureOpen(t), "general", "u1")
	require.Equal(t, 0, code)

	var general domain.GeneralAnalytics
	require.NoError(t, json.Unmarshal([]byte(out), &general))
	require.NotNil(t, general.TopProduct)
	assert.Equal(t, "Kopi Susu", *general.TopProduct.Name)
	assert.Equal(t, "Teh Manis", *general.LowProduct.Name)
}

func TestRankingCommands(t *testing.T) {
	code, out, _ := runCLI(t, fixtureOpen(t), "low-selling", "u1", "1")
	require.Equal(t, 0, code)

	var ranking domain.SellerRanking
	require.NoError(t, json.Unmarshal([]byte(out), &ranking))
	assert.Equal(t, domain.SortAsc, ranking.Order)
	require.Len(t, ranking.Sellers, 1)
	assert.Equal(t, "p-teh", ranking.Sellers[0].ProductID)

	code, out, _ = runCLI(t, fixtureOpen(t), "top-selling", "u1", "--filter", "week")
	require.Equal(t, 0, code)
	require.NoError(t, json.Unmarshal([]byte(out), &ranking))
	assert.Equal(t, 2, ranking.Count)
	assert.Equal(t, "p-kopi", ranking.Sellers[0].ProductID)
}

func TestPaymentsCommand(t *testing.T) {
	code, out, _ := runCLI(t, fixtureOpen(t), "payments", "u1", "7")
	require.Equal(t, 0, code)

	var breakdown domain.PaymentBreakdown
	require.NoError(t, json.Unmarshal([]byte(out), &breakdown))
	assert.Equal(t, 7, breakdown.Days)
	require.Len(t, breakdown.Breakdown, 1)
	assert.Equal(t, "cash", breakdown.Breakdown[0].Method)
}

func TestInvalidNumberFails(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	code, out, errOut := runCLI(t, nil, "payments", "u1", "lots")

	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(errOut), &payload))
	assert.Equal(t, "Command execution failed", payload["error"])
	assert.Contains(t, payload["message"], "days must be a positive number")
}

func TestRepositoryFailureIsReported(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("LOG_LEVEL", "error")
	open := func(context.Context, config.Config) (store.Repository, func() error, error) {
		return nil, nil, errors.New("connect postgres: connection refused")
	}

	code, _, errOut := runCLI(t, open, "sales", "u1")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "connection refused")
}

func TestMissingUserArgument(t *testing.T) {
	code, _, errOut := runCLI(t, nil, "general")
	assert.Equal(t, 1, code)
	assert.True(t, strings.Contains(errOut, "Command execution failed"))
}

func TestVersionCommand(t *testing.T) {
	code, out, _ := runCLI(t, nil, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, version+"\n", out)
}
