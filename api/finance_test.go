package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-finance-web/api"
	"github.com/jrsteele09/go-finance-web/apifake"
	"github.com/jrsteele09/go-finance-web/finance"
	"github.com/jrsteele09/go-finance-web/internal/utils"
	"github.com/jrsteele09/go-finance-web/storage"
	"github.com/jrsteele09/go-finance-web/token"
	"github.com/stretchr/testify/require"
)

// fixClock pins the fake API's clock for the test.
func fixClock(t *testing.T, now time.Time) {
	t.Helper()
	previous := apifake.NowTimeFunc
	apifake.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { apifake.NowTimeFunc = previous })
}

func TestClient_Transactions(t *testing.T) {
	ctx := context.Background()
	fixClock(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	f := setupTestFixture(t)
	f.login(t)

	food, err := f.backend.AddCategory(testEmail, finance.Category{Name: "Food", Type: finance.Expense})
	require.NoError(t, err)
	require.Equal(t, finance.DefaultCategoryIcon, food.Icon)

	t.Run("create", func(t *testing.T) {
		created, err := f.client.CreateTransaction(ctx, finance.TransactionInput{
			Category:    utils.Ptr(food.ID),
			Amount:      1250,
			Type:        finance.Expense,
			Description: "Lunch",
			Date:        "2026-03-14",
		})
		require.NoError(t, err)
		require.NotZero(t, created.ID)
		require.Equal(t, "Food", created.CategoryName)
		require.Equal(t, finance.Amount(1250), created.Amount)

		_, err = f.client.CreateTransaction(ctx, finance.TransactionInput{Amount: 3000, Type: finance.Income, Description: "Refund", Date: "2026-03-02"})
		require.NoError(t, err)
	})

	t.Run("validation errors", func(t *testing.T) {
		_, err := f.client.CreateTransaction(ctx, finance.TransactionInput{Category: utils.Ptr(int64(999)), Amount: 0, Type: finance.Expense, Date: "2026-03-14"})
		apiErr, ok := api.AsError(err)
		require.True(t, ok)
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		require.Equal(t, []string{finance.AmountNotPositiveMessage}, apiErr.FieldErrors()["amount"])
		require.Equal(t, []string{"amount", "category"}, apiErr.FieldNames())
	})

	t.Run("list newest first", func(t *testing.T) {
		transactions, err := f.client.Transactions(ctx, finance.TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, transactions, 2)
		require.Equal(t, "Lunch", transactions[0].Description)
		require.Equal(t, "Refund", transactions[1].Description)
		require.Nil(t, transactions[1].Category)
	})

	t.Run("list filtered", func(t *testing.T) {
		transactions, err := f.client.Transactions(ctx, finance.TransactionFilter{Type: finance.Income})
		require.NoError(t, err)
		require.Len(t, transactions, 1)
		require.Equal(t, finance.Amount(3000), transactions[0].Amount)

		transactions, err = f.client.Transactions(ctx, finance.TransactionFilter{Category: food.ID, DateTo: "2026-03-13"})
		require.NoError(t, err)
		require.Empty(t, transactions)
	})

	t.Run("categories", func(t *testing.T) {
		_, err := f.backend.AddCategory(testEmail, finance.Category{Name: "Bills", Type: finance.Expense})
		require.NoError(t, err)
		categories, err := f.client.Categories(ctx)
		require.NoError(t, err)
		require.Len(t, categories, 2)
		require.Equal(t, "Bills", categories[0].Name)
	})
}

func TestClient_BudgetsAndAnalytics(t *testing.T) {
	ctx := context.Background()
	fixClock(t, time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC))
	f := setupTestFixture(t)

	t.Run("require a token", func(t *testing.T) {
		_, err := f.client.DashboardStats(ctx)
		require.Error(t, err)
		require.Equal(t, 0, f.backend.Calls(api.PathDashboard))
	})

	f.login(t)
	require.NoError(t, f.backend.SeedLedger(testEmail))
	food, err := f.backend.AddCategory(testEmail, finance.Category{Name: "Food", Type: finance.Expense})
	require.NoError(t, err)
	_, err = f.backend.AddTransaction(testEmail, finance.TransactionInput{Category: utils.Ptr(food.ID), Amount: 1500, Type: finance.Expense, Date: "2025-12-31"})
	require.NoError(t, err)
	_, err = f.backend.AddBudget(testEmail, finance.Budget{Category: food.ID, Amount: 1000, Month: "2025-12-01"})
	require.NoError(t, err)

	t.Run("dashboard covers the current month", func(t *testing.T) {
		stats, err := f.client.DashboardStats(ctx)
		require.NoError(t, err)
		require.Equal(t, "January 2026", stats.Month)
		require.Equal(t, finance.Amount(350000), stats.Income)
		require.Equal(t, finance.Amount(128450), stats.Expenses)
		require.Equal(t, finance.Amount(221550), stats.Balance)
		require.Equal(t, 3, stats.TransactionCount)
	})

	t.Run("budgets", func(t *testing.T) {
		budgets, err := f.client.Budgets(ctx)
		require.NoError(t, err)
		require.Len(t, budgets, 2)
		require.Equal(t, "2026-01-01", budgets[0].Month)
		require.Equal(t, "Groceries", budgets[0].CategoryName)
		require.Equal(t, "2025-12-01", budgets[1].Month)
	})

	t.Run("progress is for the current month only", func(t *testing.T) {
		progress, err := f.client.BudgetProgress(ctx)
		require.NoError(t, err)
		require.Len(t, progress, 1)
		require.Equal(t, "Groceries", progress[0].Category)
		require.Equal(t, finance.Amount(40000), progress[0].Budget)
		require.Equal(t, finance.Amount(8450), progress[0].Spent)
		require.Equal(t, finance.Amount(31550), progress[0].Remaining)
		require.InDelta(t, 21.125, progress[0].Percentage, 0.01)
		require.False(t, progress[0].Over())
	})
}

func TestClient_ListShapes(t *testing.T) {
	ctx := context.Background()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case api.PathTransactions:
			_, _ = w.Write([]byte(`{"count":1,"next":null,"previous":null,"results":[{"id":7,"amount":"4.20","type":"expense","date":"2026-03-01","category":null}]}`))
		case api.PathBudgets:
			_, _ = w.Write([]byte(`{"detail":"not a page"}`))
		case api.PathDashboard:
			_, _ = w.Write([]byte(`{"income":1200.5,"expenses":200,"balance":1000.5,"transaction_count":4,"month":"March 2026"}`))
		default:
			_, _ = w.Write([]byte(`null`))
		}
	}))
	t.Cleanup(ts.Close)

	store := storage.NewInMemoryStore()
	require.NoError(t, token.Save(ctx, store, token.Pair{Access: "A", Refresh: "R"}))
	client := api.New(ts.URL, token.NewStoreTokenSource(store))

	transactions, err := client.Transactions(ctx, finance.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	require.Equal(t, finance.Amount(420), transactions[0].Amount)

	_, err = client.Budgets(ctx)
	require.ErrorIs(t, err, api.ErrDecode)

	stats, err := client.DashboardStats(ctx)
	require.NoError(t, err)
	require.Equal(t, finance.Amount(120050), stats.Income)
	require.Equal(t, "1000.50", stats.Balance.String())

	categories, err := client.Categories(ctx)
	require.NoError(t, err)
	require.Empty(t, categories)
}
