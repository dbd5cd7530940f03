package cli_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-finance-web/apifake"
	"github.com/jrsteele09/go-finance-web/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestFinanceCommands(t *testing.T) {
	previous := apifake.NowTimeFunc
	apifake.NowTimeFunc = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { apifake.NowTimeFunc = previous })

	f := setupTestFixture(t)
	require.NoError(t, f.backend.SeedLedger(testUserEmail))

	t.Run("guests are told to log in", func(t *testing.T) {
		err := f.run(t, "", "summary")
		require.EqualError(t, err, "You are not logged in")
	})

	require.NoError(t, f.run(t, "", "login", "-email", testUserEmail, "-password", testUserPassword))

	t.Run("summary", func(t *testing.T) {
		require.NoError(t, f.run(t, "", "summary"))
		out := f.out.String()
		require.Contains(t, out, "March 2026")
		require.Contains(t, out, "Balance:      2215.50")
		require.Contains(t, out, "Transactions: 3")
	})

	t.Run("add and list transactions", func(t *testing.T) {
		require.NoError(t, f.run(t, "", "add-transaction", "-type", "income", "-amount", "25", "-date", "2026-03-10", "-description", "Gift"))
		require.Contains(t, f.out.String(), "income 25.00 on 2026-03-10")

		require.NoError(t, f.run(t, "", "transactions", "-type", "income"))
		out := f.out.String()
		require.Contains(t, out, "Gift")
		require.Contains(t, out, "Monthly salary")
		require.NotContains(t, out, "Weekly shop")

		require.NoError(t, f.run(t, "", "transactions", "-search", "weekly"))
		require.Contains(t, f.out.String(), "-84.50")
	})

	t.Run("rejected transactions", func(t *testing.T) {
		err := f.run(t, "", "add-transaction", "-amount", "0", "-date", "2026-03-10")
		require.EqualError(t, err, "Transaction could not be added\n  amount: Amount must be greater than 0!")

		err = f.run(t, "", "add-transaction", "-amount", "ten", "-date", "2026-03-10")
		require.ErrorIs(t, err, cli.ErrUsage)

		err = f.run(t, "", "transactions", "-type", "gift")
		require.ErrorIs(t, err, cli.ErrUsage)
	})

	t.Run("budgets", func(t *testing.T) {
		require.NoError(t, f.run(t, "", "budgets"))
		out := f.out.String()
		require.Contains(t, out, "This month")
		require.Contains(t, out, "84.50 / 400.00")
		require.Contains(t, out, "2026-03-01")
		require.NotContains(t, out, "over budget")
	})
}
