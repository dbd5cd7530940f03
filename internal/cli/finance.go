package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/go-finance-web/auth"
	"github.com/jrsteele09/go-finance-web/finance"
)

func (a *App) summary(ctx context.Context) error {
	stats, err := a.finance.DashboardStats(ctx)
	if err != nil {
		return sessionError(auth.NormaliseError(err, "Failed to load the monthly summary"))
	}
	fmt.Fprintln(a.out, stats.Month)
	fmt.Fprintf(a.out, "Income:       %s\n", stats.Income)
	fmt.Fprintf(a.out, "Expenses:     %s\n", stats.Expenses)
	fmt.Fprintf(a.out, "Balance:      %s\n", stats.Balance)
	fmt.Fprintf(a.out, "Transactions: %d\n", stats.TransactionCount)
	return nil
}

func (a *App) transactions(ctx context.Context, args []string) error {
	var filter finance.TransactionFilter
	var kind string
	fs := a.flags("transactions")
	fs.StringVar(&kind, "type", "", "income or expense")
	fs.StringVar(&filter.DateFrom, "from", "", "first date, YYYY-MM-DD")
	fs.StringVar(&filter.DateTo, "to", "", "last date, YYYY-MM-DD")
	fs.Int64Var(&filter.Category, "category", 0, "category id")
	fs.StringVar(&filter.Search, "search", "", "text in the description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter.Type = finance.TransactionType(kind)
	if filter.Type != "" && !filter.Type.Valid() {
		return fmt.Errorf("%w: -type must be income or expense", ErrUsage)
	}

	transactions, err := a.finance.Transactions(ctx, filter)
	if err != nil {
		return sessionError(auth.NormaliseError(err, "Failed to load transactions"))
	}
	if len(transactions) == 0 {
		fmt.Fprintln(a.out, "No transactions")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, t := range transactions {
		amount := t.Amount.String()
		if t.Type == finance.Expense {
			amount = "-" + amount
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", t.Date, t.CategoryName, t.Description, amount)
	}
	return w.Flush()
}

func (a *App) addTransaction(ctx context.Context, args []string) error {
	var input finance.TransactionInput
	var kind, amount string
	var category int64
	fs := a.flags("add-transaction")
	fs.StringVar(&kind, "type", string(finance.Expense), "income or expense")
	fs.StringVar(&amount, "amount", "", "amount, e.g. 12.50")
	fs.StringVar(&input.Date, "date", "", "date, YYYY-MM-DD")
	fs.Int64Var(&category, "category", 0, "category id")
	fs.StringVar(&input.Description, "description", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsed, err := finance.ParseAmount(amount)
	if err != nil {
		return fmt.Errorf("%w: -amount: %v", ErrUsage, err)
	}
	input.Amount = parsed
	input.Type = finance.TransactionType(kind)
	if category != 0 {
		input.Category = &category
	}

	created, err := a.finance.CreateTransaction(ctx, input)
	if err != nil {
		return sessionError(auth.NormaliseError(err, "Transaction could not be added"))
	}
	fmt.Fprintf(a.out, "Added transaction %d: %s %s on %s\n", created.ID, created.Type, created.Amount, created.Date)
	return nil
}

func (a *App) budgets(ctx context.Context) error {
	progress, err := a.finance.BudgetProgress(ctx)
	if err != nil {
		return sessionError(auth.NormaliseError(err, "Failed to load budgets"))
	}
	budgets, err := a.finance.Budgets(ctx)
	if err != nil {
		return sessionError(auth.NormaliseError(err, "Failed to load budgets"))
	}
	if len(budgets) == 0 {
		fmt.Fprintln(a.out, "No budgets")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	if len(progress) > 0 {
		fmt.Fprintln(w, "This month")
		for _, p := range progress {
			note := ""
			if p.Over() {
				note = "over budget"
			}
			fmt.Fprintf(w, "%s\t%s / %s\t%.2f%%\t%s\n", p.Category, p.Spent, p.Budget, p.Percentage, note)
		}
		fmt.Fprintln(w)
	}
	for _, b := range budgets {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Month, b.CategoryName, b.Amount)
	}
	return w.Flush()
}
