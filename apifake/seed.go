package apifake

import (
	"github.com/jrsteele09/go-finance-web/finance"
	"github.com/jrsteele09/go-finance-web/internal/utils"
)

// SeedLedger gives the account with email a few categories, this month's
// transactions and a budget, so every page has something to show.
func (s *Server) SeedLedger(email string) error {
	salary, err := s.AddCategory(email, finance.Category{Name: "Salary", Type: finance.Income, Icon: "💼", Color: "#10B981", IsDefault: true})
	if err != nil {
		return err
	}
	groceries, err := s.AddCategory(email, finance.Category{Name: "Groceries", Type: finance.Expense, Icon: "🛒", Color: "#F59E0B", IsDefault: true})
	if err != nil {
		return err
	}
	rent, err := s.AddCategory(email, finance.Category{Name: "Rent", Type: finance.Expense, Icon: "🏠", Color: "#EF4444", IsDefault: true})
	if err != nil {
		return err
	}

	month := finance.MonthStart(NowTimeFunc())
	today := NowTimeFunc().Format(finance.DateLayout)
	seed := []finance.TransactionInput{
		{Category: utils.Ptr(salary.ID), Amount: 350000, Type: finance.Income, Description: "Monthly salary", Date: month},
		{Category: utils.Ptr(rent.ID), Amount: 120000, Type: finance.Expense, Description: "Rent", Date: month},
		{Category: utils.Ptr(groceries.ID), Amount: 8450, Type: finance.Expense, Description: "Weekly shop", Date: today},
	}
	for _, input := range seed {
		if _, err := s.AddTransaction(email, input); err != nil {
			return err
		}
	}

	_, err = s.AddBudget(email, finance.Budget{Category: groceries.ID, Amount: 40000})
	return err
}
