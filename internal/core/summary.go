package core

// Summary holds the aggregate totals of one user's ledger.
type Summary struct {
	TotalIncome  Money
	TotalExpense Money
	Balance      Money
}

// NewSummary derives the balance from the two totals.
func NewSummary(income, expense Money) Summary {
	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      Money{Cents: income.Cents - expense.Cents},
	}
}
