package core

import "time"

type (
	// Window is an inclusive date range.
	Window struct {
		Start time.Time
		End   time.Time
	}

	// BudgetStatus reports a category's position against its monthly limit.
	BudgetStatus struct {
		Category   string
		Budgeted   Money
		Spent      Money
		Remaining  Money
		OverBudget bool
	}

	// Totals summarizes a window. Savings = Income - Expenses.
	Totals struct {
		Income   Money
		Expenses Money
		Savings  Money
	}

	// MonthTotals is one point of a trailing monthly time series.
	MonthTotals struct {
		Year   int
		Month  time.Month
		Totals Totals
	}
)

// Contains reports whether t falls inside the window, boundaries included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// MonthWindow returns the calendar window for a month: first day 00:00:00
// through last day 23:59:59.999999999.
func MonthWindow(year int, month time.Month) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Window{
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
	}
}

// CurrentMonthWindow returns the calendar window containing now.
func CurrentMonthWindow(now time.Time) Window {
	return MonthWindow(now.Year(), now.Month())
}

// TrailingMonthWindows returns n calendar-month windows ending with the
// month containing ref, oldest first. Month boundaries are calendar-aware,
// never fixed 30-day spans.
func TrailingMonthWindows(ref time.Time, n int) []Window {
	if n <= 0 {
		return nil
	}
	windows := make([]Window, 0, n)
	for i := n - 1; i >= 0; i-- {
		m := ref.AddDate(0, -i, -ref.Day()+1) // first of the i-th month back
		windows = append(windows, MonthWindow(m.Year(), m.Month()))
	}
	return windows
}

// SpendByCategory sums expense-type transaction amounts inside the window,
// grouped by category.
func SpendByCategory(txs []Transaction, w Window) map[string]Money {
	spend := make(map[string]Money)
	for _, t := range txs {
		if t.Type != Expense || !w.Contains(t.Date) {
			continue
		}
		spend[t.Category] = spend[t.Category].Add(t.Amount)
	}
	return spend
}

// BudgetStatuses computes the position of every budget against the given
// per-category spend. Remaining goes negative when a category is over.
func BudgetStatuses(budgets []Budget, spend map[string]Money) []BudgetStatus {
	statuses := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		spent := spend[b.Category]
		statuses = append(statuses, BudgetStatus{
			Category:   b.Category,
			Budgeted:   b.Amount,
			Spent:      spent,
			Remaining:  b.Amount.Sub(spent),
			OverBudget: spent.Cents > b.Amount.Cents,
		})
	}
	return statuses
}

// OverBudget filters statuses down to categories whose spend exceeds the
// budget.
func OverBudget(statuses []BudgetStatus) []BudgetStatus {
	var over []BudgetStatus
	for _, s := range statuses {
		if s.OverBudget {
			over = append(over, s)
		}
	}
	return over
}

// Summarize totals income and expenses inside the window.
func Summarize(txs []Transaction, w Window) Totals {
	var t Totals
	for _, tx := range txs {
		if !w.Contains(tx.Date) {
			continue
		}
		switch tx.Type {
		case Income:
			t.Income = t.Income.Add(tx.Amount)
		case Expense:
			t.Expenses = t.Expenses.Add(tx.Amount)
		}
	}
	t.Savings = t.Income.Sub(t.Expenses)
	return t
}

// SavingsRate returns savings as a percentage of income. Zero income yields
// zero, never a division by zero.
func SavingsRate(income, savings Money) float64 {
	if income.Cents <= 0 {
		return 0
	}
	return float64(savings.Cents) / float64(income.Cents) * 100
}

// MonthlyTotals computes Summarize over the n trailing calendar months
// ending at ref, oldest first.
func MonthlyTotals(txs []Transaction, ref time.Time, n int) []MonthTotals {
	windows := TrailingMonthWindows(ref, n)
	series := make([]MonthTotals, 0, len(windows))
	for _, w := range windows {
		series = append(series, MonthTotals{
			Year:   w.Start.Year(),
			Month:  w.Start.Month(),
			Totals: Summarize(txs, w),
		})
	}
	return series
}
