package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"budgetbuddy/internal/core"
)

// parseMonthQuery extracts year/month query parameters, defaulting to the
// current calendar month.
func parseMonthQuery(r *http.Request) (int, time.Month) {
	now := time.Now()
	year, month := now.Year(), now.Month()

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = time.Month(m)
		}
	}
	return year, month
}

type moneyField struct {
	Cents     int64  `json:"cents"`
	Formatted string `json:"formatted"`
}

func (s *Server) money(cents int64) moneyField {
	return moneyField{Cents: cents, Formatted: s.session.FormatCurrency(cents)}
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}

	year, month := parseMonthQuery(r)
	window := core.MonthWindow(year, month)

	txs, err := s.store.TransactionsInRange(r.Context(), userID, window.Start, window.End)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary report failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	totals := core.Summarize(txs, window)
	respond(w, http.StatusOK, map[string]any{
		"year":        year,
		"month":       int(month),
		"income":      s.money(totals.Income.Cents),
		"expenses":    s.money(totals.Expenses.Cents),
		"savings":     s.money(totals.Savings.Cents),
		"savingsRate": core.SavingsRate(totals.Income, totals.Savings),
	})
}

func (s *Server) handleReportMonthly(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}

	months := 6
	if v := strings.TrimSpace(r.URL.Query().Get("months")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 24 {
			months = n
		}
	}

	txs, err := s.store.TransactionsByUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Monthly report failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	type monthPoint struct {
		Year     int        `json:"year"`
		Month    int        `json:"month"`
		Income   moneyField `json:"income"`
		Expenses moneyField `json:"expenses"`
		Savings  moneyField `json:"savings"`
	}
	series := core.MonthlyTotals(txs, time.Now(), months)
	out := make([]monthPoint, 0, len(series))
	for _, p := range series {
		out = append(out, monthPoint{
			Year:     p.Year,
			Month:    int(p.Month),
			Income:   s.money(p.Totals.Income.Cents),
			Expenses: s.money(p.Totals.Expenses.Cents),
			Savings:  s.money(p.Totals.Savings.Cents),
		})
	}
	respond(w, http.StatusOK, out)
}

type budgetStatusResponse struct {
	Category   string     `json:"category"`
	Budgeted   moneyField `json:"budgeted"`
	Spent      moneyField `json:"spent"`
	Remaining  moneyField `json:"remaining"`
	OverBudget bool       `json:"overBudget"`
}

func (s *Server) toBudgetStatusResponse(st core.BudgetStatus) budgetStatusResponse {
	return budgetStatusResponse{
		Category:   st.Category,
		Budgeted:   s.money(st.Budgeted.Cents),
		Spent:      s.money(st.Spent.Cents),
		Remaining:  s.money(st.Remaining.Cents),
		OverBudget: st.OverBudget,
	}
}

func (s *Server) handleReportBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireSession(w)
	if !ok {
		return
	}

	year, month := parseMonthQuery(r)
	window := core.MonthWindow(year, month)

	budgets, err := s.store.BudgetsByUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget report failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load budgets")
		return
	}
	txs, err := s.store.TransactionsInRange(r.Context(), userID, window.Start, window.End)
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget report failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	statuses := core.BudgetStatuses(budgets, core.SpendByCategory(txs, window))
	out := make([]budgetStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, s.toBudgetStatusResponse(st))
	}
	respond(w, http.StatusOK, out)
}

func (s *Server) handleGetAlerts(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireSession(w); !ok {
		return
	}

	status := s.monitor.Current()
	over := make([]budgetStatusResponse, 0, len(status.Over))
	for _, st := range status.Over {
		over = append(over, s.toBudgetStatusResponse(st))
	}
	respond(w, http.StatusOK, map[string]any{
		"overBudget": over,
		"visible":    status.Visible,
		"checkedAt":  status.CheckedAt,
	})
}

func (s *Server) handleDismissAlerts(w http.ResponseWriter, _ *http.Request) {
	if _, ok := s.requireSession(w); !ok {
		return
	}
	s.monitor.Dismiss()
	respond(w, http.StatusOK, map[string]bool{"dismissed": true})
}
