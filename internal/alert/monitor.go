// Package alert polls the store and keeps the current set of over-budget
// categories for the active session.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"
)

// UserSource yields the active user id, typically the session manager.
type UserSource interface {
	UserID() (string, error)
}

// Status is a point-in-time alert snapshot.
type Status struct {
	Over      []core.BudgetStatus
	Visible   bool
	CheckedAt time.Time
}

// Monitor recomputes the over-budget set for the current calendar month on
// a fixed interval. Each check replaces the previous set wholesale; store
// errors degrade to an empty set rather than stopping the loop.
type Monitor struct {
	store    *storage.Store
	users    UserSource
	interval time.Duration

	mu        sync.RWMutex
	over      []core.BudgetStatus
	dismissed bool
	checkedAt time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewMonitor(store *storage.Store, users UserSource, interval time.Duration) *Monitor {
	return &Monitor{
		store:    store,
		users:    users,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start checks once immediately, then on every interval tick until Stop.
func (m *Monitor) Start(ctx context.Context) {
	go m.run(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop terminates the polling loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

// Check runs one over-budget computation over a fresh store snapshot.
func (m *Monitor) Check(ctx context.Context) {
	over := m.compute(ctx)

	m.mu.Lock()
	m.over = over
	m.checkedAt = time.Now()
	// A nonempty result makes a dismissed alert visible again.
	if len(over) > 0 {
		m.dismissed = false
	}
	m.mu.Unlock()
}

func (m *Monitor) compute(ctx context.Context) []core.BudgetStatus {
	userID, err := m.users.UserID()
	if err != nil {
		return nil
	}

	window := core.CurrentMonthWindow(time.Now())

	budgets, err := m.store.BudgetsByUser(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "Alert check skipped, budgets unavailable", "error", err)
		return nil
	}
	txs, err := m.store.TransactionsInRange(ctx, userID, window.Start, window.End)
	if err != nil {
		slog.WarnContext(ctx, "Alert check skipped, transactions unavailable", "error", err)
		return nil
	}

	spend := core.SpendByCategory(txs, window)
	return core.OverBudget(core.BudgetStatuses(budgets, spend))
}

// Dismiss hides the current alert. Not persisted; the next check that
// finds over-budget categories shows it again.
func (m *Monitor) Dismiss() {
	m.mu.Lock()
	m.dismissed = true
	m.mu.Unlock()
}

// Current returns the latest snapshot.
func (m *Monitor) Current() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		Over:      append([]core.BudgetStatus(nil), m.over...),
		Visible:   len(m.over) > 0 && !m.dismissed,
		CheckedAt: m.checkedAt,
	}
}
