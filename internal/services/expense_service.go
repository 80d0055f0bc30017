// Package services holds the application services between the HTTP
// layer and the store. Services are constructed once at startup and
// passed to the server; there is no ambient global state.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

const (
	minPageSize = 1
	maxPageSize = 50
)

// ExpenseStore is the persistence boundary of the expense service.
// *storage.SQLiteRepository implements it; tests use in-memory fakes.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense, categoryName, merchantName string) (core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ListExpensesPage(ctx context.Context, limit, offset int) ([]core.Expense, int64, error)
	SearchExpensesBetween(ctx context.Context, from, to core.Date, limit, offset int) ([]core.Expense, int64, error)
	SumAmountByEntryType(ctx context.Context, entryType core.EntryType, from, to core.Date) (core.Money, error)
	DeleteExpense(ctx context.Context, id int64) error
}

// CreateExpenseRequest carries the ingestion payload. Category and
// merchant are referenced by free-text name and resolved on write.
type CreateExpenseRequest struct {
	TxnDate       core.Date          `json:"txnDate"`
	Amount        *core.Money        `json:"amount"`
	Item          string             `json:"item"`
	CategoryName  string             `json:"categoryName"`
	MerchantName  string             `json:"merchantName"`
	PaymentMethod core.PaymentMethod `json:"paymentMethod"`
	Bank          string             `json:"bank"`
	PaidBy        string             `json:"paidBy"`
	EntryType     core.EntryType     `json:"entryType"`
	Notes         string             `json:"notes"`
}

// ExpensePage is one page of a date-range search plus the metadata a
// client needs to paginate.
type ExpensePage struct {
	Content       []core.Expense `json:"content"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int64          `json:"totalElements"`
	TotalPages    int64          `json:"totalPages"`
}

// ExpenseService validates and persists expenses and answers queries
// over them. The events client is optional; a nil client disables
// publishing without affecting any request.
type ExpenseService struct {
	store  ExpenseStore
	events *amqp.Client
}

func NewExpenseService(store ExpenseStore, events *amqp.Client) *ExpenseService {
	return &ExpenseService{store: store, events: events}
}

// CreateExpense validates the request and persists the expense,
// resolving category and merchant names along the way. The transaction
// date defaults to today when absent.
func (s *ExpenseService) CreateExpense(ctx context.Context, req CreateExpenseRequest) (core.Expense, error) {
	if req.Amount == nil {
		return core.Expense{}, core.ErrInvalidAmount
	}

	txnDate := req.TxnDate
	if txnDate.IsZero() {
		txnDate = core.Today()
	}

	e := core.Expense{
		TxnDate:       txnDate,
		Amount:        *req.Amount,
		Item:          req.Item,
		PaymentMethod: req.PaymentMethod,
		Bank:          req.Bank,
		PaidBy:        req.PaidBy,
		EntryType:     req.EntryType,
		Notes:         req.Notes,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.store.CreateExpense(ctx,
		e,
		core.NormalizeName(req.CategoryName),
		core.NormalizeName(req.MerchantName))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	// Event publishing never fails the request; the expense is committed.
	if s.events != nil {
		if err := s.events.PublishExpenseCreated(ctx, created.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish expense created event",
				"id", created.ID, "error", err)
		}
	}

	return created, nil
}

// GetExpenseByID returns the expense or core.ErrNotFound. A
// non-positive id is a validation error, not a miss.
func (s *ExpenseService) GetExpenseByID(ctx context.Context, id int64) (core.Expense, error) {
	if id <= 0 {
		return core.Expense{}, core.ErrInvalidID
	}
	return s.store.GetExpense(ctx, id)
}

// ListAll returns every expense ordered by transaction date descending.
func (s *ExpenseService) ListAll(ctx context.Context) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	return expenses, nil
}

// SearchBetween pages through expenses in the given date range.
//
// size clamps to [1, 50] and page to >= 0. A missing `to` defaults to
// today, a missing `from` to the epoch floor; with both missing the
// whole table is paged. A reversed range is swapped, not rejected.
func (s *ExpenseService) SearchBetween(ctx context.Context, from, to core.Date, page, size int) (ExpensePage, error) {
	if page < 0 {
		page = 0
	}
	if size < minPageSize {
		size = minPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	offset := page * size

	var (
		expenses []core.Expense
		total    int64
		err      error
	)

	switch {
	case from.IsZero() && to.IsZero():
		expenses, total, err = s.store.ListExpensesPage(ctx, size, offset)
	default:
		if !from.IsZero() && to.IsZero() {
			to = core.Today()
		}
		if from.IsZero() && !to.IsZero() {
			from = core.NewDate(1970, 1, 1)
		}
		if from.After(to.Time) {
			from, to = to, from
		}
		expenses, total, err = s.store.SearchExpensesBetween(ctx, from, to, size, offset)
	}
	if err != nil {
		return ExpensePage{}, fmt.Errorf("search expenses: %w", err)
	}

	if expenses == nil {
		expenses = []core.Expense{}
	}

	return ExpensePage{
		Content:       expenses,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    (total + int64(size) - 1) / int64(size),
	}, nil
}

// MonthlyAnalytics sums the current calendar month: expenditure over
// DEBIT entries, earnings over CREDIT entries, balance as the
// difference.
func (s *ExpenseService) MonthlyAnalytics(ctx context.Context) (core.MonthlyAnalytics, error) {
	now := time.Now()
	start := core.NewDate(now.Year(), int(now.Month()), 1)
	end := core.NewDate(now.Year(), int(now.Month())+1, 0) // last day of the month

	expenditure, err := s.store.SumAmountByEntryType(ctx, core.Debit, start, end)
	if err != nil {
		return core.MonthlyAnalytics{}, fmt.Errorf("sum debits: %w", err)
	}
	earnings, err := s.store.SumAmountByEntryType(ctx, core.Credit, start, end)
	if err != nil {
		return core.MonthlyAnalytics{}, fmt.Errorf("sum credits: %w", err)
	}

	return core.MonthlyAnalytics{
		TotalExpenditure: expenditure,
		TotalEarnings:    earnings,
		TotalBalance:     earnings.Sub(expenditure),
	}, nil
}

// DeleteExpense removes an expense by id.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	if id <= 0 {
		return core.ErrInvalidID
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.PublishExpenseDeleted(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish expense deleted event",
				"id", id, "error", err)
		}
	}

	return nil
}
