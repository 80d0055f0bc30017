package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"
)

// fakeStore is an in-memory ExpenseStore and NameStore for service
// tests. It mirrors the real repository's semantics: case-insensitive
// get-or-create on names, date-descending ordering, inclusive ranges.
type fakeStore struct {
	expenses   []core.Expense
	categories []core.Category
	merchants  []core.Merchant
	nextID     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1}
}

func (f *fakeStore) allocID() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeStore) CreateExpense(ctx context.Context, e core.Expense, categoryName, merchantName string) (core.Expense, error) {
	if categoryName != "" {
		cat := f.resolveCategory(categoryName)
		e.Category = &cat
	}
	if merchantName != "" {
		mer := f.resolveMerchant(merchantName)
		e.Merchant = &mer
	}
	e.ID = f.allocID()
	e.CreatedAt = time.Now().UTC()
	f.expenses = append(f.expenses, e)
	return e, nil
}

func (f *fakeStore) resolveCategory(name string) core.Category {
	for _, c := range f.categories {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	c := core.Category{ID: f.allocID(), Name: name, CreatedAt: time.Now().UTC()}
	f.categories = append(f.categories, c)
	return c
}

func (f *fakeStore) resolveMerchant(name string) core.Merchant {
	for _, m := range f.merchants {
		if strings.EqualFold(m.Name, name) {
			return m
		}
	}
	m := core.Merchant{ID: f.allocID(), Name: name, CreatedAt: time.Now().UTC()}
	f.merchants = append(f.merchants, m)
	return m
}

func (f *fakeStore) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	for _, e := range f.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (f *fakeStore) sorted() []core.Expense {
	out := make([]core.Expense, len(f.expenses))
	copy(out, f.expenses)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TxnDate.Equal(out[j].TxnDate.Time) {
			return out[i].TxnDate.After(out[j].TxnDate.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (f *fakeStore) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return f.sorted(), nil
}

func page(all []core.Expense, limit, offset int) []core.Expense {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func (f *fakeStore) ListExpensesPage(ctx context.Context, limit, offset int) ([]core.Expense, int64, error) {
	all := f.sorted()
	return page(all, limit, offset), int64(len(all)), nil
}

func (f *fakeStore) SearchExpensesBetween(ctx context.Context, from, to core.Date, limit, offset int) ([]core.Expense, int64, error) {
	var matched []core.Expense
	for _, e := range f.sorted() {
		if e.TxnDate.Before(from.Time) || e.TxnDate.After(to.Time) {
			continue
		}
		matched = append(matched, e)
	}
	return page(matched, limit, offset), int64(len(matched)), nil
}

func (f *fakeStore) SumAmountByEntryType(ctx context.Context, entryType core.EntryType, from, to core.Date) (core.Money, error) {
	var sum core.Money
	for _, e := range f.expenses {
		if e.EntryType != entryType {
			continue
		}
		if e.TxnDate.Before(from.Time) || e.TxnDate.After(to.Time) {
			continue
		}
		sum = sum.Add(e.Amount)
	}
	return sum, nil
}

func (f *fakeStore) DeleteExpense(ctx context.Context, id int64) error {
	for i, e := range f.expenses {
		if e.ID == id {
			f.expenses = append(f.expenses[:i], f.expenses[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) SearchCategories(ctx context.Context, prefix string) ([]core.Category, error) {
	var out []core.Category
	for _, c := range f.categories {
		if prefix == "" || strings.HasPrefix(strings.ToLower(c.Name), strings.ToLower(prefix)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) SearchMerchants(ctx context.Context, prefix string) ([]core.Merchant, error) {
	var out []core.Merchant
	for _, m := range f.merchants {
		if prefix == "" || strings.HasPrefix(strings.ToLower(m.Name), strings.ToLower(prefix)) {
			out = append(out, m)
		}
	}
	return out, nil
}
