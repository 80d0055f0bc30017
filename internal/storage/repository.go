package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	sqlite3 "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// SQLiteRepository is the single relational store behind the expense
// tracker: three tables (expense, category, merchant) with foreign keys
// from expense to the two name tables.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateExpense persists an expense inside a single transaction,
// resolving the optional category and merchant names first so a failed
// insert never commits the name rows on their own. Empty names mean the
// reference stays unset.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense, categoryName, merchantName string) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if categoryName != "" {
		cat, err := r.resolveName(ctx, tx, "category", categoryName)
		if err != nil {
			return core.Expense{}, fmt.Errorf("resolve category: %w", err)
		}
		e.Category = &core.Category{ID: cat.id, Name: cat.name, CreatedAt: cat.createdAt}
	}
	if merchantName != "" {
		mer, err := r.resolveName(ctx, tx, "merchant", merchantName)
		if err != nil {
			return core.Expense{}, fmt.Errorf("resolve merchant: %w", err)
		}
		e.Merchant = &core.Merchant{ID: mer.id, Name: mer.name, CreatedAt: mer.createdAt}
	}

	e.CreatedAt = time.Now().UTC()

	var categoryID, merchantID any
	if e.Category != nil {
		categoryID = e.Category.ID
	}
	if e.Merchant != nil {
		merchantID = e.Merchant.ID
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO expense (txn_date, amount_cents, item, category_id, merchant_id,
			payment_method, bank, paid_by, entry_type, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TxnDate.String(),
		e.Amount.Cents,
		e.Item,
		categoryID,
		merchantID,
		string(e.PaymentMethod),
		nullString(e.Bank),
		e.PaidBy,
		string(e.EntryType),
		nullString(e.Notes),
		e.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}
	e.ID = id

	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"item", e.Item,
		"amount_cents", e.Amount.Cents,
		"txn_date", e.TxnDate.String(),
		"entry_type", e.EntryType)

	return e, nil
}

// GetExpense retrieves a single expense with its category and merchant
// joined in. Returns core.ErrNotFound for an unknown id.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, selectExpense+` WHERE e.id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return e, nil
}

// ListExpenses returns every expense, newest transaction date first,
// ties broken by id descending.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, selectExpense+` ORDER BY e.txn_date DESC, e.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

// ListExpensesPage pages through all expenses with no date filter.
func (r *SQLiteRepository) ListExpensesPage(ctx context.Context, limit, offset int) ([]core.Expense, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expense`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		selectExpense+` ORDER BY e.txn_date DESC, e.id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("page expenses: %w", err)
	}
	defer rows.Close()

	expenses, err := collectExpenses(rows)
	return expenses, total, err
}

// SearchExpensesBetween pages through expenses with txn_date in
// [from, to] inclusive. Callers pass an already-normalized range.
func (r *SQLiteRepository) SearchExpensesBetween(ctx context.Context, from, to core.Date, limit, offset int) ([]core.Expense, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expense WHERE txn_date BETWEEN ? AND ?`,
		from.String(), to.String()).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses in range: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		selectExpense+` WHERE e.txn_date BETWEEN ? AND ?
		 ORDER BY e.txn_date DESC, e.id DESC LIMIT ? OFFSET ?`,
		from.String(), to.String(), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search expenses in range: %w", err)
	}
	defer rows.Close()

	expenses, err := collectExpenses(rows)
	return expenses, total, err
}

// SumAmountByEntryType sums amounts of the given entry type with
// txn_date in [from, to] inclusive. Zero when no rows match.
func (r *SQLiteRepository) SumAmountByEntryType(ctx context.Context, entryType core.EntryType, from, to core.Date) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM expense
		WHERE entry_type = ? AND txn_date BETWEEN ? AND ?`,
		string(entryType), from.String(), to.String()).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum %s amounts: %w", entryType, err)
	}
	return core.Money{Cents: cents}, nil
}

// DeleteExpense removes an expense row. Returns core.ErrNotFound when
// the id does not exist.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expense WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

// SearchCategories returns categories whose name starts with prefix,
// case-insensitively; an empty prefix returns every category.
func (r *SQLiteRepository) SearchCategories(ctx context.Context, prefix string) ([]core.Category, error) {
	ents, err := r.searchNamed(ctx, "category", prefix)
	if err != nil {
		return nil, err
	}
	cats := make([]core.Category, len(ents))
	for i, ent := range ents {
		cats[i] = core.Category{ID: ent.id, Name: ent.name, CreatedAt: ent.createdAt}
	}
	return cats, nil
}

// SearchMerchants is the merchant counterpart of SearchCategories.
func (r *SQLiteRepository) SearchMerchants(ctx context.Context, prefix string) ([]core.Merchant, error) {
	ents, err := r.searchNamed(ctx, "merchant", prefix)
	if err != nil {
		return nil, err
	}
	mers := make([]core.Merchant, len(ents))
	for i, ent := range ents {
		mers[i] = core.Merchant{ID: ent.id, Name: ent.name, CreatedAt: ent.createdAt}
	}
	return mers, nil
}

// namedEntity backs both category and merchant rows; the two tables
// share the identical shape.
type namedEntity struct {
	id        int64
	name      string
	createdAt time.Time
}

// resolveName implements get-or-create within the caller's transaction.
// The case-insensitive lookup comes first; on a lost creation race the
// unique index rejects the insert and the existing row is re-queried,
// per the store-constraint-is-authoritative strategy.
func (r *SQLiteRepository) resolveName(ctx context.Context, tx *sql.Tx, table, name string) (namedEntity, error) {
	find := func() (namedEntity, error) {
		var ent namedEntity
		var created string
		err := tx.QueryRowContext(ctx,
			`SELECT id, name, created_at FROM `+table+` WHERE name = ? COLLATE NOCASE`,
			name).Scan(&ent.id, &ent.name, &created)
		if err != nil {
			return namedEntity{}, err
		}
		ent.createdAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return namedEntity{}, fmt.Errorf("parse %s created_at: %w", table, err)
		}
		return ent, nil
	}

	ent, err := find()
	if err == nil {
		return ent, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return namedEntity{}, fmt.Errorf("lookup %s: %w", table, err)
	}

	createdAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO `+table+` (name, created_at) VALUES (?, ?)`,
		name, createdAt.Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race: the row exists now, use it.
			ent, err := find()
			if err != nil {
				return namedEntity{}, fmt.Errorf("re-query %s after conflict: %w", table, err)
			}
			return ent, nil
		}
		return namedEntity{}, fmt.Errorf("insert %s: %w", table, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return namedEntity{}, fmt.Errorf("%s id: %w", table, err)
	}

	slog.InfoContext(ctx, "Created name entity", "table", table, "id", id, "name", name)
	return namedEntity{id: id, name: name, createdAt: createdAt}, nil
}

func (r *SQLiteRepository) searchNamed(ctx context.Context, table, prefix string) ([]namedEntity, error) {
	query := `SELECT id, name, created_at FROM ` + table
	args := []any{}
	if prefix != "" {
		query += ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(prefix)+"%")
	}
	query += ` ORDER BY name COLLATE NOCASE`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", table, err)
	}
	defer rows.Close()

	var ents []namedEntity
	for rows.Next() {
		var ent namedEntity
		var created string
		if err := rows.Scan(&ent.id, &ent.name, &created); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		ent.createdAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("parse %s created_at: %w", table, err)
		}
		ents = append(ents, ent)
	}
	return ents, rows.Err()
}

const selectExpense = `
	SELECT e.id, e.txn_date, e.amount_cents, e.item,
	       e.payment_method, e.bank, e.paid_by, e.entry_type, e.notes, e.created_at,
	       c.id, c.name, c.created_at,
	       m.id, m.name, m.created_at
	FROM expense e
	LEFT JOIN category c ON c.id = e.category_id
	LEFT JOIN merchant m ON m.id = e.merchant_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e                  core.Expense
		txnDate, createdAt string
		bank, notes        sql.NullString
		catID, merID       sql.NullInt64
		catName, merName   sql.NullString
		catCreat, merCreat sql.NullString
	)

	err := row.Scan(&e.ID, &txnDate, &e.Amount.Cents, &e.Item,
		&e.PaymentMethod, &bank, &e.PaidBy, &e.EntryType, &notes, &createdAt,
		&catID, &catName, &catCreat,
		&merID, &merName, &merCreat)
	if err != nil {
		return core.Expense{}, err
	}

	e.Bank = bank.String
	e.Notes = notes.String

	if e.TxnDate, err = core.ParseDate(txnDate); err != nil {
		return core.Expense{}, fmt.Errorf("parse txn_date: %w", err)
	}
	if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at: %w", err)
	}

	if catID.Valid {
		created, err := time.Parse(timeLayout, catCreat.String)
		if err != nil {
			return core.Expense{}, fmt.Errorf("parse category created_at: %w", err)
		}
		e.Category = &core.Category{ID: catID.Int64, Name: catName.String, CreatedAt: created}
	}
	if merID.Valid {
		created, err := time.Parse(timeLayout, merCreat.String)
		if err != nil {
			return core.Expense{}, fmt.Errorf("parse merchant created_at: %w", err)
		}
		e.Merchant = &core.Merchant{ID: merID.Int64, Name: merName.String, CreatedAt: created}
	}

	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// SQLITE_CONSTRAINT_UNIQUE and the generic SQLITE_CONSTRAINT code.
func isUniqueViolation(err error) bool {
	var serr *sqlite3.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		return code == 2067 || code == 19
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// escapeLike escapes LIKE wildcards so a user prefix matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
