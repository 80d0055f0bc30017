package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

const (
	Cash     PaymentMethod = "CASH"
	Card     PaymentMethod = "CARD"
	UPI      PaymentMethod = "UPI"
	Transfer PaymentMethod = "TRANSFER"
)

type (
	EntryType     string
	PaymentMethod string

	// Date is a calendar date without a time component, serialized as
	// YYYY-MM-DD in JSON and in the database.
	Date struct {
		time.Time
	}

	Category struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Merchant struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Expense struct {
		ID            int64         `json:"id"`
		TxnDate       Date          `json:"txnDate"`
		Amount        Money         `json:"amount"`
		Item          string        `json:"item"`
		Category      *Category     `json:"category"`
		Merchant      *Merchant     `json:"merchant"`
		PaymentMethod PaymentMethod `json:"paymentMethod"`
		Bank          string        `json:"bank,omitempty"`
		PaidBy        string        `json:"paidBy"`
		EntryType     EntryType     `json:"entryType"`
		Notes         string        `json:"notes,omitempty"`
		CreatedAt     time.Time     `json:"createdAt"`
	}

	// MonthlyAnalytics aggregates the current calendar month.
	MonthlyAnalytics struct {
		TotalExpenditure Money `json:"totalExpenditure"`
		TotalEarnings    Money `json:"totalEarnings"`
		TotalBalance     Money `json:"totalBalance"`
	}
)

// ErrValidation is the root of all client-input errors; the specific
// sentinels below wrap it so callers can map the whole family with a
// single errors.Is check.
var (
	ErrValidation = errors.New("validation failed")

	ErrEmptyItem            = fmt.Errorf("%w: item must not be empty", ErrValidation)
	ErrInvalidAmount        = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidDate          = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidID            = fmt.Errorf("%w: id must be a positive integer", ErrValidation)
	ErrEmptyPaidBy          = fmt.Errorf("%w: paidBy must not be empty", ErrValidation)
	ErrInvalidEntryType     = fmt.Errorf("%w: invalid entry type", ErrValidation)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: invalid payment method", ErrValidation)

	ErrNotFound = errors.New("expense not found")
)

func (t EntryType) Valid() bool {
	switch t {
	case Debit, Credit:
		return true
	}
	return false
}

func (t *EntryType) UnmarshalJSON(data []byte) error {
	v := strings.Trim(string(data), `"`)
	et := EntryType(v)
	if !et.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEntryType, v)
	}
	*t = et
	return nil
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case Cash, Card, UPI, Transfer:
		return true
	}
	return false
}

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	v := strings.Trim(string(data), `"`)
	pm := PaymentMethod(v)
	if !pm.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, v)
	}
	*m = pm
	return nil
}

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the server's current calendar date.
func Today() Date {
	y, m, d := time.Now().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Item) == "" {
		return ErrEmptyItem
	}
	if e.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if e.TxnDate.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(e.PaidBy) == "" {
		return ErrEmptyPaidBy
	}
	if !e.EntryType.Valid() {
		return ErrInvalidEntryType
	}
	if !e.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	return nil
}

// NormalizeName trims a free-text category/merchant name. An empty
// result means "no entity": the expense field stays unset instead of
// creating a placeholder row.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}
