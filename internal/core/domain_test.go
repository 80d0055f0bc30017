package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func validExpense() Expense {
	return Expense{
		TxnDate:       NewDate(2025, 11, 10),
		Amount:        Money{Cents: 1250},
		Item:          "Weekly groceries",
		PaymentMethod: Card,
		PaidBy:        "sam",
		EntryType:     Debit,
	}
}

func TestExpenseValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Expense)
		wantErr error
	}{
		{"valid", func(e *Expense) {}, nil},
		{"blank item", func(e *Expense) { e.Item = "   " }, ErrEmptyItem},
		{"negative amount", func(e *Expense) { e.Amount.Cents = -1 }, ErrInvalidAmount},
		{"zero date", func(e *Expense) { e.TxnDate = Date{} }, ErrInvalidDate},
		{"blank paidBy", func(e *Expense) { e.PaidBy = "" }, ErrEmptyPaidBy},
		{"bad entry type", func(e *Expense) { e.EntryType = "REFUND" }, ErrInvalidEntryType},
		{"bad payment method", func(e *Expense) { e.PaymentMethod = "CHEQUE" }, ErrInvalidPaymentMethod},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validExpense()
			tc.mutate(&e)
			err := e.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tc.wantErr)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Validate() error %v should wrap ErrValidation", err)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2025, 11, 1)
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"2025-11-01"` {
		t.Fatalf("marshal = %s", out)
	}

	var parsed Date
	if err := json.Unmarshal([]byte(`"2025-11-01"`), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !parsed.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %v != %v", parsed, d)
	}

	var zero Date
	if err := json.Unmarshal([]byte("null"), &zero); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !zero.IsZero() {
		t.Fatalf("null should decode to zero date")
	}
}

func TestEnumUnmarshalRejectsUnknown(t *testing.T) {
	var et EntryType
	if err := json.Unmarshal([]byte(`"TRANSFER"`), &et); !errors.Is(err, ErrInvalidEntryType) {
		t.Fatalf("entry type error = %v, want ErrInvalidEntryType", err)
	}
	var pm PaymentMethod
	if err := json.Unmarshal([]byte(`"BITCOIN"`), &pm); !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("payment method error = %v, want ErrInvalidPaymentMethod", err)
	}
	if err := json.Unmarshal([]byte(`"UPI"`), &pm); err != nil || pm != UPI {
		t.Fatalf("valid payment method failed: %v %v", pm, err)
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  Groceries "); got != "Groceries" {
		t.Fatalf("NormalizeName = %q", got)
	}
	if got := NormalizeName("   "); got != "" {
		t.Fatalf("blank name should normalize to empty, got %q", got)
	}
}
