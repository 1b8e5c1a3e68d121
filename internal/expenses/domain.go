// Package expenses records operating expenses, their categories and the
// income/expense chart of accounts used to break down reports.
package expenses

import (
	"github.com/shopspring/decimal"

	"github.com/hesabyar/hesabyar/internal/shared"
)

// AccountType separates income from expense accounts.
type AccountType string

const (
	AccountIncome  AccountType = "income"
	AccountExpense AccountType = "expense"
)

// Account is an income or expense ledger account.
type Account struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Type        AccountType `json:"type"`
	Description string      `json:"description"`
}

// AccountInput is the payload for accounts.
type AccountInput struct {
	Name        string      `json:"name" validate:"required,max=100"`
	Type        AccountType `json:"type" validate:"required,oneof=income expense"`
	Description string      `json:"description" validate:"max=500"`
}

// Expense is a single recorded expense.
type Expense struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        shared.Date     `json:"expense_date"`
	Category    string          `json:"category"`
	AccountID   *int64          `json:"account_id,omitempty"`
}

// Input is the payload for expenses.
type Input struct {
	Description string          `json:"description" validate:"required,max=500"`
	Amount      decimal.Decimal `json:"amount" validate:"dgte=0"`
	Date        shared.Date     `json:"expense_date" validate:"required,jdate"`
	Category    string          `json:"category" validate:"max=100"`
	AccountID   *int64          `json:"account_id" validate:"omitempty,gt=0"`
}

// Category is a free-form expense grouping.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Filter narrows expense listings.
type Filter struct {
	Range    shared.DateRange
	Category string
}
