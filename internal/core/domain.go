package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense record owned by one user.
	Transaction struct {
		ID              int64
		UserID          string
		Type            TransactionType
		Amount          Money
		Category        string
		Description     string
		AudioTranscript string // set when the record came in by voice
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	// BudgetLimit is a user-set monthly ceiling for one spending category.
	BudgetLimit struct {
		ID           int64
		UserID       string
		Category     string
		MonthlyLimit Money
	}

	// UserProfile holds per-user settings, including an optional AI API
	// key override used instead of the service-wide key.
	UserProfile struct {
		UserID    string
		APIKey    string
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

// ExpenseCategories are the known spending categories. The category field
// stays free text; these drive the fallback categorizer and budget forms.
var ExpenseCategories = []string{
	"Groceries",
	"Dining",
	"Transportation",
	"Entertainment",
	"Shopping",
	"Utilities",
	"Healthcare",
	"Housing",
	"Education",
	"Travel",
	"Other",
}

// IncomeCategories are the known income categories.
var IncomeCategories = []string{
	"Salary",
	"Freelance",
	"Investment",
	"Other",
}

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyUserID      = errors.New("empty user id")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyDescription = errors.New("empty description")
	ErrLongDescription  = errors.New("description too long (max 200 characters)")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUserID
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrLongDescription
	}
	return nil
}

func (b BudgetLimit) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	return b.MonthlyLimit.Validate()
}
