package core

import (
	"errors"
	"strings"
	"time"
)

const (
	SubStatusActive   = "active"
	SubStatusPastDue  = "past_due"
	SubStatusCanceled = "canceled"
)

// Subscription is the billing read model. Rows are written only through the
// payment provider's webhook; the app treats them as read-only.
type Subscription struct {
	UserID           string
	Plan             string // e.g. "free", "premium"
	Status           string
	CurrentPeriodEnd time.Time
	UpdatedAt        time.Time
}

// Active reports whether the subscription grants access at the given instant.
func (s Subscription) Active(now time.Time) bool {
	if s.Status != SubStatusActive {
		return false
	}
	return s.CurrentPeriodEnd.IsZero() || now.Before(s.CurrentPeriodEnd)
}

func (s Subscription) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrEmptyUserID
	}
	switch s.Status {
	case SubStatusActive, SubStatusPastDue, SubStatusCanceled:
		return nil
	default:
		return ErrInvalidSubscriptionStatus
	}
}

var ErrInvalidSubscriptionStatus = errors.New("invalid subscription status")
