package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance holds a user's funds in one currency. Available is spendable,
// Pending is reserved for in-flight settlements. Both columns are mutated
// only through conditional updates in the account repository so that
// neither can go negative under concurrent requests.
type Balance struct {
	ID        uint            `gorm:"primarykey"`
	UserID    uint            `gorm:"not null;uniqueIndex:idx_user_currency"`
	Currency  string          `gorm:"not null;uniqueIndex:idx_user_currency"`
	Available decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Pending   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total is the value held on behalf of the user, settled or not.
func (b *Balance) Total() decimal.Decimal {
	return b.Available.Add(b.Pending)
}
