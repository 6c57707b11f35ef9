package limits

import (
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultWindowTTL bounds spend-window staleness between explicit
// invalidations.
const DefaultWindowTTL = 5 * time.Minute

const windowCachePrefix = "spendwindow:"

// categoryTypes maps each spend category to the ledger entry types whose
// completed amounts count against it.
var categoryTypes = map[string][]string{
	CategoryCrypto:  {models.TransactionTypeWithdrawal},
	CategoryFiat:    {models.TransactionTypeTransferSent},
	CategoryUtility: {models.TransactionTypeBillPurchase},
}

// DefaultTable is the stock KYC limit table in base-currency units.
func DefaultTable() Table {
	limits := func(daily, monthly int64) CategoryLimits {
		return CategoryLimits{
			Daily:   decimal.NewFromInt(daily),
			Monthly: decimal.NewFromInt(monthly),
		}
	}
	return Table{
		1: {
			CategoryUtility: limits(100, 1_000),
			CategoryCrypto:  limits(500, 5_000),
			CategoryFiat:    limits(1_000, 10_000),
		},
		2: {
			CategoryUtility: limits(1_000, 10_000),
			CategoryCrypto:  limits(5_000, 50_000),
			CategoryFiat:    limits(10_000, 100_000),
		},
		3: {
			CategoryUtility: limits(10_000, 100_000),
			CategoryCrypto:  limits(50_000, 500_000),
			CategoryFiat:    limits(100_000, 1_000_000),
		},
	}
}
