package funds

import "time"

// Flow types accepted by Initiate.
const (
	FlowWithdrawal   = "withdrawal"
	FlowTransfer     = "transfer"
	FlowBillPurchase = "bill_purchase"
)

// DefaultRailTimeout bounds external settlement calls. A rail that has not
// answered by then is treated as outcome-unknown, not failed.
const DefaultRailTimeout = 30 * time.Second

// Reference prefixes per flow.
const (
	refPrefixWithdrawal = "WD"
	refPrefixTransfer   = "TRF"
	refPrefixBill       = "BILL"
)

func defaultFiatCurrencies() map[string]bool {
	return map[string]bool{
		"USD": true,
		"NGN": true,
		"EUR": true,
	}
}
