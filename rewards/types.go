/*
Package rewards exchanges loyalty points for coupons.

PURPOSE:
  Members earn points on sales and spend them here. A redemption debits
  points atomically and mints a coupon with a unique code, a cash value
  derived from the reward, and an expiry window. A periodic sweep flips
  expired coupons.

SEE ALSO:
  - rewards/redemption.go: Redeem and ExpireSweep
  - ledger/types.go: Coupon
*/
package rewards

// RewardType distinguishes how a reward is fulfilled.
type RewardType string

const (
	// RewardCash converts points to wallet-equivalent coupon value.
	RewardCash RewardType = "CASH"
	// RewardDigital is delivered electronically (vouchers, codes).
	RewardDigital RewardType = "DIGITAL"
	// RewardPhysical ships a physical item.
	RewardPhysical RewardType = "PHYSICAL"
)

// Reward is one entry in the redemption catalog.
type Reward struct {
	ID          string
	Title       string
	Description string
	Cost        int64 // points
	Type        RewardType
	Image       string
}

// DefaultCatalog returns the built-in reward catalog.
func DefaultCatalog() []Reward {
	return []Reward{
		{ID: "cash-500", Title: "Cash Voucher S", Cost: 500, Type: RewardCash},
		{ID: "cash-1000", Title: "Cash Voucher M", Cost: 1000, Type: RewardCash},
		{ID: "cash-2500", Title: "Cash Voucher L", Cost: 2500, Type: RewardCash},
		{ID: "promo-basket", Title: "Product Sample Basket", Cost: 800, Type: RewardPhysical},
		{ID: "promo-training", Title: "Sales Masterclass Access", Cost: 1500, Type: RewardDigital},
	}
}
