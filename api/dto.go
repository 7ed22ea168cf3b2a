/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  them through the shared validator instance before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain model
*/
package api

import (
	"time"

	"github.com/omega/commerce-engine/ledger"
	"github.com/omega/commerce-engine/orders"
	"github.com/omega/commerce-engine/rewards"
)

// =============================================================================
// MEMBERS
// =============================================================================

// MemberDTO represents a member in API responses.
type MemberDTO struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Email              string  `json:"email,omitempty"`
	Phone              string  `json:"phone,omitempty"`
	Role               string  `json:"role"`
	Status             string  `json:"status"`
	Wallet             string  `json:"wallet"`
	Points             int64   `json:"points"`
	SalesThisMonth     string  `json:"sales_this_month"`
	LeaderID           string  `json:"leader_id,omitempty"`
	CommissionRate     *string `json:"commission_rate,omitempty"`
	ActivationProofURL string  `json:"activation_proof_url,omitempty"`
	JoinedAt           string  `json:"joined_at"`
}

func toMemberDTO(m ledger.Member) MemberDTO {
	dto := MemberDTO{
		ID:                 string(m.ID),
		Name:               m.Name,
		Email:              m.Email,
		Phone:              m.Phone,
		Role:               string(m.Role),
		Status:             string(m.Status),
		Wallet:             m.Wallet.String(),
		Points:             m.Points,
		SalesThisMonth:     m.SalesThisMonth.String(),
		LeaderID:           string(m.LeaderID),
		ActivationProofURL: m.ActivationProofURL,
		JoinedAt:           m.JoinedAt.Format(time.RFC3339),
	}
	if m.CustomCommissionRate != nil {
		s := m.CustomCommissionRate.String()
		dto.CommissionRate = &s
	}
	return dto
}

// RegisterMemberRequest is the request to register a new member.
type RegisterMemberRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN LEADER RESELLER"`
	LeaderID string `json:"leader_id" validate:"omitempty"`
}

// SubmitProofRequest attaches an activation proof to a pending member.
// Either a ready URL or a base64 image to upload must be provided.
type SubmitProofRequest struct {
	ProofURL  string `json:"proof_url" validate:"omitempty,url"`
	ImageData string `json:"image_data" validate:"omitempty,base64"`
}

// DecideMemberRequest resolves a pending member.
type DecideMemberRequest struct {
	Approve bool   `json:"approve"`
	ActorID string `json:"actor_id" validate:"required"`
}

// =============================================================================
// SALES AND PAYOUTS
// =============================================================================

// RecordSaleRequest attributes an ad-hoc sale to a reseller.
type RecordSaleRequest struct {
	ResellerID     string `json:"reseller_id" validate:"required"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name" validate:"required"`
	SalePrice      string `json:"sale_price" validate:"required"`
	Rate           string `json:"rate" validate:"omitempty"`
	IdempotencyKey string `json:"idempotency_key"`
}

// SaleReceiptDTO reports a recorded sale.
type SaleReceiptDTO struct {
	ResellerID string `json:"reseller_id"`
	Commission string `json:"commission"`
	Points     int64  `json:"points"`
	AuditID    string `json:"audit_id"`
}

// ProcessPayoutRequest withdraws from a member wallet on behalf of the
// acting admin.
type ProcessPayoutRequest struct {
	ActorID  string `json:"actor_id" validate:"required"`
	MemberID string `json:"member_id" validate:"required"`
	Amount   string `json:"amount" validate:"required"`
	ProofURL string `json:"proof_url" validate:"omitempty,url"`
}

// PayoutReceiptDTO reports a completed payout.
type PayoutReceiptDTO struct {
	MemberID  string `json:"member_id"`
	Amount    string `json:"amount"`
	Remaining string `json:"remaining"`
	AuditID   string `json:"audit_id"`
}

// =============================================================================
// ORDERS
// =============================================================================

// CheckoutRequest is a customer cart ready to pay.
type CheckoutRequest struct {
	Customer   CustomerDTO      `json:"customer" validate:"required"`
	Items      []CheckoutItem   `json:"items" validate:"required,min=1,dive"`
	ResellerID string           `json:"reseller_id"`
}

type CustomerDTO struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	ZipCode string `json:"zip_code" validate:"required"`
}

type CheckoutItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// UpdateOrderStatusRequest moves an order along its state machine.
type UpdateOrderStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=PENDING PROCESSING SHIPPED DELIVERED CANCELLED"`
	ActorID string `json:"actor_id" validate:"required"`
}

// OrderDTO represents an order in API responses.
type OrderDTO struct {
	ID               string         `json:"id"`
	TrackingID       string         `json:"tracking_id"`
	Status           string         `json:"status"`
	Total            string         `json:"total"`
	Customer         CustomerDTO    `json:"customer"`
	Items            []OrderItemDTO `json:"items"`
	ResellerID       string         `json:"reseller_id,omitempty"`
	ShippingProvider string         `json:"shipping_provider,omitempty"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
}

type OrderItemDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

func toOrderDTO(o ledger.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: string(it.ProductID),
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.String(),
		})
	}
	return OrderDTO{
		ID:         string(o.ID),
		TrackingID: o.TrackingID,
		Status:     string(o.Status),
		Total:      o.Total.String(),
		Customer: CustomerDTO{
			Name:    o.Customer.Name,
			Address: o.Customer.Address,
			City:    o.Customer.City,
			Phone:   o.Customer.Phone,
			Email:   o.Customer.Email,
			ZipCode: o.Customer.ZipCode,
		},
		Items:            items,
		ResellerID:       string(o.ResellerID),
		ShippingProvider: o.ShippingProvider,
		CreatedAt:        o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        o.UpdatedAt.Format(time.RFC3339),
	}
}

// ShippingQuoteDTO is a carrier quote for a destination.
type ShippingQuoteDTO struct {
	Cost     string `json:"cost"`
	ETA      string `json:"eta"`
	Provider string `json:"provider"`
}

func toQuoteDTO(q orders.ShippingQuote) ShippingQuoteDTO {
	return ShippingQuoteDTO{Cost: q.Cost.String(), ETA: q.ETA, Provider: q.Provider}
}

// =============================================================================
// REWARDS AND COUPONS
// =============================================================================

// RedeemRequest spends points on a catalog reward.
type RedeemRequest struct {
	MemberID string `json:"member_id" validate:"required"`
	RewardID string `json:"reward_id" validate:"required"`
}

// RewardDTO is one redemption catalog entry.
type RewardDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Cost        int64  `json:"cost"`
	Type        string `json:"type"`
}

func toRewardDTO(r rewards.Reward) RewardDTO {
	return RewardDTO{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Cost:        r.Cost,
		Type:        string(r.Type),
	}
}

// CouponDTO represents a minted coupon.
type CouponDTO struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	MemberID    string `json:"member_id"`
	RewardTitle string `json:"reward_title"`
	Value       string `json:"value"`
	Status      string `json:"status"`
	ExpiresAt   string `json:"expires_at"`
	CreatedAt   string `json:"created_at"`
}

func toCouponDTO(c ledger.Coupon) CouponDTO {
	return CouponDTO{
		ID:          string(c.ID),
		Code:        c.Code,
		MemberID:    string(c.MemberID),
		RewardTitle: c.RewardTitle,
		Value:       c.Value,
		Status:      string(c.Status),
		ExpiresAt:   c.ExpiresAt.Format(time.RFC3339),
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// PRODUCTS AND SETTINGS
// =============================================================================

// ProductDTO represents a catalog product.
type ProductDTO struct {
	ID            string `json:"id"`
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	PriceList     string `json:"price_list"`
	PriceReseller string `json:"price_reseller"`
	Stock         int    `json:"stock"`
	Category      string `json:"category,omitempty"`
	Image         string `json:"image,omitempty"`
	IsPromo       bool   `json:"is_promo"`
}

func toProductDTO(p ledger.Product) ProductDTO {
	return ProductDTO{
		ID:            string(p.ID),
		SKU:           p.SKU,
		Name:          p.Name,
		Description:   p.Description,
		PriceList:     p.PriceList.String(),
		PriceReseller: p.PriceReseller.String(),
		Stock:         p.Stock,
		Category:      p.Category,
		Image:         p.Image,
		IsPromo:       p.IsPromo,
	}
}

// UpsertProductRequest creates or updates a product.
type UpsertProductRequest struct {
	ID            string `json:"id"`
	SKU           string `json:"sku" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Description   string `json:"description"`
	PriceList     string `json:"price_list" validate:"required"`
	PriceReseller string `json:"price_reseller" validate:"required"`
	Stock         int    `json:"stock" validate:"min=0"`
	Category      string `json:"category"`
	Image         string `json:"image"`
	IsPromo       bool   `json:"is_promo"`
}

// SettingsDTO is the platform configuration document.
type SettingsDTO struct {
	PlatformName          string `json:"platform_name"`
	DefaultCommissionRate string `json:"default_commission_rate"`
	LeaderCommissionRate  string `json:"leader_commission_rate"`
	MarkupPercentage      string `json:"markup_percentage"`
	WithdrawalsPaused     bool   `json:"withdrawals_paused"`
	MaintenanceMode       bool   `json:"maintenance_mode"`
	UpdatedAt             string `json:"updated_at,omitempty"`
}

func toSettingsDTO(s ledger.Settings) SettingsDTO {
	return SettingsDTO{
		PlatformName:          s.PlatformName,
		DefaultCommissionRate: s.DefaultCommissionRate.String(),
		LeaderCommissionRate:  s.LeaderCommissionRate.String(),
		MarkupPercentage:      s.MarkupPercentage.String(),
		WithdrawalsPaused:     s.WithdrawalsPaused,
		MaintenanceMode:       s.MaintenanceMode,
		UpdatedAt:             s.UpdatedAt.Format(time.RFC3339),
	}
}

// UpdateSettingsRequest replaces the platform configuration.
type UpdateSettingsRequest struct {
	PlatformName          string `json:"platform_name" validate:"required"`
	DefaultCommissionRate string `json:"default_commission_rate" validate:"required"`
	LeaderCommissionRate  string `json:"leader_commission_rate" validate:"required"`
	MarkupPercentage      string `json:"markup_percentage" validate:"required"`
	WithdrawalsPaused     bool   `json:"withdrawals_paused"`
	MaintenanceMode       bool   `json:"maintenance_mode"`
	ActorID               string `json:"actor_id" validate:"required"`
}

// =============================================================================
// AUDIT
// =============================================================================

// AuditEntryDTO is one audit log line.
type AuditEntryDTO struct {
	ID          string `json:"id"`
	ActorID     string `json:"actor_id"`
	Action      string `json:"action"`
	Details     string `json:"details,omitempty"`
	Environment string `json:"environment,omitempty"`
	ProofURL    string `json:"proof_url,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toAuditDTO(e ledger.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:          e.ID,
		ActorID:     string(e.ActorID),
		Action:      string(e.Action),
		Details:     e.Details,
		Environment: e.Environment,
		ProofURL:    e.ProofURL,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
