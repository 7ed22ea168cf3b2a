package orders

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeStatus is a payment gateway's verdict on a charge attempt.
type ChargeStatus string

const (
	ChargeApproved ChargeStatus = "approved"
	ChargeRejected ChargeStatus = "rejected"
	ChargePending  ChargeStatus = "pending"
)

// ChargeResult is what a gateway returns for one charge.
type ChargeResult struct {
	Status    ChargeStatus
	PaymentID string
	Message   string
}

// PaymentGateway charges a customer for a checkout total.
//
// Implementations wrap a real processor in production and a simulator in
// demo mode. Only an approved result lets checkout proceed.
type PaymentGateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, payerEmail string) (ChargeResult, error)
}

// ShippingQuote is a carrier's price and ETA for a delivery.
type ShippingQuote struct {
	Cost     decimal.Decimal
	ETA      string
	Provider string
}

// RateQuoter quotes shipping for a destination.
type RateQuoter interface {
	Quote(ctx context.Context, zipCode string, itemCount int) (ShippingQuote, error)
}
