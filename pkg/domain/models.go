package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency is the ticker a payment is settled in.
type Currency string

const (
	USD   Currency = "USD"
	ETH   Currency = "ETH"
	MATIC Currency = "MATIC"
)

// Restaurant is a listing in the catalog.
type Restaurant struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Cuisine       string          `json:"cuisine" db:"cuisine"`
	Description   string          `json:"description" db:"description"`
	Address       string          `json:"address" db:"address"`
	Hours         string          `json:"hours" db:"hours"`
	Image         string          `json:"image" db:"image"`
	AcceptsCrypto bool            `json:"acceptsCrypto" db:"accepts_crypto"`
	Menu          []MenuItem      `json:"menu,omitempty" db:"-"`
	Rating        decimal.Decimal `json:"rating" db:"-"`
	ReviewCount   int             `json:"reviewCount" db:"-"`
}

// MenuItem is one orderable dish. ID is unique within its restaurant's menu.
type MenuItem struct {
	ID           string          `json:"id" db:"id"`
	RestaurantID string          `json:"restaurantId" db:"restaurant_id"`
	Name         string          `json:"name" db:"name"`
	DisplayPrice string          `json:"price" db:"display_price"`
	UnitPriceUSD decimal.Decimal `json:"priceInUSD" db:"unit_price_usd"`
	Description  string          `json:"description" db:"description"`
	Position     int             `json:"-" db:"position"`
}

// CartLine is one ordered menu item in a cart.
type CartLine struct {
	ItemID       string          `json:"itemId"`
	Name         string          `json:"name"`
	UnitPriceUSD decimal.Decimal `json:"unitPriceUsd"`
	Quantity     int             `json:"quantity"`
	RestaurantID string          `json:"restaurantId"`
}

// Subtotal is unit price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPriceUSD.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ProofLineItem is the purchase snapshot carried by a proof.
type ProofLineItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Attestation is the zero-knowledge material bound to a proof at issuance.
type Attestation struct {
	Proof         string   `json:"proof"`
	PublicSignals []string `json:"publicSignals"`
}

// Proof is a receipt asserting a payment took place, redeemable once for a verified review.
type Proof struct {
	ID                   string          `json:"id"`
	RestaurantID         string          `json:"restaurantId"`
	RestaurantName       string          `json:"restaurantName,omitempty"`
	IssuedAt             time.Time       `json:"date"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             Currency        `json:"currency"`
	Network              string          `json:"network"`
	TransactionReference string          `json:"transactionHash"`
	LineItems            []ProofLineItem `json:"items"`
	Attestation          *Attestation    `json:"attestation,omitempty"`
	Used                 bool            `json:"used"`
}

// Clone returns a deep copy so callers never share line-item or attestation storage with a store.
func (p Proof) Clone() Proof {
	out := p
	if p.LineItems != nil {
		out.LineItems = make([]ProofLineItem, len(p.LineItems))
		copy(out.LineItems, p.LineItems)
	}
	if p.Attestation != nil {
		att := *p.Attestation
		att.PublicSignals = append([]string(nil), p.Attestation.PublicSignals...)
		out.Attestation = &att
	}
	return out
}

// Review is a diner's rating of a restaurant. Verified reviews were unlocked by a proof.
type Review struct {
	ID           uuid.UUID `json:"id" db:"id"`
	RestaurantID string    `json:"restaurantId" db:"restaurant_id"`
	Rating       int       `json:"rating" db:"rating"`
	Text         string    `json:"text" db:"text"`
	ProofID      *string   `json:"proofId,omitempty" db:"proof_id"`
	Verified     bool      `json:"verified" db:"verified"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Network is a chain a shopper can pay on.
type Network struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Icon     string          `json:"icon"`
	Currency Currency        `json:"currency"`
	Fee      decimal.Decimal `json:"fee"`
}

// CheckoutState is a state of the checkout workflow.
type CheckoutState string

const (
	CheckoutIdle            CheckoutState = "idle"
	CheckoutProcessing      CheckoutState = "processing"
	CheckoutSucceeded       CheckoutState = "succeeded"
	CheckoutFailed          CheckoutState = "failed"
	CheckoutProofGenerating CheckoutState = "proof-generating"
)

// InFlight reports whether a pay action must be rejected in this state.
func (s CheckoutState) InFlight() bool {
	return s != CheckoutIdle
}

func (s CheckoutState) String() string {
	return string(s)
}

// PaymentResult is what a confirmed payment hands back to the checkout workflow.
type PaymentResult struct {
	TransactionReference string    `json:"transactionHash"`
	Payer                string    `json:"payer,omitempty"`
	ConfirmedAt          time.Time `json:"confirmedAt"`
}
