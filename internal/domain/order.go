package domain

import (
	"fmt"
	"strings"
	"time"
)

// PaymentMethod selects how an order is paid for.
type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"
	PaymentUPI  PaymentMethod = "upi"
	PaymentCard PaymentMethod = "card"
)

// Valid reports whether the payment method is one of the supported values.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCOD, PaymentUPI, PaymentCard:
		return true
	}
	return false
}

// OrderStatus is the lifecycle state of a single order attempt.
// Transitions are forward-only: pending -> processing -> completed|failed.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderFailed     OrderStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderFailed
}

// Product is one line item to order.
type Product struct {
	ID       string  `json:"id" toml:"id" yaml:"id"`
	Name     string  `json:"name" toml:"name" yaml:"name"`
	URL      string  `json:"url" toml:"url" yaml:"url"`
	Quantity int     `json:"quantity" toml:"quantity" yaml:"quantity"`
	Price    float64 `json:"price" toml:"price" yaml:"price"`
}

// Address is the delivery address snapshot attached to an order.
type Address struct {
	ID       string `json:"id" yaml:"id"`
	FullName string `json:"full_name" yaml:"full_name"`
	Phone    string `json:"phone" yaml:"phone"`
	Line1    string `json:"line1" yaml:"line1"`
	Line2    string `json:"line2,omitempty" yaml:"line2"`
	City     string `json:"city" yaml:"city"`
	State    string `json:"state" yaml:"state"`
	Pincode  string `json:"pincode" yaml:"pincode"`
}

// Card holds payment card details in the form the checkout flow expects.
type Card struct {
	Number string `json:"number" yaml:"number"`
	Holder string `json:"holder" yaml:"holder"`
	Expiry string `json:"expiry" yaml:"expiry"` // MM/YY
	CVV    string `json:"cvv" yaml:"cvv"`
}

// NormalizeExpiry converts a stored MM/YYYY expiry to the MM/YY form the
// checkout flow expects. Values already in MM/YY pass through unchanged.
func NormalizeExpiry(expiry string) string {
	parts := strings.Split(expiry, "/")
	if len(parts) == 2 && len(parts[1]) == 4 {
		return fmt.Sprintf("%s/%s", parts[0], parts[1][2:])
	}
	return expiry
}

// Order is the persisted outcome of one order-pipeline repetition. Exactly
// one Order exists per repetition attempt, whether or not it succeeded.
// The display Number repeats across repetitions for the same account; the
// ID and BatchID disambiguate.
type Order struct {
	ID            string
	BatchID       string
	AccountID     int64
	SessionToken  string
	Number        int
	Products      []Product
	Address       Address
	PaymentMethod PaymentMethod
	Status        OrderStatus
	Subtotal      float64
	Discount      float64
	Total         float64
	Confirmation  *string
	ErrorMessage  *string
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// OrderUpdate carries the mutable fields of an order update. Nil fields are
// left untouched.
type OrderUpdate struct {
	Status       *OrderStatus
	Total        *float64
	Confirmation *string
	ErrorMessage *string
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Subtotal computes the pre-discount total for a product list.
func ProductsSubtotal(products []Product) float64 {
	var sum float64
	for _, p := range products {
		sum += p.Price * float64(p.Quantity)
	}
	return sum
}
