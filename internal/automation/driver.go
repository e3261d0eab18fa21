// Package automation defines the driver contract the orchestrator runs
// workflows through, plus the pacing and credential plumbing shared by all
// driver implementations.
package automation

import (
	"context"

	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
)

// SessionHealth is the driver's own assessment of its underlying channel,
// consulted after a repetition fails to decide continue-vs-abort.
type SessionHealth int

const (
	// HealthOK means the channel is usable and further repetitions may run.
	HealthOK SessionHealth = iota
	// HealthClosed means the channel is gone; remaining repetitions must
	// be abandoned.
	HealthClosed
)

// FetchResult is the raw response of an account-status fetch.
type FetchResult struct {
	StatusCode int
	Body       []byte
	Redirected bool
}

// Driver performs the concrete site interaction steps of a workflow. Each
// session run owns exactly one Driver instance; it is never shared across
// sessions. Every method may fail with a classified error instead of a
// sentinel value.
type Driver interface {
	// Navigate loads a page.
	Navigate(ctx context.Context, url string) error
	// VerifyLogin reports whether the loaded credentials appear valid.
	// A false return is a signal, not an error.
	VerifyLogin(ctx context.Context) (bool, error)
	// ClearAddresses removes saved addresses, returning how many.
	ClearAddresses(ctx context.Context) (int, error)
	// ClearCart empties the cart, returning how many items were removed.
	ClearCart(ctx context.Context) (int, error)
	// AddProduct puts a product in the cart.
	AddProduct(ctx context.Context, url string, quantity int) error
	// ApplyBestCoupon applies the best available coupon, if any.
	ApplyBestCoupon(ctx context.Context) (bool, error)
	// CartTotal reads the current cart total.
	CartTotal(ctx context.Context) (float64, error)
	// AddAddress fills in the delivery address.
	AddAddress(ctx context.Context, addr domain.Address) error
	// SelectPayment chooses the payment method; card may be nil for
	// non-card methods.
	SelectPayment(ctx context.Context, method domain.PaymentMethod, card *domain.Card) error
	// SubmitOrder places the order and returns the confirmation number.
	SubmitOrder(ctx context.Context) (string, error)
	// FetchAccountStatus performs the account-status request with the
	// driver's configured credentials.
	FetchAccountStatus(ctx context.Context) (*FetchResult, error)
	// Health reports whether the underlying channel is still usable.
	Health() SessionHealth
	// Close releases the driver's resources. Safe to call more than once.
	Close() error
}

// Launcher acquires a dedicated Driver for one session.
type Launcher interface {
	Launch(ctx context.Context, acct *domain.Account, headless bool) (Driver, error)
}
