// Package domain holds the core types shared by the store, the automation
// drivers and the orchestrator: accounts, orders, bulk tasks and the
// per-session event log.
package domain

import (
	"encoding/json"
	"time"
)

// AccountStatus is the last known authentication state of an account.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountLoggedOut AccountStatus = "logged_out"
	AccountUnknown   AccountStatus = "unknown"
)

// Account is one independently authenticated identity the orchestrator
// drives workflows on behalf of. The credential bundle is opaque to the
// orchestrator; only the automation layer interprets it.
type Account struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Cookies   json.RawMessage
	Status    AccountStatus
	Points    string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns the best human-readable label for the account.
func (a *Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if a.Email != "" {
		return a.Email
	}
	return "account"
}
