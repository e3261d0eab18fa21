package orchestrator

import (
	"context"
	"time"

	"github.com/redmi6provk-cell/tira-order-auto/internal/automation"
	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
)

// TestLoginResult reports whether one account's stored session still works.
type TestLoginResult struct {
	AccountID   int64     `json:"account_id"`
	AccountName string    `json:"account_name"`
	LoggedIn    bool      `json:"logged_in"`
	Message     string    `json:"message"`
	CheckedAt   time.Time `json:"checked_at"`
}

// TestLogin launches a throwaway session for one account and checks
// whether its stored cookies still authenticate. Nothing is persisted; a
// failed check is a result, not an error.
func (s *Service) TestLogin(ctx context.Context, accountID int64) (*TestLoginResult, error) {
	acct, err := s.store.GetAccount(accountID)
	if err != nil {
		return nil, domain.ErrDependency("account not found", err)
	}

	res := &TestLoginResult{
		AccountID:   acct.ID,
		AccountName: acct.DisplayName(),
		CheckedAt:   time.Now(),
	}

	driver, err := s.launcher.Launch(ctx, acct, true)
	if err != nil {
		res.Message = "session launch failed: " + err.Error()
		return res, nil
	}
	defer driver.Close()

	if err := driver.Navigate(ctx, s.site.BaseURL); err != nil {
		res.Message = "storefront unreachable: " + err.Error()
		return res, nil
	}
	if err := s.delays.Sleep(ctx, automation.DelayPageLoad); err != nil {
		return nil, err
	}

	ok, err := driver.VerifyLogin(ctx)
	switch {
	case err != nil:
		res.Message = "login check errored: " + err.Error()
	case ok:
		res.LoggedIn = true
		res.Message = "session cookies valid"
	default:
		res.Message = "no authenticated session detected"
	}
	res.CheckedAt = time.Now()
	return res, nil
}
