package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
)

// accountStatusBody is the reward-engine account payload. Only the fields
// the checkpoint cares about are decoded.
type accountStatusBody struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	PointSummary struct {
		Available json.Number `json:"available"`
	} `json:"pointSummary"`
	UserTier struct {
		Name string `json:"name"`
	} `json:"userTier"`
}

// runCheckpointAccount fetches one account's reward status and classifies
// the response. Auth rejections flip the stored account status to
// logged_out; successful reads persist the fresh points balance.
func (s *Service) runCheckpointAccount(ctx context.Context, taskID string, cfg domain.CheckpointConfig, acct *domain.Account) domain.Outcome {
	token := sessionToken(acct)
	rep := NewReporter(s.store, s.bc, token)

	s.registry.SessionStarted(taskID, domain.SessionRun{
		AccountID:    acct.ID,
		SessionToken: token,
		Kind:         domain.KindCheckpointRun,
	})
	defer s.registry.SessionFinished(taskID, token)

	oc := domain.Outcome{
		AccountID:    acct.ID,
		AccountName:  acct.DisplayName(),
		SessionToken: token,
	}
	fail := func(format string, args ...any) domain.Outcome {
		msg := fmt.Sprintf(format, args...)
		rep.Error("CHECKPOINT", "%s", msg)
		oc.Status = string(domain.RunFailed)
		oc.Error = msg
		oc.FinishedAt = time.Now()
		return oc
	}

	rep.Step("CHECKPOINT", "checking account %d (%s)", acct.ID, acct.DisplayName())

	driver, err := s.launcher.Launch(ctx, acct, cfg.Headless)
	if err != nil {
		return fail("session launch failed: %v", err)
	}
	defer driver.Close()

	res, err := driver.FetchAccountStatus(ctx)
	if err != nil {
		return fail("account status fetch failed: %v", err)
	}

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden || res.Redirected {
		rep.Warn("CHECKPOINT", "session rejected (status %d), marking account logged out", res.StatusCode)
		if err := s.store.UpdateAccountStatus(acct.ID, domain.AccountLoggedOut); err != nil {
			rep.Error("STORE", "account status update failed: %v", err)
		}
		oc.Status = string(domain.RunFailed)
		oc.Error = domain.ErrAuth("session cookies rejected or expired", nil).Error()
		oc.FinishedAt = time.Now()
		return oc
	}
	if res.StatusCode != http.StatusOK {
		return fail("unexpected status %d from account endpoint", res.StatusCode)
	}

	var body accountStatusBody
	if err := json.Unmarshal(res.Body, &body); err != nil {
		return fail("decoding account payload: %v", err)
	}
	if !body.Success {
		msg := body.Message
		if msg == "" {
			msg = "account endpoint reported failure"
		}
		return fail("%s", msg)
	}

	points := body.PointSummary.Available.String()
	if points == "" {
		points = "0"
	}
	if err := s.store.UpdateAccountPoints(acct.ID, points); err != nil {
		rep.Error("STORE", "points update failed: %v", err)
	}
	if acct.Status != domain.AccountActive {
		if err := s.store.UpdateAccountStatus(acct.ID, domain.AccountActive); err != nil {
			rep.Error("STORE", "account status update failed: %v", err)
		}
	}

	rep.Step("CHECKPOINT", "account %d has %s points, tier %s", acct.ID, points, body.UserTier.Name)

	oc.Status = "success"
	oc.Points = points
	oc.Tier = body.UserTier.Name
	oc.FinishedAt = time.Now()
	return oc
}
