package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redmi6provk-cell/tira-order-auto/internal/automation"
	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
)

// accountResult is what one account's session run produced. outcomes holds
// one entry per attempted repetition, or a single synthetic failure when
// setup never got far enough to attempt any.
type accountResult struct {
	outcomes []domain.Outcome
}

func sessionToken(acct *domain.Account) string {
	return fmt.Sprintf("user_%d_%s", acct.ID, uuid.NewString()[:8])
}

// runOrderAccount drives the full order pipeline for one account: driver
// acquisition, authentication, then the repetition loop. Repetition
// failures are contained; only a dead session channel aborts the loop.
func (s *Service) runOrderAccount(ctx context.Context, taskID string, cfg domain.BulkOrderConfig, acct *domain.Account, reps int) accountResult {
	token := sessionToken(acct)
	rep := NewReporter(s.store, s.bc, token)

	s.registry.SessionStarted(taskID, domain.SessionRun{
		AccountID:    acct.ID,
		SessionToken: token,
		Kind:         domain.KindOrderRun,
	})
	defer s.registry.SessionFinished(taskID, token)

	rep.Begin("INIT", fmt.Sprintf("launching session for account %d (%s)", acct.ID, acct.DisplayName()))
	var sessionErr error
	defer rep.End("SESSION", &sessionErr)

	driver, err := s.launcher.Launch(ctx, acct, cfg.Headless)
	if err != nil {
		sessionErr = err
		rep.Error("INIT", "session launch failed: %v", err)
		return accountResult{outcomes: []domain.Outcome{setupFailure(acct, token, err)}}
	}
	defer driver.Close()

	loggedIn, err := s.authenticate(ctx, driver, rep)
	if err != nil {
		sessionErr = err
		return accountResult{outcomes: []domain.Outcome{setupFailure(acct, token, err)}}
	}

	if cfg.Mode == domain.ModeTestLogin {
		oc := domain.Outcome{
			AccountID:    acct.ID,
			AccountName:  acct.DisplayName(),
			SessionToken: token,
			FinishedAt:   time.Now(),
		}
		if loggedIn {
			rep.Step("AUTH", "login test passed")
			oc.Status = string(domain.RunCompleted)
			oc.Confirmation = "session cookies valid"
		} else {
			rep.Error("AUTH", "login test failed, no authenticated session")
			oc.Status = string(domain.RunFailed)
			oc.Error = domain.ErrAuth("session cookies rejected or expired", nil).Error()
		}
		return accountResult{outcomes: []domain.Outcome{oc}}
	}

	var res accountResult
	for i := 0; i < reps; i++ {
		oc := s.runRepetition(ctx, taskID, cfg, acct, rep, driver, i)
		res.outcomes = append(res.outcomes, oc)

		if !oc.Succeeded() && driver.Health() == automation.HealthClosed {
			sessionErr = domain.ErrStep(fmt.Sprintf("session channel closed, %d repetitions not attempted", reps-i-1), nil)
			break
		}

		if i < reps-1 {
			rep.Step("WAIT", "pausing before next repetition")
			if err := s.delays.Sleep(ctx, automation.DelayPageLoad); err != nil {
				break
			}
		}
	}
	return res
}

// authenticate loads the session onto the site and checks the login
// signal. An absent positive signal is only a warning for the order flow;
// a transport-level failure is fatal for the account.
func (s *Service) authenticate(ctx context.Context, driver automation.Driver, rep *Reporter) (bool, error) {
	rep.Step("AUTH", "navigating to storefront")
	if err := driver.Navigate(ctx, s.site.BaseURL); err != nil {
		rep.Error("AUTH", "navigation failed: %v", err)
		return false, domain.ErrAuth("could not reach storefront", err)
	}
	if err := s.delays.Sleep(ctx, automation.DelayPageLoad); err != nil {
		return false, err
	}

	ok, err := driver.VerifyLogin(ctx)
	if err != nil {
		rep.Warn("AUTH", "login check errored: %v", err)
		return false, nil
	}
	if !ok {
		rep.Warn("AUTH", "no login signal found, proceeding anyway")
		return false, nil
	}
	rep.Step("AUTH", "authenticated")
	return true, nil
}

// runRepetition drives one repetition through the order state machine and
// always leaves its Order in a terminal state.
func (s *Service) runRepetition(ctx context.Context, taskID string, cfg domain.BulkOrderConfig, acct *domain.Account, rep *Reporter, driver automation.Driver, repIdx int) domain.Outcome {
	orderID := uuid.NewString()
	orep := rep.WithOrder(orderID)
	token := rep.Session()

	oc := domain.Outcome{
		AccountID:    acct.ID,
		AccountName:  acct.DisplayName(),
		SessionToken: token,
		OrderID:      orderID,
		Number:       repIdx + 1,
	}

	address, card, err := s.resolveDependencies(cfg)
	if err != nil {
		orep.Error("SETUP", "dependency resolution failed: %v", err)
		oc.Status = string(domain.RunFailed)
		oc.Error = err.Error()
		oc.FinishedAt = time.Now()
		return oc
	}

	if s.names != nil {
		if name, ok := s.names.Pick(cfg.NameSuffix); ok {
			address.FullName = name
			orep.Step("SETUP", "using display name %q for address", name)
		}
	}

	order := &domain.Order{
		ID:            orderID,
		BatchID:       taskID,
		AccountID:     acct.ID,
		SessionToken:  token,
		Number:        repIdx + 1,
		Products:      cfg.Products,
		Address:       *address,
		PaymentMethod: cfg.PaymentMethod,
		Status:        domain.OrderPending,
		Subtotal:      domain.ProductsSubtotal(cfg.Products),
		CreatedAt:     time.Now(),
	}
	if err := s.store.CreateOrder(order); err != nil {
		orep.Error("SETUP", "persisting order: %v", err)
		oc.Status = string(domain.RunFailed)
		oc.Error = err.Error()
		oc.FinishedAt = time.Now()
		return oc
	}

	now := time.Now()
	s.updateOrder(orderID, domain.OrderUpdate{Status: statusPtr(domain.OrderProcessing), StartedAt: &now}, orep)
	s.bc.EmitOrderUpdate(orderID, string(domain.OrderProcessing), token, nil)

	orep.Step("ORDER", "starting repetition %d/%d", repIdx+1, cfg.RepetitionCount)

	confirmation, total, err := s.placeOrder(ctx, cfg, address, card, orep, driver)
	done := time.Now()
	if err != nil {
		msg := err.Error()
		s.updateOrder(orderID, domain.OrderUpdate{
			Status:       statusPtr(domain.OrderFailed),
			ErrorMessage: &msg,
			CompletedAt:  &done,
		}, orep)
		s.bc.EmitOrderUpdate(orderID, string(domain.OrderFailed), token, map[string]any{"error": msg})
		orep.Meta("ERROR", "ORDER", fmt.Sprintf("repetition %d failed: %s", repIdx+1, msg), map[string]any{
			"error_code": domain.ErrorCode(err),
		})

		oc.Status = string(domain.RunFailed)
		oc.Error = msg
		oc.FinishedAt = done
		return oc
	}

	s.updateOrder(orderID, domain.OrderUpdate{
		Status:       statusPtr(domain.OrderCompleted),
		Confirmation: &confirmation,
		Total:        &total,
		CompletedAt:  &done,
	}, orep)
	s.bc.EmitOrderUpdate(orderID, string(domain.OrderCompleted), token, map[string]any{
		"confirmation": confirmation,
		"total":        total,
	})
	orep.Step("SUCCESS", "repetition %d complete, confirmation %s", repIdx+1, confirmation)

	oc.Status = string(domain.RunCompleted)
	oc.Confirmation = confirmation
	oc.Total = total
	oc.FinishedAt = done
	return oc
}

// placeOrder walks the checkout steps in order. The first failing step
// aborts the repetition with its classified error.
func (s *Service) placeOrder(ctx context.Context, cfg domain.BulkOrderConfig, address *domain.Address, card *domain.Card, rep *Reporter, driver automation.Driver) (confirmation string, total float64, err error) {
	rep.Step("ADDRESS_CLEAR", "removing saved addresses")
	removed, err := driver.ClearAddresses(ctx)
	if err != nil {
		return "", 0, err
	}
	rep.Step("ADDRESS_CLEAR", "removed %d addresses", removed)

	rep.Step("CART_CLEAR", "emptying cart")
	removed, err = driver.ClearCart(ctx)
	if err != nil {
		return "", 0, err
	}
	rep.Step("CART_CLEAR", "removed %d cart items", removed)

	for i, p := range cfg.Products {
		rep.Step("CART_ADD", "adding product %d/%d", i+1, len(cfg.Products))
		if err := driver.AddProduct(ctx, p.URL, p.Quantity); err != nil {
			return "", 0, err
		}
		if i < len(cfg.Products)-1 {
			if err := s.delays.Sleep(ctx, automation.DelayBetweenProducts); err != nil {
				return "", 0, err
			}
		}
	}

	rep.Step("CART_VERIFY", "verifying cart")
	if err := driver.Navigate(ctx, s.site.CartURL); err != nil {
		return "", 0, err
	}
	if err := s.delays.Sleep(ctx, automation.DelayPageLoad); err != nil {
		return "", 0, err
	}

	rep.Step("COUPON_APPLY", "applying best available coupon")
	if applied, err := driver.ApplyBestCoupon(ctx); err != nil {
		rep.Warn("COUPON_APPLY", "coupon application failed: %v", err)
	} else if applied {
		rep.Step("COUPON_APPLY", "coupon applied")
	}

	total, err = driver.CartTotal(ctx)
	if err != nil {
		return "", 0, err
	}
	rep.Step("TOTAL_CHECK", "cart total is %.2f", total)
	if total <= 0 {
		return "", 0, domain.ErrRule("cart total is zero or invalid")
	}
	if cfg.MaxCartValue > 0 && total > cfg.MaxCartValue {
		return "", 0, domain.ErrRule(fmt.Sprintf("cart total %.2f exceeds limit %.2f", total, cfg.MaxCartValue))
	}

	rep.Step("ADDRESS_ADD", "adding delivery address")
	if err := driver.AddAddress(ctx, *address); err != nil {
		return "", 0, err
	}

	if err := s.delays.Sleep(ctx, automation.DelayBeforeCheckout); err != nil {
		return "", 0, err
	}

	rep.Step("PAYMENT_SELECT", "selecting payment method %s", cfg.PaymentMethod)
	if err := driver.SelectPayment(ctx, cfg.PaymentMethod, card); err != nil {
		return "", 0, err
	}

	rep.Step("PAYMENT_SUBMIT", "placing order")
	confirmation, err = driver.SubmitOrder(ctx)
	if err != nil {
		return "", 0, err
	}
	if confirmation == "" {
		return "", 0, domain.ErrStep("order submission returned no confirmation", nil)
	}
	return confirmation, total, nil
}

// resolveDependencies looks up the address and, for card payments, the
// card. A copy of the address is returned so the name override never
// mutates shared state.
func (s *Service) resolveDependencies(cfg domain.BulkOrderConfig) (*domain.Address, *domain.Card, error) {
	address, err := s.store.GetAddress(cfg.AddressID)
	if err != nil {
		return nil, nil, domain.ErrDependency("address not found: "+cfg.AddressID, err)
	}
	addrCopy := *address

	var card *domain.Card
	if cfg.PaymentMethod == domain.PaymentCard {
		switch {
		case cfg.CardID != "":
			card, err = s.store.GetCard(cfg.CardID)
			if err != nil {
				return nil, nil, domain.ErrDependency("card not found: "+cfg.CardID, err)
			}
		case cfg.CardDetails != nil:
			c := *cfg.CardDetails
			c.Expiry = domain.NormalizeExpiry(c.Expiry)
			card = &c
		default:
			return nil, nil, domain.ErrDependency("card payment requires card_id or card_details", nil)
		}
	}
	return &addrCopy, card, nil
}

func (s *Service) updateOrder(orderID string, u domain.OrderUpdate, rep *Reporter) {
	if err := s.store.UpdateOrder(orderID, u); err != nil {
		rep.Error("STORE", "order update failed: %v", err)
	}
}

func setupFailure(acct *domain.Account, token string, err error) domain.Outcome {
	return domain.Outcome{
		AccountID:    acct.ID,
		AccountName:  acct.DisplayName(),
		SessionToken: token,
		Status:       string(domain.RunFailed),
		Error:        "session setup failed: " + err.Error(),
		FinishedAt:   time.Now(),
	}
}

func statusPtr(s domain.OrderStatus) *domain.OrderStatus {
	return &s
}
