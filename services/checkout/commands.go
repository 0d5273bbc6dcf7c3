package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/myqueue"
	"github.com/MarcGrol/sheetmusicshop/services/checkout/checkoutevents"
	"github.com/MarcGrol/sheetmusicshop/services/payment"
	"github.com/MarcGrol/sheetmusicshop/services/termsconditions"
)

func (s *service) CreateTopics(c context.Context) error {
	err := s.publisher.CreateTopic(c, checkoutevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", checkoutevents.TopicName, err)
	}
	return nil
}

func (s *service) begin(c context.Context, sessionUID string) (CheckoutState, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Begin checkout of session %s", sessionUID)

	identity, err := s.identity.Current(c, sessionUID)
	if err != nil {
		return CheckoutState{}, err
	}

	cart, _, err := s.carts.Load(c, sessionUID)
	if err != nil {
		return CheckoutState{}, err
	}

	now := s.nower.Now()
	var state CheckoutState
	err = s.stateStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		existing, found, err := s.stateStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if found {
			existing.Expire(now)
			err = existing.CanAbandon()
			if err != nil {
				return err
			}
		}

		state, err = Begin(sessionUID, identity, cart, now)
		if err != nil {
			return err
		}

		err = s.stateStore.Put(c, sessionUID, state)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutStarted{
			SessionUID: sessionUID,
			BuyerKind:  string(state.Buyer.Kind),
			ItemCount:  cart.TotalCount(),
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return CheckoutState{}, err
	}
	return state, nil
}

func (s *service) get(c context.Context, sessionUID string) (CheckoutState, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Fetch checkout of session %s", sessionUID)

	return s.update(c, sessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
		return nil
	})
}

func (s *service) acceptTerms(c context.Context, sessionUID string, accepted bool) (CheckoutState, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Session %s accepts terms: %v", sessionUID, accepted)

	return s.update(c, sessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
		err := state.AcceptTerms(accepted, s.cfg.TermsVersion, now)
		if err != nil {
			return err
		}
		if !accepted {
			return nil
		}

		err = s.publisher.Publish(c, termsconditions.TopicName, termsconditions.Accepted{
			SessionUID:   sessionUID,
			EmailAddress: state.Buyer.Email,
			Version:      s.cfg.TermsVersion,
			AcceptedAt:   now,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		return nil
	})
}

func (s *service) setGuestContact(c context.Context, sessionUID string, contact guestContact) (CheckoutState, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Session %s leaves guest contact details", sessionUID)

	return s.update(c, sessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
		return state.SetGuestContact(contact.Name, contact.Email, contact.Phone, now)
	})
}

func (s *service) proceed(c context.Context, sessionUID string) (CheckoutState, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Session %s proceeds to payment", sessionUID)

	cart, _, err := s.carts.Load(c, sessionUID)
	if err != nil {
		return CheckoutState{}, err
	}

	return s.update(c, sessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
		return state.ProceedToPayment(cart, now)
	})
}

func (s *service) back(c context.Context, sessionUID string) (CheckoutState, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Session %s goes back to review", sessionUID)

	return s.update(c, sessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
		return state.BackToReview(now)
	})
}

func (s *service) retry(c context.Context, sessionUID string) (CheckoutState, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Session %s retries payment", sessionUID)

	return s.update(c, sessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
		return state.Retry(now)
	})
}

func (s *service) abandon(c context.Context, sessionUID string) error {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Session %s abandons checkout", sessionUID)

	now := s.nower.Now()
	return s.stateStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		state, found, err := s.stateStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return nil
		}
		state.Expire(now)
		err = state.CanAbandon()
		if err != nil {
			return err
		}

		err = s.stateStore.Delete(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutAbandoned{
			SessionUID: sessionUID,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		return nil
	})
}

// submitPayment starts a payment attempt and hands it off to the provider. The outcome arrives later
// through one of the callbacks, or not at all, in which case the attempt times out.
func (s *service) submitPayment(c context.Context, sessionUID string, method payment.Method, baseURL string) (CheckoutState, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Session %s submits payment with %s", sessionUID, method)

	orderUID := ""
	state, err := s.update(c, sessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
		orderUID = s.newOrderUID(now)
		err := state.SubmitPayment(method, orderUID, now.Add(s.cfg.PaymentTimeout), now)
		if err != nil {
			return err
		}
		state.Currency = s.cfg.Currency

		err = s.attemptStore.Put(c, orderUID, PaymentAttempt{
			OrderUID:   orderUID,
			SessionUID: sessionUID,
			Method:     method,
			Amount:     state.Total,
			Currency:   state.Currency,
			CreatedAt:  now,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.queue.Enqueue(c, myqueue.Task{
			UID:            timeoutTaskUID(orderUID),
			WebhookURLPath: "/api/checkout/timeout/" + orderUID,
			Delay:          s.cfg.PaymentTimeout,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error scheduling timeout of order %s: %s", orderUID, err))
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.PaymentRequested{
			OrderUID:      orderUID,
			SessionUID:    sessionUID,
			PaymentMethod: string(method),
			Amount:        state.Total,
			Currency:      state.Currency,
			Attempt:       state.Attempts,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		if orderUID != "" {
			// the attempt store is not part of the funnel transaction
			deleteErr := s.attemptStore.Delete(c, orderUID)
			if deleteErr != nil {
				s.logger.Log(c, orderUID, mylog.SeverityError, "Error removing attempt of order %s: %s", orderUID, deleteErr)
			}
		}
		return CheckoutState{}, err
	}

	handoff, err := s.collaborator.RequestPayment(c, payment.Request{
		OrderUID:      orderUID,
		OrderName:     state.OrderName,
		Amount:        state.Total,
		Currency:      state.Currency,
		Method:        method,
		CustomerName:  state.Buyer.Name,
		CustomerEmail: state.Buyer.Email,
		CustomerPhone: state.Buyer.Phone,
		SuccessURL:    baseURL + "/payment-success",
		FailURL:       baseURL + "/payment-fail",
	})
	if err != nil {
		s.logger.Log(c, orderUID, mylog.SeverityError, "Error handing off order %s to %s: %s", orderUID, s.collaborator.Name(), err)

		return s.update(c, sessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
			return s.fail(c, state, orderUID, payment.FailureProviderUnavailable, err.Error(), now)
		})
	}

	return s.update(c, sessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
		if state.Status != StatusProcessing || state.OrderUID != orderUID {
			s.logger.Log(c, orderUID, mylog.SeverityWarn, "Checkout of session %s moved on before handoff of %s was recorded", sessionUID, orderUID)
			return nil
		}
		err := state.RecordHandoff(orderUID, handoff, now)
		if err != nil {
			return err
		}

		attempt, found, err := s.attemptStore.Get(c, orderUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if found {
			attempt.ProviderName = handoff.ProviderName
			attempt.PaymentKey = handoff.PaymentKey
			err = s.attemptStore.Put(c, orderUID, attempt)
			if err != nil {
				return myerrors.NewInternalError(err)
			}
		}
		return nil
	})
}

// update applies f to the stored funnel of the session within a single transaction. An attempt that
// passed its deadline is timed out first.
func (s *service) update(c context.Context, sessionUID string, f func(c context.Context, state *CheckoutState, now time.Time) error) (CheckoutState, error) {
	var state CheckoutState
	err := s.stateStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		var found bool
		var err error
		state, found, err = s.stateStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("no checkout for session %s", sessionUID))
		}

		now := s.nower.Now()
		if state.Expire(now) {
			err = s.publishFailed(c, state)
			if err != nil {
				return err
			}
		}

		err = f(c, &state, now)
		if err != nil {
			return err
		}

		err = s.stateStore.Put(c, sessionUID, state)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return CheckoutState{}, err
	}
	return state, nil
}

func (s *service) fail(c context.Context, state *CheckoutState, orderUID string, code string, providerMessage string, now time.Time) error {
	err := state.Fail(orderUID, code, providerMessage, now)
	if err != nil {
		return err
	}
	return s.publishFailed(c, *state)
}

func (s *service) publishFailed(c context.Context, state CheckoutState) error {
	s.logger.Log(c, state.OrderUID, mylog.SeverityWarn, "Payment of order %s failed: %s", state.OrderUID, state.Failure.Code)

	err := s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutFailed{
		OrderUID:    state.OrderUID,
		SessionUID:  state.SessionUID,
		FailureCode: state.Failure.Code,
	})
	if err != nil {
		return myerrors.NewInternalError(err)
	}
	return nil
}

// newOrderUID composes the reference the provider knows the order by: ORDER_<unix-millis>_<random>
func (s *service) newOrderUID(now time.Time) string {
	random := strings.ReplaceAll(s.uuider.Create(), "-", "")
	if len(random) > 9 {
		random = random[:9]
	}
	return fmt.Sprintf("ORDER_%d_%s", now.UnixMilli(), random)
}
