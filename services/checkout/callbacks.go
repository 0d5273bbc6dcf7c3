package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/services/checkout/checkoutevents"
	"github.com/MarcGrol/sheetmusicshop/services/orders/orderapi"
	"github.com/MarcGrol/sheetmusicshop/services/payment"
)

func (s *service) attemptOf(c context.Context, orderUID string) (PaymentAttempt, error) {
	attempt, found, err := s.attemptStore.Get(c, orderUID)
	if err != nil {
		return PaymentAttempt{}, myerrors.NewInternalError(err)
	}
	if !found {
		return PaymentAttempt{}, myerrors.NewNotFoundError(fmt.Errorf("unknown order %s", orderUID))
	}
	return attempt, nil
}

// paymentSucceeded settles an attempt: the attempt is claimed, the payment is confirmed with the provider,
// the order is recorded and the cart is emptied. Repeating the callback for a completed order changes nothing.
func (s *service) paymentSucceeded(c context.Context, confirmation payment.Confirmation) (CheckoutState, error) {
	orderUID := confirmation.OrderUID

	s.logger.Log(c, orderUID, mylog.SeverityInfo, "Payment of order %s succeeded (%d)", orderUID, confirmation.Amount)

	attempt, err := s.attemptOf(c, orderUID)
	if err != nil {
		return CheckoutState{}, err
	}

	settling := false
	state, err := s.update(c, attempt.SessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
		if state.IsCompletedBy(orderUID) {
			s.logger.Log(c, orderUID, mylog.SeverityInfo, "Order %s was already completed", orderUID)
			return nil
		}
		if !state.AwaitsOutcomeOf(orderUID) {
			return myerrors.NewConflictError(fmt.Errorf("checkout of session %s does not wait for order %s", attempt.SessionUID, orderUID))
		}

		if confirmation.Amount != state.Total {
			s.logger.Log(c, orderUID, mylog.SeverityError, "Amount of order %s does not match: received %d, expected %d", orderUID, confirmation.Amount, state.Total)
			if state.Status != StatusProcessing || state.Settling {
				return nil
			}
			return s.fail(c, state, orderUID, payment.FailureAmountMismatch, fmt.Sprintf("received %d, expected %d", confirmation.Amount, state.Total), now)
		}

		settling = true
		return state.Settle(orderUID, now)
	})
	if err != nil || !settling {
		return state, err
	}

	if confirmation.PaymentKey == "" {
		confirmation.PaymentKey = attempt.PaymentKey
	}
	result, err := s.collaborator.ConfirmPayment(c, confirmation)
	if err != nil {
		s.logger.Log(c, orderUID, mylog.SeverityError, "Error confirming order %s with %s: %s", orderUID, s.collaborator.Name(), err)

		_, unsettleErr := s.update(c, attempt.SessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
			state.Unsettle(orderUID, now)
			return nil
		})
		if unsettleErr != nil {
			s.logger.Log(c, orderUID, mylog.SeverityError, "Error handing back order %s: %s", orderUID, unsettleErr)
		}
		return CheckoutState{}, err
	}

	if result.Status == payment.StatusFailed {
		code := result.FailureCode
		if code == "" {
			code = payment.FailureAborted
		}
		return s.update(c, attempt.SessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
			if !state.IsSettling(orderUID) {
				return nil
			}
			state.Unsettle(orderUID, now)
			return s.fail(c, state, orderUID, code, "", now)
		})
	}

	orderStatus := orderapi.StatusCompleted
	if result.Status == payment.StatusWaitingOnDeposit || attempt.Method.IsDeferred() {
		orderStatus = orderapi.StatusPending
	}

	// the attempt stays claimed when recording fails, so only a repeated success can finish it
	err = s.orders.Append(c, orderapi.OrderRecord{
		UID:           orderUID,
		CreatedAt:     s.nower.Now(),
		Items:         state.Items,
		Total:         state.Total,
		Currency:      state.Currency,
		PaymentMethod: string(attempt.Method),
		ProviderName:  attempt.ProviderName,
		PaymentKey:    confirmation.PaymentKey,
		BuyerEmail:    state.Buyer.Email,
		BuyerName:     state.Buyer.Name,
		BuyerPhone:    guestPhoneOf(state.Buyer),
		Guest:         state.Buyer.IsGuest(),
		SessionUID:    state.SessionUID,
		Status:        orderStatus,
	})
	if err != nil {
		return CheckoutState{}, err
	}

	err = s.carts.Clear(c, attempt.SessionUID)
	if err != nil {
		return CheckoutState{}, err
	}

	return s.update(c, attempt.SessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
		if state.IsCompletedBy(orderUID) {
			return nil
		}
		err := state.Complete(orderUID, confirmation.PaymentKey, now)
		if err != nil {
			return err
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutCompleted{
			OrderUID:      orderUID,
			SessionUID:    state.SessionUID,
			PaymentMethod: string(attempt.Method),
			ProviderName:  attempt.ProviderName,
			Amount:        state.Total,
			Currency:      state.Currency,
			Pending:       orderStatus == orderapi.StatusPending,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		return nil
	})
}

func guestPhoneOf(buyer Buyer) string {
	if !buyer.IsGuest() {
		return ""
	}
	return buyer.Phone
}

// paymentFailed ends the attempt with the reason given by the provider; the cart is left untouched
func (s *service) paymentFailed(c context.Context, orderUID string, code string, message string) (CheckoutState, error) {
	s.logger.Log(c, orderUID, mylog.SeverityInfo, "Payment of order %s failed: %s %s", orderUID, code, message)

	attempt, err := s.attemptOf(c, orderUID)
	if err != nil {
		return CheckoutState{}, err
	}

	return s.update(c, attempt.SessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
		if state.Status != StatusProcessing || state.OrderUID != orderUID || state.Settling {
			s.logger.Log(c, orderUID, mylog.SeverityWarn, "Ignore failure of order %s: checkout is %s for order %s (settling: %v)", orderUID, state.Status, state.OrderUID, state.Settling)
			return nil
		}
		return s.fail(c, state, orderUID, code, message, now)
	})
}

// timeout is triggered by a delayed task once the deadline of an attempt has passed
func (s *service) timeout(c context.Context, orderUID string) (CheckoutState, error) {
	s.logger.Log(c, orderUID, mylog.SeverityInfo, "Deadline of order %s reached", orderUID)

	attempt, err := s.attemptOf(c, orderUID)
	if err != nil {
		return CheckoutState{}, err
	}

	_, found, err := s.stateStore.Get(c, attempt.SessionUID)
	if err != nil {
		return CheckoutState{}, myerrors.NewInternalError(err)
	}
	if !found {
		s.logger.Log(c, orderUID, mylog.SeverityInfo, "Checkout of order %s was abandoned", orderUID)
		return CheckoutState{}, nil
	}

	// expiry itself happens when loading the funnel
	state, err := s.update(c, attempt.SessionUID, func(c context.Context, state *CheckoutState, now time.Time) error {
		return nil
	})
	if err != nil {
		dispatched, maxAttempts := s.queue.IsLastAttempt(c, timeoutTaskUID(orderUID))
		if maxAttempts > 0 && dispatched >= maxAttempts {
			// the next read of the funnel still expires it
			s.logger.Log(c, orderUID, mylog.SeverityError, "Giving up on deadline of order %s after %d attempts: %s", orderUID, dispatched, err)
			return CheckoutState{}, nil
		}
		return CheckoutState{}, err
	}
	return state, nil
}

func timeoutTaskUID(orderUID string) string {
	return "payment-timeout-" + orderUID
}
