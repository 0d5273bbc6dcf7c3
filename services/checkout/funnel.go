package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/services/cart/cartapi"
	"github.com/MarcGrol/sheetmusicshop/services/identity/identityapi"
	"github.com/MarcGrol/sheetmusicshop/services/orders/orderapi"
	"github.com/MarcGrol/sheetmusicshop/services/payment"
)

// The funnel below only changes state in memory; storing it is up to the caller.

// Begin opens a funnel for a non-empty cart. Who is buying is fixed here.
func Begin(sessionUID string, identity identityapi.Identity, cart cartapi.CartSession, now time.Time) (CheckoutState, error) {
	if cart.TotalCount() == 0 {
		return CheckoutState{}, myerrors.NewValidationError(fieldError{field: "cart", code: codeCartEmpty, message: "장바구니가 비어 있습니다."})
	}

	buyer := Buyer{Kind: BuyerGuest}
	if identity.IsMember() {
		buyer = Buyer{
			Kind:  BuyerMember,
			Name:  identity.Name,
			Email: identity.Email,
			Phone: identity.Phone,
		}
	}

	return CheckoutState{
		SessionUID: sessionUID,
		Status:     StatusReviewing,
		Buyer:      buyer,
		Items:      []orderapi.LineItem{},
		CreatedAt:  now,
	}, nil
}

func (s *CheckoutState) AcceptTerms(accepted bool, version string, now time.Time) error {
	err := s.expect("accept terms", StatusReviewing)
	if err != nil {
		return err
	}
	s.TermsAccepted = accepted
	s.TermsVersion = version
	if !accepted {
		s.TermsVersion = ""
	}
	s.touch(now)
	return nil
}

// SetGuestContact stores the contact details of a guest; they are validated when proceeding to payment
func (s *CheckoutState) SetGuestContact(name string, email string, phone string, now time.Time) error {
	err := s.expect("set guest contact", StatusReviewing)
	if err != nil {
		return err
	}
	if !s.Buyer.IsGuest() {
		return myerrors.NewInvalidInputError(fmt.Errorf("session %s checks out as member", s.SessionUID))
	}
	s.Buyer.Name = strings.TrimSpace(name)
	s.Buyer.Email = strings.TrimSpace(email)
	s.Buyer.Phone = strings.TrimSpace(phone)
	s.touch(now)
	return nil
}

// ProceedToPayment freezes the total of the cart
func (s *CheckoutState) ProceedToPayment(cart cartapi.CartSession, now time.Time) error {
	err := s.expect("proceed to payment", StatusReviewing)
	if err != nil {
		return err
	}
	err = validateBeforePayment(*s)
	if err != nil {
		return myerrors.NewValidationError(err)
	}
	if cart.TotalCount() == 0 {
		return myerrors.NewValidationError(fieldError{field: "cart", code: codeCartEmpty, message: "장바구니가 비어 있습니다."})
	}

	s.Items = lineItemsOf(cart)
	s.Total = cart.TotalPrice()
	s.Status = StatusAwaitingPayment
	s.touch(now)
	return nil
}

func (s *CheckoutState) BackToReview(now time.Time) error {
	err := s.expect("go back to review", StatusAwaitingPayment)
	if err != nil {
		return err
	}
	s.Status = StatusReviewing
	s.touch(now)
	return nil
}

// SubmitPayment starts a new payment attempt that must be settled before the deadline
func (s *CheckoutState) SubmitPayment(method payment.Method, orderUID string, deadline time.Time, now time.Time) error {
	err := s.expect("submit payment", StatusAwaitingPayment, StatusFailed)
	if err != nil {
		return err
	}
	_, err = payment.ParseMethod(string(method))
	if err != nil {
		return myerrors.NewValidationError(fieldError{field: "method", code: codeInvalidMethod, message: "결제 수단을 선택해주세요."})
	}

	s.Status = StatusProcessing
	s.PaymentMethod = method
	s.OrderUID = orderUID
	s.OrderName = orderNameOf(s.Items)
	s.ProviderName = ""
	s.PaymentKey = ""
	s.RedirectURL = ""
	s.Failure = Failure{}
	s.Attempts++
	s.ProcessingDeadline = &deadline
	s.touch(now)
	return nil
}

// RecordHandoff remembers where the buyer was sent to pay
func (s *CheckoutState) RecordHandoff(orderUID string, handoff payment.Handoff, now time.Time) error {
	err := s.expectAttempt("record handoff", orderUID, StatusProcessing)
	if err != nil {
		return err
	}
	s.ProviderName = handoff.ProviderName
	s.PaymentKey = handoff.PaymentKey
	s.RedirectURL = handoff.RedirectURL
	s.touch(now)
	return nil
}

// AwaitsOutcomeOf tells if the provider outcome of the given attempt is still relevant. A success that
// arrives after the deadline of the attempt is still accepted, as long as no new attempt was started.
func (s CheckoutState) AwaitsOutcomeOf(orderUID string) bool {
	if s.OrderUID != orderUID {
		return false
	}
	return s.Status == StatusProcessing || (s.Status == StatusFailed && s.Failure.Code == payment.FailureTimeout)
}

// IsSettling tells if a confirmed success of the given attempt is being turned into an order
func (s CheckoutState) IsSettling(orderUID string) bool {
	return s.Settling && s.Status == StatusProcessing && s.OrderUID == orderUID
}

// Settle claims the attempt for completion. A settling attempt cannot fail, time out or be retried
// until it is completed or handed back with Unsettle. Settling the same attempt twice is allowed.
func (s *CheckoutState) Settle(orderUID string, now time.Time) error {
	if s.IsSettling(orderUID) {
		return nil
	}
	if !s.AwaitsOutcomeOf(orderUID) {
		return myerrors.NewConflictError(fmt.Errorf("checkout of session %s does not wait for order %s (status %s, order %s)", s.SessionUID, orderUID, s.Status, s.OrderUID))
	}
	s.Status = StatusProcessing
	s.Failure = Failure{}
	s.Settling = true
	if s.ProcessingDeadline == nil {
		// a timed out attempt expires again when handed back
		s.ProcessingDeadline = &now
	}
	s.touch(now)
	return nil
}

// Unsettle hands a settling attempt back, so it can still fail or time out
func (s *CheckoutState) Unsettle(orderUID string, now time.Time) {
	if !s.IsSettling(orderUID) {
		return
	}
	s.Settling = false
	s.touch(now)
}

func (s CheckoutState) IsCompletedBy(orderUID string) bool {
	return s.Status == StatusCompleted && s.OrderUID == orderUID
}

func (s *CheckoutState) Complete(orderUID string, paymentKey string, now time.Time) error {
	if !s.AwaitsOutcomeOf(orderUID) {
		return myerrors.NewConflictError(fmt.Errorf("checkout of session %s does not wait for order %s (status %s, order %s)", s.SessionUID, orderUID, s.Status, s.OrderUID))
	}
	s.Status = StatusCompleted
	s.Settling = false
	if paymentKey != "" {
		s.PaymentKey = paymentKey
	}
	s.Failure = Failure{}
	s.ProcessingDeadline = nil
	s.touch(now)
	return nil
}

// Fail ends the attempt; the cart is kept so the buyer can retry
func (s *CheckoutState) Fail(orderUID string, code string, providerMessage string, now time.Time) error {
	err := s.expectAttempt("fail payment", orderUID, StatusProcessing)
	if err != nil {
		return err
	}
	if s.Settling {
		return myerrors.NewConflictError(fmt.Errorf("cannot fail payment: order %s is being settled", orderUID))
	}
	s.Status = StatusFailed
	s.Failure = Failure{
		Code:            code,
		Message:         payment.FailureMessage(code),
		ProviderMessage: providerMessage,
	}
	s.ProcessingDeadline = nil
	s.touch(now)
	return nil
}

// Expire fails the attempt when its deadline passed without an outcome
func (s *CheckoutState) Expire(now time.Time) bool {
	if s.Status != StatusProcessing || s.Settling || s.ProcessingDeadline == nil || now.Before(*s.ProcessingDeadline) {
		return false
	}
	s.Status = StatusFailed
	s.Failure = Failure{
		Code:    payment.FailureTimeout,
		Message: payment.FailureMessage(payment.FailureTimeout),
	}
	s.ProcessingDeadline = nil
	s.touch(now)
	return true
}

func (s *CheckoutState) Retry(now time.Time) error {
	err := s.expect("retry", StatusFailed)
	if err != nil {
		return err
	}
	s.Status = StatusAwaitingPayment
	s.Failure = Failure{}
	s.touch(now)
	return nil
}

// CanAbandon refuses to drop a funnel while a payment is in flight
func (s CheckoutState) CanAbandon() error {
	if s.Status == StatusProcessing {
		return myerrors.NewConflictError(fmt.Errorf("checkout of session %s is processing payment %s", s.SessionUID, s.OrderUID))
	}
	return nil
}

func (s *CheckoutState) expect(action string, allowed ...Status) error {
	for _, status := range allowed {
		if s.Status == status {
			return nil
		}
	}
	return myerrors.NewConflictError(fmt.Errorf("cannot %s when checkout is %s", action, s.Status))
}

func (s *CheckoutState) expectAttempt(action string, orderUID string, allowed ...Status) error {
	err := s.expect(action, allowed...)
	if err != nil {
		return err
	}
	if s.OrderUID != orderUID {
		return myerrors.NewConflictError(fmt.Errorf("cannot %s: order %s is not the current attempt %s", action, orderUID, s.OrderUID))
	}
	return nil
}

func (s *CheckoutState) touch(now time.Time) {
	s.LastModified = &now
}

func lineItemsOf(cart cartapi.CartSession) []orderapi.LineItem {
	items := []orderapi.LineItem{}
	for _, e := range cart.Entries {
		items = append(items, orderapi.LineItem{
			ItemUID:  e.Item.UID,
			Title:    e.Item.Title,
			Composer: e.Item.Composer,
			Price:    e.Item.Price,
			Quantity: e.Quantity,
		})
	}
	return items
}

func orderNameOf(items []orderapi.LineItem) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0].Title
	default:
		return fmt.Sprintf("%s 외 %d개", items[0].Title, len(items)-1)
	}
}
