package checkout

import (
	"time"

	"github.com/MarcGrol/sheetmusicshop/services/orders/orderapi"
	"github.com/MarcGrol/sheetmusicshop/services/payment"
)

type Status string

const (
	StatusReviewing       Status = "reviewing"
	StatusAwaitingPayment Status = "awaiting-payment"
	StatusProcessing      Status = "processing"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

type BuyerKind string

const (
	BuyerMember BuyerKind = "member"
	BuyerGuest  BuyerKind = "guest"
)

// Buyer is either a signed-in member or a guest that left contact details; never both
type Buyer struct {
	Kind  BuyerKind
	Name  string
	Email string
	Phone string
}

func (b Buyer) IsGuest() bool {
	return b.Kind == BuyerGuest
}

type Failure struct {
	Code            string
	Message         string
	ProviderMessage string `datastore:",noindex"`
}

// CheckoutState is the funnel of a single session key
type CheckoutState struct {
	SessionUID         string
	Status             Status
	Buyer              Buyer
	TermsAccepted      bool
	TermsVersion       string
	Items              []orderapi.LineItem `datastore:",noindex"`
	Total              int64
	Currency           string
	OrderUID           string
	OrderName          string
	PaymentMethod      payment.Method
	ProviderName       string
	PaymentKey         string
	RedirectURL        string `datastore:",noindex"`
	Failure            Failure
	Attempts           int
	Settling           bool
	ProcessingDeadline *time.Time
	CreatedAt          time.Time
	LastModified       *time.Time
}

// PaymentAttempt links the order reference a provider calls back with to the session key of the funnel
type PaymentAttempt struct {
	OrderUID     string
	SessionUID   string
	Method       payment.Method
	Amount       int64
	Currency     string
	ProviderName string
	PaymentKey   string
	CreatedAt    time.Time
}
