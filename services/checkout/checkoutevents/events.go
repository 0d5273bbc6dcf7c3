package checkoutevents

const (
	TopicName         = "checkout"
	checkoutStarted   = TopicName + ".started"
	paymentRequested  = TopicName + ".payment.requested"
	checkoutCompleted = TopicName + ".completed"
	checkoutFailed    = TopicName + ".failed"
	checkoutAbandoned = TopicName + ".abandoned"
)

type CheckoutStarted struct {
	SessionUID string
	BuyerKind  string
	ItemCount  int
}

func (e CheckoutStarted) GetEventTypeName() string {
	return checkoutStarted
}

func (e CheckoutStarted) GetAggregateName() string {
	return e.SessionUID
}

type PaymentRequested struct {
	OrderUID      string
	SessionUID    string
	PaymentMethod string
	Amount        int64
	Currency      string
	Attempt       int
}

func (e PaymentRequested) GetEventTypeName() string {
	return paymentRequested
}

func (e PaymentRequested) GetAggregateName() string {
	return e.OrderUID
}

type CheckoutCompleted struct {
	OrderUID      string
	SessionUID    string
	PaymentMethod string
	ProviderName  string
	Amount        int64
	Currency      string
	Pending       bool
}

func (e CheckoutCompleted) GetEventTypeName() string {
	return checkoutCompleted
}

func (e CheckoutCompleted) GetAggregateName() string {
	return e.OrderUID
}

type CheckoutFailed struct {
	OrderUID    string
	SessionUID  string
	FailureCode string
}

func (e CheckoutFailed) GetEventTypeName() string {
	return checkoutFailed
}

func (e CheckoutFailed) GetAggregateName() string {
	return e.OrderUID
}

type CheckoutAbandoned struct {
	SessionUID string
}

func (e CheckoutAbandoned) GetEventTypeName() string {
	return checkoutAbandoned
}

func (e CheckoutAbandoned) GetAggregateName() string {
	return e.SessionUID
}
