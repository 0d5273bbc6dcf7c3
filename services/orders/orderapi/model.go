package orderapi

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusRefunded:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown order status '%s'", s)
	}
}

// allowedTransitions are the status changes an admin can make: approve, cancel and refund
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusRefunded},
}

func (s Status) CanBecome(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type LineItem struct {
	ItemUID  string
	Title    string
	Composer string
	Price    int64
	Quantity int
}

// OrderRecord is never deleted; only its status changes
type OrderRecord struct {
	UID           string
	CreatedAt     time.Time
	Items         []LineItem
	Total         int64
	Currency      string
	PaymentMethod string
	ProviderName  string
	PaymentKey    string
	BuyerEmail    string
	BuyerName     string
	BuyerPhone    string
	Guest         bool
	SessionUID    string
	Status        Status
	LastModified  *time.Time
}
