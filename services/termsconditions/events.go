package termsconditions

import "time"

const TopicName = "termsconditions"

// Accepted is published when a buyer ticks the terms box inside the checkout funnel.
type Accepted struct {
	SessionUID   string
	EmailAddress string `json:",omitempty"`
	Version      string
	AcceptedAt   time.Time
}

func (e Accepted) GetEventTypeName() string {
	return TopicName + ".accepted"
}

func (e Accepted) GetAggregateName() string {
	return e.SessionUID
}
