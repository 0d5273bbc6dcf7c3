package identityevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/myevents"
)

const (
	TopicName       = "member"
	memberSignedUp  = TopicName + ".signedup"
	memberSignedIn  = TopicName + ".signedin"
	memberSignedOut = TopicName + ".signedout"
)

type MemberEventService interface {
	OnMemberSignedUp(c context.Context, topic string, event MemberSignedUp) error
}

func DispatchEvent(c context.Context, reader io.Reader, service MemberEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case memberSignedUp:
		{
			event := MemberSignedUp{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnMemberSignedUp(c, envelope.Topic, event)
		}
	case memberSignedIn, memberSignedOut:
		return nil
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("unknown event type %s", envelope.EventTypeName))
	}
}

type MemberSignedUp struct {
	Email string
	Name  string
}

func (e MemberSignedUp) GetEventTypeName() string {
	return memberSignedUp
}

func (e MemberSignedUp) GetAggregateName() string {
	return e.Email
}

type MemberSignedIn struct {
	Email      string
	SessionUID string
	Admin      bool
}

func (e MemberSignedIn) GetEventTypeName() string {
	return memberSignedIn
}

func (e MemberSignedIn) GetAggregateName() string {
	return e.Email
}

type MemberSignedOut struct {
	Email      string
	SessionUID string
}

func (e MemberSignedOut) GetEventTypeName() string {
	return memberSignedOut
}

func (e MemberSignedOut) GetAggregateName() string {
	return e.Email
}
