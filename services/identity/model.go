package identity

import (
	"time"

	"github.com/MarcGrol/sheetmusicshop/services/identity/identityapi"
)

type Member struct {
	Email        string
	Name         string
	Phone        string
	PasswordHash []byte `datastore:",noindex"`
	Active       bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// SessionIdentity remembers who signed in on a session key
type SessionIdentity struct {
	SessionUID string
	Mode       identityapi.Mode
	Email      string
	Name       string
	Phone      string
	CreatedAt  time.Time
}

func (s SessionIdentity) toIdentity() identityapi.Identity {
	return identityapi.Identity{
		SessionUID: s.SessionUID,
		Mode:       s.Mode,
		Email:      s.Email,
		Name:       s.Name,
		Phone:      s.Phone,
	}
}

type fieldError struct {
	field   string
	code    string
	message string
}

func (e fieldError) Error() string    { return e.message }
func (e fieldError) GetField() string { return e.field }
func (e fieldError) GetCode() string  { return e.code }
