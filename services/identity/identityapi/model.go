package identityapi

type Mode string

const (
	ModeGuest  Mode = "guest"
	ModeMember Mode = "member"
	ModeAdmin  Mode = "admin"
)

// Identity is who is behind a session key. A session without sign-in is an anonymous guest.
type Identity struct {
	SessionUID string
	Mode       Mode
	Email      string
	Name       string
	Phone      string
}

func (i Identity) IsMember() bool {
	return i.Mode == ModeMember || i.Mode == ModeAdmin
}

func (i Identity) IsAdmin() bool {
	return i.Mode == ModeAdmin
}
