package identityapi

import (
	"context"
	"fmt"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
)

// RequireAdmin returns an authentication error unless the session belongs to an admin
func RequireAdmin(c context.Context, reader Reader, sessionUID string) (Identity, error) {
	identity, err := reader.Current(c, sessionUID)
	if err != nil {
		return Identity{}, err
	}
	if !identity.IsAdmin() {
		return Identity{}, myerrors.NewAuthenticationError(fmt.Errorf("session %s has no admin rights", sessionUID))
	}
	return identity, nil
}

// RequireMember returns an authentication error unless a member signed in on the session
func RequireMember(c context.Context, reader Reader, sessionUID string) (Identity, error) {
	identity, err := reader.Current(c, sessionUID)
	if err != nil {
		return Identity{}, err
	}
	if !identity.IsMember() {
		return Identity{}, myerrors.NewAuthenticationError(fmt.Errorf("session %s is not signed in as member", sessionUID))
	}
	return identity, nil
}
