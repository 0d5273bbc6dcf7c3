package identityapi

import "context"

//go:generate mockgen -source=api.go -package identityapi -destination reader_mock.go Reader
type Reader interface {
	Current(c context.Context, sessionUID string) (Identity, error)
}
