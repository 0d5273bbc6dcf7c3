package cartapi

import "context"

//go:generate mockgen -source=api.go -package cartapi -destination sessions_mock.go Sessions
type Sessions interface {
	Load(c context.Context, sessionUID string) (CartSession, []Notice, error)
	Clear(c context.Context, sessionUID string) error
}
