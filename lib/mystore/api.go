package mystore

import (
	"context"
	"errors"
	"os"
)

// ErrCorruptValue is returned when a stored value can no longer be decoded into its type
var ErrCorruptValue = errors.New("corrupt stored value")

type ctxTransactionKey struct{}

type Filter struct {
	Field   string
	Compare string
	Value   any
}

//go:generate mockgen -source=api.go -package mystore -destination store_mock.go Store
type Store[T any] interface {
	RunInTransaction(c context.Context, f func(c context.Context) error) error
	Put(c context.Context, uid string, value T) error
	Get(c context.Context, uid string) (T, bool, error)
	Delete(c context.Context, uid string) error
	List(c context.Context) ([]T, error)
	Query(c context.Context, filters []Filter, orderByField string) ([]T, error)
}

// New picks the backend from the environment: datastore on gcloud, otherwise redis
// when REDIS_ADDR is set, otherwise memory.
func New[T any](c context.Context) (Store[T], func(), error) {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		return newGcloudStore[T](c)
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return NewRedisStore[T](c, addr)
	}

	return NewInMemoryStore[T](c)
}
