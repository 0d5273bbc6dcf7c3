package mystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

type redisTxKey struct {
	store any
}

// RedisStore keeps every entity as a json blob under "<kind>:<uid>". All writes of a kind
// bump "<kind>:__version", which transactions WATCH to detect concurrent modification.
type RedisStore[T any] struct {
	client *redis.Client
	kind   string
}

type redisTransaction struct {
	tx      *redis.Tx
	pending map[string][]byte
	deleted map[string]bool
}

func NewRedisStore[T any](c context.Context, addr string) (*RedisStore[T], func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	err := client.Ping(c).Err()
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("error connecting to redis on %s: %s", addr, err)
	}

	return NewRedisStoreWithClient[T](client), func() {
		client.Close()
	}, nil
}

func NewRedisStoreWithClient[T any](client *redis.Client) *RedisStore[T] {
	return &RedisStore[T]{
		client: client,
		kind:   kindOf[T](),
	}
}

func (s *RedisStore[T]) key(uid string) string {
	return fmt.Sprintf("%s:%s", s.kind, uid)
}

func (s *RedisStore[T]) indexKey() string {
	return s.kind + ":__index"
}

func (s *RedisStore[T]) versionKey() string {
	return s.kind + ":__version"
}

func (s *RedisStore[T]) transactionOf(c context.Context) *redisTransaction {
	tx, _ := c.Value(redisTxKey{store: s}).(*redisTransaction)
	return tx
}

func (s *RedisStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	if s.transactionOf(c) != nil {
		return f(c)
	}

	var err error
	for i := 1; i <= maxAttempts; i++ {
		err = s.client.Watch(c, func(tx *redis.Tx) error {
			rtx := &redisTransaction{
				tx:      tx,
				pending: map[string][]byte{},
				deleted: map[string]bool{},
			}

			err := f(context.WithValue(c, redisTxKey{store: s}, rtx))
			if err != nil {
				// Rollback: nothing was written yet
				return err
			}

			// Commit
			_, err = tx.TxPipelined(c, func(pipe redis.Pipeliner) error {
				for uid, data := range rtx.pending {
					pipe.Set(c, s.key(uid), data, 0)
					pipe.SAdd(c, s.indexKey(), uid)
				}
				for uid := range rtx.deleted {
					pipe.Del(c, s.key(uid))
					pipe.SRem(c, s.indexKey(), uid)
				}
				pipe.Incr(c, s.versionKey())
				return nil
			})
			return err
		}, s.versionKey())
		if errors.Is(err, redis.TxFailedErr) {
			log.Printf("Concurrent transaction on %s, retrying (%d of %d)", s.kind, i, maxAttempts)
			// force retry: this approach requires idempotency of the business logic
			continue
		}
		return err
	}
	return err
}

func (s *RedisStore[T]) Put(c context.Context, uid string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error marshalling entity %s with uid %s: %s", s.kind, uid, err)
	}

	if rtx := s.transactionOf(c); rtx != nil {
		rtx.pending[uid] = data
		delete(rtx.deleted, uid)
		return nil
	}

	_, err = s.client.TxPipelined(c, func(pipe redis.Pipeliner) error {
		pipe.Set(c, s.key(uid), data, 0)
		pipe.SAdd(c, s.indexKey(), uid)
		pipe.Incr(c, s.versionKey())
		return nil
	})
	if err != nil {
		return fmt.Errorf("error storing entity %s with uid %s: %s", s.kind, uid, err)
	}
	return nil
}

func (s *RedisStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	var value T

	var cmd redis.Cmdable = s.client
	if rtx := s.transactionOf(c); rtx != nil {
		if rtx.deleted[uid] {
			return value, false, nil
		}
		if data, found := rtx.pending[uid]; found {
			return s.decode(uid, data)
		}
		cmd = rtx.tx
	}

	data, err := cmd.Get(c, s.key(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return value, false, nil
	}
	if err != nil {
		return value, false, fmt.Errorf("error fetching entity %s with uid %s: %s", s.kind, uid, err)
	}

	return s.decode(uid, data)
}

func (s *RedisStore[T]) decode(uid string, data []byte) (T, bool, error) {
	var value T
	err := json.Unmarshal(data, &value)
	if err != nil {
		return value, true, fmt.Errorf("%w: entity %s with uid %s: %s", ErrCorruptValue, s.kind, uid, err)
	}
	return value, true, nil
}

func (s *RedisStore[T]) Delete(c context.Context, uid string) error {
	if rtx := s.transactionOf(c); rtx != nil {
		rtx.deleted[uid] = true
		delete(rtx.pending, uid)
		return nil
	}

	_, err := s.client.TxPipelined(c, func(pipe redis.Pipeliner) error {
		pipe.Del(c, s.key(uid))
		pipe.SRem(c, s.indexKey(), uid)
		pipe.Incr(c, s.versionKey())
		return nil
	})
	if err != nil {
		return fmt.Errorf("error deleting entity %s with uid %s: %s", s.kind, uid, err)
	}
	return nil
}

func (s *RedisStore[T]) List(c context.Context) ([]T, error) {
	var cmd redis.Cmdable = s.client
	rtx := s.transactionOf(c)
	if rtx != nil {
		cmd = rtx.tx
	}

	uids, err := cmd.SMembers(c, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("error fetching index of %s: %s", s.kind, err)
	}

	result := []T{}
	seen := map[string]bool{}
	for _, uid := range uids {
		seen[uid] = true
		value, found, err := s.Get(c, uid)
		if err != nil {
			if errors.Is(err, ErrCorruptValue) {
				log.Printf("Skipping %s", err)
				continue
			}
			return nil, err
		}
		if found {
			result = append(result, value)
		}
	}

	if rtx != nil {
		for uid, data := range rtx.pending {
			if seen[uid] {
				continue
			}
			value, _, err := s.decode(uid, data)
			if err == nil {
				result = append(result, value)
			}
		}
	}

	return result, nil
}

func (s *RedisStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	all, err := s.List(c)
	if err != nil {
		return nil, err
	}

	result := []T{}
	for _, v := range all {
		if matches(v, filters) {
			result = append(result, v)
		}
	}
	sortByField(result, orderByField)

	return result, nil
}
