package mystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Song struct {
	UID       string
	Title     string
	Pages     int
	Visible   bool
	CreatedAt time.Time
}

var (
	song1 = Song{UID: "1", Title: "Rosanna", Pages: 12, Visible: true, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	song2 = Song{UID: "2", Title: "Moby Dick", Pages: 8, Visible: false, CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	song3 = Song{UID: "3", Title: "Aja", Pages: 20, Visible: true, CreatedAt: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)}
)

func TestInMemoryStore(t *testing.T) {
	StoreContract{
		store: func(t *testing.T) Store[Song] {
			s, _, err := NewInMemoryStore[Song](context.TODO())
			require.NoError(t, err)
			return s
		},
	}.Test(t)
}

func TestRedisStore(t *testing.T) {
	StoreContract{
		store: func(t *testing.T) Store[Song] {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{
				Addr: mr.Addr(),
			})
			t.Cleanup(func() {
				client.Close()
			})
			return NewRedisStoreWithClient[Song](client)
		},
	}.Test(t)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	c := context.TODO()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer client.Close()
	sut := NewRedisStoreWithClient[Song](client)

	mr.Set("Song:broken", "{not json")
	mr.SAdd("Song:__index", "broken")

	_, found, err := sut.Get(c, "broken")
	assert.True(t, found)
	assert.True(t, errors.Is(err, ErrCorruptValue))

	all, err := sut.List(c)
	assert.NoError(t, err)
	assert.Empty(t, all)
}

type StoreContract struct {
	store func(t *testing.T) Store[Song]
}

func (sc StoreContract) Test(t *testing.T) {
	c := context.TODO()

	t.Run("Get not found", func(t *testing.T) {
		sut := sc.store(t)
		_, found, err := sut.Get(c, song1.UID)
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Put then get", func(t *testing.T) {
		sut := sc.store(t)
		err := sut.Put(c, song1.UID, song1)
		assert.NoError(t, err)

		got, found, err := sut.Get(c, song1.UID)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, song1, got)
	})

	t.Run("Delete", func(t *testing.T) {
		sut := sc.store(t)
		assert.NoError(t, sut.Put(c, song1.UID, song1))
		assert.NoError(t, sut.Delete(c, song1.UID))

		_, found, err := sut.Get(c, song1.UID)
		assert.NoError(t, err)
		assert.False(t, found)

		all, err := sut.List(c)
		assert.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("Query with filter and order", func(t *testing.T) {
		sut := sc.store(t)
		assert.NoError(t, sut.Put(c, song1.UID, song1))
		assert.NoError(t, sut.Put(c, song2.UID, song2))
		assert.NoError(t, sut.Put(c, song3.UID, song3))

		got, err := sut.Query(c, []Filter{{Field: "Visible", Compare: "=", Value: true}}, "-CreatedAt")
		assert.NoError(t, err)
		assert.Equal(t, []Song{song3, song1}, got)

		got, err = sut.Query(c, []Filter{{Field: "Pages", Compare: "<", Value: 13}}, "Title")
		assert.NoError(t, err)
		assert.Equal(t, []Song{song2, song1}, got)

		got, err = sut.Query(c, []Filter{{Field: "Title", Compare: "in", Value: []any{"Aja", "Moby Dick", "Peg"}}}, "Title")
		assert.NoError(t, err)
		assert.Equal(t, []Song{song3, song2}, got)

		got, err = sut.Query(c, []Filter{
			{Field: "Title", Compare: "in", Value: []any{"Aja", "Moby Dick"}},
			{Field: "Visible", Compare: "=", Value: true},
		}, "")
		assert.NoError(t, err)
		assert.Equal(t, []Song{song3}, got)
	})

	t.Run("Commit transaction", func(t *testing.T) {
		sut := sc.store(t)
		err := sut.RunInTransaction(c, func(c context.Context) error {
			err := sut.Put(c, song1.UID, song1)
			if err != nil {
				return err
			}
			got, found, err := sut.Get(c, song1.UID)
			assert.True(t, found)
			assert.Equal(t, song1, got)
			return err
		})
		assert.NoError(t, err)

		_, found, err := sut.Get(c, song1.UID)
		assert.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("Rollback transaction", func(t *testing.T) {
		sut := sc.store(t)
		assert.NoError(t, sut.Put(c, song2.UID, song2))

		err := sut.RunInTransaction(c, func(c context.Context) error {
			_ = sut.Put(c, song1.UID, song1)
			_ = sut.Delete(c, song2.UID)
			return fmt.Errorf("boom")
		})
		assert.Error(t, err)

		_, found, err := sut.Get(c, song1.UID)
		assert.NoError(t, err)
		assert.False(t, found)

		_, found, err = sut.Get(c, song2.UID)
		assert.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("Concurrent increments are not lost", func(t *testing.T) {
		sut := sc.store(t)
		assert.NoError(t, sut.Put(c, song1.UID, Song{UID: song1.UID}))

		wg := sync.WaitGroup{}
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := sut.RunInTransaction(c, func(c context.Context) error {
					s, _, err := sut.Get(c, song1.UID)
					if err != nil {
						return err
					}
					s.Pages++
					return sut.Put(c, song1.UID, s)
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, _, err := sut.Get(c, song1.UID)
		assert.NoError(t, err)
		assert.Equal(t, 2, got.Pages)
	})
}
