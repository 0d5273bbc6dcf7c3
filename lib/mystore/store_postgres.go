package mystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createTableStatement = `CREATE TABLE IF NOT EXISTS entities (
	kind  TEXT NOT NULL,
	uid   TEXT NOT NULL,
	value JSONB NOT NULL,
	PRIMARY KEY (kind, uid)
)`
	serializationFailure = "40001"
)

// transactions are shared by all stores on the same pool
type pgTxKey struct {
	pool *pgxpool.Pool
}

type querier interface {
	Exec(c context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(c context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(c context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps every entity as a JSONB document in a single generic table
type PostgresStore[T any] struct {
	pool *pgxpool.Pool
	kind string
}

func ConnectPostgres(c context.Context, databaseURL string) (*pgxpool.Pool, func(), error) {
	pool, err := pgxpool.New(c, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating postgres pool: %s", err)
	}

	_, err = pool.Exec(c, createTableStatement)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("error creating entities table: %s", err)
	}

	return pool, func() {
		pool.Close()
	}, nil
}

func NewPostgresStore[T any](pool *pgxpool.Pool) *PostgresStore[T] {
	return &PostgresStore[T]{
		pool: pool,
		kind: kindOf[T](),
	}
}

func (s *PostgresStore[T]) querierOf(c context.Context) querier {
	tx, ok := c.Value(pgTxKey{pool: s.pool}).(pgx.Tx)
	if ok {
		return tx
	}
	return s.pool
}

func (s *PostgresStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	if _, ok := c.Value(pgTxKey{pool: s.pool}).(pgx.Tx); ok {
		return f(c)
	}

	var err error
	for i := 1; i <= maxAttempts; i++ {
		err = s.runInTransaction(c, f)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailure {
			log.Printf("Serialization failure on %s, retrying (%d of %d)", s.kind, i, maxAttempts)
			// force retry: this approach requires idempotency of the business logic
			continue
		}
		return err
	}
	return err
}

func (s *PostgresStore[T]) runInTransaction(c context.Context, f func(c context.Context) error) error {
	tx, err := s.pool.BeginTx(c, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	err = f(context.WithValue(c, pgTxKey{pool: s.pool}, tx))
	if err != nil {
		rollbackErr := tx.Rollback(c)
		if rollbackErr != nil {
			log.Printf("error rolling back transaction: %s", rollbackErr)
		}
		return err
	}

	err = tx.Commit(c)
	if err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore[T]) Put(c context.Context, uid string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error marshalling entity %s with uid %s: %s", s.kind, uid, err)
	}

	_, err = s.querierOf(c).Exec(c,
		`INSERT INTO entities (kind, uid, value) VALUES ($1, $2, $3)
		 ON CONFLICT (kind, uid) DO UPDATE SET value = EXCLUDED.value`,
		s.kind, uid, data)
	if err != nil {
		return fmt.Errorf("error storing entity %s with uid %s: %w", s.kind, uid, err)
	}
	return nil
}

func (s *PostgresStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	var value T
	var data []byte

	err := s.querierOf(c).QueryRow(c, `SELECT value FROM entities WHERE kind = $1 AND uid = $2`, s.kind, uid).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return value, false, nil
	}
	if err != nil {
		return value, false, fmt.Errorf("error fetching entity %s with uid %s: %w", s.kind, uid, err)
	}

	err = json.Unmarshal(data, &value)
	if err != nil {
		return value, true, fmt.Errorf("%w: entity %s with uid %s: %s", ErrCorruptValue, s.kind, uid, err)
	}
	return value, true, nil
}

func (s *PostgresStore[T]) Delete(c context.Context, uid string) error {
	_, err := s.querierOf(c).Exec(c, `DELETE FROM entities WHERE kind = $1 AND uid = $2`, s.kind, uid)
	if err != nil {
		return fmt.Errorf("error deleting entity %s with uid %s: %w", s.kind, uid, err)
	}
	return nil
}

func (s *PostgresStore[T]) List(c context.Context) ([]T, error) {
	return s.Query(c, nil, "")
}

func (s *PostgresStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	sql := `SELECT uid, value FROM entities WHERE kind = $1`
	args := []any{s.kind}
	for _, f := range filters {
		// plain equality on scalars is done by the database, the rest in memory
		if f.Compare == "=" && isScalar(f.Value) {
			args = append(args, f.Field, fmt.Sprint(f.Value))
			sql += fmt.Sprintf(" AND value->>$%d = $%d", len(args)-1, len(args))
		}
	}

	rows, err := s.querierOf(c).Query(c, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying entities %s: %w", s.kind, err)
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		var uid string
		var data []byte
		err = rows.Scan(&uid, &data)
		if err != nil {
			return nil, fmt.Errorf("error scanning entity %s: %w", s.kind, err)
		}
		var value T
		err = json.Unmarshal(data, &value)
		if err != nil {
			log.Printf("Skipping corrupt entity %s with uid %s: %s", s.kind, uid, err)
			continue
		}
		if matches(value, filters) {
			result = append(result, value)
		}
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating entities %s: %w", s.kind, rows.Err())
	}

	sortByField(result, orderByField)

	return result, nil
}

func isScalar(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
