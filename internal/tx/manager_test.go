package tx

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"pairchat/internal/domain"
)

// conflictDriver hands out connections whose commits always fail with a
// serialization error, so every attempt forces a retry.
type conflictDriver struct {
	begins *atomic.Int32
}

func (d *conflictDriver) Open(name string) (driver.Conn, error) {
	return &conflictConn{d: d}, nil
}

type conflictConn struct {
	d *conflictDriver
}

func (c *conflictConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("not supported")
}

func (c *conflictConn) Close() error { return nil }

func (c *conflictConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *conflictConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.d.begins.Add(1)
	return conflictTx{}, nil
}

type conflictTx struct{}

func (conflictTx) Commit() error {
	return errors.New("pq: could not serialize access due to concurrent update")
}

func (conflictTx) Rollback() error { return nil }

func TestWithTx(t *testing.T) {
	var begins atomic.Int32
	sql.Register("conflict", &conflictDriver{begins: &begins})

	db, err := sql.Open("conflict", "")
	assert.NoError(t, err)
	defer db.Close()

	m := &Manager{DB: db}

	t.Run("retry exhaustion is unavailable", func(t *testing.T) {
		begins.Store(0)
		err := m.WithTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrUnavailable)
		assert.EqualValues(t, maxRetries, begins.Load(), "every attempt opens a fresh transaction")
	})

	t.Run("handler error passes through without retry", func(t *testing.T) {
		begins.Store(0)
		boom := errors.New("boom")
		err := m.WithTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.EqualValues(t, 1, begins.Load())
	})
}

func TestIsSerializationError(t *testing.T) {
	assert.True(t, isSerializationError(errors.New("pq: could not serialize access")))
	assert.False(t, isSerializationError(errors.New("pq: connection refused")))
	assert.False(t, isSerializationError(nil))
}
