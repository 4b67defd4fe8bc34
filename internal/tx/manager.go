package tx

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pairchat/internal/domain"
)

type Manager struct {
	DB  *sql.DB
	Log *zap.Logger
}

const maxRetries = 5

func (m *Manager) WithTx(
	ctx context.Context,
	fn func(ctx context.Context, tx *sql.Tx) error,
) error {

	for attempt := 1; attempt <= maxRetries; attempt++ {

		tx, err := m.DB.BeginTx(ctx, &sql.TxOptions{
			Isolation: sql.LevelReadCommitted,
		})
		if err != nil {
			return err
		}

		err = fn(ctx, tx)
		if err != nil {
			tx.Rollback()
			if isSerializationError(err) {
				m.logger().Warn("transaction serialization conflict, retrying",
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if isSerializationError(err) {
				m.logger().Warn("commit serialization conflict, retrying",
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				continue
			}
			return err
		}

		return nil
	}

	return fmt.Errorf("%w: transaction retry exhausted", domain.ErrUnavailable)
}

func (m *Manager) logger() *zap.Logger {
	if m.Log == nil {
		return zap.NewNop()
	}
	return m.Log
}

func isSerializationError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "could not serialize")
}
