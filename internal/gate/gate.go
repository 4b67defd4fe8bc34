// Package gate adapts the connection/relationship graph into the boolean
// messaging precondition. Friend-request management lives elsewhere; this
// package only answers "may A message B".
package gate

import (
	"context"
	"database/sql"
)

// ConnectionGate is consumed by the messaging core before any send.
type ConnectionGate interface {
	CanMessage(ctx context.Context, userA, userB string) (bool, error)
}

// PostgresGate answers from the contacts and blocks tables: the pair must be
// mutual contacts and neither side may have blocked the other.
type PostgresGate struct {
	DB *sql.DB
}

func (g *PostgresGate) CanMessage(ctx context.Context, userA, userB string) (bool, error) {
	var allowed bool
	err := g.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
		    SELECT 1 FROM contacts
		    WHERE user_id = $1 AND contact_user_id = $2
		)
		AND EXISTS (
		    SELECT 1 FROM contacts
		    WHERE user_id = $2 AND contact_user_id = $1
		)
		AND NOT EXISTS (
		    SELECT 1 FROM blocks
		    WHERE (user_id = $1 AND blocked_user_id = $2)
		       OR (user_id = $2 AND blocked_user_id = $1)
		)
	`, userA, userB).Scan(&allowed)
	if err != nil {
		return false, err
	}
	return allowed, nil
}
