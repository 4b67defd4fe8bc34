package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pairchat/internal/domain"
	"pairchat/internal/repository"
)

type Repository struct {
	DB *sql.DB
}

type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *Repository) getter(tx *sql.Tx) queryable {
	if tx != nil {
		return tx
	}
	return r.DB
}

// Conversations

// InsertConversation inserts the canonical pair row. ON CONFLICT DO NOTHING
// keeps the transaction alive when a concurrent creator wins the race; the
// caller detects the loss via inserted == false and re-reads the winner.
func (r *Repository) InsertConversation(
	ctx context.Context,
	tx *sql.Tx,
	conv *domain.Conversation,
) (bool, error) {
	q := r.getter(tx)
	res, err := q.ExecContext(ctx, `
		INSERT INTO conversations (
			id, user_lo, user_hi, created_at, updated_at, last_message_at
		)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_lo, user_hi) DO NOTHING
	`,
		conv.ID,
		conv.UserLo,
		conv.UserHi,
		conv.CreatedAt,
		conv.UpdatedAt,
		conv.LastMessageAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) GetConversation(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) (*domain.Conversation, error) {
	q := r.getter(tx)
	row := q.QueryRowContext(ctx, `
		SELECT id, user_lo, user_hi, created_at, updated_at, last_message_at
		FROM conversations
		WHERE id = $1
	`, id)
	return scanConversation(row)
}

func (r *Repository) GetConversationByPair(
	ctx context.Context,
	tx *sql.Tx,
	userLo, userHi string,
) (*domain.Conversation, error) {
	q := r.getter(tx)
	row := q.QueryRowContext(ctx, `
		SELECT id, user_lo, user_hi, created_at, updated_at, last_message_at
		FROM conversations
		WHERE user_lo = $1 AND user_hi = $2
	`, userLo, userHi)
	return scanConversation(row)
}

// TouchConversation bumps last_message_at with a monotonic max so concurrent
// sends cannot move it backwards.
func (r *Repository) TouchConversation(
	ctx context.Context,
	tx *sql.Tx,
	id string,
	at time.Time,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		UPDATE conversations
		SET last_message_at = GREATEST(last_message_at, $2),
		    updated_at = GREATEST(updated_at, $2)
		WHERE id = $1
	`, id, at)
	return err
}

func (r *Repository) ListConversations(
	ctx context.Context,
	userID string,
) ([]repository.ConversationSummary, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, c.user_lo, c.user_hi, c.created_at, c.updated_at, c.last_message_at,
		       COUNT(m.id) FILTER (
		           WHERE m.sender_id <> $1 AND m.status <> 'read'
		       ) AS unread
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		WHERE c.user_lo = $1 OR c.user_hi = $1
		GROUP BY c.id
		ORDER BY c.last_message_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.ConversationSummary
	for rows.Next() {
		var conv domain.Conversation
		var unread int
		if err := rows.Scan(
			&conv.ID, &conv.UserLo, &conv.UserHi,
			&conv.CreatedAt, &conv.UpdatedAt, &conv.LastMessageAt,
			&unread,
		); err != nil {
			return nil, err
		}
		c := conv
		peer, _ := c.PeerOf(userID)
		out = append(out, repository.ConversationSummary{
			Conversation: &c,
			PeerID:       peer,
			UnreadCount:  unread,
		})
	}
	return out, rows.Err()
}

// Messages

func (r *Repository) InsertMessage(
	ctx context.Context,
	tx *sql.Tx,
	msg *domain.Message,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO messages (
			id, conversation_id, sender_id, content, status,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.Content,
		msg.Status,
		msg.CreatedAt,
		msg.UpdatedAt,
	)
	return err
}

func (r *Repository) MarkMessageDelivered(
	ctx context.Context,
	tx *sql.Tx,
	msgID string,
	at time.Time,
) error {
	q := r.getter(tx)
	// Guarded so a concurrent read receipt can never be undone.
	res, err := q.ExecContext(ctx, `
		UPDATE messages
		SET status = 'delivered', updated_at = $2
		WHERE id = $1 AND status = 'sent'
	`, msgID, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: message %s not in sent state", domain.ErrInvalidState, msgID)
	}
	return nil
}

func (r *Repository) GetMessageForUpdate(
	ctx context.Context,
	tx *sql.Tx,
	msgID string,
) (*domain.Message, error) {
	q := r.getter(tx)
	row := q.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, content, status,
		       created_at, updated_at, edited, edited_at,
		       deleted, deleted_at, read_at
		FROM messages
		WHERE id = $1
		FOR UPDATE
	`, msgID)

	msg, err := scanMessage(row)
	if err != nil {
		return nil, err
	}

	reactions, err := r.GetReactions(ctx, tx, msgID)
	if err != nil {
		return nil, err
	}
	msg.Reactions = reactions
	return msg, nil
}

func (r *Repository) UpdateMessageContent(
	ctx context.Context,
	tx *sql.Tx,
	msgID, content string,
	at time.Time,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		UPDATE messages
		SET content = $2, edited = TRUE, edited_at = $3, updated_at = $3
		WHERE id = $1
	`, msgID, content, at)
	return err
}

func (r *Repository) MarkMessageDeleted(
	ctx context.Context,
	tx *sql.Tx,
	msgID string,
	at time.Time,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		UPDATE messages
		SET deleted = TRUE, deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted = FALSE
	`, msgID, at)
	return err
}

func (r *Repository) ListMessages(
	ctx context.Context,
	tx *sql.Tx,
	conversationID string,
) ([]*domain.Message, error) {
	q := r.getter(tx)
	rows, err := q.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, content, status,
		       created_at, updated_at, edited, edited_at,
		       deleted, deleted_at, read_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*domain.Message
	byID := make(map[string]*domain.Message)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
		byID[msg.ID] = msg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachReactions(ctx, q, conversationID, byID); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repository) attachReactions(
	ctx context.Context,
	q queryable,
	conversationID string,
	byID map[string]*domain.Message,
) error {
	rows, err := q.QueryContext(ctx, `
		SELECT r.message_id, r.emoji, r.user_id
		FROM message_reactions r
		JOIN messages m ON m.id = r.message_id
		WHERE m.conversation_id = $1
		ORDER BY r.created_at ASC
	`, conversationID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var msgID, emoji, userID string
		if err := rows.Scan(&msgID, &emoji, &userID); err != nil {
			return err
		}
		msg, ok := byID[msgID]
		if !ok {
			continue
		}
		if msg.Reactions == nil {
			msg.Reactions = make(map[string][]string)
		}
		msg.Reactions[emoji] = append(msg.Reactions[emoji], userID)
	}
	return rows.Err()
}

// Read receipts

// MarkConversationRead transitions every delivered message from the other
// participant to read with a single batch timestamp. It returns the ids of
// the messages that transitioned.
func (r *Repository) MarkConversationRead(
	ctx context.Context,
	tx *sql.Tx,
	conversationID, readerID string,
	at time.Time,
) ([]string, error) {
	q := r.getter(tx)
	rows, err := q.QueryContext(ctx, `
		UPDATE messages
		SET status = 'read', read_at = $3, updated_at = $3
		WHERE conversation_id = $1
		  AND sender_id <> $2
		  AND status = 'delivered'
		RETURNING id
	`, conversationID, readerID, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.user_lo = $1 OR c.user_hi = $1)
		  AND m.sender_id <> $1
		  AND m.status <> 'read'
	`, userID).Scan(&count)
	return count, err
}

// Reactions

// ToggleReaction removes the (message, user, emoji) row when it exists and
// inserts it otherwise. Row-per-reaction keeps concurrent toggles from two
// users lock-free and leaves no dangling empty entries.
func (r *Repository) ToggleReaction(
	ctx context.Context,
	tx *sql.Tx,
	msgID, userID, emoji string,
) (bool, error) {
	q := r.getter(tx)
	res, err := q.ExecContext(ctx, `
		DELETE FROM message_reactions
		WHERE message_id = $1 AND user_id = $2 AND emoji = $3
	`, msgID, userID, emoji)
	if err != nil {
		return false, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if removed > 0 {
		return false, nil
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO message_reactions (message_id, user_id, emoji, created_at)
		VALUES ($1,$2,$3,NOW())
		ON CONFLICT DO NOTHING
	`, msgID, userID, emoji)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) GetReactions(
	ctx context.Context,
	tx *sql.Tx,
	msgID string,
) (map[string][]string, error) {
	q := r.getter(tx)
	rows, err := q.QueryContext(ctx, `
		SELECT emoji, user_id
		FROM message_reactions
		WHERE message_id = $1
		ORDER BY created_at ASC
	`, msgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions map[string][]string
	for rows.Next() {
		var emoji, userID string
		if err := rows.Scan(&emoji, &userID); err != nil {
			return nil, err
		}
		if reactions == nil {
			reactions = make(map[string][]string)
		}
		reactions[emoji] = append(reactions[emoji], userID)
	}
	return reactions, rows.Err()
}

// scanning

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := row.Scan(
		&conv.ID, &conv.UserLo, &conv.UserHi,
		&conv.CreatedAt, &conv.UpdatedAt, &conv.LastMessageAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: conversation", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	var msg domain.Message
	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID,
		&msg.Content, &msg.Status,
		&msg.CreatedAt, &msg.UpdatedAt,
		&msg.Edited, &msg.EditedAt,
		&msg.Deleted, &msg.DeletedAt,
		&msg.ReadAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: message", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	// Deleted content never leaves the storage layer.
	msg.MaskDeleted()
	return &msg, nil
}
