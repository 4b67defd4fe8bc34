package application

import "context"

// UnreadCount is always derived live from per-message state, never cached:
// immediately after a user lists a conversation, nothing in it from the
// other participant counts as unread.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
