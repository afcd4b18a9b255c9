package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/streamteamhq/platform/internal/domain"
)

type notificationRepo struct{}

// NewNotificationRepository returns a pgx-backed NotificationRepository.
func NewNotificationRepository() NotificationRepository {
	return &notificationRepo{}
}

func (r *notificationRepo) ListForViewer(ctx context.Context, db DBTX, userID *int64) ([]domain.Notification, error) {
	rows, err := db.Query(ctx, `
		SELECT n.id, n.title, n.message, n.icon, n.category, n.created_at,
		       (un.user_id IS NOT NULL) AS read
		FROM notifications n
		LEFT JOIN user_notifications un
		  ON un.notification_id = n.id AND un.user_id = $1::bigint
		ORDER BY n.created_at DESC, n.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Icon, &n.Category, &n.CreatedAt, &n.Read); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkAllRead inserts only the missing pairs; the conflict clause covers a
// concurrent call racing past the anti-join.
func (r *notificationRepo) MarkAllRead(ctx context.Context, db DBTX, userID int64, at time.Time) (int64, error) {
	tag, err := db.Exec(ctx, `
		INSERT INTO user_notifications (user_id, notification_id, read_at)
		SELECT $1, n.id, $2
		FROM notifications n
		WHERE NOT EXISTS (
		  SELECT 1 FROM user_notifications un
		  WHERE un.user_id = $1 AND un.notification_id = n.id
		)
		ON CONFLICT (user_id, notification_id) DO NOTHING`, userID, at)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *notificationRepo) Create(ctx context.Context, db DBTX, n domain.Notification) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
		INSERT INTO notifications (title, message, icon, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, n.Title, n.Message, n.Icon, n.Category).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}
