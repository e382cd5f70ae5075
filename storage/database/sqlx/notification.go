package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ core.NotificationRepository = (*notificationRepository)(nil)

func NewNotificationRepository(db *sqlx.DB) core.NotificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, notif core.Notification) (core.Notification, error) {
	query := `
	INSERT INTO notification (id, user_id, kind, title, message, url, read_at, created_at)
	VALUES (:id, :user_id, :kind, :title, :message, :url, :read_at, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, notif); err != nil {
		return core.Notification{}, errors.Wrap(err, "creating notification")
	}
	return notif, nil
}

func (repo *notificationRepository) ListNotifications(ctx context.Context, userID string) ([]core.Notification, error) {
	var notifs []core.Notification
	query := `
	SELECT id, user_id, kind, title, message, url, read_at, created_at
	FROM notification
	WHERE user_id = $1
	ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &notifs, query, userID); err != nil {
		return nil, errors.Wrap(err, "listing notifications")
	}
	return notifs, nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id, userID string) error {
	query := `UPDATE notification SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`
	if _, err := repo.db.ExecContext(ctx, query, id, userID); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return nil
}
