package dummydb

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/chuoapp/chuo/core"
)

type notificationRepository struct {
	db *DB
}

var _ core.NotificationRepository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) core.NotificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, notif core.Notification) (core.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.notifications = append(repo.db.notifications, notif)
	return notif, nil
}

func (repo *notificationRepository) ListNotifications(ctx context.Context, userID string) ([]core.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var notifs []core.Notification
	for i := len(repo.db.notifications) - 1; i >= 0; i-- { // newest first
		if repo.db.notifications[i].UserID == userID {
			notifs = append(notifs, repo.db.notifications[i])
		}
	}
	return notifs, nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id, userID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, notif := range repo.db.notifications {
		if notif.ID == id && notif.UserID == userID && !notif.ReadAt.Valid {
			repo.db.notifications[i].ReadAt = null.TimeFrom(nowFunc().UTC())
		}
	}
	return nil
}
