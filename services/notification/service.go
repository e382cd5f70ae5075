package notifsvc

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/user"
)

var nowFunc = time.Now // mockable

// service persists every notification and fans it out by email when the
// recipient has an address on file.
type service struct {
	repo    core.NotificationRepository
	userSvc user.Service
	mailSvc core.EmailService
	logger  core.Logger
}

var _ core.NotificationService = (*service)(nil)

func NewService(repo core.NotificationRepository, userSvc user.Service, mailSvc core.EmailService, logger core.Logger) core.NotificationService {
	return &service{
		repo:    repo,
		userSvc: userSvc,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (svc *service) Notify(ctx context.Context, userID, kind, title, message, url string) error {
	notif := core.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		URL:       url,
		CreatedAt: nowFunc().UTC(),
	}
	if _, err := svc.repo.CreateNotification(ctx, notif); err != nil {
		return errors.Wrap(err, "persisting notification")
	}

	usr, err := svc.userSvc.GetByID(ctx, userID)
	if err != nil {
		// the in-app notification made it, the email is best-effort
		svc.logger.Warn("looking up notification recipient", err)
		return nil
	}
	if usr.Email == "" {
		return nil
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: title,
		BodyStr: message,
	})
	return nil
}

func (svc *service) ListForUser(ctx context.Context, userID string) ([]core.Notification, error) {
	return svc.repo.ListNotifications(ctx, userID)
}

func (svc *service) MarkRead(ctx context.Context, id, userID string) error {
	return svc.repo.MarkNotificationRead(ctx, id, userID)
}
