package core

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"
)

// Notification kinds
const (
	NotifyEnrollmentApproved = "enrollment_approved"
	NotifyEnrollmentRejected = "enrollment_rejected"
	NotifyScoresApproved     = "scores_approved"
	NotifyScoresRejected     = "scores_rejected"
	NotifyResultPublished    = "result_published"
	NotifyRegistrationBlock  = "registration_block"
)

type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Kind      string    `json:"kind" db:"kind"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	URL       string    `json:"url" db:"url"`
	ReadAt    null.Time `json:"read_at" db:"read_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// NotificationService is the sink state transitions report through.
// Implementations persist the notification and may fan it out (email...).
type NotificationService interface {
	Notify(ctx context.Context, userID, kind, title, message, url string) error
	ListForUser(ctx context.Context, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, notif Notification) (Notification, error)
	ListNotifications(ctx context.Context, userID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
}
