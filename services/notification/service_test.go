package notifsvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/user"
)

type repoStub struct {
	notifs []core.Notification
}

func (r *repoStub) CreateNotification(ctx context.Context, notif core.Notification) (core.Notification, error) {
	r.notifs = append(r.notifs, notif)
	return notif, nil
}

func (r *repoStub) ListNotifications(ctx context.Context, userID string) ([]core.Notification, error) {
	res := make([]core.Notification, 0)
	for _, n := range r.notifs {
		if n.UserID == userID {
			res = append(res, n)
		}
	}
	return res, nil
}

func (r *repoStub) MarkNotificationRead(ctx context.Context, id, userID string) error {
	for i, n := range r.notifs {
		if n.ID == id && n.UserID == userID {
			r.notifs[i].ReadAt.SetValid(time.Now().UTC())
			return nil
		}
	}
	return nil
}

type userStub struct {
	user.Service
	users map[string]user.User
}

func (s userStub) GetByID(ctx context.Context, id string) (user.User, error) {
	usr, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

type mailStub struct {
	sent []*core.EmailMessage
}

func (m *mailStub) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestNotify(t *testing.T) {
	ctx := context.Background()
	repo := &repoStub{}
	mailer := &mailStub{}
	users := userStub{users: map[string]user.User{
		"stud1": {ID: "stud1", Name: "Asha Juma", Email: "asha@example.com"},
		"stud2": {ID: "stud2", Name: "No Mail"},
	}}
	svc := NewService(repo, users, mailer, nopLogger{})

	t.Run("persists and emails", func(t *testing.T) {
		err := svc.Notify(ctx, "stud1", core.NotifyResultPublished, "Results published", "Your csc101 result is out.", "/results/sem1")
		require.NoError(t, err)

		require.Len(t, repo.notifs, 1)
		notif := repo.notifs[0]
		assert.NotEmpty(t, notif.ID)
		assert.Equal(t, "stud1", notif.UserID)
		assert.Equal(t, core.NotifyResultPublished, notif.Kind)
		assert.False(t, notif.CreatedAt.IsZero())

		require.Len(t, mailer.sent, 1)
		msg := mailer.sent[0]
		require.Len(t, msg.To, 1)
		assert.Equal(t, "asha@example.com", msg.To[0].Address)
		assert.Equal(t, "Results published", msg.Subject)
	})

	t.Run("skips email without an address", func(t *testing.T) {
		mailer.sent = nil
		err := svc.Notify(ctx, "stud2", core.NotifyScoresApproved, "Scores approved", "msg", "")
		require.NoError(t, err)
		assert.Len(t, repo.notifs, 2)
		assert.Empty(t, mailer.sent)
	})

	t.Run("unknown recipient still persists", func(t *testing.T) {
		mailer.sent = nil
		err := svc.Notify(ctx, "ghost", core.NotifyScoresRejected, "Scores rejected", "msg", "")
		require.NoError(t, err)
		assert.Len(t, repo.notifs, 3)
		assert.Empty(t, mailer.sent)
	})
}

func TestListAndMarkRead(t *testing.T) {
	ctx := context.Background()
	repo := &repoStub{}
	svc := NewService(repo, userStub{users: map[string]user.User{}}, &mailStub{}, nopLogger{})

	require.NoError(t, svc.Notify(ctx, "stud1", core.NotifyEnrollmentApproved, "Enrollment approved", "msg", ""))
	require.NoError(t, svc.Notify(ctx, "stud2", core.NotifyEnrollmentRejected, "Enrollment rejected", "msg", ""))

	notifs, err := svc.ListForUser(ctx, "stud1")
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.False(t, notifs[0].ReadAt.Valid)

	require.NoError(t, svc.MarkRead(ctx, notifs[0].ID, "stud1"))

	notifs, err = svc.ListForUser(ctx, "stud1")
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.True(t, notifs[0].ReadAt.Valid)
}
