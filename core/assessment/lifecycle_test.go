package assessment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/chuoapp/chuo/core"
)

func TestWeightedScore(t *testing.T) {
	ca := ContinuousAssessment{Score: 10, MaxScore: 10, Weight: 7.5}
	assert.Equal(t, 7.5, ca.WeightedScore()) // full marks yield the full weight

	prev := -1.0
	for score := 0.0; score <= 10; score++ {
		ca.Score = score
		ws := ca.WeightedScore()
		assert.Greater(t, ws, prev)
		prev = ws
	}

	ca.MaxScore = 0
	assert.Zero(t, ca.WeightedScore())
}

func TestContinuousAssessmentLifecycle(t *testing.T) {
	now := time.Now().UTC()
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	t.Run("lock is idempotent", func(t *testing.T) {
		ca := ContinuousAssessment{ApprovalStatus: ApprovalPending}
		ca.Lock("lect1")
		first := ca.LockedAt
		ca.Lock("lect1")
		assert.Equal(t, first, ca.LockedAt)
		assert.True(t, ca.IsLocked())
	})

	t.Run("submit requires lock", func(t *testing.T) {
		ca := ContinuousAssessment{ApprovalStatus: ApprovalPending}
		err := ca.SubmitForApproval("lect1")
		require.Error(t, err)
		assert.True(t, core.IsPrecondition(err))
	})

	t.Run("submit is idempotent while pending", func(t *testing.T) {
		ca := ContinuousAssessment{ApprovalStatus: ApprovalPending}
		ca.Lock("lect1")
		require.NoError(t, ca.SubmitForApproval("lect1"))
		first := ca.SubmittedForApprovalAt
		require.NoError(t, ca.SubmitForApproval("lect1"))
		assert.Equal(t, first, ca.SubmittedForApprovalAt)
	})

	t.Run("approve then second approve errors", func(t *testing.T) {
		ca := ContinuousAssessment{ApprovalStatus: ApprovalPending}
		ca.Lock("lect1")
		require.NoError(t, ca.SubmitForApproval("lect1"))
		require.NoError(t, ca.Approve("admin1"))
		assert.Equal(t, ApprovalApproved, ca.ApprovalStatus)
		assert.Equal(t, "admin1", ca.ApprovedBy.String)

		err := ca.Approve("admin1")
		require.Error(t, err)
		assert.True(t, core.IsPrecondition(err))
	})

	t.Run("approve without submission errors", func(t *testing.T) {
		ca := ContinuousAssessment{ApprovalStatus: ApprovalPending}
		ca.Lock("lect1")
		err := ca.Approve("admin1")
		require.Error(t, err)
		assert.True(t, core.IsPrecondition(err))
	})

	t.Run("reject unlocks the row", func(t *testing.T) {
		ca := ContinuousAssessment{ApprovalStatus: ApprovalPending}
		ca.Lock("lect1")
		require.NoError(t, ca.SubmitForApproval("lect1"))
		require.NoError(t, ca.Reject("wrong weighting", "admin1"))

		assert.Equal(t, ApprovalRejected, ca.ApprovalStatus)
		assert.Equal(t, "wrong weighting", ca.RejectReason.String)
		assert.False(t, ca.IsLocked())
		assert.False(t, ca.SubmittedForApprovalAt.Valid)
	})

	t.Run("rejected row can be corrected and resubmitted", func(t *testing.T) {
		ca := ContinuousAssessment{ApprovalStatus: ApprovalPending}
		ca.Lock("lect1")
		require.NoError(t, ca.SubmitForApproval("lect1"))
		require.NoError(t, ca.Reject("typo", "admin1"))

		ca.Score = 12.5 // the correction
		ca.Lock("lect1")
		require.NoError(t, ca.SubmitForApproval("lect1"))
		assert.Equal(t, ApprovalPending, ca.ApprovalStatus)
		assert.False(t, ca.RejectReason.Valid)
		require.NoError(t, ca.Approve("admin1"))
	})
}

func TestFinalExamLifecycle(t *testing.T) {
	now := time.Now().UTC()
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	submitted := func() FinalExam {
		ex := FinalExam{ModerationStatus: ModerationPending}
		ex.Lock("lect1")
		require.NoError(t, ex.SubmitForModeration("lect1"))
		return ex
	}

	t.Run("submit requires lock", func(t *testing.T) {
		ex := FinalExam{ModerationStatus: ModerationPending}
		err := ex.SubmitForModeration("lect1")
		require.Error(t, err)
		assert.True(t, core.IsPrecondition(err))
	})

	t.Run("publish requires approved moderation", func(t *testing.T) {
		ex := submitted()
		err := ex.Publish("admin1")
		require.Error(t, err)
		assert.True(t, core.IsPrecondition(err))
		assert.False(t, ex.IsPublished())
	})

	t.Run("approve then publish once", func(t *testing.T) {
		ex := submitted()
		require.NoError(t, ex.ApproveModeration("admin1"))
		require.NoError(t, ex.Publish("admin1"))
		assert.True(t, ex.IsPublished())
		assert.Equal(t, "admin1", ex.PublishedBy.String)

		err := ex.Publish("admin1")
		require.Error(t, err)
		assert.True(t, core.IsPrecondition(err))
	})

	t.Run("request changes unlocks the row", func(t *testing.T) {
		ex := submitted()
		require.NoError(t, ex.RequestChanges("check scripts 12-15", "admin1"))

		assert.Equal(t, ModerationNeedsChanges, ex.ModerationStatus)
		assert.Equal(t, "check scripts 12-15", ex.ModerationNotes.String)
		assert.False(t, ex.IsLocked())
		assert.False(t, ex.SubmittedForModerationAt.Valid)
	})

	t.Run("row with changes requested can be resubmitted", func(t *testing.T) {
		ex := submitted()
		require.NoError(t, ex.RequestChanges("re-mark", "admin1"))

		ex.Score = 58
		ex.Lock("lect1")
		require.NoError(t, ex.SubmitForModeration("lect1"))
		assert.Equal(t, ModerationPending, ex.ModerationStatus)
		assert.False(t, ex.ModerationNotes.Valid)
	})

	t.Run("published row cannot be resubmitted", func(t *testing.T) {
		ex := submitted()
		require.NoError(t, ex.ApproveModeration("admin1"))
		require.NoError(t, ex.Publish("admin1"))

		ex.SubmittedForModerationAt = null.Time{}
		err := ex.SubmitForModeration("lect1")
		require.Error(t, err)
		assert.True(t, core.IsPrecondition(err))
	})
}
