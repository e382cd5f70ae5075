package assessment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/chuoapp/chuo/core"
)

// Transition preconditions, reported to the caller as business-rule errors.
var (
	errNotLocked        = core.NewPreconditionError("scores are not locked")
	errNotSubmitted     = core.NewPreconditionError("not submitted for approval")
	errAlreadyApproved  = core.NewPreconditionError("scores already approved")
	errNotModerated     = core.NewPreconditionError("not submitted for moderation")
	errModNotApproved   = core.NewPreconditionError("moderation not approved")
	errAlreadyPublished = core.NewPreconditionError("result already published")
)

var nowFunc = time.Now // mockable

// Continuous assessment lifecycle:
// Editable -> Locked -> PendingApproval -> Approved | Rejected.
// Rejection is not terminal: it unlocks the row so the lecturer can correct
// and resubmit.

// Lock freezes the row against lecturer edits. Idempotent.
func (ca *ContinuousAssessment) Lock(actorID string) {
	if ca.IsLocked() {
		return
	}
	ca.LockedAt = null.TimeFrom(nowFunc().UTC())
}

// SubmitForApproval hands the locked row to an admin. Idempotent while
// pending; errors once a decision has been made.
func (ca *ContinuousAssessment) SubmitForApproval(actorID string) error {
	if !ca.IsLocked() {
		return errNotLocked
	}
	if ca.ApprovalStatus == ApprovalApproved {
		return errAlreadyApproved
	}
	if ca.SubmittedForApprovalAt.Valid {
		return nil
	}
	ca.SubmittedForApprovalAt = null.TimeFrom(nowFunc().UTC())
	ca.ApprovalStatus = ApprovalPending
	ca.RejectReason = null.String{}
	return nil
}

// Approve marks the pending row approved. A second call errors, it never
// silently succeeds.
func (ca *ContinuousAssessment) Approve(adminID string) error {
	if ca.ApprovalStatus == ApprovalApproved {
		return errAlreadyApproved
	}
	if !ca.SubmittedForApprovalAt.Valid || ca.ApprovalStatus != ApprovalPending {
		return errNotSubmitted
	}
	ca.ApprovalStatus = ApprovalApproved
	ca.ApprovedBy = null.StringFrom(adminID)
	return nil
}

// Reject sends the pending row back to the lecturer: the row unlocks and
// becomes editable again.
func (ca *ContinuousAssessment) Reject(reason, adminID string) error {
	if ca.ApprovalStatus == ApprovalApproved {
		return errAlreadyApproved
	}
	if !ca.SubmittedForApprovalAt.Valid || ca.ApprovalStatus != ApprovalPending {
		return errNotSubmitted
	}
	ca.ApprovalStatus = ApprovalRejected
	ca.ApprovedBy = null.StringFrom(adminID)
	ca.RejectReason = null.StringFrom(reason)
	ca.LockedAt = null.Time{}
	ca.SubmittedForApprovalAt = null.Time{}
	return nil
}

// Final exam lifecycle:
// Editable -> Locked -> PendingModeration -> Approved | NeedsChanges,
// plus a terminal Published reachable only from Approved.

// Lock freezes the row against lecturer edits. Idempotent.
func (ex *FinalExam) Lock(actorID string) {
	if ex.IsLocked() {
		return
	}
	ex.LockedAt = null.TimeFrom(nowFunc().UTC())
}

// SubmitForModeration hands the locked row to an admin. Idempotent while
// pending; errors once published or approved.
func (ex *FinalExam) SubmitForModeration(actorID string) error {
	if !ex.IsLocked() {
		return errNotLocked
	}
	if ex.IsPublished() {
		return errAlreadyPublished
	}
	if ex.ModerationStatus == ModerationApproved {
		return errAlreadyApproved
	}
	if ex.SubmittedForModerationAt.Valid {
		return nil
	}
	ex.SubmittedForModerationAt = null.TimeFrom(nowFunc().UTC())
	ex.ModerationStatus = ModerationPending
	ex.ModerationNotes = null.String{}
	return nil
}

// ApproveModeration marks the pending row approved for publication.
func (ex *FinalExam) ApproveModeration(adminID string) error {
	if ex.ModerationStatus == ModerationApproved {
		return errAlreadyApproved
	}
	if !ex.SubmittedForModerationAt.Valid || ex.ModerationStatus != ModerationPending {
		return errNotModerated
	}
	ex.ModerationStatus = ModerationApproved
	ex.ModeratedBy = null.StringFrom(adminID)
	return nil
}

// RequestChanges sends the pending row back to the lecturer: the row
// unlocks and becomes editable again.
func (ex *FinalExam) RequestChanges(notes, adminID string) error {
	if ex.ModerationStatus == ModerationApproved {
		return errAlreadyApproved
	}
	if !ex.SubmittedForModerationAt.Valid || ex.ModerationStatus != ModerationPending {
		return errNotModerated
	}
	ex.ModerationStatus = ModerationNeedsChanges
	ex.ModeratedBy = null.StringFrom(adminID)
	ex.ModerationNotes = null.StringFrom(notes)
	ex.LockedAt = null.Time{}
	ex.SubmittedForModerationAt = null.Time{}
	return nil
}

// Publish exposes the approved score to the student. Fails unless
// moderation approved it, and on a second call.
func (ex *FinalExam) Publish(adminID string) error {
	if ex.IsPublished() {
		return errAlreadyPublished
	}
	if ex.ModerationStatus != ModerationApproved {
		return errModNotApproved
	}
	ex.PublishedAt = null.TimeFrom(nowFunc().UTC())
	ex.PublishedBy = null.StringFrom(adminID)
	return nil
}
