package notifications

const (
	TypeReviewReminder    = "review_reminder"
	TypeReviewRecorded    = "review_recorded"
	TypeAssignmentChanged = "assignment_changed"
)
