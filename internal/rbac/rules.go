package rbac

const (
	PermProgressToggle = "progress:toggle"
	PermQuestionCreate = "question:create"

	PermRosterView    = "roster:view"
	PermRosterEdit    = "roster:edit"
	PermFeedbackWrite = "feedback:write"
	PermRosterReset   = "roster:reset"
	PermRosterDelete  = "roster:delete"
	PermEventsView    = "events:view"
	PermSnapshotsView = "snapshots:view"
)

// RolePermissions is the default policy. Students only touch their own
// session; every roster-wide action belongs to the teacher.
var RolePermissions = map[string][]string{
	"student": {
		PermProgressToggle,
		PermQuestionCreate,
	},
	"teacher": {
		"roster:*",
		PermFeedbackWrite,
		PermEventsView,
		PermSnapshotsView,
	},
}
