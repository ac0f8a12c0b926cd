package permission

// Resource names a protected resource class.
type Resource string

const (
	ResourceAttendance Resource = "attendance"
	ResourceSchedule   Resource = "schedule"
	ResourcePaper      Resource = "paper"
	ResourceIdentity   Resource = "identity"
	ResourceBusiness   Resource = "business"
	ResourceReport     Resource = "report"
)

// Action names an operation on a resource.
type Action string

const (
	ActionCreate   Action = "create"
	ActionRead     Action = "read"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionApprove  Action = "approve"
	ActionValidate Action = "validate"
)

// Condition is a predicate a permission entry requires of the call context.
// Conditions form a short-circuiting conjunction: all must hold.
type Condition string

const (
	// ConditionSelf: target identity must equal the acting identity.
	ConditionSelf Condition = "self"
	// ConditionBusinessContext: a business-context id must be present.
	ConditionBusinessContext Condition = "business_context"
	// ConditionPaperOwnership: the examined resource must be a paper owned
	// by the acting identity.
	ConditionPaperOwnership Condition = "paper_ownership"
	// ConditionVerification: the acting identity must be verified.
	ConditionVerification Condition = "verification_status"
)

// Permission is a static grant of an action on a resource, guarded by zero
// or more conditions. Permissions are fixed tables per role, never created
// at runtime.
type Permission struct {
	Resource                Resource
	Action                  Action
	Conditions              []Condition
	RequiresBusinessContext bool
}

// Context carries the per-call facts conditions are evaluated against.
type Context struct {
	CurrentUserID     string
	TargetUserID      string
	BusinessContextID string
	PaperOwnerID      string
	UserVerified      bool
}

// satisfied evaluates a single condition. Unknown conditions fail: a new
// condition variant must be handled here before any table may use it.
func satisfied(c Condition, ctx *Context) bool {
	if ctx == nil {
		return false
	}
	switch c {
	case ConditionSelf:
		return ctx.TargetUserID != "" && ctx.TargetUserID == ctx.CurrentUserID
	case ConditionBusinessContext:
		return ctx.BusinessContextID != ""
	case ConditionPaperOwnership:
		return ctx.PaperOwnerID != "" && ctx.PaperOwnerID == ctx.CurrentUserID
	case ConditionVerification:
		return ctx.UserVerified
	}
	return false
}
