package paper

import "context"

// ChangeOp names the lifecycle operation that produced a Change.
type ChangeOp string

const (
	OpCreated     ChangeOp = "created"
	OpUpdated     ChangeOp = "updated"
	OpDeactivated ChangeOp = "deactivated"
	OpExtended    ChangeOp = "extended"
	OpValidated   ChangeOp = "validated"
	OpSuperseded  ChangeOp = "superseded"
)

// Change is emitted after every successful paper mutation. It is the explicit
// trigger for role recomputation: role facts must never go stale relative to
// their justifying papers.
type Change struct {
	PaperID           string
	OwnerID           string
	BusinessContextID string
	Op                ChangeOp
}

// Recomputer consumes Change events. The role computation engine implements
// it; the call happens synchronously within the mutating request.
type Recomputer interface {
	PaperChanged(ctx context.Context, change Change) error
}

// Authorizer decides whether a non-owner caller may run a lifecycle action
// ("update", "delete", "validate") on a paper. The access facade implements
// it against the caller's computed roles.
type Authorizer interface {
	CanManagePaper(ctx context.Context, callerID string, p Paper, action string) (bool, error)
}
