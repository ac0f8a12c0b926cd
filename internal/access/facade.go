package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smena.org/internal/identity"
	"smena.org/internal/obs"
	"smena.org/internal/paper"
	"smena.org/internal/permission"
	"smena.org/internal/role"
)

// ErrUnavailable is returned when roles could not be determined. Callers
// must translate it to a generic "unable to determine permissions" response
// and never leak engine internals.
var ErrUnavailable = errors.New("access: unable to determine permissions")

// Request describes a single authorization question.
type Request struct {
	Resource          permission.Resource
	Action            permission.Action
	BusinessContextID string
	// TargetIdentityID is the principal the caller acts on or about;
	// defaults to the caller.
	TargetIdentityID string
	// PaperOwnerID is set when the examined resource is a specific paper.
	PaperOwnerID string
}

// Decision is the outcome plus a short human-readable reason for logging.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Facade orchestrates the two engines for callers: resolve the caller's
// computed roles, normalize the condition context, evaluate the permission.
type Facade struct {
	engine     *role.Engine
	evaluator  *permission.Evaluator
	identities identity.Store
}

// NewFacade wires the facade. identities supplies the verification flag for
// condition evaluation; the facade never authenticates anyone.
func NewFacade(engine *role.Engine, evaluator *permission.Evaluator, identities identity.Store) *Facade {
	return &Facade{engine: engine, evaluator: evaluator, identities: identities}
}

// Authorize answers whether callerID may perform req. A false decision is
// the only form of denial; errors mean the answer could not be computed.
func (f *Facade) Authorize(ctx context.Context, callerID string, req Request) (Decision, error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return Decision{Reason: "missing caller identity"}, nil
	}

	computed, err := f.engine.Roles(ctx, callerID)
	if err != nil {
		obs.ObservePermissionCheck("unavailable")
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	pctx, active, err := f.resolveContext(ctx, callerID, req)
	if err != nil {
		obs.ObservePermissionCheck("unavailable")
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !active {
		obs.ObservePermissionCheck("deny")
		return Decision{Reason: "identity is deactivated"}, nil
	}

	roles := selectRoles(computed, req.BusinessContextID)
	if f.evaluator.HasAnyPermission(roles, req.Resource, req.Action, pctx) {
		obs.ObservePermissionCheck("allow")
		return Decision{Allowed: true, Reason: grantReason(roles, f.evaluator, req, pctx)}, nil
	}
	obs.ObservePermissionCheck("deny")
	return Decision{Reason: fmt.Sprintf("no role grants %s:%s", req.Resource, req.Action)}, nil
}

// Recompute re-runs role computation for the identity. Exposed for the
// manual retry path after a failed mutation-triggered recomputation.
func (f *Facade) Recompute(ctx context.Context, identityID string) ([]role.ComputedRole, error) {
	return f.engine.ComputeRoles(ctx, identityID)
}

// Roles exposes the latest snapshot for inspection endpoints.
func (f *Facade) Roles(ctx context.Context, identityID string) ([]role.ComputedRole, error) {
	return f.engine.Roles(ctx, identityID)
}

// CanManagePaper implements paper.Authorizer: a non-owner caller needs a
// role granting the lifecycle action on resource paper within the paper's
// business context.
func (f *Facade) CanManagePaper(ctx context.Context, callerID string, p paper.Paper, action string) (bool, error) {
	var act permission.Action
	switch action {
	case "update":
		act = permission.ActionUpdate
	case "delete":
		act = permission.ActionDelete
	case "validate":
		act = permission.ActionValidate
	default:
		return false, nil
	}
	decision, err := f.Authorize(ctx, callerID, Request{
		Resource:          permission.ResourcePaper,
		Action:            act,
		BusinessContextID: p.BusinessContextID,
		TargetIdentityID:  p.OwnerID,
		PaperOwnerID:      p.OwnerID,
	})
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// resolveContext normalizes the condition context: current/target identity,
// business context, and the caller's verification flag read at call time.
// The bool reports whether the caller identity is still active; a non-nil
// error means the store could not confirm either way.
func (f *Facade) resolveContext(ctx context.Context, callerID string, req Request) (*permission.Context, bool, error) {
	target := strings.TrimSpace(req.TargetIdentityID)
	if target == "" {
		target = callerID
	}
	pctx := &permission.Context{
		CurrentUserID:     callerID,
		TargetUserID:      target,
		BusinessContextID: strings.TrimSpace(req.BusinessContextID),
		PaperOwnerID:      strings.TrimSpace(req.PaperOwnerID),
	}
	if f.identities == nil {
		return pctx, true, nil
	}
	idn, err := f.identities.Find(ctx, callerID)
	if errors.Is(err, identity.ErrNotFound) {
		// Unknown identities evaluate as unverified rather than erroring:
		// verification only ever gates additional capability.
		return pctx, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	pctx.UserVerified = idn.Verification == identity.VerificationVerified
	return pctx, idn.Active, nil
}

// selectRoles picks the computed roles applicable to the requested business
// context: system-wide roles always apply, context-scoped roles only when
// the request names the same context.
func selectRoles(computed []role.ComputedRole, businessContextID string) []role.Type {
	seen := make(map[role.Type]struct{}, len(computed))
	var out []role.Type
	for _, cr := range computed {
		if !cr.Active {
			continue
		}
		if cr.BusinessContextID != "" && cr.BusinessContextID != businessContextID {
			continue
		}
		if _, ok := seen[cr.Role]; ok {
			continue
		}
		seen[cr.Role] = struct{}{}
		out = append(out, cr.Role)
	}
	return out
}

func grantReason(roles []role.Type, eval *permission.Evaluator, req Request, pctx *permission.Context) string {
	for _, r := range roles {
		if eval.HasPermission(r, req.Resource, req.Action, pctx) {
			return fmt.Sprintf("granted by role %s", r)
		}
	}
	return "granted"
}
