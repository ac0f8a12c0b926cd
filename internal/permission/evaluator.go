package permission

import "smena.org/internal/role"

// Evaluator decides grant/deny for roles against the static permission
// tables. It is a pure in-memory computation: no I/O, safe for unsynchronized
// concurrent use. Construct one at process start and hand it to callers;
// tests substitute their own tables instead of mutating global state.
type Evaluator struct {
	tables map[role.Type][]Permission
}

// NewEvaluator builds an evaluator over the built-in per-role tables.
func NewEvaluator() *Evaluator {
	return &Evaluator{tables: defaultTables()}
}

// NewEvaluatorWithTables builds an evaluator over caller-supplied tables.
func NewEvaluatorWithTables(tables map[role.Type][]Permission) *Evaluator {
	copied := make(map[role.Type][]Permission, len(tables))
	for r, perms := range tables {
		copied[r] = append([]Permission(nil), perms...)
	}
	return &Evaluator{tables: copied}
}

// HasPermission reports whether the role, or any role it inherits from,
// grants the action on the resource under the supplied context. Unknown
// roles, resources, or actions deny; the method never panics on
// attacker-controlled input.
func (e *Evaluator) HasPermission(r role.Type, resource Resource, action Action, ctx *Context) bool {
	if e.direct(r, resource, action, ctx) {
		return true
	}
	for _, inherited := range r.Inherits() {
		if e.direct(inherited, resource, action, ctx) {
			return true
		}
	}
	return false
}

// HasAnyPermission grants when any of the supplied roles grants. A
// principal holding roles across several business contexts is checked
// role by role; grants only ever add up, there is no deny override.
func (e *Evaluator) HasAnyPermission(roles []role.Type, resource Resource, action Action, ctx *Context) bool {
	for _, r := range roles {
		if e.HasPermission(r, resource, action, ctx) {
			return true
		}
	}
	return false
}

// direct checks the role's own table only.
func (e *Evaluator) direct(r role.Type, resource Resource, action Action, ctx *Context) bool {
	for _, p := range e.tables[r] {
		if p.Resource != resource || p.Action != action {
			continue
		}
		if p.RequiresBusinessContext && (ctx == nil || ctx.BusinessContextID == "") {
			continue
		}
		if conditionsHold(p.Conditions, ctx) {
			return true
		}
	}
	return false
}

// conditionsHold is a short-circuiting conjunction; an entry without
// conditions is unconditional once resource/action matched.
func conditionsHold(conditions []Condition, ctx *Context) bool {
	for _, c := range conditions {
		if !satisfied(c, ctx) {
			return false
		}
	}
	return true
}
