package role

import (
	"smena.org/internal/paper"
)

// Type enumerates the role hierarchy, lowest standing first.
type Type string

const (
	Seeker     Type = "seeker"
	Worker     Type = "worker"
	Manager    Type = "manager"
	Supervisor Type = "supervisor"
	Owner      Type = "owner"
	Franchisee Type = "franchisee"
	Franchisor Type = "franchisor"
)

// hierarchy is the fixed ordering, lowest to highest standing. Inheritance
// follows this chain: each role inherits permissions of every lower role.
var hierarchy = []Type{Seeker, Worker, Manager, Supervisor, Owner, Franchisee, Franchisor}

// rank returns the position of t in the hierarchy, or -1 for unknown roles.
func rank(t Type) int {
	for i, r := range hierarchy {
		if r == t {
			return i
		}
	}
	return -1
}

// Known reports whether t is a member of the hierarchy.
func (t Type) Known() bool { return rank(t) >= 0 }

// Inherits returns the roles t inherits permissions from, highest first.
// Unknown roles inherit nothing.
func (t Type) Inherits() []Type {
	r := rank(t)
	if r <= 0 {
		return nil
	}
	out := make([]Type, 0, r)
	for i := r - 1; i >= 0; i-- {
		out = append(out, hierarchy[i])
	}
	return out
}

// Descending lists the hierarchy from highest to lowest standing. Unlock
// rules are evaluated in this order so the highest reachable role wins.
func Descending() []Type {
	out := make([]Type, len(hierarchy))
	for i, r := range hierarchy {
		out[len(hierarchy)-1-i] = r
	}
	return out
}

// UnlockRule states which valid papers, taken together within one business
// context group, unlock a role. RequireVerified demands that every required
// paper has itself passed verification.
type UnlockRule struct {
	Required        []paper.Type
	RequireVerified bool
}

// unlockRules maps every role above the Seeker floor to its rule. Seeker is
// the implicit floor and has no entry; rulesComplete (tested) guards the
// mapping against new roles arriving without a rule.
var unlockRules = map[Type]UnlockRule{
	Franchisor: {Required: []paper.Type{paper.TypeFranchiseHQRegistration}, RequireVerified: true},
	Franchisee: {Required: []paper.Type{paper.TypeFranchiseAgreement}},
	Owner:      {Required: []paper.Type{paper.TypeBusinessRegistration}},
	Supervisor: {Required: []paper.Type{paper.TypeEmploymentContract, paper.TypeSupervisorAuthorityDelegation}},
	Manager:    {Required: []paper.Type{paper.TypeEmploymentContract, paper.TypeAuthorityDelegation}},
	Worker:     {Required: []paper.Type{paper.TypeEmploymentContract}},
}

// RuleFor returns the unlock rule for a role, if it has one.
func RuleFor(t Type) (UnlockRule, bool) {
	rule, ok := unlockRules[t]
	return rule, ok
}

// rulesComplete reports whether every role above the floor has an unlock
// rule. Kept as a function so the test suite enforces exhaustiveness.
func rulesComplete() bool {
	for _, t := range hierarchy[1:] {
		if _, ok := unlockRules[t]; !ok {
			return false
		}
	}
	return true
}
