package permission

import (
	"testing"

	"smena.org/internal/role"
)

func TestWorkerAttendanceCreateInContext(t *testing.T) {
	e := NewEvaluator()
	ctx := &Context{CurrentUserID: "x", TargetUserID: "x", BusinessContextID: "b1"}
	if !e.HasPermission(role.Worker, ResourceAttendance, ActionCreate, ctx) {
		t.Fatal("Worker should create own attendance in context")
	}
	if e.HasPermission(role.Seeker, ResourceAttendance, ActionCreate, ctx) {
		t.Fatal("Seeker must not create attendance")
	}
}

func TestMonotonicInheritance(t *testing.T) {
	e := NewEvaluator()
	ctx := &Context{CurrentUserID: "x", TargetUserID: "x", BusinessContextID: "b1"}
	// Every grant of a lower role must hold for every higher role.
	members := []role.Type{role.Seeker, role.Worker, role.Manager, role.Supervisor, role.Owner, role.Franchisee, role.Franchisor}
	resources := []Resource{ResourceAttendance, ResourceSchedule, ResourcePaper, ResourceIdentity, ResourceBusiness, ResourceReport}
	actions := []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionApprove, ActionValidate}
	for i, lower := range members {
		for _, higher := range members[i+1:] {
			for _, res := range resources {
				for _, act := range actions {
					if e.HasPermission(lower, res, act, ctx) && !e.HasPermission(higher, res, act, ctx) {
						t.Fatalf("%s grants %s:%s but %s does not", lower, res, act, higher)
					}
				}
			}
		}
	}
}

func TestSelfConditionDeniesOtherTargets(t *testing.T) {
	e := NewEvaluator()
	self := &Context{CurrentUserID: "x", TargetUserID: "x"}
	other := &Context{CurrentUserID: "x", TargetUserID: "y"}
	if !e.HasPermission(role.Seeker, ResourceIdentity, ActionRead, self) {
		t.Fatal("Seeker should read own identity")
	}
	if e.HasPermission(role.Seeker, ResourceIdentity, ActionRead, other) {
		t.Fatal("self condition must deny a different target")
	}
}

func TestPaperOwnershipCondition(t *testing.T) {
	e := NewEvaluator()
	own := &Context{CurrentUserID: "x", TargetUserID: "y", PaperOwnerID: "x"}
	foreign := &Context{CurrentUserID: "x", TargetUserID: "y", PaperOwnerID: "y"}
	if !e.HasPermission(role.Seeker, ResourcePaper, ActionRead, own) {
		t.Fatal("Seeker should read own papers")
	}
	if e.HasPermission(role.Seeker, ResourcePaper, ActionRead, foreign) {
		t.Fatal("Seeker must not read foreign papers")
	}
}

func TestBusinessContextRequirement(t *testing.T) {
	e := NewEvaluator()
	noCtx := &Context{CurrentUserID: "x", TargetUserID: "x"}
	if e.HasPermission(role.Worker, ResourceAttendance, ActionCreate, noCtx) {
		t.Fatal("context-bound permission must deny without a business context")
	}
	if e.HasPermission(role.Worker, ResourceAttendance, ActionCreate, nil) {
		t.Fatal("nil context must deny")
	}
}

func TestVerificationGatedValidate(t *testing.T) {
	e := NewEvaluator()
	unverified := &Context{CurrentUserID: "x", TargetUserID: "y"}
	verified := &Context{CurrentUserID: "x", TargetUserID: "y", UserVerified: true}
	if e.HasPermission(role.Franchisor, ResourcePaper, ActionValidate, unverified) {
		t.Fatal("unverified Franchisor must not validate papers")
	}
	if !e.HasPermission(role.Franchisor, ResourcePaper, ActionValidate, verified) {
		t.Fatal("verified Franchisor should validate papers")
	}
}

func TestUnknownRoleResourceActionDeny(t *testing.T) {
	e := NewEvaluator()
	ctx := &Context{CurrentUserID: "x", TargetUserID: "x", BusinessContextID: "b1"}
	if e.HasPermission(role.Type("admin"), ResourceAttendance, ActionCreate, ctx) {
		t.Fatal("unknown role must deny")
	}
	if e.HasPermission(role.Franchisor, Resource("vault"), ActionRead, ctx) {
		t.Fatal("unknown resource must deny")
	}
	if e.HasPermission(role.Franchisor, ResourceReport, Action("export"), ctx) {
		t.Fatal("unknown action must deny")
	}
}

func TestHasAnyPermissionGrantsAcrossRoles(t *testing.T) {
	e := NewEvaluator()
	ctx := &Context{CurrentUserID: "x", TargetUserID: "x", BusinessContextID: "b1"}
	roles := []role.Type{role.Seeker, role.Worker}
	if !e.HasAnyPermission(roles, ResourceSchedule, ActionRead, ctx) {
		t.Fatal("Worker in the set should grant schedule read")
	}
	if e.HasAnyPermission(nil, ResourceSchedule, ActionRead, ctx) {
		t.Fatal("empty role set must deny")
	}
}

func TestEvaluatorWithCustomTables(t *testing.T) {
	tables := map[role.Type][]Permission{
		role.Worker: {{Resource: ResourceReport, Action: ActionRead}},
	}
	e := NewEvaluatorWithTables(tables)
	if !e.HasPermission(role.Worker, ResourceReport, ActionRead, &Context{}) {
		t.Fatal("custom table grant missing")
	}
	if e.HasPermission(role.Worker, ResourceAttendance, ActionCreate, &Context{BusinessContextID: "b1"}) {
		t.Fatal("built-in tables leaked into custom evaluator")
	}
	// Inheritance still applies over custom tables.
	if !e.HasPermission(role.Manager, ResourceReport, ActionRead, &Context{}) {
		t.Fatal("Manager should inherit the Worker grant")
	}
}

func TestInheritedGrantsForHigherRoles(t *testing.T) {
	e := NewEvaluator()
	ctx := &Context{CurrentUserID: "x", TargetUserID: "x", BusinessContextID: "b1"}
	cases := []struct {
		role     role.Type
		resource Resource
		action   Action
	}{
		{role.Owner, ResourceIdentity, ActionRead},
		{role.Owner, ResourceReport, ActionRead},
		{role.Owner, ResourceReport, ActionCreate},
		{role.Owner, ResourceAttendance, ActionApprove},
		{role.Franchisee, ResourceReport, ActionRead},
	}
	for _, c := range cases {
		if !e.HasPermission(c.role, c.resource, c.action, ctx) {
			t.Fatalf("%s should hold %s:%s by inheritance", c.role, c.resource, c.action)
		}
	}
}
