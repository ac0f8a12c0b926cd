package role

import (
	"testing"

	"smena.org/internal/paper"
)

func TestEveryRoleAboveFloorHasUnlockRule(t *testing.T) {
	if !rulesComplete() {
		t.Fatal("a role above the Seeker floor has no unlock rule")
	}
}

func TestInheritsWalksDownTheChain(t *testing.T) {
	got := Supervisor.Inherits()
	want := []Type{Manager, Worker, Seeker}
	if len(got) != len(want) {
		t.Fatalf("Supervisor inherits %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Supervisor inherits %v, want %v", got, want)
		}
	}
	if len(Seeker.Inherits()) != 0 {
		t.Fatalf("Seeker should inherit nothing, got %v", Seeker.Inherits())
	}
	if Type("auditor").Inherits() != nil {
		t.Fatal("unknown role should inherit nothing")
	}
}

func TestDescendingStartsAtFranchisor(t *testing.T) {
	desc := Descending()
	if desc[0] != Franchisor || desc[len(desc)-1] != Seeker {
		t.Fatalf("unexpected descending order: %v", desc)
	}
}

func TestKnown(t *testing.T) {
	for _, r := range hierarchy {
		if !r.Known() {
			t.Fatalf("%s should be known", r)
		}
	}
	if Type("admin").Known() {
		t.Fatal("admin should be unknown")
	}
}

func TestFranchisorRuleIsVerificationGated(t *testing.T) {
	rule, ok := RuleFor(Franchisor)
	if !ok {
		t.Fatal("missing Franchisor rule")
	}
	if !rule.RequireVerified {
		t.Fatal("Franchisor unlock must require a verified paper")
	}
	if len(rule.Required) != 1 || rule.Required[0] != paper.TypeFranchiseHQRegistration {
		t.Fatalf("unexpected Franchisor rule: %v", rule.Required)
	}
}
