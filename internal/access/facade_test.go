package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"smena.org/internal/identity"
	"smena.org/internal/paper"
	"smena.org/internal/permission"
	"smena.org/internal/role"
)

type fixture struct {
	facade     *Facade
	papers     *paper.InMemory
	identities *identity.InMemory
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	papers := paper.NewInMemory()
	identities := identity.NewInMemory()
	engine := role.NewEngine(papers, role.NewInMemorySnapshots(),
		role.WithClock(func() time.Time { return now }))
	return &fixture{
		facade:     NewFacade(engine, permission.NewEvaluator(), identities),
		papers:     papers,
		identities: identities,
		now:        now,
	}
}

func (f *fixture) addIdentity(t *testing.T, id string, verification identity.VerificationStatus, active bool) {
	t.Helper()
	idn := identity.Identity{
		ID: id, DisplayName: id, Verification: verification, Active: active,
		CreatedAt: f.now, UpdatedAt: f.now,
	}
	if err := f.identities.Create(context.Background(), &idn); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) addPaper(t *testing.T, id, owner string, typ paper.Type, bctx string) {
	t.Helper()
	p := paper.Paper{
		ID: id, OwnerID: owner, Type: typ, BusinessContextID: bctx,
		State: paper.StateActive, Verification: paper.VerificationUnverified,
		ValidFrom: f.now.Add(-time.Hour),
	}
	if err := f.papers.Create(context.Background(), &p); err != nil {
		t.Fatal(err)
	}
}

func TestWorkerAttendanceFlow(t *testing.T) {
	f := newFixture(t)
	f.addIdentity(t, "idn_x", identity.VerificationUnverified, true)
	f.addPaper(t, "ppr_1", "idn_x", paper.TypeEmploymentContract, "b1")

	decision, err := f.facade.Authorize(context.Background(), "idn_x", Request{
		Resource: permission.ResourceAttendance, Action: permission.ActionCreate,
		BusinessContextID: "b1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Allowed {
		t.Fatalf("worker denied: %s", decision.Reason)
	}

	// The same grant does not travel to another business context.
	decision, err = f.facade.Authorize(context.Background(), "idn_x", Request{
		Resource: permission.ResourceAttendance, Action: permission.ActionCreate,
		BusinessContextID: "b2",
	})
	if err != nil {
		t.Fatal(err)
	}
	if decision.Allowed {
		t.Fatal("context-scoped role leaked into a foreign context")
	}
}

func TestSelfConditionAcrossIdentities(t *testing.T) {
	f := newFixture(t)
	f.addIdentity(t, "idn_x", identity.VerificationUnverified, true)

	// Seeker reads the own identity but not someone else's.
	own, _ := f.facade.Authorize(context.Background(), "idn_x", Request{
		Resource: permission.ResourceIdentity, Action: permission.ActionRead,
	})
	if !own.Allowed {
		t.Fatalf("self read denied: %s", own.Reason)
	}
	foreign, _ := f.facade.Authorize(context.Background(), "idn_x", Request{
		Resource: permission.ResourceIdentity, Action: permission.ActionRead,
		TargetIdentityID: "idn_y",
	})
	if foreign.Allowed {
		t.Fatal("self-conditioned read allowed for a foreign target")
	}
}

func TestDeactivatedIdentityDenies(t *testing.T) {
	f := newFixture(t)
	f.addIdentity(t, "idn_x", identity.VerificationVerified, false)
	f.addPaper(t, "ppr_1", "idn_x", paper.TypeEmploymentContract, "b1")

	decision, err := f.facade.Authorize(context.Background(), "idn_x", Request{
		Resource: permission.ResourceAttendance, Action: permission.ActionCreate,
		BusinessContextID: "b1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if decision.Allowed {
		t.Fatal("deactivated identity must deny")
	}
}

func TestMissingCallerDenies(t *testing.T) {
	f := newFixture(t)
	decision, err := f.facade.Authorize(context.Background(), "  ", Request{
		Resource: permission.ResourceAttendance, Action: permission.ActionRead,
	})
	if err != nil {
		t.Fatal(err)
	}
	if decision.Allowed {
		t.Fatal("blank caller must deny")
	}
}

type failingSnapshots struct{}

func (failingSnapshots) Replace(ctx context.Context, identityID string, roles []role.ComputedRole) error {
	return errors.New("disk full")
}

func (failingSnapshots) Latest(ctx context.Context, identityID string) ([]role.ComputedRole, error) {
	return nil, errors.New("disk full")
}

func TestEngineOutageSurfacesAsUnavailable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := role.NewEngine(paper.NewInMemory(), failingSnapshots{},
		role.WithClock(func() time.Time { return now }))
	facade := NewFacade(engine, permission.NewEvaluator(), identity.NewInMemory())

	_, err := facade.Authorize(context.Background(), "idn_x", Request{
		Resource: permission.ResourceAttendance, Action: permission.ActionRead,
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

type failingIdentities struct {
	identity.Store
}

func (failingIdentities) Find(ctx context.Context, id string) (*identity.Identity, error) {
	return nil, errors.New("connection refused")
}

func TestIdentityStoreOutageSurfacesAsUnavailable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	papers := paper.NewInMemory()
	p := paper.Paper{
		ID: "ppr_w", OwnerID: "idn_w", Type: paper.TypeEmploymentContract,
		BusinessContextID: "biz_1", State: paper.StateActive,
		Verification: paper.VerificationUnverified, ValidFrom: now.Add(-time.Hour),
	}
	if err := papers.Create(context.Background(), &p); err != nil {
		t.Fatal(err)
	}
	engine := role.NewEngine(papers, role.NewInMemorySnapshots(),
		role.WithClock(func() time.Time { return now }))
	facade := NewFacade(engine, permission.NewEvaluator(), failingIdentities{})

	_, err := facade.Authorize(context.Background(), "idn_w", Request{
		Resource: permission.ResourceAttendance, Action: permission.ActionCreate,
		BusinessContextID: "biz_1",
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestUnknownCallerStillEvaluates(t *testing.T) {
	f := newFixture(t)
	f.addPaper(t, "ppr_g", "idn_ghost", paper.TypeEmploymentContract, "biz_1")

	d, err := f.facade.Authorize(context.Background(), "idn_ghost", Request{
		Resource: permission.ResourceAttendance, Action: permission.ActionCreate,
		BusinessContextID: "biz_1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatalf("expected allow, got %q", d.Reason)
	}
}

func TestCanManagePaper(t *testing.T) {
	f := newFixture(t)
	f.addIdentity(t, "idn_owner", identity.VerificationUnverified, true)
	f.addIdentity(t, "idn_boss", identity.VerificationUnverified, true)
	f.addPaper(t, "ppr_biz", "idn_boss", paper.TypeBusinessRegistration, "b1")
	contract := paper.Paper{
		ID: "ppr_c", OwnerID: "idn_owner", Type: paper.TypeEmploymentContract,
		BusinessContextID: "b1", State: paper.StateActive,
		Verification: paper.VerificationUnverified, ValidFrom: f.now.Add(-time.Hour),
	}

	// Business owner may update papers within the context.
	ok, err := f.facade.CanManagePaper(context.Background(), "idn_boss", contract, "update")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("owner should manage papers in own context")
	}
	// A stranger may not.
	ok, err = f.facade.CanManagePaper(context.Background(), "idn_owner", contract, "delete")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("paper owner holds no deleting role in the context")
	}
	// Unknown lifecycle verbs deny outright.
	ok, err = f.facade.CanManagePaper(context.Background(), "idn_boss", contract, "shred")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("unknown action must deny")
	}
}

func TestRecomputeAfterPaperChange(t *testing.T) {
	f := newFixture(t)
	f.addIdentity(t, "idn_x", identity.VerificationUnverified, true)

	roles, err := f.facade.Roles(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 1 || roles[0].Role != role.Seeker {
		t.Fatalf("expected the Seeker floor only, got %v", roles)
	}

	f.addPaper(t, "ppr_1", "idn_x", paper.TypeEmploymentContract, "b1")
	roles, err = f.facade.Recompute(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, cr := range roles {
		if cr.Role == role.Worker && cr.BusinessContextID == "b1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("recompute missed the new Worker role: %v", roles)
	}
}
