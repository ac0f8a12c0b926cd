package role

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smena.org/internal/paper"
)

func testEngine(t *testing.T, at time.Time) (*Engine, *paper.InMemory) {
	t.Helper()
	papers := paper.NewInMemory()
	engine := NewEngine(papers, NewInMemorySnapshots(), WithClock(func() time.Time { return at }))
	return engine, papers
}

func addPaper(t *testing.T, store *paper.InMemory, p paper.Paper) paper.Paper {
	t.Helper()
	if p.State == "" {
		p.State = paper.StateActive
	}
	if p.Verification == "" {
		p.Verification = paper.VerificationUnverified
	}
	if err := store.Create(context.Background(), &p); err != nil {
		t.Fatal(err)
	}
	return p
}

func hasRole(roles []ComputedRole, r Type, bctx string) bool {
	for _, cr := range roles {
		if cr.Role == r && cr.BusinessContextID == bctx && cr.Active {
			return true
		}
	}
	return false
}

func TestEmploymentContractUnlocksWorker(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine, papers := testEngine(t, now)
	addPaper(t, papers, paper.Paper{
		ID: "ppr_1", OwnerID: "idn_x", Type: paper.TypeEmploymentContract,
		BusinessContextID: "b1", ValidFrom: now.Add(-time.Hour),
	})

	roles, err := engine.ComputeRoles(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}
	if !hasRole(roles, Seeker, "") {
		t.Fatal("missing Seeker floor")
	}
	if !hasRole(roles, Worker, "b1") {
		t.Fatalf("missing Worker in b1: %v", roles)
	}
	if hasRole(roles, Manager, "b1") {
		t.Fatal("Manager should not unlock from a contract alone")
	}
}

func TestAuthorityDelegationPromotesToManager(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine, papers := testEngine(t, now)
	addPaper(t, papers, paper.Paper{
		ID: "ppr_1", OwnerID: "idn_x", Type: paper.TypeEmploymentContract,
		BusinessContextID: "b1", ValidFrom: now.Add(-time.Hour),
	})
	addPaper(t, papers, paper.Paper{
		ID: "ppr_2", OwnerID: "idn_x", Type: paper.TypeAuthorityDelegation,
		BusinessContextID: "b1", ValidFrom: now.Add(-time.Hour),
	})

	roles, err := engine.ComputeRoles(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}
	if !hasRole(roles, Manager, "b1") || !hasRole(roles, Worker, "b1") {
		t.Fatalf("expected Manager and implied Worker in b1: %v", roles)
	}
	// The materialized Manager row carries both justifying papers.
	for _, cr := range roles {
		if cr.Role == Manager {
			if len(cr.SourcePaperIDs) != 2 {
				t.Fatalf("Manager sources: %v", cr.SourcePaperIDs)
			}
		}
	}
}

func TestDeactivationDropsTheWholeChain(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine, papers := testEngine(t, now)
	contract := addPaper(t, papers, paper.Paper{
		ID: "ppr_1", OwnerID: "idn_x", Type: paper.TypeEmploymentContract,
		BusinessContextID: "b1", ValidFrom: now.Add(-time.Hour),
	})
	addPaper(t, papers, paper.Paper{
		ID: "ppr_2", OwnerID: "idn_x", Type: paper.TypeAuthorityDelegation,
		BusinessContextID: "b1", ValidFrom: now.Add(-time.Hour),
	})
	if _, err := engine.ComputeRoles(context.Background(), "idn_x"); err != nil {
		t.Fatal(err)
	}

	contract.State = paper.StateDeactivated
	if err := papers.Update(context.Background(), &contract); err != nil {
		t.Fatal(err)
	}
	roles, err := engine.ComputeRoles(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 1 || roles[0].Role != Seeker {
		t.Fatalf("expected only the Seeker floor, got %v", roles)
	}
}

func TestUnverifiedHQRegistrationDoesNotUnlockFranchisor(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine, papers := testEngine(t, now)
	hq := addPaper(t, papers, paper.Paper{
		ID: "ppr_hq", OwnerID: "idn_x", Type: paper.TypeFranchiseHQRegistration,
		ValidFrom: now.Add(-time.Hour),
	})

	roles, err := engine.ComputeRoles(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}
	if hasRole(roles, Franchisor, "") {
		t.Fatal("Franchisor unlocked from an unverified paper")
	}

	hq.Verification = paper.VerificationVerified
	if err := papers.Update(context.Background(), &hq); err != nil {
		t.Fatal(err)
	}
	roles, err = engine.ComputeRoles(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}
	if !hasRole(roles, Franchisor, "") {
		t.Fatalf("Franchisor should unlock once verified: %v", roles)
	}
}

func TestContextIsolation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine, papers := testEngine(t, now)
	addPaper(t, papers, paper.Paper{
		ID: "ppr_1", OwnerID: "idn_x", Type: paper.TypeEmploymentContract,
		BusinessContextID: "a", ValidFrom: now.Add(-time.Hour),
	})
	addPaper(t, papers, paper.Paper{
		ID: "ppr_2", OwnerID: "idn_x", Type: paper.TypeAuthorityDelegation,
		BusinessContextID: "a", ValidFrom: now.Add(-time.Hour),
	})

	roles, err := engine.ComputeRoles(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}
	if !hasRole(roles, Manager, "a") {
		t.Fatalf("expected Manager in context a: %v", roles)
	}
	for _, cr := range roles {
		if cr.BusinessContextID == "b" {
			t.Fatalf("no roles should exist in context b: %v", cr)
		}
	}
}

func TestIdempotence(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine, papers := testEngine(t, now)
	addPaper(t, papers, paper.Paper{
		ID: "ppr_1", OwnerID: "idn_x", Type: paper.TypeEmploymentContract,
		BusinessContextID: "b1", ValidFrom: now.Add(-time.Hour),
	})

	first, err := engine.ComputeRoles(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}
	second, err := engine.ComputeRoles(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("role sets differ: %v vs %v", first, second)
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.ID != b.ID || a.Role != b.Role || a.BusinessContextID != b.BusinessContextID {
			t.Fatalf("row %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestValidityWindowBoundary(t *testing.T) {
	until := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := paper.Paper{
		ID: "ppr_1", OwnerID: "idn_x", Type: paper.TypeEmploymentContract,
		BusinessContextID: "b1",
		ValidFrom:         until.Add(-24 * time.Hour),
		ValidUntil:        &until,
	}

	// Valid at exactly validUntil.
	engine, papers := testEngine(t, until)
	addPaper(t, papers, base)
	roles, err := engine.ComputeRoles(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}
	if !hasRole(roles, Worker, "b1") {
		t.Fatal("paper must be valid at exactly valid_until")
	}

	// Invalid one millisecond later.
	engine, papers = testEngine(t, until.Add(time.Millisecond))
	addPaper(t, papers, base)
	roles, err = engine.ComputeRoles(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}
	if hasRole(roles, Worker, "b1") {
		t.Fatal("paper must be invalid at valid_until + 1ms")
	}
}

type failingPaperStore struct {
	paper.Store
	fail bool
}

func (s *failingPaperStore) ListByOwner(ctx context.Context, ownerID string) ([]paper.Paper, error) {
	if s.fail {
		return nil, errors.New("connection reset")
	}
	return s.Store.ListByOwner(ctx, ownerID)
}

func TestFailClosedOnPaperStoreOutage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inner := paper.NewInMemory()
	store := &failingPaperStore{Store: inner}
	engine := NewEngine(store, NewInMemorySnapshots(), WithClock(func() time.Time { return now }))

	p := paper.Paper{
		ID: "ppr_1", OwnerID: "idn_x", Type: paper.TypeEmploymentContract,
		BusinessContextID: "b1", State: paper.StateActive,
		Verification: paper.VerificationUnverified, ValidFrom: now.Add(-time.Hour),
	}
	if err := inner.Create(context.Background(), &p); err != nil {
		t.Fatal(err)
	}
	before, err := engine.ComputeRoles(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}

	store.fail = true
	if _, err := engine.ComputeRoles(context.Background(), "idn_x"); !errors.Is(err, ErrComputationUnavailable) {
		t.Fatalf("expected ErrComputationUnavailable, got %v", err)
	}

	// The previous snapshot stays authoritative.
	after, err := engine.Roles(context.Background(), "idn_x")
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Fatalf("snapshot changed on failure: %v vs %v", after, before)
	}
	if !hasRole(after, Worker, "b1") {
		t.Fatal("Worker role lost after store outage")
	}
}

func TestRolesComputesLazilyForUnseenIdentity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine, papers := testEngine(t, now)
	addPaper(t, papers, paper.Paper{
		ID: "ppr_1", OwnerID: "idn_new", Type: paper.TypeBusinessRegistration,
		BusinessContextID: "b1", ValidFrom: now.Add(-time.Hour),
	})

	roles, err := engine.Roles(context.Background(), "idn_new")
	if err != nil {
		t.Fatal(err)
	}
	if !hasRole(roles, Owner, "b1") {
		t.Fatalf("lazy computation missed Owner: %v", roles)
	}
}

func TestComputedRoleIDsAreStable(t *testing.T) {
	a := computedID("idn_x", Worker, "b1")
	b := computedID("idn_x", Worker, "b1")
	if a != b {
		t.Fatalf("ids differ: %s vs %s", a, b)
	}
	if computedID("idn_x", Worker, "b2") == a {
		t.Fatal("distinct contexts must produce distinct ids")
	}
}

func TestConcurrentRecomputationsStayConsistent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine, papers := testEngine(t, now)
	addPaper(t, papers, paper.Paper{
		ID: "ppr_ec", OwnerID: "idn_c", Type: paper.TypeEmploymentContract,
		BusinessContextID: "biz_1", ValidFrom: now.Add(-time.Hour),
	})
	addPaper(t, papers, paper.Paper{
		ID: "ppr_ad", OwnerID: "idn_c", Type: paper.TypeAuthorityDelegation,
		BusinessContextID: "biz_1", ValidFrom: now.Add(-time.Hour),
	})

	const runs = 16
	results := make([][]ComputedRole, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			roles, err := engine.ComputeRoles(context.Background(), "idn_c")
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = roles
		}(i)
	}
	wg.Wait()

	want := len(results[0])
	for i, roles := range results {
		if len(roles) != want {
			t.Fatalf("run %d returned %d roles, run 0 returned %d", i, len(roles), want)
		}
		for _, r := range []Type{Manager, Worker, Seeker} {
			bctx := "biz_1"
			if r == Seeker {
				bctx = ""
			}
			if !hasRole(roles, r, bctx) {
				t.Fatalf("run %d missing role %s", i, r)
			}
		}
	}

	final, err := engine.Roles(context.Background(), "idn_c")
	if err != nil {
		t.Fatal(err)
	}
	if len(final) != want {
		t.Fatalf("snapshot holds %d roles, want %d", len(final), want)
	}
}
