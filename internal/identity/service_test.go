package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegisterAndGet(t *testing.T) {
	s := NewService(NewInMemory())
	ctx := context.Background()

	idn, err := s.Register(ctx, "  Aidana  ")
	if err != nil {
		t.Fatal(err)
	}
	if idn.DisplayName != "Aidana" {
		t.Fatalf("display name not trimmed: %q", idn.DisplayName)
	}
	if !strings.HasPrefix(idn.ID, "idn_") {
		t.Fatalf("unexpected id: %s", idn.ID)
	}
	if idn.Verification != VerificationUnverified || !idn.Active {
		t.Fatalf("unexpected initial state: %+v", idn)
	}

	got, err := s.Get(ctx, idn.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != idn.ID {
		t.Fatalf("get returned %+v", got)
	}
}

func TestRegisterRequiresName(t *testing.T) {
	s := NewService(NewInMemory())
	if _, err := s.Register(context.Background(), "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetUnknown(t *testing.T) {
	s := NewService(NewInMemory())
	if _, err := s.Get(context.Background(), "idn_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVerificationTransitions(t *testing.T) {
	s := NewService(NewInMemory())
	ctx := context.Background()
	idn, _ := s.Register(ctx, "Bolat")

	// unverified -> verified skips a step.
	if _, err := s.SetVerification(ctx, idn.ID, VerificationVerified); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("skipping pending must fail: %v", err)
	}
	if _, err := s.SetVerification(ctx, idn.ID, VerificationPending); err != nil {
		t.Fatal(err)
	}
	out, err := s.SetVerification(ctx, idn.ID, VerificationVerified)
	if err != nil {
		t.Fatal(err)
	}
	if out.Verification != VerificationVerified {
		t.Fatalf("verification = %s", out.Verification)
	}
	// Verified is terminal.
	if _, err := s.SetVerification(ctx, idn.ID, VerificationPending); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("verified must be terminal: %v", err)
	}
	// Unknown status.
	if _, err := s.SetVerification(ctx, idn.ID, VerificationStatus("vouched")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown status: %v", err)
	}
}

func TestDeactivate(t *testing.T) {
	s := NewService(NewInMemory())
	ctx := context.Background()
	idn, _ := s.Register(ctx, "Carmen")

	out, err := s.Deactivate(ctx, idn.ID)
	if err != nil {
		t.Fatal(err)
	}
	if out.Active {
		t.Fatal("identity still active")
	}
	// Never deleted: still readable.
	if _, err := s.Get(ctx, idn.ID); err != nil {
		t.Fatalf("deactivated identity must remain queryable: %v", err)
	}
}
