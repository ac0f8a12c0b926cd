package paper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smena.org/internal/ids"
	"smena.org/internal/stream"
)

// Service implements the paper lifecycle: create, update, deactivate, extend
// validity, validate. Every successful mutation that can affect role standing
// is followed, synchronously, by a recomputation for the owner.
type Service struct {
	store     Store
	recompute Recomputer
	authz     Authorizer
	events    *stream.Stream
	now       func() time.Time
}

// NewService constructs the lifecycle service. recompute is required;
// authz and events may be nil (owner-only mutations, no event feed).
func NewService(store Store, recompute Recomputer, authz Authorizer, events *stream.Stream) *Service {
	return &Service{
		store:     store,
		recompute: recompute,
		authz:     authz,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequest carries the fields of a new paper. ValidFrom defaults to the
// current instant when zero.
type CreateRequest struct {
	OwnerID           string
	Type              Type
	BusinessContextID string
	Payload           map[string]any
	ValidFrom         time.Time
	ValidUntil        *time.Time
}

// Create files a new paper for its owner and triggers recomputation.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Paper, error) {
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	if req.OwnerID == "" {
		return Paper{}, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	if !req.Type.Known() {
		return Paper{}, fmt.Errorf("%w: %q", ErrInvalidType, req.Type)
	}
	req.BusinessContextID = strings.TrimSpace(req.BusinessContextID)
	if req.Type.RequiresBusinessContext() && req.BusinessContextID == "" {
		return Paper{}, fmt.Errorf("%w: type %s", ErrMissingBusinessContext, req.Type)
	}
	if !req.Type.RequiresBusinessContext() && req.BusinessContextID != "" {
		return Paper{}, fmt.Errorf("%w: type %s", ErrUnexpectedContext, req.Type)
	}
	now := s.now()
	validFrom := req.ValidFrom
	if validFrom.IsZero() {
		validFrom = now
	}
	if req.ValidUntil != nil && !req.ValidUntil.After(validFrom) {
		return Paper{}, fmt.Errorf("%w: valid_until must be after valid_from", ErrInvalidValidityWindow)
	}

	p := Paper{
		ID:                ids.Prefixed(ids.PrefixPaper),
		OwnerID:           req.OwnerID,
		Type:              req.Type,
		BusinessContextID: req.BusinessContextID,
		Payload:           req.Payload,
		State:             StateActive,
		ValidFrom:         validFrom,
		ValidUntil:        req.ValidUntil,
		Verification:      VerificationUnverified,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Create(ctx, &p); err != nil {
		return Paper{}, err
	}
	s.publish(stream.KindPaperCreated, p)
	return p, s.trigger(ctx, p, OpCreated)
}

// Get returns a paper by id.
func (s *Service) Get(ctx context.Context, id string) (Paper, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return Paper{}, err
	}
	return *p, nil
}

// ListByOwner returns all papers owned by the identity, any state.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Paper, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	return s.store.ListByOwner(ctx, ownerID)
}

// Patch carries partial updates. When Replace is set the existing paper is
// marked superseded and a fresh paper with the patched fields takes its
// place, so the old document survives as role-audit history.
type Patch struct {
	Payload         map[string]any
	ValidFrom       *time.Time
	ValidUntil      *time.Time
	ClearValidUntil bool
	Replace         bool
}

// Update applies a patch on behalf of callerID. Non-owners need a role that
// grants update on resource paper within the paper's business context.
func (s *Service) Update(ctx context.Context, callerID, id string, patch Patch) (Paper, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return Paper{}, err
	}
	if err := s.authorize(ctx, callerID, *p, "update"); err != nil {
		return Paper{}, err
	}

	validFrom := p.ValidFrom
	if patch.ValidFrom != nil {
		validFrom = *patch.ValidFrom
	}
	validUntil := p.ValidUntil
	if patch.ClearValidUntil {
		validUntil = nil
	} else if patch.ValidUntil != nil {
		validUntil = patch.ValidUntil
	}
	if validUntil != nil && !validUntil.After(validFrom) {
		return Paper{}, fmt.Errorf("%w: valid_until must be after valid_from", ErrInvalidValidityWindow)
	}

	now := s.now()
	if patch.Replace {
		p.State = StateSuperseded
		p.UpdatedAt = now
		if err := s.store.Update(ctx, p); err != nil {
			return Paper{}, err
		}
		replacement := Paper{
			ID:                ids.Prefixed(ids.PrefixPaper),
			OwnerID:           p.OwnerID,
			Type:              p.Type,
			BusinessContextID: p.BusinessContextID,
			Payload:           pickPayload(patch.Payload, p.Payload),
			State:             StateActive,
			ValidFrom:         validFrom,
			ValidUntil:        validUntil,
			Verification:      VerificationUnverified,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.store.Create(ctx, &replacement); err != nil {
			return Paper{}, err
		}
		s.publish(stream.KindPaperSuperseded, *p)
		s.publish(stream.KindPaperCreated, replacement)
		return replacement, s.trigger(ctx, replacement, OpSuperseded)
	}

	if patch.Payload != nil {
		p.Payload = patch.Payload
	}
	p.ValidFrom = validFrom
	p.ValidUntil = validUntil
	p.UpdatedAt = now
	if err := s.store.Update(ctx, p); err != nil {
		return Paper{}, err
	}
	s.publish(stream.KindPaperUpdated, *p)
	return *p, s.trigger(ctx, *p, OpUpdated)
}

// Deactivate soft-deletes the paper. Historical papers remain stored as
// evidence for past role grants; there is no physical removal.
func (s *Service) Deactivate(ctx context.Context, callerID, id string) (Paper, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return Paper{}, err
	}
	if err := s.authorize(ctx, callerID, *p, "delete"); err != nil {
		return Paper{}, err
	}
	p.State = StateDeactivated
	p.UpdatedAt = s.now()
	if err := s.store.Update(ctx, p); err != nil {
		return Paper{}, err
	}
	s.publish(stream.KindPaperDeactivated, *p)
	return *p, s.trigger(ctx, *p, OpDeactivated)
}

// ExtendValidity pushes the paper's valid_until forward.
func (s *Service) ExtendValidity(ctx context.Context, callerID, id string, newUntil time.Time) (Paper, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return Paper{}, err
	}
	if err := s.authorize(ctx, callerID, *p, "update"); err != nil {
		return Paper{}, err
	}
	if !newUntil.After(p.ValidFrom) {
		return Paper{}, fmt.Errorf("%w: new valid_until %s is at or before valid_from %s",
			ErrInvalidValidityWindow, newUntil.Format(time.RFC3339), p.ValidFrom.Format(time.RFC3339))
	}
	p.ValidUntil = &newUntil
	p.UpdatedAt = s.now()
	if err := s.store.Update(ctx, p); err != nil {
		return Paper{}, err
	}
	s.publish(stream.KindPaperExtended, *p)
	return *p, s.trigger(ctx, *p, OpExtended)
}

// Validate records the outcome of document review. Owners cannot validate
// their own papers; the caller needs a role granting validate on papers.
func (s *Service) Validate(ctx context.Context, callerID, id string, next Verification) (Paper, error) {
	if !next.Valid() {
		return Paper{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, next)
	}
	p, err := s.find(ctx, id)
	if err != nil {
		return Paper{}, err
	}
	if err := s.requireRole(ctx, callerID, *p, "validate"); err != nil {
		return Paper{}, err
	}
	if !allowedVerification(p.Verification, next) {
		return Paper{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Verification, next)
	}
	p.Verification = next
	p.UpdatedAt = s.now()
	if err := s.store.Update(ctx, p); err != nil {
		return Paper{}, err
	}
	// Verification gates some role unlocks, so a recompute is due here too.
	s.publish(stream.KindPaperValidated, *p)
	return *p, s.trigger(ctx, *p, OpValidated)
}

func (s *Service) find(ctx context.Context, id string) (*Paper, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: paper id is required", ErrInvalidInput)
	}
	return s.store.Find(ctx, id)
}

// authorize grants owners directly and defers to the access facade otherwise.
func (s *Service) authorize(ctx context.Context, callerID string, p Paper, action string) error {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return fmt.Errorf("%w: caller id is required", ErrInvalidInput)
	}
	if callerID == p.OwnerID {
		return nil
	}
	return s.requireRole(ctx, callerID, p, action)
}

func (s *Service) requireRole(ctx context.Context, callerID string, p Paper, action string) error {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return fmt.Errorf("%w: caller id is required", ErrInvalidInput)
	}
	if s.authz == nil {
		return ErrForbidden
	}
	ok, err := s.authz.CanManagePaper(ctx, callerID, p, action)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// trigger runs the synchronous recomputation for the owner. The paper write
// is already committed at this point: a failure here propagates so the
// caller can retry recomputation, but it does not undo the mutation.
func (s *Service) trigger(ctx context.Context, p Paper, op ChangeOp) error {
	if s.recompute == nil {
		return nil
	}
	return s.recompute.PaperChanged(ctx, Change{
		PaperID:           p.ID,
		OwnerID:           p.OwnerID,
		BusinessContextID: p.BusinessContextID,
		Op:                op,
	})
}

func (s *Service) publish(kind string, p Paper) {
	if s.events == nil {
		return
	}
	s.events.Publish(stream.Event{
		Kind:              kind,
		IdentityID:        p.OwnerID,
		PaperID:           p.ID,
		BusinessContextID: p.BusinessContextID,
	})
}

func allowedVerification(from, to Verification) bool {
	if to == VerificationRejected {
		return from != VerificationRejected
	}
	switch from {
	case VerificationUnverified:
		return to == VerificationPending
	case VerificationPending:
		return to == VerificationVerified
	default:
		return false
	}
}

func pickPayload(patch, existing map[string]any) map[string]any {
	if patch != nil {
		return patch
	}
	return existing
}
