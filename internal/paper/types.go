package paper

import "time"

// Type enumerates the fixed set of paper kinds. Each kind either always
// carries a business-context id or never does; see RequiresBusinessContext.
type Type string

const (
	TypeEmploymentContract            Type = "employment_contract"
	TypeAuthorityDelegation           Type = "authority_delegation"
	TypeSupervisorAuthorityDelegation Type = "supervisor_authority_delegation"
	TypeBusinessRegistration          Type = "business_registration"
	TypeFranchiseAgreement            Type = "franchise_agreement"
	TypeFranchiseHQRegistration       Type = "franchise_hq_registration"
)

// Types lists every known paper type.
var Types = []Type{
	TypeEmploymentContract,
	TypeAuthorityDelegation,
	TypeSupervisorAuthorityDelegation,
	TypeBusinessRegistration,
	TypeFranchiseAgreement,
	TypeFranchiseHQRegistration,
}

// Known reports whether t is a member of the fixed enumeration.
func (t Type) Known() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// RequiresBusinessContext reports whether papers of this type are scoped to a
// business context. System-wide types never carry one.
func (t Type) RequiresBusinessContext() bool {
	return t != TypeFranchiseHQRegistration
}

// State is the lifecycle state of a paper. Deactivation is the only form of
// deletion; superseded papers stay behind as audit history when replaced.
type State string

const (
	StateActive      State = "active"
	StateDeactivated State = "deactivated"
	StateSuperseded  State = "superseded"
)

// Verification tracks document review of a single paper.
type Verification string

const (
	VerificationUnverified Verification = "unverified"
	VerificationPending    Verification = "pending"
	VerificationVerified   Verification = "verified"
	VerificationRejected   Verification = "rejected"
)

// Valid reports whether v is a known verification status.
func (v Verification) Valid() bool {
	switch v {
	case VerificationUnverified, VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}

// Paper is a time-bounded document granting standing toward a role for its
// owner, optionally scoped to a business context.
type Paper struct {
	ID                string         `json:"id"`
	OwnerID           string         `json:"owner_id"`
	Type              Type           `json:"type"`
	BusinessContextID string         `json:"business_context_id,omitempty"`
	Payload           map[string]any `json:"payload,omitempty"`
	State             State          `json:"state"`
	ValidFrom         time.Time      `json:"valid_from"`
	ValidUntil        *time.Time     `json:"valid_until,omitempty"`
	Verification      Verification   `json:"verification_status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// ValidAt reports whether the paper counts toward role computation at t.
// The validity window is inclusive on both ends.
func (p Paper) ValidAt(t time.Time) bool {
	if p.State != StateActive {
		return false
	}
	if p.ValidFrom.After(t) {
		return false
	}
	if p.ValidUntil != nil && p.ValidUntil.Before(t) {
		return false
	}
	return true
}

// Verified reports whether the paper itself passed verification.
func (p Paper) Verified() bool {
	return p.Verification == VerificationVerified
}
