package identity

import "time"

// VerificationStatus tracks how far an identity has progressed through
// document verification.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
)

// Valid reports whether s is a known verification status.
func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationUnverified, VerificationPending, VerificationVerified:
		return true
	}
	return false
}

// Identity represents a principal: a natural person or a corporate entity.
// Identities are never deleted, only deactivated.
type Identity struct {
	ID           string             `json:"id"`
	DisplayName  string             `json:"display_name"`
	Verification VerificationStatus `json:"verification_status"`
	Active       bool               `json:"active"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
