package role

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"

	"smena.org/internal/ids"
)

// ErrComputationUnavailable signals that the paper store could not be read
// or the snapshot could not be replaced. The previous snapshot stays
// authoritative: recomputation fails closed on change, never open to
// an empty role set.
var ErrComputationUnavailable = errors.New("role: computation unavailable")

// ComputedRole is a derived fact: the identity currently holds a role in a
// business context, justified by the listed source papers. Computed roles
// are replaced wholesale on every recomputation, never patched.
type ComputedRole struct {
	ID                string    `json:"id"`
	IdentityID        string    `json:"identity_id"`
	Role              Type      `json:"role"`
	BusinessContextID string    `json:"business_context_id,omitempty"`
	SourcePaperIDs    []string  `json:"source_paper_ids,omitempty"`
	ComputedAt        time.Time `json:"computed_at"`
	Active            bool      `json:"active"`
}

// computedID derives a stable identifier from the fact's natural key, so a
// recomputation over unchanged papers reproduces the set bit-identically
// apart from ComputedAt.
func computedID(identityID string, role Type, businessContextID string) string {
	sum := sha1.Sum([]byte(identityID + "|" + string(role) + "|" + businessContextID))
	return ids.PrefixRole + "_" + hex.EncodeToString(sum[:8])
}
