package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Entity prefixes keep identifiers self-describing in logs and audit trails.
const (
	PrefixIdentity = "idn"
	PrefixPaper    = "ppr"
	PrefixRole     = "crl"
	PrefixBusiness = "biz"
)

// Prefixed returns a new identifier carrying an entity prefix, e.g. "ppr_01H...".
func Prefixed(prefix string) string {
	return prefix + "_" + New()
}

// HasPrefix reports whether id carries the given entity prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"_")
}
