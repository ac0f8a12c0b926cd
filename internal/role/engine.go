package role

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"smena.org/internal/obs"
	"smena.org/internal/paper"
	"smena.org/internal/stream"
)

const defaultQueryTimeout = 5 * time.Second

// Engine derives computed roles for an identity from its valid papers and
// replaces the identity's snapshot atomically. It implements
// paper.Recomputer, so every paper mutation re-runs it for the owner.
type Engine struct {
	papers    paper.Store
	snapshots SnapshotStore
	events    *stream.Stream

	queryTimeout time.Duration
	now          func() time.Time

	// Per-identity locks: two concurrent recomputations for the same
	// identity must not interleave their replace step. Different
	// identities never contend.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithQueryTimeout bounds the paper-store read; a timeout surfaces as
// ErrComputationUnavailable.
func WithQueryTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.queryTimeout = d
		}
	}
}

// WithClock overrides the validity-evaluation instant. Test use.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEvents publishes a roles.recomputed event after every successful run.
func WithEvents(s *stream.Stream) EngineOption {
	return func(e *Engine) { e.events = s }
}

// NewEngine constructs the role computation engine.
func NewEngine(papers paper.Store, snapshots SnapshotStore, opts ...EngineOption) *Engine {
	e := &Engine{
		papers:       papers,
		snapshots:    snapshots,
		queryTimeout: defaultQueryTimeout,
		now:          func() time.Time { return time.Now().UTC() },
		locks:        make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeRoles recomputes the full role set for the identity and replaces
// its snapshot. Idempotent: unchanged paper state reproduces the same set
// apart from ComputedAt. On store failure the previous snapshot remains
// authoritative and ErrComputationUnavailable is returned.
func (e *Engine) ComputeRoles(ctx context.Context, identityID string) ([]ComputedRole, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, fmt.Errorf("%w: identity id is required", ErrComputationUnavailable)
	}

	lock := e.lockFor(identityID)
	lock.Lock()
	defer lock.Unlock()

	readCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	papers, err := e.papers.ListByOwner(readCtx, identityID)
	if err != nil {
		obs.ObserveRecomputation("error")
		return nil, fmt.Errorf("%w: read papers: %v", ErrComputationUnavailable, err)
	}

	roles := e.derive(identityID, papers)

	if err := e.snapshots.Replace(ctx, identityID, roles); err != nil {
		obs.ObserveRecomputation("error")
		return nil, fmt.Errorf("%w: replace snapshot: %v", ErrComputationUnavailable, err)
	}
	obs.ObserveRecomputation("ok")

	if e.events != nil {
		names := make([]string, len(roles))
		for i, r := range roles {
			names[i] = string(r.Role)
		}
		e.events.Publish(stream.Event{
			Kind:       stream.KindRolesRecomputed,
			IdentityID: identityID,
			Roles:      names,
		})
	}
	return roles, nil
}

// Roles returns the identity's latest snapshot, computing one lazily when
// the identity has never been through the engine.
func (e *Engine) Roles(ctx context.Context, identityID string) ([]ComputedRole, error) {
	roles, err := e.snapshots.Latest(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %v", ErrComputationUnavailable, err)
	}
	if roles != nil {
		return roles, nil
	}
	return e.ComputeRoles(ctx, identityID)
}

// PaperChanged implements paper.Recomputer.
func (e *Engine) PaperChanged(ctx context.Context, change paper.Change) error {
	_, err := e.ComputeRoles(ctx, change.OwnerID)
	return err
}

// derive is the pure computation step: valid papers, grouped by business
// context, evaluated against the unlock rules from highest standing down.
func (e *Engine) derive(identityID string, papers []paper.Paper) []ComputedRole {
	now := e.now()

	groups := make(map[string][]paper.Paper)
	for _, p := range papers {
		if !p.ValidAt(now) {
			continue
		}
		groups[p.BusinessContextID] = append(groups[p.BusinessContextID], p)
	}

	var roles []ComputedRole

	// The Seeker floor is context-free and holds regardless of papers.
	roles = append(roles, ComputedRole{
		ID:         computedID(identityID, Seeker, ""),
		IdentityID: identityID,
		Role:       Seeker,
		ComputedAt: now,
		Active:     true,
	})

	contexts := make([]string, 0, len(groups))
	for bctx := range groups {
		contexts = append(contexts, bctx)
	}
	sort.Strings(contexts)

	for _, bctx := range contexts {
		group := groups[bctx]
		for _, candidate := range Descending() {
			rule, ok := unlockRules[candidate]
			if !ok {
				continue
			}
			sources, matched := matchRule(rule, group)
			if !matched {
				continue
			}
			// Highest reachable role found; materialize it plus every
			// structurally implied lower role in the same context, sharing
			// the same source papers. Permission lookups then never
			// re-walk papers.
			roles = append(roles, newComputed(identityID, candidate, bctx, sources, now))
			for _, implied := range candidate.Inherits() {
				if implied == Seeker {
					continue
				}
				roles = append(roles, newComputed(identityID, implied, bctx, sources, now))
			}
			break
		}
	}

	sort.Slice(roles, func(i, j int) bool {
		if roles[i].BusinessContextID != roles[j].BusinessContextID {
			return roles[i].BusinessContextID < roles[j].BusinessContextID
		}
		return rank(roles[i].Role) > rank(roles[j].Role)
	})
	return roles
}

// matchRule reports whether the group contains a valid paper of every
// required type, and returns the ids of the papers that justify the match.
func matchRule(rule UnlockRule, group []paper.Paper) ([]string, bool) {
	var sources []string
	for _, required := range rule.Required {
		found := false
		for _, p := range group {
			if p.Type != required {
				continue
			}
			if rule.RequireVerified && !p.Verified() {
				continue
			}
			sources = append(sources, p.ID)
			found = true
		}
		if !found {
			return nil, false
		}
	}
	sort.Strings(sources)
	return sources, true
}

func newComputed(identityID string, t Type, bctx string, sources []string, now time.Time) ComputedRole {
	return ComputedRole{
		ID:                computedID(identityID, t, bctx),
		IdentityID:        identityID,
		Role:              t,
		BusinessContextID: bctx,
		SourcePaperIDs:    append([]string(nil), sources...),
		ComputedAt:        now,
		Active:            true,
	}
}

// lockFor returns the per-identity mutex, creating it on first use. Entries
// are never evicted, so the map grows with the number of distinct identities
// seen by this process.
// TODO: evict locks for identities idle past a TTL if the map ever matters
// for memory.
func (e *Engine) lockFor(identityID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	lock, ok := e.locks[identityID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[identityID] = lock
	}
	return lock
}
