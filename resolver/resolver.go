package resolver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nicoberrocal/combatlog/catalog"
)

// LinkedGraph is the undirected multigraph of abilities considered
// equivalent for resolution preference purposes (e.g. a job's several
// same-family mitigations that share a buff). Edges are stored
// symmetrically: an ability normalized name maps to every ability it is
// linked to.
type LinkedGraph map[string][]string

// closure returns every ability reachable from start (including start)
// via LinkedGraph edges, via breadth-first traversal.
func (g LinkedGraph) closure(start string) []string {
	if g == nil {
		return []string{start}
	}
	seen := map[string]bool{start: true}
	queue := []string{start}
	out := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
				out = append(out, next)
			}
		}
	}
	return out
}

// Resolver implements the three-step buff classification and the
// closure-preferring list-resolution algorithm of spec §4.7. One
// Resolver is built per encounter, sharing the encounter's catalog and
// config tables; SourceMap accumulates results across casters since
// buff names are global once normalized.
type Resolver struct {
	cat       *catalog.Catalog
	overrides map[string]string   // normalized buff -> override ability
	knownJobs map[string][]string // normalized buff -> candidate jobs, consulted before fuzzy match
	linked    LinkedGraph
	sourceMap *SourceMap
}

// New builds a Resolver. overrides and knownJobs are keyed by normalized
// buff name; linked is the ability-equivalence graph (also normalized
// keys/values).
func New(cat *catalog.Catalog, overrides map[string]string, knownJobs map[string][]string, linked LinkedGraph) *Resolver {
	return &Resolver{
		cat:       cat,
		overrides: overrides,
		knownJobs: knownJobs,
		linked:    linked,
		sourceMap: NewSourceMap(),
	}
}

// SourceMap exposes the encounter's accumulated resolution table.
func (r *Resolver) SourceMap() *SourceMap { return r.sourceMap }

// Classify runs the synchronous steps (1: direct action name, 2:
// hardcoded override) and, failing both, marks the entry Pending without
// blocking: the caller drains Pending entries later via Drain. job is the
// caster's job name, verbatim as the catalog keys it.
func (r *Resolver) Classify(buff, job string) {
	norm := ensureNormalized(buff)
	if _, already := r.sourceMap.Get(norm); already {
		return
	}
	if r.cat.HasAction(job, norm) {
		r.sourceMap.Set(norm, Entry{State: StateDirect, Ability: norm})
		return
	}
	if override, ok := r.overrides[norm]; ok {
		r.sourceMap.Set(norm, Entry{State: StateMapped, Ability: ensureNormalized(override)})
		return
	}
	r.sourceMap.Set(norm, Entry{State: StatePending})
}

// Drain resolves every Pending entry concurrently (bounded at 8 in-flight
// workers) and blocks until all complete or ctx is cancelled. Each task
// reads only its own (buff, job) pair and writes back to exactly one
// SourceMap slot, so results never race each other — the single-writer
// rule from spec §5 is satisfied per-key rather than globally.
func (r *Resolver) Drain(ctx context.Context, jobOf map[string]string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for buffNorm, job := range jobOf {
		buffNorm, job := buffNorm, job
		entry, ok := r.sourceMap.Get(buffNorm)
		if !ok || entry.State != StatePending {
			continue
		}
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			searchJob := job
			if jobs, ok := r.knownJobs[buffNorm]; ok && len(jobs) > 0 {
				searchJob = jobs[0]
			}
			if action, found := r.cat.FindByEffectSubstring(searchJob, buffNorm); found {
				r.sourceMap.Set(buffNorm, Entry{State: StateMapped, Ability: action})
				return nil
			}
			r.sourceMap.Set(buffNorm, Entry{State: StateUnresolved})
			return nil
		})
	}
	return g.Wait()
}

// ResolveList maps buffs to their preferred ability identities for
// mitigation/availability comparisons: for each buff with a resolved
// candidate, it prefers any member of the candidate's linked-ability
// closure that already appears in currentBuffList over the candidate
// itself; Unresolved/Pending buffs pass through unchanged (as their
// original, normalized names). Order is preserved and duplicates removed
// after resolution.
func (r *Resolver) ResolveList(buffs []string, currentBuffList []string) []string {
	current := make(map[string]bool, len(currentBuffList))
	for _, b := range currentBuffList {
		current[ensureNormalized(b)] = true
	}

	seen := make(map[string]bool, len(buffs))
	out := make([]string, 0, len(buffs))
	for _, buff := range buffs {
		norm := ensureNormalized(buff)
		resolved := norm

		if entry, ok := r.sourceMap.Get(norm); ok && (entry.State == StateDirect || entry.State == StateMapped) {
			candidate := entry.Ability
			resolved = candidate
			for _, member := range r.linked.closure(candidate) {
				if member != candidate && current[member] {
					resolved = member
					break
				}
			}
		}

		if !seen[resolved] {
			seen[resolved] = true
			out = append(out, resolved)
		}
	}
	return out
}
