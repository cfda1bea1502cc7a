/*
terms.go - Term↔Code Resolver

PURPOSE:
  Special codes carry a stable Term ("sunday-rest") next to the letters
  users see ("RX"). Planners may rename letters at will; the term does
  not move. This resolver is the process-wide memo of term → letters.

LIFECYCLE:
  - Load once per process from the repository (Ensure)
  - Refresh after any special-code edit (Refresh replaces the map wholesale)
  - A missing term falls back to a hard-coded default (holiday-leave → VV)

  Readers never observe a partial map: Refresh builds a new map and swaps
  it under the write lock.

SEE ALSO:
  - codebook.go: per-run lookup of letters → CodeInfo (terms included)
*/
package roster

import (
	"context"
	"sync"
)

// DefaultTermCodes are used when no special code owns a term.
var DefaultTermCodes = map[Term]string{
	TermHolidayLeave:     "VV",
	TermSundayRest:       "RX",
	TermSaturdayRest:     "CX",
	TermSick:             "Z",
	TermCompensationDay:  "CD",
	TermReductionOfHours: "ADV",
}

// SystemTerms in display order.
var SystemTerms = []Term{
	TermHolidayLeave, TermSundayRest, TermSaturdayRest,
	TermSick, TermCompensationDay, TermReductionOfHours,
}

// TermResolver maps terms to their current letters.
type TermResolver struct {
	mu      sync.RWMutex
	codes   map[Term]SpecialCode
	byCode  map[string]Term
	loaded  bool
	version int
}

var (
	defaultResolver     *TermResolver
	defaultResolverOnce sync.Once
)

// Terms returns the process-wide resolver.
func Terms() *TermResolver {
	defaultResolverOnce.Do(func() {
		defaultResolver = NewTermResolver()
	})
	return defaultResolver
}

func NewTermResolver() *TermResolver {
	return &TermResolver{codes: map[Term]SpecialCode{}, byCode: map[string]Term{}}
}

// Ensure loads the mapping from repo on first use.
func (r *TermResolver) Ensure(ctx context.Context, repo Repository) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}
	return r.Reload(ctx, repo)
}

// Reload re-reads special codes from repo.
func (r *TermResolver) Reload(ctx context.Context, repo Repository) error {
	codes, err := repo.SpecialCodesAll(ctx)
	if err != nil {
		return err
	}
	r.Refresh(codes)
	return nil
}

// Refresh replaces the mapping with the terms owned by codes.
func (r *TermResolver) Refresh(codes []SpecialCode) {
	next := make(map[Term]SpecialCode)
	byCode := make(map[string]Term)
	for _, c := range codes {
		if c.Term == "" {
			continue
		}
		next[c.Term] = c
		byCode[c.Code] = c.Term
	}
	r.mu.Lock()
	r.codes = next
	r.byCode = byCode
	r.loaded = true
	r.version++
	r.mu.Unlock()
}

// Invalidate forces the next Ensure to reload.
func (r *TermResolver) Invalidate() {
	r.mu.Lock()
	r.loaded = false
	r.mu.Unlock()
}

// Code returns the letters for term, or its default.
func (r *TermResolver) Code(term Term) string {
	r.mu.RLock()
	c, ok := r.codes[term]
	r.mu.RUnlock()
	if ok {
		return c.Code
	}
	return DefaultTermCodes[term]
}

// TermOf returns the term owned by the special code with these letters.
func (r *TermResolver) TermOf(letters string) (Term, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byCode[letters]
	return t, ok
}

// Mapping returns term → letters for every system term, defaults filled in.
func (r *TermResolver) Mapping() map[Term]string {
	out := make(map[Term]string, len(SystemTerms))
	for _, t := range SystemTerms {
		out[t] = r.Code(t)
	}
	r.mu.RLock()
	for t, c := range r.codes {
		out[t] = c.Code
	}
	r.mu.RUnlock()
	return out
}

// Version increments on every Refresh.
func (r *TermResolver) Version() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}
