// Package identity provides the principal corpus for a run: real
// principals loaded from the tenant roster, throwaway principals
// fabricated on demand, and office-to-network-origin resolution.
package identity

import (
	"math/rand"
	"strings"
)

// Principal is one synthetic identity, real or fabricated.
type Principal struct {
	UserPrincipalName string
	Department        string
	OfficeLocation    string
}

// Corpus is the immutable set of real principals for a run.
type Corpus struct {
	principals []Principal
}

// NewCorpus creates a corpus from loaded principals.
func NewCorpus(principals []Principal) *Corpus {
	return &Corpus{principals: principals}
}

// Principals returns all real principals in roster order.
func (c *Corpus) Principals() []Principal {
	return c.principals
}

// Len returns the number of real principals.
func (c *Corpus) Len() int {
	return len(c.principals)
}

// FilterDepartments returns the principals whose department is in the
// allow-list. Matching is exact and case-sensitive, as in the roster.
func (c *Corpus) FilterDepartments(allowed []string) []Principal {
	set := make(map[string]struct{}, len(allowed))
	for _, d := range allowed {
		set[d] = struct{}{}
	}

	var out []Principal
	for _, p := range c.principals {
		if _, ok := set[p.Department]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Sample returns a uniformly chosen principal from the given pool.
// The pool must be non-empty.
func Sample(pool []Principal, rng *rand.Rand) Principal {
	return pool[rng.Intn(len(pool))]
}

// Is reports whether a principal's UPN matches the given identifier,
// ignoring case. UPNs are case-insensitive in the source systems.
func (p Principal) Is(upn string) bool {
	return strings.EqualFold(p.UserPrincipalName, upn)
}
