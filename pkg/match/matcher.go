// Package match resolves free-text organisation names against the
// canonical register using a deliberately conservative tiered strategy.
//
// Strategies run in order (exact official-name equality, registered
// alternate-name equality, then case-insensitive equality) and the first
// success wins. There is no edit-distance, substring, or token-overlap
// fallback: an incorrect organisation attribution corrupts a public
// dataset, so the matcher prefers silence over a guess.
package match

import (
	"strings"

	"github.com/coolbeans/planfinder/pkg/registry"
	"github.com/coolbeans/planfinder/pkg/types"
)

// strategy is one pure matching tier over the pre-built indexes.
type strategy struct {
	tier  types.ConfidenceTier
	apply func(name string) (types.OrganisationID, bool)
}

// Matcher resolves organisation names against a registry. It is
// immutable after construction and safe for concurrent use; matching is a
// pure function over the in-memory indexes.
type Matcher struct {
	registry   *registry.Registry
	official   map[string]types.OrganisationID
	variants   map[string]types.OrganisationID
	folded     map[string]types.OrganisationID
	strategies []strategy
}

// NewMatcher builds the tier indexes from the register. Official names
// are indexed ahead of variants in the case-folded index, so an exact
// official-name collision always beats a variant under case folding.
// Within one index, the first register row wins; register order is
// authoritative.
func NewMatcher(reg *registry.Registry) *Matcher {
	matcher := &Matcher{
		registry: reg,
		official: make(map[string]types.OrganisationID),
		variants: make(map[string]types.OrganisationID),
		folded:   make(map[string]types.OrganisationID),
	}

	for _, record := range reg.Organisations() {
		name := strings.TrimSpace(record.Name)
		if _, taken := matcher.official[name]; !taken {
			matcher.official[name] = record.ID
		}
		foldedName := foldCase(name)
		if _, taken := matcher.folded[foldedName]; !taken {
			matcher.folded[foldedName] = record.ID
		}
	}
	// Variants indexed after every official name so that a string which
	// is one record's official name and another record's variant always
	// resolves to the official record.
	for _, record := range reg.Organisations() {
		for _, alternate := range record.AlternateNames {
			variant := strings.TrimSpace(alternate)
			if variant == "" {
				continue
			}
			if _, taken := matcher.variants[variant]; !taken {
				matcher.variants[variant] = record.ID
			}
			foldedVariant := foldCase(variant)
			if _, taken := matcher.folded[foldedVariant]; !taken {
				matcher.folded[foldedVariant] = record.ID
			}
		}
	}

	matcher.strategies = []strategy{
		{types.TierExact, matcher.matchExact},
		{types.TierVariant, matcher.matchVariant},
		{types.TierCaseInsensitive, matcher.matchCaseInsensitive},
	}
	return matcher
}

// Match resolves one organisation-name string to the single best result,
// or a TierNone result when no tier succeeds.
func (matcher *Matcher) Match(name string) types.MatchResult {
	result := types.MatchResult{Input: name, Tier: types.TierNone}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return result
	}

	for _, strategy := range matcher.strategies {
		if id, ok := strategy.apply(trimmed); ok {
			result.MatchedID = id
			result.Tier = strategy.tier
			if record, found := matcher.registry.Organisation(id); found {
				result.LocalPlanningAuthority = record.LocalPlanningAuthority
			}
			return result
		}
	}
	return result
}

// MatchAll resolves a batch of names, one result per input, preserving
// input order. Each element is matched independently of the others.
func (matcher *Matcher) MatchAll(names []string) []types.MatchResult {
	results := make([]types.MatchResult, len(names))
	for i, name := range names {
		results[i] = matcher.Match(name)
	}
	return results
}

// matchExact matches a trimmed input against official names byte-for-byte.
func (matcher *Matcher) matchExact(name string) (types.OrganisationID, bool) {
	id, ok := matcher.official[name]
	return id, ok
}

// matchVariant matches against pre-registered alternate names only;
// variants are never computed.
func (matcher *Matcher) matchVariant(name string) (types.OrganisationID, bool) {
	id, ok := matcher.variants[name]
	return id, ok
}

// matchCaseInsensitive matches under case folding only; no other
// normalization is applied.
func (matcher *Matcher) matchCaseInsensitive(name string) (types.OrganisationID, bool) {
	id, ok := matcher.folded[foldCase(name)]
	return id, ok
}

func foldCase(name string) string {
	return strings.ToLower(name)
}
