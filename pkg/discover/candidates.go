// Package discover produces ordered candidate URLs for an authority's
// local plan website, highest-precedence tier first.
//
// The precedence order is fixed: joint-plan website, successor website,
// the authority's own registered website, then generic domain-pattern
// guesses derived from the authority's name. Each tier only contributes
// when applicable; duplicates across tiers collapse keeping the first
// occurrence; the pattern tier always contributes, so the sequence is
// never empty.
package discover

import (
	"net/url"
	"strings"

	"github.com/coolbeans/planfinder/pkg/registry"
	"github.com/coolbeans/planfinder/pkg/types"
)

// Generator produces candidate URL sequences from a read-only registry.
type Generator struct {
	registry *registry.Registry
}

// NewGenerator creates a generator over the given registry.
func NewGenerator(reg *registry.Registry) *Generator {
	return &Generator{registry: reg}
}

// Candidates returns the ordered, deduplicated candidate sequence for an
// authority. The result is deterministic across runs.
func (generator *Generator) Candidates(id types.AuthorityID) []types.Candidate {
	var candidates []types.Candidate
	seen := make(map[string]bool)

	add := func(rawURL string, tier types.Tier) {
		normalized := NormalizeBaseURL(rawURL)
		if normalized == "" || seen[normalized] {
			return
		}
		seen[normalized] = true
		candidates = append(candidates, types.Candidate{URL: normalized, Tier: tier})
	}

	// Tier 1: joint plan. The shared website reflects where the plan is
	// published today, so it outranks organisational lineage. A plan
	// flagged as excluded from automated scraping skips this tier
	// entirely; the flag is a hard exclusion, not a soft hint.
	if jointPlan, ok := generator.registry.JointPlan(id); ok && !jointPlan.ScrapingDisallowed {
		add(jointPlan.Website, types.TierJointPlan)
	}

	// Tier 2: successor authority.
	if successor, ok := generator.registry.Successor(id); ok {
		add(successor.SuccessorWebsite, types.TierSuccessor)
	}

	// Tier 3: the authority's own registered website, when present.
	authority, known := generator.registry.Authority(id)
	if known && authority.Website != "" {
		add(authority.Website, types.TierOfficialDomain)
	}

	// Tier 4: pattern guesses from the authority name. When the register
	// does not know the authority, guesses fall back to the code so the
	// sequence is still non-empty.
	name := authority.Name
	if name == "" {
		name = id.Code()
	}
	for _, domain := range GuessDomains(name) {
		add("https://"+domain, types.TierPattern)
	}

	return candidates
}

// councilSuffixes are stripped from an authority name before slugifying,
// longest forms first so "metropolitan borough council" collapses cleanly.
var councilSuffixes = []string{
	" metropolitan borough council",
	" borough council",
	" city council",
	" district council",
	" county council",
	" council",
	" metropolitan borough",
}

// GuessDomains constructs the fixed, ordered list of domain guesses for
// an authority name: the slugified name against the common UK
// local-government domain patterns, tried in a fixed priority order.
func GuessDomains(name string) []string {
	slug := Slugify(name)
	if slug == "" {
		return nil
	}
	return []string{
		"www." + slug + ".gov.uk",
		slug + ".gov.uk",
		"www." + slug + "council.gov.uk",
		slug + "council.gov.uk",
	}
}

// Slugify lowercases an authority name, strips council suffixes, and
// removes the remaining spaces: "Bolton Metropolitan Borough Council"
// becomes "bolton".
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range councilSuffixes {
		slug = strings.ReplaceAll(slug, suffix, "")
	}
	slug = strings.ReplaceAll(slug, " & ", " and ")
	return strings.ReplaceAll(strings.TrimSpace(slug), " ", "")
}

// NormalizeBaseURL canonicalizes a base URL for deduplication: scheme
// added when missing, host lowercased, trailing slash trimmed. Returns ""
// for unusable input.
func NormalizeBaseURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return ""
	}
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.Fragment = ""
	return parsed.String()
}
