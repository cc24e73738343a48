package discover

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/coolbeans/planfinder/pkg/registry"
	"github.com/coolbeans/planfinder/pkg/types"
)

// buildRegistry assembles a registry from fixture data covering every
// precedence combination the generator has to handle.
func buildRegistry(t *testing.T, disallowJointScraping bool) *registry.Registry {
	t.Helper()

	organisations := []*types.OrganisationRecord{
		{
			ID:      "local-authority:BST",
			Name:    "Boston Borough Council",
			Type:    types.OrgTypeAuthority,
			Website: "https://www.boston.gov.uk",
		},
		{
			ID:      "local-authority:SHO",
			Name:    "South Holland District Council",
			Type:    types.OrgTypeAuthority,
			Website: "https://www.sholland.gov.uk",
		},
		{
			ID:      "local-authority:DAC",
			Name:    "Dacorum Borough Council",
			Type:    types.OrgTypeAuthority,
			Website: "https://www.dacorum.gov.uk",
		},
		{
			ID:   "local-authority:SOM",
			Name: "Somerset Council",
			Type: types.OrgTypeAuthority,
		},
		{
			ID:   "local-authority:MEN",
			Name: "Mendip District Council",
			Type: types.OrgTypeAuthority,
		},
	}

	endDate, _ := time.Parse("2006-01-02", "2023-04-01")
	successors := []*types.SuccessorMapping{
		{
			Defunct:          "local-authority:MEN",
			Name:             "Mendip District Council",
			EndDate:          endDate,
			Successor:        "local-authority:SOM",
			SuccessorName:    "Somerset Council",
			SuccessorWebsite: "https://www.somerset.gov.uk",
		},
		{
			// BST carries both a joint plan and a successor mapping so
			// tests can pin the tie-break between the two tiers.
			Defunct:          "local-authority:BST",
			Name:             "Boston Borough Council",
			EndDate:          endDate,
			Successor:        "local-authority:SHO",
			SuccessorName:    "South Holland District Council",
			SuccessorWebsite: "https://www.sholland.gov.uk",
		},
	}

	members := []types.AuthorityID{"local-authority:BST", "local-authority:SHO"}
	jointPlans := []*types.JointPlanMapping{
		{
			Member:             "local-authority:BST",
			MemberName:         "Boston Borough Council",
			PlanName:           "South East Lincolnshire Local Plan",
			Website:            "https://southeastlincslocalplan.org/",
			Members:            members,
			ScrapingDisallowed: disallowJointScraping,
		},
		{
			Member:             "local-authority:SHO",
			MemberName:         "South Holland District Council",
			PlanName:           "South East Lincolnshire Local Plan",
			Website:            "https://southeastlincslocalplan.org/",
			Members:            members,
			ScrapingDisallowed: disallowJointScraping,
		},
	}

	reg, err := registry.New(organisations, successors, jointPlans)
	if err != nil {
		t.Fatalf("registry.New() failed: %v", err)
	}
	return reg
}

func TestJointPlanMembersGetJointWebsiteFirst(t *testing.T) {
	generator := NewGenerator(buildRegistry(t, false))

	for _, id := range []types.AuthorityID{"local-authority:BST", "local-authority:SHO"} {
		candidates := generator.Candidates(id)
		if len(candidates) == 0 {
			t.Fatalf("%s: empty candidate sequence", id)
		}
		first := candidates[0]
		if first.URL != "https://southeastlincslocalplan.org" {
			t.Errorf("%s: first candidate = %s, want the joint plan website", id, first.URL)
		}
		if first.Tier != types.TierJointPlan {
			t.Errorf("%s: first tier = %s, want %s", id, first.Tier, types.TierJointPlan)
		}
	}
}

func TestJointPlanOutranksSuccessor(t *testing.T) {
	// BST has both mappings; the joint plan reflects where the plan is
	// published today, so it must come first.
	generator := NewGenerator(buildRegistry(t, false))

	candidates := generator.Candidates("local-authority:BST")
	if candidates[0].Tier != types.TierJointPlan {
		t.Errorf("first tier = %s, want %s", candidates[0].Tier, types.TierJointPlan)
	}
	if candidates[1].Tier != types.TierSuccessor {
		t.Errorf("second tier = %s, want %s", candidates[1].Tier, types.TierSuccessor)
	}
}

func TestSuccessorFirstWhenNoJointPlan(t *testing.T) {
	generator := NewGenerator(buildRegistry(t, false))

	candidates := generator.Candidates("local-authority:MEN")
	if candidates[0].URL != "https://www.somerset.gov.uk" {
		t.Errorf("first candidate = %s, want the successor website", candidates[0].URL)
	}
	if candidates[0].Tier != types.TierSuccessor {
		t.Errorf("first tier = %s, want %s", candidates[0].Tier, types.TierSuccessor)
	}
}

func TestExcludedJointPlanSkipsTierEntirely(t *testing.T) {
	// The exclusion flag is a hard skip of tier 1, not a reordering: the
	// successor website must come first and the joint plan website must
	// not appear at all.
	generator := NewGenerator(buildRegistry(t, true))

	candidates := generator.Candidates("local-authority:BST")
	if candidates[0].Tier != types.TierSuccessor {
		t.Errorf("first tier = %s, want %s", candidates[0].Tier, types.TierSuccessor)
	}
	for _, candidate := range candidates {
		if candidate.URL == "https://southeastlincslocalplan.org" {
			t.Errorf("excluded joint plan website still present: %s", candidate.URL)
		}
	}
}

func TestOfficialDomainThenPatterns(t *testing.T) {
	generator := NewGenerator(buildRegistry(t, false))

	candidates := generator.Candidates("local-authority:DAC")
	want := []types.Candidate{
		{URL: "https://www.dacorum.gov.uk", Tier: types.TierOfficialDomain},
		{URL: "https://dacorum.gov.uk", Tier: types.TierPattern},
		{URL: "https://www.dacorumcouncil.gov.uk", Tier: types.TierPattern},
		{URL: "https://dacorumcouncil.gov.uk", Tier: types.TierPattern},
	}
	if diff := cmp.Diff(want, candidates); diff != "" {
		t.Errorf("candidate sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestCandidatesNeverEmptyAndNeverDuplicated(t *testing.T) {
	generator := NewGenerator(buildRegistry(t, false))

	ids := []types.AuthorityID{
		"local-authority:BST",
		"local-authority:SHO",
		"local-authority:DAC",
		"local-authority:SOM",
		"local-authority:MEN",
		"local-authority:UNKNOWN", // not in the register at all
	}
	for _, id := range ids {
		candidates := generator.Candidates(id)
		if len(candidates) == 0 {
			t.Errorf("%s: candidate sequence is empty", id)
		}
		seen := make(map[string]bool)
		for _, candidate := range candidates {
			if seen[candidate.URL] {
				t.Errorf("%s: duplicate candidate %s", id, candidate.URL)
			}
			seen[candidate.URL] = true
		}
	}
}

func TestSlugify(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"metropolitan borough", "Bolton Metropolitan Borough Council", "bolton"},
		{"city council", "Manchester City Council", "manchester"},
		{"district council", "South Holland District Council", "southholland"},
		{"plain council", "Somerset Council", "somerset"},
		{"county council", "Kent County Council", "kent"},
		{"ampersand", "Bournemouth & Poole Council", "bournemouthandpoole"},
		{"no suffix", "Greater London Authority", "greaterlondonauthority"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Slugify(tc.input); got != tc.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestGuessDomainsFixedOrder(t *testing.T) {
	want := []string{
		"www.dacorum.gov.uk",
		"dacorum.gov.uk",
		"www.dacorumcouncil.gov.uk",
		"dacorumcouncil.gov.uk",
	}
	if diff := cmp.Diff(want, GuessDomains("Dacorum Borough Council")); diff != "" {
		t.Errorf("GuessDomains mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"trailing slash", "https://southeastlincslocalplan.org/", "https://southeastlincslocalplan.org"},
		{"bare domain", "www.bolton.gov.uk", "https://www.bolton.gov.uk"},
		{"host case", "https://WWW.Bolton.GOV.UK", "https://www.bolton.gov.uk"},
		{"path kept", "https://www.kent.gov.uk/planning/", "https://www.kent.gov.uk/planning"},
		{"empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeBaseURL(tc.input); got != tc.expected {
				t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}
