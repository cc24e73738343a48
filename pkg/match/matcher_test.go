package match

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coolbeans/planfinder/pkg/registry"
	"github.com/coolbeans/planfinder/pkg/types"
)

func testMatcher(t *testing.T) *Matcher {
	t.Helper()

	organisations := []*types.OrganisationRecord{
		{
			ID:                     "local-authority:BOL",
			Name:                   "Bolton Metropolitan Borough Council",
			AlternateNames:         []string{"Bolton Council"},
			Type:                   types.OrgTypeAuthority,
			Website:                "https://www.bolton.gov.uk",
			LocalPlanningAuthority: "E60000139",
		},
		{
			ID:                     "local-authority:SOM",
			Name:                   "Somerset Council",
			Type:                   types.OrgTypeAuthority,
			Website:                "https://www.somerset.gov.uk",
			LocalPlanningAuthority: "E60000262",
		},
		{
			// The official name of this record doubles as a plausible
			// variant of another; exact official matches must win.
			ID:   "local-authority:KNT",
			Name: "Kent Council",
			Type: types.OrgTypeAuthority,
		},
		{
			ID:             "local-authority:KCC",
			Name:           "Kent County Council",
			AlternateNames: []string{"Kent Council"},
			Type:           types.OrgTypeAuthority,
		},
	}

	reg, err := registry.New(organisations, nil, nil)
	if err != nil {
		t.Fatalf("registry.New() failed: %v", err)
	}
	return NewMatcher(reg)
}

func TestMatchTiers(t *testing.T) {
	matcher := testMatcher(t)

	testCases := []struct {
		name         string
		input        string
		expectedID   types.OrganisationID
		expectedTier types.ConfidenceTier
	}{
		{"exact official name", "Bolton Metropolitan Borough Council", "local-authority:BOL", types.TierExact},
		{"registered variant", "Bolton Council", "local-authority:BOL", types.TierVariant},
		{"case-insensitive official", "BOLTON METROPOLITAN BOROUGH COUNCIL", "local-authority:BOL", types.TierCaseInsensitive},
		{"case-insensitive variant", "bolton council", "local-authority:BOL", types.TierCaseInsensitive},
		{"trimmed whitespace", "  Somerset Council  ", "local-authority:SOM", types.TierExact},
		{"bare place name declined", "Bolton", "", types.TierNone},
		{"substring declined", "Somerset", "", types.TierNone},
		{"unknown organisation", "Atlantis Borough Council", "", types.TierNone},
		{"empty input", "", "", types.TierNone},
		{"whitespace-only input", "   ", "", types.TierNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := matcher.Match(tc.input)
			if result.MatchedID != tc.expectedID {
				t.Errorf("Match(%q).MatchedID = %q, want %q", tc.input, result.MatchedID, tc.expectedID)
			}
			if result.Tier != tc.expectedTier {
				t.Errorf("Match(%q).Tier = %s, want %s", tc.input, result.Tier, tc.expectedTier)
			}
			if result.Input != tc.input {
				t.Errorf("Match(%q).Input = %q, want the original string", tc.input, result.Input)
			}
		})
	}
}

func TestExactOfficialNameBeatsVariant(t *testing.T) {
	// "Kent Council" is KNT's official name and KCC's registered variant.
	// The exact tier runs first, so the official record must win.
	matcher := testMatcher(t)

	result := matcher.Match("Kent Council")
	if result.MatchedID != "local-authority:KNT" {
		t.Errorf("MatchedID = %s, want local-authority:KNT", result.MatchedID)
	}
	if result.Tier != types.TierExact {
		t.Errorf("Tier = %s, want %s", result.Tier, types.TierExact)
	}

	// Under case folding the official name must still outrank the variant.
	folded := matcher.Match("kent council")
	if folded.MatchedID != "local-authority:KNT" {
		t.Errorf("folded MatchedID = %s, want local-authority:KNT", folded.MatchedID)
	}
	if folded.Tier != types.TierCaseInsensitive {
		t.Errorf("folded Tier = %s, want %s", folded.Tier, types.TierCaseInsensitive)
	}
}

func TestMatchCarriesLPACode(t *testing.T) {
	matcher := testMatcher(t)

	result := matcher.Match("Bolton Council")
	if result.LocalPlanningAuthority != "E60000139" {
		t.Errorf("LocalPlanningAuthority = %q, want E60000139", result.LocalPlanningAuthority)
	}
}

func TestMatchAllPreservesOrder(t *testing.T) {
	matcher := testMatcher(t)

	inputs := []string{
		"Somerset Council",
		"Bolton",
		"Bolton Council",
	}
	results := matcher.MatchAll(inputs)

	want := []types.MatchResult{
		{Input: "Somerset Council", MatchedID: "local-authority:SOM", Tier: types.TierExact, LocalPlanningAuthority: "E60000262"},
		{Input: "Bolton", Tier: types.TierNone},
		{Input: "Bolton Council", MatchedID: "local-authority:BOL", Tier: types.TierVariant, LocalPlanningAuthority: "E60000139"},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("MatchAll mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchedPredicate(t *testing.T) {
	matcher := testMatcher(t)

	if !matcher.Match("Somerset Council").Matched() {
		t.Error("exact match reported as unmatched")
	}
	if matcher.Match("Somerset").Matched() {
		t.Error("declined match reported as matched")
	}
}
