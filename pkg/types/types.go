// Package types defines the identifier and record types shared by the
// registry, candidate generator, prober, and matcher.
package types

import (
	"fmt"
	"strings"
	"time"
)

// AuthorityID identifies a local planning authority, e.g.
// "local-authority:BOL". It is a distinct type from OrganisationID so the
// two cannot be interchanged accidentally.
type AuthorityID string

// String returns the identifier as a plain string.
func (id AuthorityID) String() string { return string(id) }

// Code returns the short code portion of the identifier, the part after
// the namespace prefix ("BOL" for "local-authority:BOL"). Identifiers
// without a prefix are returned unchanged.
func (id AuthorityID) Code() string {
	if i := strings.LastIndex(string(id), ":"); i >= 0 {
		return string(id)[i+1:]
	}
	return string(id)
}

// OrganisationID identifies an organisation in the canonical register.
// For local authorities the organisation id and authority id share the
// same textual form.
type OrganisationID string

// String returns the identifier as a plain string.
func (id OrganisationID) String() string { return string(id) }

// AuthorityID reinterprets the organisation identifier as an authority
// identifier. Only valid for records of type OrgTypeAuthority.
func (id OrganisationID) AuthorityID() AuthorityID { return AuthorityID(id) }

// Authority is the authority view of a register row: the stable code, the
// official name, and the official website (which may be empty or defunct).
type Authority struct {
	ID      AuthorityID
	Name    string
	Website string
}

// SuccessorMapping records the successor of a now-abolished authority.
type SuccessorMapping struct {
	// Defunct is the abolished authority.
	Defunct AuthorityID

	// Name is the abolished authority's name at the time it was wound up.
	Name string

	// EndDate is when the authority ceased to exist.
	EndDate time.Time

	// Successor is the currently-valid authority that absorbed it.
	Successor AuthorityID

	// SuccessorName is the successor's official name.
	SuccessorName string

	// SuccessorWebsite is the successor's website.
	SuccessorWebsite string

	// Notes holds free-text commentary from the mapping file.
	Notes string
}

// JointPlanMapping records one authority's membership of a joint local
// plan published on a shared website.
type JointPlanMapping struct {
	// Member is the authority this entry is keyed by.
	Member AuthorityID

	// MemberName is the member authority's name.
	MemberName string

	// PlanName is the joint plan's name, shared by all member entries.
	PlanName string

	// Website is the shared joint plan website.
	Website string

	// Members is the full membership, including Member itself.
	Members []AuthorityID

	// ScrapingDisallowed marks plans whose website must not be probed
	// automatically (e.g. protected by bot detection). When set, the
	// joint-plan candidate tier is skipped entirely.
	ScrapingDisallowed bool

	// Notes holds free-text commentary from the mapping file.
	Notes string
}

// HasMember reports whether id appears in the membership list.
func (m *JointPlanMapping) HasMember(id AuthorityID) bool {
	for _, member := range m.Members {
		if member == id {
			return true
		}
	}
	return false
}

// OrgType classifies register entries.
type OrgType string

const (
	OrgTypeAuthority     OrgType = "authority"
	OrgTypeJointPlanning OrgType = "joint-planning-authority"
	OrgTypeOther         OrgType = "other"
)

// OrganisationRecord is one row of the canonical organisation register.
type OrganisationRecord struct {
	// ID is the stable organisation identifier.
	ID OrganisationID

	// Name is the official organisation name.
	Name string

	// AlternateNames holds known alternate renderings of the name, in
	// register order. These are pre-registered, not computed.
	AlternateNames []string

	// Type classifies the organisation.
	Type OrgType

	// Website is the organisation's official website, if any.
	Website string

	// LocalPlanningAuthority is the statistical LPA code, if any.
	LocalPlanningAuthority string
}

// ConfidenceTier labels how a name was matched to a register entry.
// Matching is binary per tier; no distance scores are kept.
type ConfidenceTier string

const (
	// TierExact means the input equals an official name byte-for-byte
	// after whitespace trimming.
	TierExact ConfidenceTier = "exact"

	// TierVariant means the input equals a registered alternate name.
	TierVariant ConfidenceTier = "variant"

	// TierCaseInsensitive means the input equals an official or alternate
	// name under case folding only.
	TierCaseInsensitive ConfidenceTier = "case-insensitive"

	// TierNone means the matcher declined to match.
	TierNone ConfidenceTier = "none"
)

// MatchResult is the outcome of matching one organisation-name string.
type MatchResult struct {
	// Input is the string as given to the matcher.
	Input string `json:"input"`

	// MatchedID is the matched organisation, empty when Tier is none.
	MatchedID OrganisationID `json:"matched_id,omitempty"`

	// Tier is the confidence tier of the match.
	Tier ConfidenceTier `json:"tier"`

	// LocalPlanningAuthority is the matched record's LPA code, if any.
	LocalPlanningAuthority string `json:"local_planning_authority,omitempty"`
}

// Matched reports whether a match was found.
func (r MatchResult) Matched() bool { return r.Tier != TierNone && r.MatchedID != "" }

// Tier is one precedence level in the ordered candidate list.
type Tier string

const (
	// TierJointPlan is the shared joint-plan website.
	TierJointPlan Tier = "joint-plan"

	// TierSuccessor is the successor authority's website.
	TierSuccessor Tier = "successor"

	// TierOfficialDomain is the authority's own registered website.
	TierOfficialDomain Tier = "official-domain"

	// TierPattern is a generically constructed domain guess.
	TierPattern Tier = "pattern"
)

// Candidate is one URL guess with the tier that produced it.
type Candidate struct {
	URL  string `json:"url"`
	Tier Tier   `json:"tier"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s (%s)", c.URL, c.Tier)
}
