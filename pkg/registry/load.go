package registry

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/coolbeans/planfinder/pkg/types"
)

// Sources names the three configuration files a registry is built from.
type Sources struct {
	// Organisations is the canonical organisation register CSV.
	Organisations string

	// Successors is the successor mapping JSON file.
	Successors string

	// JointPlans is the joint local plan mapping JSON file.
	JointPlans string
}

// Load reads, decodes, and validates all three sources. Any structural
// problem fails the whole load with a ConfigError.
func Load(sources Sources) (*Registry, error) {
	organisations, err := loadOrganisationsFile(sources.Organisations)
	if err != nil {
		return nil, err
	}
	successors, err := loadSuccessorsFile(sources.Successors)
	if err != nil {
		return nil, err
	}
	jointPlans, err := loadJointPlansFile(sources.JointPlans)
	if err != nil {
		return nil, err
	}
	return New(organisations, successors, jointPlans)
}

// successorsFile mirrors the on-disk successor mapping format.
type successorsFile struct {
	Successors map[string]successorEntry `json:"successors"`
}

type successorEntry struct {
	Name             string `json:"name"`
	EndDate          string `json:"end-date"`
	Successor        string `json:"successor"`
	SuccessorName    string `json:"successor-name"`
	SuccessorWebsite string `json:"successor-website"`
	Notes            string `json:"notes,omitempty"`
}

func loadSuccessorsFile(path string) ([]*types.SuccessorMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read successor mappings: %w", err)
	}
	return ParseSuccessors(data)
}

// ParseSuccessors decodes the successor mapping JSON document.
func ParseSuccessors(data []byte) ([]*types.SuccessorMapping, error) {
	var file successorsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{Source: "successors", Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}

	mappings := make([]*types.SuccessorMapping, 0, len(file.Successors))
	for key, entry := range file.Successors {
		endDate, err := parseISODate(entry.EndDate)
		if err != nil {
			return nil, configError("successors", key, "invalid end-date %q: %v", entry.EndDate, err)
		}
		mappings = append(mappings, &types.SuccessorMapping{
			Defunct:          types.AuthorityID(key),
			Name:             entry.Name,
			EndDate:          endDate,
			Successor:        types.AuthorityID(entry.Successor),
			SuccessorName:    entry.SuccessorName,
			SuccessorWebsite: entry.SuccessorWebsite,
			Notes:            entry.Notes,
		})
	}
	return mappings, nil
}

// jointPlanEntry mirrors the on-disk joint plan mapping format. The file
// is a single JSON object keyed by member authority identifier.
type jointPlanEntry struct {
	Name               string   `json:"name"`
	PlanName           string   `json:"joint-plan-name"`
	Authorities        []string `json:"joint-plan-authorities"`
	Website            string   `json:"joint-plan-website"`
	Notes              string   `json:"notes,omitempty"`
	ScrapingDisallowed bool     `json:"automated-scraping-disallowed,omitempty"`
}

// legacyExclusionPhrase is the informal notes convention that predates the
// structured automated-scraping-disallowed field. The loader promotes it
// so legacy files behave identically to flagged ones.
const legacyExclusionPhrase = "excluded from automated scraping"

func loadJointPlansFile(path string) ([]*types.JointPlanMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read joint plan mappings: %w", err)
	}
	return ParseJointPlans(data)
}

// ParseJointPlans decodes the joint plan mapping JSON document.
func ParseJointPlans(data []byte) ([]*types.JointPlanMapping, error) {
	var entries map[string]jointPlanEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &ConfigError{Source: "joint-plans", Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}

	mappings := make([]*types.JointPlanMapping, 0, len(entries))
	for key, entry := range entries {
		members := make([]types.AuthorityID, 0, len(entry.Authorities))
		for _, member := range entry.Authorities {
			members = append(members, types.AuthorityID(member))
		}
		disallowed := entry.ScrapingDisallowed
		if !disallowed && strings.Contains(strings.ToLower(entry.Notes), legacyExclusionPhrase) {
			disallowed = true
		}
		mappings = append(mappings, &types.JointPlanMapping{
			Member:             types.AuthorityID(key),
			MemberName:         entry.Name,
			PlanName:           entry.PlanName,
			Website:            entry.Website,
			Members:            members,
			ScrapingDisallowed: disallowed,
			Notes:              entry.Notes,
		})
	}
	return mappings, nil
}

func loadOrganisationsFile(path string) ([]*types.OrganisationRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read organisation register: %w", err)
	}
	defer file.Close()
	return ParseOrganisations(file)
}

// Register column positions used when a header name is absent, matching
// the upstream register export.
const (
	fallbackLPAIdx     = 12
	fallbackNameIdx    = 14
	fallbackOrgIdx     = 19
	fallbackWebsiteIdx = 27
)

// ParseOrganisations decodes the organisation register CSV. Columns are
// located by header name with positional fallbacks for the upstream
// export layout. Rows without both a name and an identifier are skipped.
func ParseOrganisations(r io.Reader) ([]*types.OrganisationRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &ConfigError{Source: "organisations", Reason: fmt.Sprintf("missing header row: %v", err)}
	}

	nameIdx := columnIndex(header, "name", fallbackNameIdx)
	orgIdx := columnIndex(header, "organisation", fallbackOrgIdx)
	websiteIdx := columnIndex(header, "website", fallbackWebsiteIdx)
	lpaIdx := columnIndex(header, "local-planning-authority", fallbackLPAIdx)
	altIdx := columnIndex(header, "alternate-names", -1)
	typeIdx := columnIndex(header, "organisation-type", -1)

	var records []*types.OrganisationRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ConfigError{Source: "organisations", Reason: fmt.Sprintf("malformed row: %v", err)}
		}

		name := field(row, nameIdx)
		id := field(row, orgIdx)
		if name == "" || id == "" {
			continue
		}

		records = append(records, &types.OrganisationRecord{
			ID:                     types.OrganisationID(id),
			Name:                   name,
			AlternateNames:         splitAlternateNames(field(row, altIdx)),
			Type:                   orgTypeForID(id, field(row, typeIdx)),
			Website:                field(row, websiteIdx),
			LocalPlanningAuthority: field(row, lpaIdx),
		})
	}
	return records, nil
}

// columnIndex finds a header column by name, falling back to a fixed
// position when the name is absent. A negative fallback means the column
// is optional.
func columnIndex(header []string, name string, fallback int) int {
	for i, column := range header {
		if column == name {
			return i
		}
	}
	return fallback
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// splitAlternateNames splits the semicolon-separated alternate-names
// column, preserving order and dropping empty segments.
func splitAlternateNames(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ";")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

// orgTypeForID derives the organisation type, preferring an explicit
// organisation-type column and falling back to the identifier namespace.
func orgTypeForID(id, explicit string) types.OrgType {
	switch explicit {
	case string(types.OrgTypeAuthority), string(types.OrgTypeJointPlanning), string(types.OrgTypeOther):
		return types.OrgType(explicit)
	}
	switch {
	case strings.HasPrefix(id, "local-authority:"):
		return types.OrgTypeAuthority
	case strings.HasPrefix(id, "joint-planning-authority:"):
		return types.OrgTypeJointPlanning
	default:
		return types.OrgTypeOther
	}
}

func parseISODate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	return time.Parse("2006-01-02", value)
}
