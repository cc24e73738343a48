// Package registry loads the successor-authority and joint-local-plan
// mapping tables plus the canonical organisation register into indexed
// in-memory structures and exposes read-only lookups.
//
// All three sources are loaded once at construction. A structurally
// invalid source fails the load outright; the registry never serves
// lookups from partially-valid data, because a broken mapping would
// produce wrong-but-plausible URLs for government data.
package registry

import (
	"fmt"

	"github.com/coolbeans/planfinder/pkg/types"
)

// ConfigError reports a structural problem in one of the configuration
// sources. It is fatal: a registry is never constructed from a source
// that produced one.
type ConfigError struct {
	// Source names the offending file or source ("successors",
	// "joint-plans", "organisations").
	Source string

	// Entry identifies the offending entry within the source, if any.
	Entry string

	// Reason describes what is wrong.
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("%s: entry %s: %s", e.Source, e.Entry, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Reason)
}

// configError builds a ConfigError for an entry.
func configError(source, entry, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Source: source, Entry: entry, Reason: fmt.Sprintf(format, args...)}
}

// Registry is the immutable, indexed view of the three configuration
// sources. It is safe for concurrent readers and is never mutated after
// construction; construct it once and pass it by reference.
type Registry struct {
	successors    map[types.AuthorityID]*types.SuccessorMapping
	jointPlans    map[types.AuthorityID]*types.JointPlanMapping
	organisations map[types.OrganisationID]*types.OrganisationRecord
	order         []types.OrganisationID
}

// New assembles and validates a registry from already-decoded sources.
// Tests construct registries this way from fixture data without touching
// real files; Load is the file-based entry point.
func New(organisations []*types.OrganisationRecord, successors []*types.SuccessorMapping, jointPlans []*types.JointPlanMapping) (*Registry, error) {
	reg := &Registry{
		successors:    make(map[types.AuthorityID]*types.SuccessorMapping, len(successors)),
		jointPlans:    make(map[types.AuthorityID]*types.JointPlanMapping, len(jointPlans)),
		organisations: make(map[types.OrganisationID]*types.OrganisationRecord, len(organisations)),
		order:         make([]types.OrganisationID, 0, len(organisations)),
	}

	seenNames := make(map[string]types.OrganisationID, len(organisations))
	for _, record := range organisations {
		if record.ID == "" {
			return nil, configError("organisations", record.Name, "missing organisation identifier")
		}
		if record.Name == "" {
			return nil, configError("organisations", record.ID.String(), "missing official name")
		}
		if _, exists := reg.organisations[record.ID]; exists {
			return nil, configError("organisations", record.ID.String(), "duplicate organisation identifier")
		}
		if prior, exists := seenNames[record.Name]; exists {
			return nil, configError("organisations", record.ID.String(),
				"official name %q already registered to %s", record.Name, prior)
		}
		seenNames[record.Name] = record.ID
		reg.organisations[record.ID] = record
		reg.order = append(reg.order, record.ID)
	}

	for _, mapping := range successors {
		if err := reg.addSuccessor(mapping); err != nil {
			return nil, err
		}
	}
	// Successor targets must be currently-valid authorities: present in
	// the register and not themselves defunct. Checked after all entries
	// are indexed so ordering in the file does not matter.
	for _, mapping := range reg.successors {
		if _, ok := reg.organisations[types.OrganisationID(mapping.Successor)]; !ok {
			return nil, configError("successors", mapping.Defunct.String(),
				"successor %s is not in the organisation register", mapping.Successor)
		}
		if _, defunct := reg.successors[mapping.Successor]; defunct {
			return nil, configError("successors", mapping.Defunct.String(),
				"successor %s is itself defunct", mapping.Successor)
		}
	}

	for _, mapping := range jointPlans {
		if err := reg.addJointPlan(mapping); err != nil {
			return nil, err
		}
	}
	if err := reg.validateJointPlanSymmetry(); err != nil {
		return nil, err
	}

	return reg, nil
}

func (reg *Registry) addSuccessor(mapping *types.SuccessorMapping) error {
	if mapping.Defunct == "" {
		return configError("successors", "", "missing defunct authority identifier")
	}
	key := mapping.Defunct.String()
	if mapping.Successor == "" {
		return configError("successors", key, "missing successor identifier")
	}
	if mapping.SuccessorWebsite == "" {
		return configError("successors", key, "missing successor website")
	}
	if mapping.EndDate.IsZero() {
		return configError("successors", key, "missing end date")
	}
	if _, exists := reg.successors[mapping.Defunct]; exists {
		// A defunct authority has at most one successor; partial or split
		// mergers are not modeled.
		return configError("successors", key, "duplicate successor mapping")
	}
	reg.successors[mapping.Defunct] = mapping
	return nil
}

func (reg *Registry) addJointPlan(mapping *types.JointPlanMapping) error {
	if mapping.Member == "" {
		return configError("joint-plans", "", "missing member authority identifier")
	}
	key := mapping.Member.String()
	if mapping.PlanName == "" {
		return configError("joint-plans", key, "missing joint plan name")
	}
	if mapping.Website == "" {
		return configError("joint-plans", key, "missing joint plan website")
	}
	if len(mapping.Members) < 2 {
		return configError("joint-plans", key, "joint plan must have at least 2 members, got %d", len(mapping.Members))
	}
	if !mapping.HasMember(mapping.Member) {
		return configError("joint-plans", key, "member list does not include the entry's own authority")
	}
	if _, exists := reg.jointPlans[mapping.Member]; exists {
		return configError("joint-plans", key, "duplicate joint plan entry")
	}
	reg.jointPlans[mapping.Member] = mapping
	return nil
}

// validateJointPlanSymmetry checks that membership lists are mutually
// consistent: every listed co-member has its own entry, that entry lists
// this authority back, and entries for the same plan agree on the
// membership set and website.
func (reg *Registry) validateJointPlanSymmetry() error {
	for id, mapping := range reg.jointPlans {
		for _, member := range mapping.Members {
			other, ok := reg.jointPlans[member]
			if !ok {
				return configError("joint-plans", id.String(),
					"co-member %s has no joint plan entry", member)
			}
			if !other.HasMember(id) {
				return configError("joint-plans", id.String(),
					"co-member %s does not list %s back", member, id)
			}
			if other.PlanName != mapping.PlanName {
				return configError("joint-plans", id.String(),
					"co-member %s belongs to plan %q, expected %q", member, other.PlanName, mapping.PlanName)
			}
			if other.Website != mapping.Website {
				return configError("joint-plans", id.String(),
					"co-member %s has website %q, expected %q", member, other.Website, mapping.Website)
			}
			if len(other.Members) != len(mapping.Members) {
				return configError("joint-plans", id.String(),
					"co-member %s lists %d members, expected %d", member, len(other.Members), len(mapping.Members))
			}
		}
	}
	return nil
}

// Successor returns the successor mapping for a defunct authority.
func (reg *Registry) Successor(id types.AuthorityID) (*types.SuccessorMapping, bool) {
	mapping, ok := reg.successors[id]
	return mapping, ok
}

// JointPlan returns the joint plan mapping an authority is a member of.
func (reg *Registry) JointPlan(id types.AuthorityID) (*types.JointPlanMapping, bool) {
	mapping, ok := reg.jointPlans[id]
	return mapping, ok
}

// Organisation returns the register entry for an organisation.
func (reg *Registry) Organisation(id types.OrganisationID) (*types.OrganisationRecord, bool) {
	record, ok := reg.organisations[id]
	return record, ok
}

// Authority returns the authority view of a register entry: its official
// name and website. The second return is false when the identifier is not
// in the register.
func (reg *Registry) Authority(id types.AuthorityID) (types.Authority, bool) {
	record, ok := reg.organisations[types.OrganisationID(id)]
	if !ok {
		return types.Authority{}, false
	}
	return types.Authority{ID: id, Name: record.Name, Website: record.Website}, true
}

// Organisations returns all register entries in register order.
func (reg *Registry) Organisations() []*types.OrganisationRecord {
	records := make([]*types.OrganisationRecord, 0, len(reg.order))
	for _, id := range reg.order {
		records = append(records, reg.organisations[id])
	}
	return records
}

// AuthorityIDs returns the identifiers of all register entries that are
// planning authorities, in register order. Bulk runs iterate this.
func (reg *Registry) AuthorityIDs() []types.AuthorityID {
	ids := make([]types.AuthorityID, 0, len(reg.order))
	for _, id := range reg.order {
		record := reg.organisations[id]
		if record.Type == types.OrgTypeAuthority {
			ids = append(ids, id.AuthorityID())
		}
	}
	return ids
}

// Len returns the number of organisations in the register.
func (reg *Registry) Len() int {
	return len(reg.organisations)
}
