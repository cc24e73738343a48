package discover

import (
	"context"

	"github.com/coolbeans/planfinder/pkg/probe"
	"github.com/coolbeans/planfinder/pkg/registry"
	"github.com/coolbeans/planfinder/pkg/types"
)

// CandidateProber is the probing collaborator a Resolver walks candidates
// with. *probe.Prober satisfies it; tests substitute stubs.
type CandidateProber interface {
	Probe(ctx context.Context, id types.AuthorityID, candidates []types.Candidate) probe.Resolution
}

// Resolver composes the candidate generator with a prober: generate the
// tiered candidate sequence for an authority, then walk it in order until
// one resolves.
type Resolver struct {
	generator *Generator
	prober    CandidateProber
}

// NewResolver creates a resolver over a registry and a prober.
func NewResolver(reg *registry.Registry, prober CandidateProber) *Resolver {
	return &Resolver{
		generator: NewGenerator(reg),
		prober:    prober,
	}
}

// Candidates returns the candidate sequence without touching the network.
func (resolver *Resolver) Candidates(id types.AuthorityID) []types.Candidate {
	return resolver.generator.Candidates(id)
}

// Resolve generates candidates for the authority and probes them in
// precedence order.
func (resolver *Resolver) Resolve(ctx context.Context, id types.AuthorityID) probe.Resolution {
	return resolver.prober.Probe(ctx, id, resolver.generator.Candidates(id))
}
