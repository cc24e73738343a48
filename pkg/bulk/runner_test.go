package bulk

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/coolbeans/planfinder/pkg/probe"
	"github.com/coolbeans/planfinder/pkg/types"
)

// stubResolver resolves from a fixed table and counts calls.
type stubResolver struct {
	resolutions map[types.AuthorityID]probe.Resolution
	calls       atomic.Int32

	mu     sync.Mutex
	probed []types.AuthorityID
}

func (stub *stubResolver) Resolve(_ context.Context, id types.AuthorityID) probe.Resolution {
	stub.calls.Add(1)
	stub.mu.Lock()
	stub.probed = append(stub.probed, id)
	stub.mu.Unlock()

	if resolution, ok := stub.resolutions[id]; ok {
		resolution.AuthorityID = id
		return resolution
	}
	return probe.Resolution{AuthorityID: id, TierIndex: -1}
}

func found(url string, tier types.Tier) probe.Resolution {
	return probe.Resolution{Found: true, URL: url, Tier: tier}
}

func TestRunReportsInInputOrder(t *testing.T) {
	stub := &stubResolver{resolutions: map[types.AuthorityID]probe.Resolution{
		"local-authority:BOL": found("https://www.bolton.gov.uk", types.TierOfficialDomain),
		"local-authority:SOM": found("https://www.somerset.gov.uk", types.TierSuccessor),
	}}

	ids := []types.AuthorityID{
		"local-authority:BOL",
		"local-authority:XXX",
		"local-authority:SOM",
	}
	report := NewRunner(stub, WithWorkers(3)).Run(context.Background(), ids)

	if report.Total != 3 {
		t.Fatalf("Total = %d, want 3", report.Total)
	}
	if report.Resolved != 2 {
		t.Errorf("Resolved = %d, want 2", report.Resolved)
	}
	if report.NotFound != 1 {
		t.Errorf("NotFound = %d, want 1", report.NotFound)
	}
	for i, id := range ids {
		if report.Outcomes[i].AuthorityID != id {
			t.Errorf("Outcomes[%d] = %s, want %s", i, report.Outcomes[i].AuthorityID, id)
		}
	}
	if report.TierCounts[types.TierOfficialDomain] != 1 || report.TierCounts[types.TierSuccessor] != 1 {
		t.Errorf("TierCounts = %v", report.TierCounts)
	}

	notFound := report.NotFoundAuthorities()
	if len(notFound) != 1 || notFound[0] != "local-authority:XXX" {
		t.Errorf("NotFoundAuthorities = %v", notFound)
	}
}

func TestRunSkipsExcludedWithoutResolving(t *testing.T) {
	stub := &stubResolver{resolutions: map[types.AuthorityID]probe.Resolution{
		"local-authority:BOL": found("https://www.bolton.gov.uk", types.TierOfficialDomain),
	}}

	runner := NewRunner(stub, WithExclusions([]types.AuthorityID{"local-authority:BUC"}))
	report := runner.Run(context.Background(), []types.AuthorityID{
		"local-authority:BUC",
		"local-authority:BOL",
	})

	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}
	if report.Resolved != 1 {
		t.Errorf("Resolved = %d, want 1", report.Resolved)
	}
	if stub.calls.Load() != 1 {
		t.Errorf("resolver called %d times, want 1", stub.calls.Load())
	}

	skipped := report.Outcomes[0]
	if !skipped.Skipped || skipped.Resolution != nil {
		t.Errorf("excluded outcome = %+v, want skipped with nil resolution", skipped)
	}
}

func TestRunEveryAuthorityResolvedOnce(t *testing.T) {
	stub := &stubResolver{}
	ids := make([]types.AuthorityID, 0, 50)
	for _, code := range strings.Split("ABCDEFGHIJKLMNOPQRSTUVWXY", "") {
		ids = append(ids, types.AuthorityID("local-authority:"+code+"1"))
		ids = append(ids, types.AuthorityID("local-authority:"+code+"2"))
	}

	report := NewRunner(stub, WithWorkers(8)).Run(context.Background(), ids)

	if report.Total != len(ids) {
		t.Fatalf("Total = %d, want %d", report.Total, len(ids))
	}
	if int(stub.calls.Load()) != len(ids) {
		t.Errorf("resolver called %d times, want %d", stub.calls.Load(), len(ids))
	}
	seen := make(map[types.AuthorityID]bool)
	for _, id := range stub.probed {
		if seen[id] {
			t.Errorf("%s resolved more than once", id)
		}
		seen[id] = true
	}
}

func TestRunProgressCallback(t *testing.T) {
	stub := &stubResolver{resolutions: map[types.AuthorityID]probe.Resolution{
		"local-authority:BOL": found("https://www.bolton.gov.uk", types.TierOfficialDomain),
	}}

	var mu sync.Mutex
	var updates []Progress
	runner := NewRunner(stub, WithWorkers(1), WithProgress(func(progress Progress) {
		mu.Lock()
		updates = append(updates, progress)
		mu.Unlock()
	}))

	runner.Run(context.Background(), []types.AuthorityID{
		"local-authority:BOL",
		"local-authority:XXX",
	})

	if len(updates) != 2 {
		t.Fatalf("progress updates = %d, want 2", len(updates))
	}
	last := updates[len(updates)-1]
	if last.Completed != 2 || last.Total != 2 {
		t.Errorf("final progress = %+v, want 2/2", last)
	}
}

func TestRunStopsDispatchOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var once sync.Once
	stub := &cancellingResolver{onResolve: func() {
		once.Do(cancel)
	}}

	ids := make([]types.AuthorityID, 20)
	for i := range ids {
		ids[i] = types.AuthorityID("local-authority:C" + string(rune('A'+i)))
	}

	report := NewRunner(stub, WithWorkers(1)).Run(ctx, ids)

	// Cancellation during the first resolution stops dispatch; outcomes
	// already produced stay in the report.
	if report.Total >= len(ids) {
		t.Errorf("Total = %d, want fewer than %d after cancellation", report.Total, len(ids))
	}
	if report.Total < 1 {
		t.Errorf("Total = %d, want at least the in-flight outcome", report.Total)
	}
}

// cancellingResolver runs a hook on each call so tests can coordinate
// cancellation with dispatch.
type cancellingResolver struct {
	onResolve func()
}

func (stub *cancellingResolver) Resolve(_ context.Context, id types.AuthorityID) probe.Resolution {
	if stub.onResolve != nil {
		stub.onResolve()
	}
	return probe.Resolution{AuthorityID: id, TierIndex: -1}
}
