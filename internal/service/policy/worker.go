package policy

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"

	domainbuilder "github.com/alanyang/build-mesh/internal/domain/builder"
	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	domainworker "github.com/alanyang/build-mesh/internal/domain/worker"
	portworker "github.com/alanyang/build-mesh/internal/port/worker"
)

// RandomWorker picks uniformly among the candidates so no idle worker is starved by
// always being listed last.
func RandomWorker(_ context.Context, _ domainbuilder.Builder, workers []portworker.WorkerRef, _ domainbr.BuildRequest) (portworker.WorkerRef, bool, error) {
	if len(workers) == 0 {
		return nil, false, nil
	}
	return workers[rand.IntN(len(workers))], true, nil
}

// LeastLoaded picks the worker with the lowest running/max ratio, ties broken by name.
func LeastLoaded(_ context.Context, _ domainbuilder.Builder, workers []portworker.WorkerRef, _ domainbr.BuildRequest) (portworker.WorkerRef, bool, error) {
	if len(workers) == 0 {
		return nil, false, nil
	}
	best := workers[0]
	for _, w := range workers[1:] {
		if loadLess(w.Worker(), best.Worker()) {
			best = w
		}
	}
	return best, true, nil
}

func loadLess(a, b domainworker.Worker) bool {
	// a.Running/a.Max < b.Running/b.Max, cross-multiplied
	l := a.RunningBuilds * max(b.MaxBuilds, 1)
	r := b.RunningBuilds * max(a.MaxBuilds, 1)
	if l != r {
		return l < r
	}
	return a.Name < b.Name
}

// RoundRobin cycles through workers by name, per builder. Every available worker is
// selected once before any is selected twice.
type RoundRobin struct {
	mu   sync.Mutex
	last map[string]string // builder -> last chosen worker name
}

func NewRoundRobin() *RoundRobin {
	return &RoundRobin{last: make(map[string]string)}
}

func (rr *RoundRobin) Next(_ context.Context, b domainbuilder.Builder, workers []portworker.WorkerRef, _ domainbr.BuildRequest) (portworker.WorkerRef, bool, error) {
	if len(workers) == 0 {
		return nil, false, nil
	}
	sorted := make([]portworker.WorkerRef, len(workers))
	copy(sorted, workers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Worker().Name < sorted[j].Worker().Name })

	rr.mu.Lock()
	defer rr.mu.Unlock()

	chosen := sorted[0]
	if last, ok := rr.last[b.Name]; ok {
		for _, w := range sorted {
			if w.Worker().Name > last {
				chosen = w
				break
			}
		}
	}
	rr.last[b.Name] = chosen.Worker().Name
	return chosen, true, nil
}
