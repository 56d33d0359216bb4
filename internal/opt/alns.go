package opt

import (
	"time"

	"fleetopt/internal/model"
)

// SolveOptions tunes the outer search.
type SolveOptions struct {
	Threads          int // parallel independent searches
	ExplorationLevel int // 0..5, scales ruin depth
	TimeLimit        time.Duration
	Seed             int64 // 0 picks a time-based seed
	IterationsLimit  int   // optional per-search iteration cap
}

func (o SolveOptions) withDefaults() SolveOptions {
	if o.Threads <= 0 {
		o.Threads = 4
	}
	if o.ExplorationLevel < 0 {
		o.ExplorationLevel = 0
	}
	if o.ExplorationLevel > 5 {
		o.ExplorationLevel = 5
	}
	if o.TimeLimit <= 0 {
		o.TimeLimit = 10 * time.Second
	}
	return o
}

type Metrics struct {
	RemovalSelects        [2]int // random, related
	InsertSelects         [2]int // greedy, regret2
	Iterations            int
	Improvements          int
	AcceptedWorse         int
	BestCost              int64
	Unassigned            int
	FinalRemovalWeights   [2]float64
	FinalInsertionWeights [2]float64
	Snapshots             []WeightSnapshot
	Repair                RepairStats
}

type WeightSnapshot struct {
	Iteration int
	Removal   [2]float64
	Insertion [2]float64
}

// Solve seeds pinned workloads, runs independent parallel searches until the
// time limit, keeps the best solution, applies the budget repair pass and
// formats the output document. A pinned seed that cannot be scheduled under
// hard timing surfaces as an *InputError.
func Solve(in *Input, opts SolveOptions) (*model.SolutionDoc, Metrics, error) {
	opts = opts.withDefaults()
	start := time.Now()

	// Surface seeding errors before spawning workers.
	if _, err := newSeedSolution(in); err != nil {
		return nil, Metrics{}, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	deadline := start.Add(opts.TimeLimit)

	type result struct {
		sol *searchSolution
		m   Metrics
	}
	results := make(chan result, opts.Threads)
	for w := 0; w < opts.Threads; w++ {
		go func(w int) {
			sol, m := runSearch(in, opts, seed+int64(w), deadline)
			results <- result{sol: sol, m: m}
		}(w)
	}

	var best *searchSolution
	var bestM Metrics
	for w := 0; w < opts.Threads; w++ {
		r := <-results
		if r.sol == nil {
			continue
		}
		if best == nil || r.sol.objective(in).better(best.objective(in)) {
			best = r.sol
			bestM = r.m
		}
	}

	bestM.Repair = RunBudgetRepair(in, best)
	bestM.Unassigned = len(best.unassigned)
	bestM.BestCost = solutionCost(in, best.routes)

	doc := FormatSolution(in, best.routes, best.unassigned, model.ComputingTimesDoc{
		SolvingMs: time.Since(start).Milliseconds(),
	})
	return doc, bestM, nil
}
