package opt

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"fleetopt/internal/model"
)

// Ruin-and-recreate search over the per-route feasibility state: roulette
// operator selection, simulated-annealing acceptance, related removal,
// greedy / regret-2 insertion driven by the route predicates.

// searchSolution is one worker's private state: a schedule per vehicle and
// the set of unassigned tasks. A task is a single job or a shipment pickup;
// the matching delivery follows the pickup implicitly.
type searchSolution struct {
	routes     []*TWRoute
	unassigned map[int]bool
}

func (s *searchSolution) clone() *searchSolution {
	c := &searchSolution{
		routes:     make([]*TWRoute, len(s.routes)),
		unassigned: make(map[int]bool, len(s.unassigned)),
	}
	for i, rt := range s.routes {
		c.routes[i] = rt.Clone()
	}
	for t := range s.unassigned {
		c.unassigned[t] = true
	}
	return c
}

// objective orders solutions by unassigned priority weight first, then by
// travel cost.
type objective struct {
	unassigned int
	cost       int64
}

func (a objective) better(b objective) bool {
	if a.unassigned != b.unassigned {
		return a.unassigned < b.unassigned
	}
	return a.cost < b.cost
}

func (s *searchSolution) objective(in *Input) objective {
	weight := 0
	for t := range s.unassigned {
		weight += 1 + in.Jobs[t].Priority
	}
	return objective{unassigned: weight, cost: solutionCost(in, s.routes)}
}

func solutionCost(in *Input, routes []*TWRoute) int64 {
	var total int64
	for _, rt := range routes {
		if rt.Empty() {
			continue
		}
		total += RouteEvalForVehicle(in, rt.VRank, rt.Route).Cost
		total += in.Vehicles[rt.VRank].FixedCost
		total += RoutePenaltySum(in, rt.VRank, rt.Route)
	}
	return total
}

func singleDeliveriesOf(in *Input, jobs []int) model.Amount {
	md := in.ZeroAmount().Clone()
	for _, jr := range jobs {
		if in.Jobs[jr].Kind == model.JobSingle {
			md.AddInPlace(in.Jobs[jr].Delivery)
		}
	}
	return md
}

// newSeedSolution builds per-vehicle schedules and binds seeded (pinned)
// workloads. Under soft timing the seed is placed relaxed, ignoring time
// windows; under hard timing an unschedulable seed is an input error.
func newSeedSolution(in *Input) (*searchSolution, error) {
	s := &searchSolution{
		routes:     make([]*TWRoute, len(in.Vehicles)),
		unassigned: make(map[int]bool),
	}
	seeded := make(map[int]bool)
	for v := range in.Vehicles {
		tw, err := NewTWRoute(in, v)
		if err != nil {
			return nil, err
		}
		steps := in.VehicleStepRanks(v)
		if len(steps) > 0 {
			if in.PinnedSoftTiming() {
				tw.SeedRelaxedFromJobRanks(steps)
			} else {
				md := singleDeliveriesOf(in, steps)
				if !tw.RawRoute.IsValidAdditionForCapacityInclusion(md, steps, 0, 0) ||
					!tw.IsValidRangeAdditionForTW(md, steps, 0, 0) {
					return nil, inputErrorf("infeasible seeded route for vehicle %d", in.Vehicles[v].ID)
				}
				tw.Replace(md, steps, 0, 0)
			}
			for _, jr := range steps {
				if in.Jobs[jr].Kind != model.JobDelivery {
					seeded[jr] = true
				}
			}
		}
		s.routes[v] = tw
	}
	for jr := range in.Jobs {
		if in.Jobs[jr].Kind == model.JobDelivery {
			continue
		}
		if !seeded[jr] {
			s.unassigned[jr] = true
		}
	}
	return s, nil
}

func runSearch(in *Input, opts SolveOptions, seed int64, deadline time.Time) (*searchSolution, Metrics) {
	rng := rand.New(rand.NewSource(seed))

	curr, err := newSeedSolution(in)
	if err != nil {
		return nil, Metrics{}
	}
	insertRegret(in, curr, sortedTasks(in, curr.unassigned))
	improveRelocate(in, curr)

	best := curr.clone()
	bestObj := best.objective(in)
	currObj := bestObj

	remW := [2]float64{1, 1} // random, related
	insW := [2]float64{1, 1} // greedy, regret2
	temp := float64(currObj.cost)*0.02 + 1
	cool := 0.995
	maxK := 2 + opts.ExplorationLevel

	m := Metrics{BestCost: bestObj.cost}
	snapshotEvery := 50

	for time.Now().Before(deadline) {
		m.Iterations++
		if opts.IterationsLimit > 0 && m.Iterations >= opts.IterationsLimit {
			break
		}

		cand := curr.clone()
		k := 1 + rng.Intn(maxK)
		op := selectOp(remW[:], rng)
		m.RemovalSelects[op]++
		switch op {
		case 0:
			removeRandomTasks(in, cand, k, rng)
		case 1:
			removeRelatedTasks(in, cand, k, rng)
		}
		ip := selectOp(insW[:], rng)
		m.InsertSelects[ip]++
		pending := sortedTasks(in, cand.unassigned)
		switch ip {
		case 0:
			insertGreedy(in, cand, pending)
		case 1:
			insertRegret(in, cand, pending)
		}
		if m.Iterations%32 == 0 {
			improveRelocate(in, cand)
		}

		candObj := cand.objective(in)
		accepted := candObj.better(currObj)
		if !accepted && candObj.unassigned == currObj.unassigned {
			delta := float64(candObj.cost - currObj.cost)
			accepted = rng.Float64() < math.Exp(-delta/(temp+1e-9))
		}
		if accepted {
			curr, currObj = cand, candObj
			if candObj.better(bestObj) {
				best, bestObj = cand.clone(), candObj
				remW[op] += 0.1
				insW[ip] += 0.1
				m.Improvements++
				m.BestCost = bestObj.cost
			} else {
				remW[op] += 0.01
				insW[ip] += 0.01
				m.AcceptedWorse++
			}
		} else {
			remW[op] = math.Max(0.01, remW[op]*0.999)
			insW[ip] = math.Max(0.01, insW[ip]*0.999)
		}
		temp *= cool

		if m.Iterations%snapshotEvery == 0 {
			m.Snapshots = append(m.Snapshots, WeightSnapshot{
				Iteration: m.Iterations,
				Removal:   remW,
				Insertion: insW,
			})
		}
	}

	improveRelocate(in, best)
	m.FinalRemovalWeights = remW
	m.FinalInsertionWeights = insW
	m.Unassigned = len(best.unassigned)
	m.BestCost = solutionCost(in, best.routes)
	return best, m
}

// sortedTasks orders unassigned tasks for deterministic insertion: priority
// descending, then budget descending, then rank.
func sortedTasks(in *Input, unassigned map[int]bool) []int {
	tasks := make([]int, 0, len(unassigned))
	for t := range unassigned {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(a, b int) bool {
		ja, jb := &in.Jobs[tasks[a]], &in.Jobs[tasks[b]]
		if ja.Priority != jb.Priority {
			return ja.Priority > jb.Priority
		}
		if ja.Budget != jb.Budget {
			return ja.Budget > jb.Budget
		}
		return tasks[a] < tasks[b]
	})
	return tasks
}

// taskRef locates an assigned task within a solution. deliveryRank is -1 for
// singles.
type taskRef struct {
	task         int
	vRank        int
	rank         int
	deliveryRank int
}

func removableTasks(in *Input, sol *searchSolution) []taskRef {
	var refs []taskRef
	for v, rt := range sol.routes {
		for rank := 0; rank < len(rt.Route); rank++ {
			jr := rt.Route[rank]
			if in.JobIsPinned(jr) {
				continue
			}
			switch in.Jobs[jr].Kind {
			case model.JobSingle:
				refs = append(refs, taskRef{task: jr, vRank: v, rank: rank, deliveryRank: -1})
			case model.JobPickup:
				dr := rank + 1
				for dr < len(rt.Route) && rt.Route[dr] != jr+1 {
					dr++
				}
				refs = append(refs, taskRef{task: jr, vRank: v, rank: rank, deliveryRank: dr})
			}
		}
	}
	return refs
}

// removeTask takes an assigned task out of its route, moving it (and its
// delivery for shipments) to the unassigned set. Returns false when the
// removal fails the route's own validity checks.
func removeTask(in *Input, sol *searchSolution, ref taskRef) bool {
	rt := sol.routes[ref.vRank]
	if ref.deliveryRank < 0 {
		if !rt.IsValidRemoval(ref.rank, 1) {
			return false
		}
		rt.Remove(ref.rank, 1)
	} else {
		between := append([]int(nil), rt.Route[ref.rank+1:ref.deliveryRank]...)
		md := singleDeliveriesOf(in, between)
		if !rt.IsValidRangeAdditionForTW(md, between, ref.rank, ref.deliveryRank+1) {
			return false
		}
		rt.Replace(md, between, ref.rank, ref.deliveryRank+1)
	}
	sol.unassigned[ref.task] = true
	return true
}

func removeRandomTasks(in *Input, sol *searchSolution, k int, rng *rand.Rand) {
	refs := removableTasks(in, sol)
	rng.Shuffle(len(refs), func(i, j int) { refs[i], refs[j] = refs[j], refs[i] })
	removed := 0
	for _, ref := range refs {
		if removed >= k {
			break
		}
		// Positions shift after each removal, re-resolve.
		if cur, ok := resolveTask(in, sol, ref.task); ok && removeTask(in, sol, cur) {
			removed++
		}
	}
}

// removeRelatedTasks removes a seed task plus its nearest relatives by travel
// duration and time-window overlap.
func removeRelatedTasks(in *Input, sol *searchSolution, k int, rng *rand.Rand) {
	refs := removableTasks(in, sol)
	if len(refs) == 0 {
		return
	}
	seedRef := refs[rng.Intn(len(refs))]
	seedJob := &in.Jobs[seedRef.task]

	type scored struct {
		task  int
		score int64
	}
	rel := make([]scored, 0, len(refs))
	for _, ref := range refs {
		if ref.task == seedRef.task {
			continue
		}
		j := &in.Jobs[ref.task]
		geo := in.Duration(ref.vRank, seedJob.Location, j.Location)
		overlap := twOverlap(seedJob.TWs[0], j.TWs[0])
		rel = append(rel, scored{task: ref.task, score: geo - overlap/4})
	}
	sort.Slice(rel, func(a, b int) bool { return rel[a].score < rel[b].score })

	targets := []int{seedRef.task}
	for i := 0; i < len(rel) && len(targets) < k; i++ {
		targets = append(targets, rel[i].task)
	}
	for _, t := range targets {
		if cur, ok := resolveTask(in, sol, t); ok {
			removeTask(in, sol, cur)
		}
	}
}

func resolveTask(in *Input, sol *searchSolution, task int) (taskRef, bool) {
	for v, rt := range sol.routes {
		for rank, jr := range rt.Route {
			if jr != task {
				continue
			}
			if in.Jobs[task].Kind == model.JobSingle {
				return taskRef{task: task, vRank: v, rank: rank, deliveryRank: -1}, true
			}
			dr := rank + 1
			for dr < len(rt.Route) && rt.Route[dr] != task+1 {
				dr++
			}
			return taskRef{task: task, vRank: v, rank: rank, deliveryRank: dr}, true
		}
	}
	return taskRef{}, false
}

func twOverlap(a, b model.TimeWindow) int64 {
	start := max64(a.Start, b.Start)
	end := min64(a.End, b.End)
	if end < start {
		return 0
	}
	return end - start
}

// insertionChoice is a scored feasible placement for one task.
type insertionChoice struct {
	ok           bool
	vRank        int
	rank         int // insertion rank; pickup rank for shipments
	deliveryRank int // -1 for singles
	cost         int64
	modified     []int        // replace payload for shipments
	between      model.Amount // single-job deliveries of the payload
}

// bestInsertionsFor scans every route and rank for the cheapest and
// second-cheapest feasible placements of the task.
func bestInsertionsFor(in *Input, sol *searchSolution, task int) (best, second insertionChoice) {
	best.cost = math.MaxInt64
	second.cost = math.MaxInt64
	j := &in.Jobs[task]

	consider := func(c insertionChoice) {
		c.ok = true
		if c.cost < best.cost {
			second = best
			best = c
		} else if c.cost < second.cost {
			second = c
		}
	}

	for v, rt := range sol.routes {
		if !in.VehicleOKWithJob(v, task) {
			continue
		}
		if j.Kind == model.JobSingle {
			for rank := 0; rank <= len(rt.Route); rank++ {
				if !rt.IsValidAdditionForCapacity(j.Pickup, j.Delivery, rank) {
					continue
				}
				if !rt.IsValidAdditionForTW(task, rank) {
					continue
				}
				consider(insertionChoice{
					vRank:        v,
					rank:         rank,
					deliveryRank: -1,
					cost:         AdditionCost(in, task, v, rt.Route, rank).Cost,
				})
			}
			continue
		}

		// Shipment: try every (pickup, delivery) rank pair, simulating the
		// modified range through the inclusion predicates.
		for pr := 0; pr <= len(rt.Route); pr++ {
			if !rt.IsValidAdditionForLoad(j.Pickup, pr) {
				continue
			}
			head := make([]int, 1, len(rt.Route)-pr+2)
			head[0] = task
			for dr := pr; dr <= len(rt.Route); dr++ {
				if dr > pr {
					head = append(head, rt.Route[dr-1])
				}
				seq := make([]int, 0, len(head)+1)
				seq = append(seq, head...)
				seq = append(seq, task+1)

				md := singleDeliveriesOf(in, seq)
				if !rt.IsValidAdditionForCapacityInclusion(md, seq, pr, dr) {
					continue
				}
				if !rt.IsValidRangeAdditionForTW(md, seq, pr, dr) {
					continue
				}
				deliveryAfter := dr + 1
				if dr == pr {
					deliveryAfter = pr + 1
				}
				consider(insertionChoice{
					vRank:        v,
					rank:         pr,
					deliveryRank: dr,
					cost:         AdditionCostPD(in, task, v, rt.Route, pr, deliveryAfter).Cost,
					modified:     seq,
					between:      md,
				})
			}
		}
	}
	return best, second
}

func commitInsertion(sol *searchSolution, task int, c insertionChoice) {
	rt := sol.routes[c.vRank]
	if c.deliveryRank < 0 {
		rt.Add(task, c.rank)
	} else {
		rt.Replace(c.between, c.modified, c.rank, c.deliveryRank)
	}
	delete(sol.unassigned, task)
}

// insertGreedy repeatedly commits the globally cheapest feasible insertion.
func insertGreedy(in *Input, sol *searchSolution, tasks []int) {
	pending := append([]int(nil), tasks...)
	for len(pending) > 0 {
		bestTask := -1
		var bestChoice insertionChoice
		bestChoice.cost = math.MaxInt64
		for i, t := range pending {
			c, _ := bestInsertionsFor(in, sol, t)
			if c.ok && c.cost < bestChoice.cost {
				bestChoice = c
				bestTask = i
			}
		}
		if bestTask < 0 {
			break
		}
		commitInsertion(sol, pending[bestTask], bestChoice)
		pending = append(pending[:bestTask], pending[bestTask+1:]...)
	}
}

// insertRegret commits the task with the largest regret (gap between best
// and second-best placement) first.
func insertRegret(in *Input, sol *searchSolution, tasks []int) {
	pending := append([]int(nil), tasks...)
	for len(pending) > 0 {
		bestTask := -1
		var bestChoice insertionChoice
		var bestRegret int64 = -1
		for i, t := range pending {
			first, second := bestInsertionsFor(in, sol, t)
			if !first.ok {
				continue
			}
			regret := int64(math.MaxInt64)
			if second.ok {
				regret = second.cost - first.cost
			}
			if regret > bestRegret {
				bestRegret = regret
				bestChoice = first
				bestTask = i
			}
		}
		if bestTask < 0 {
			break
		}
		commitInsertion(sol, pending[bestTask], bestChoice)
		pending = append(pending[:bestTask], pending[bestTask+1:]...)
	}
}

func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}
