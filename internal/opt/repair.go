package opt

import (
	"sort"

	"fleetopt/internal/model"
)

// Post-solve budget enforcement: each route's internal cost must be covered
// by the budgets of its tasks. Under-budget routes are first densified with
// unassigned work, then stripped of their lowest-yield tasks, and dropped
// when neither restores feasibility.

// RepairStats counts per-route outcomes of the budget pass.
type RepairStats struct {
	Kept      int
	Densified int
	Reduced   int
	Dropped   int
}

// internalRouteCost is the budget-side cost of a route: travel cost plus the
// vehicle's fixed cost, plus the priced action time when configured. Objective
// penalties do not count against budgets.
func internalRouteCost(in *Input, vRank int, route []int) int64 {
	if len(route) == 0 {
		return 0
	}
	c := RouteEvalForVehicle(in, vRank, route).Cost + in.Vehicles[vRank].FixedCost
	if in.IncludeActionTimeInBudget() {
		c += in.ActionCostFromDuration(vRank, RouteActionTimeDuration(in, vRank, route))
	}
	return c
}

// RunBudgetRepair applies the budget pipeline to every route. Routes with no
// positive-budget task are exempt.
func RunBudgetRepair(in *Input, sol *searchSolution) RepairStats {
	var stats RepairStats
	for v, rt := range sol.routes {
		if rt.Empty() {
			continue
		}
		hasBudget := false
		for _, jr := range rt.Route {
			if JobBudget(in, jr) > 0 {
				hasBudget = true
				break
			}
		}
		if !hasBudget {
			stats.Kept++
			continue
		}
		cost := internalRouteCost(in, v, rt.Route)
		budget := RouteBudgetSum(in, rt.Route)
		if budget >= cost {
			stats.Kept++
			continue
		}
		if densifyRoute(in, sol, v, cost, budget) {
			stats.Densified++
			continue
		}
		if reduceRoute(in, sol, v, cost, budget) {
			stats.Reduced++
			continue
		}
		dropRoute(in, sol, v)
		stats.Dropped++
	}
	return stats
}

// densifyRoute tries to cover the shortfall by inserting one unassigned task
// whose budget exceeds its insertion cost. Candidates are the top-K
// unassigned tasks by budget. Returns true when the route becomes feasible.
func densifyRoute(in *Input, sol *searchSolution, v int, cost, budget int64) bool {
	rt := sol.routes[v]

	candidates := make([]int, 0, len(sol.unassigned))
	for t := range sol.unassigned {
		if JobBudget(in, t) > 0 && in.VehicleOKWithJob(v, t) {
			candidates = append(candidates, t)
		}
	}
	sort.Slice(candidates, func(a, b int) bool {
		ba, bb := JobBudget(in, candidates[a]), JobBudget(in, candidates[b])
		if ba != bb {
			return ba > bb
		}
		return candidates[a] < candidates[b]
	})
	if k := int(in.BudgetDensifyCandidatesK()); len(candidates) > k {
		candidates = candidates[:k]
	}

	var bestGain int64
	bestTask := -1
	var bestChoice insertionChoice

	for _, t := range candidates {
		j := &in.Jobs[t]
		newBudget := budget + JobBudget(in, t)

		if j.Kind == model.JobSingle {
			for rank := 0; rank <= len(rt.Route); rank++ {
				if !rt.IsValidAdditionForCapacity(j.Pickup, j.Delivery, rank) {
					continue
				}
				if !rt.IsValidAdditionForTW(t, rank) {
					continue
				}
				delta := AdditionCostTravel(in, t, v, rt.Route, rank).Cost
				if in.IncludeActionTimeInBudget() {
					delta += in.ActionCostFromDuration(v, ActionTimeDeltaSingle(in, v, rt.Route, t, rank))
				}
				newCost := cost + delta
				gain := (newBudget - newCost) - (budget - cost)
				if gain > bestGain && newBudget >= newCost {
					bestGain = gain
					bestTask = t
					bestChoice = insertionChoice{ok: true, vRank: v, rank: rank, deliveryRank: -1}
				}
			}
			continue
		}

		for pr := 0; pr <= len(rt.Route); pr++ {
			if !rt.IsValidAdditionForLoad(j.Pickup, pr) {
				continue
			}
			head := make([]int, 1, len(rt.Route)-pr+2)
			head[0] = t
			for dr := pr; dr <= len(rt.Route); dr++ {
				if dr > pr {
					head = append(head, rt.Route[dr-1])
				}
				seq := make([]int, 0, len(head)+1)
				seq = append(seq, head...)
				seq = append(seq, t+1)

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
				delta := AdditionCostTravelPD(in, t, v, rt.Route, pr, deliveryAfter).Cost
				if in.IncludeActionTimeInBudget() {
					delta += in.ActionCostFromDuration(v, ActionTimeDeltaPDGeneral(in, v, rt.Route, pr, dr, t))
				}
				newCost := cost + delta
				gain := (newBudget - newCost) - (budget - cost)
				if gain > bestGain && newBudget >= newCost {
					bestGain = gain
					bestTask = t
					bestChoice = insertionChoice{
						ok:           true,
						vRank:        v,
						rank:         pr,
						deliveryRank: dr,
						modified:     seq,
						between:      md,
					}
				}
			}
		}
	}

	if bestTask < 0 {
		return false
	}
	commitInsertion(sol, bestTask, bestChoice)
	return true
}

// reduceRoute greedily removes the non-pinned task with the largest
// cost-over-budget yield until the route fits its budget or no improving
// removal remains.
func reduceRoute(in *Input, sol *searchSolution, v int, cost, budget int64) bool {
	for budget < cost {
		var bestGain int64
		var bestRef taskRef
		found := false

		for _, ref := range removableTasks(in, sol) {
			if ref.vRank != v {
				continue
			}
			rt := sol.routes[v]
			var without []int
			if ref.deliveryRank < 0 {
				if !rt.IsValidRemoval(ref.rank, 1) {
					continue
				}
				without = append(append([]int(nil), rt.Route[:ref.rank]...), rt.Route[ref.rank+1:]...)
			} else {
				between := append([]int(nil), rt.Route[ref.rank+1:ref.deliveryRank]...)
				if !rt.IsValidRangeAdditionForTW(singleDeliveriesOf(in, between), between, ref.rank, ref.deliveryRank+1) {
					continue
				}
				without = append([]int(nil), rt.Route[:ref.rank]...)
				without = append(without, between...)
				without = append(without, rt.Route[ref.deliveryRank+1:]...)
			}
			newCost := internalRouteCost(in, v, without)
			newBudget := budget - JobBudget(in, ref.task)
			gain := (newBudget - newCost) - (budget - cost)
			if gain > bestGain {
				bestGain = gain
				bestRef = ref
				found = true
			}
		}

		if !found {
			return false
		}
		if !removeTask(in, sol, bestRef) {
			return false
		}
		cost = internalRouteCost(in, v, sol.routes[v].Route)
		budget = RouteBudgetSum(in, sol.routes[v].Route)
	}
	return true
}

// dropRoute empties the route, returning every task to the unassigned set.
func dropRoute(in *Input, sol *searchSolution, v int) {
	rt := sol.routes[v]
	for _, jr := range rt.Route {
		if in.Jobs[jr].Kind != model.JobDelivery {
			sol.unassigned[jr] = true
		}
	}
	rt.Replace(in.ZeroAmount().Clone(), nil, 0, len(rt.Route))
}
