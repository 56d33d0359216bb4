package opt

import "fleetopt/internal/model"

// Local improvement: relocate single jobs within and across routes whenever
// the move lowers the objective and both routes stay feasible.

func routesOf(sol *searchSolution) [][]int {
	out := make([][]int, len(sol.routes))
	for i, rt := range sol.routes {
		out[i] = rt.Route
	}
	return out
}

// improveRelocate runs best-improvement relocation of non-pinned single jobs
// until a fixed point. Removal gains come from the solution-state prefix
// sums; candidate targets are validated through the route predicates before
// the move is committed on cloned state.
func improveRelocate(in *Input, sol *searchSolution) {
	ss := NewSolutionState(in)
	ss.Setup(routesOf(sol))

	improved := true
	for improved {
		improved = false

		for v := range sol.routes {
			rt := sol.routes[v]
			for rank := 0; rank < len(rt.Route); rank++ {
				task := rt.Route[rank]
				j := &in.Jobs[task]
				if j.Kind != model.JobSingle || in.JobIsPinned(task) {
					continue
				}
				if !rt.IsValidRemoval(rank, 1) {
					continue
				}
				gain := RemovalCostDelta(in, ss, &rt.RawRoute, rank, 1)

				// Best reinsertion anywhere else.
				bestCost := gain.Cost // only strictly improving targets
				bestV, bestRank := -1, -1
				for v2, rt2 := range sol.routes {
					if !in.VehicleOKWithJob(v2, task) {
						continue
					}
					for r2 := 0; r2 <= len(rt2.Route); r2++ {
						if v2 == v && (r2 == rank || r2 == rank+1) {
							continue
						}
						if !rt2.IsValidAdditionForCapacity(j.Pickup, j.Delivery, r2) {
							continue
						}
						if !rt2.IsValidAdditionForTW(task, r2) {
							continue
						}
						c := AdditionCost(in, task, v2, rt2.Route, r2).Cost
						if c < bestCost {
							bestCost = c
							bestV, bestRank = v2, r2
						}
					}
				}
				if bestV < 0 {
					continue
				}

				// Re-validate the move on cloned state: the target predicate
				// was evaluated before the removal.
				src := rt.Clone()
				src.Remove(rank, 1)
				if bestV == v {
					r2 := bestRank
					if r2 > rank {
						r2--
					}
					if !src.IsValidAdditionForCapacity(j.Pickup, j.Delivery, r2) ||
						!src.IsValidAdditionForTW(task, r2) {
						continue
					}
					src.Add(task, r2)
					sol.routes[v] = src
					ss.UpdateRoute(v, src.Route)
				} else {
					dst := sol.routes[bestV].Clone()
					dst.Add(task, bestRank)
					sol.routes[v] = src
					sol.routes[bestV] = dst
					ss.UpdateRoute(v, src.Route)
					ss.UpdateRoute(bestV, dst.Route)
				}
				improved = true
				rt = sol.routes[v]
				rank--
			}
		}
	}
}
