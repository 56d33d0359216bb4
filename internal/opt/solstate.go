package opt

import "fleetopt/internal/model"

// SolutionState caches per-route prefix sums used by the cost-delta kernels:
// cumulated travel evals in both orientations and cumulated job penalties,
// each priced for every candidate vehicle so cross-route moves stay O(1).
type SolutionState struct {
	in *Input

	// FwdCosts[v1][v2][i] cumulates edge evals of vehicle v1's route up to
	// rank i, priced with vehicle v2. BwdCosts cumulates the reversed
	// edges. FwdPenalties cumulates per-(job,vehicle) penalties.
	FwdCosts     [][][]model.Eval
	BwdCosts     [][][]model.Eval
	FwdPenalties [][][]int64
}

func NewSolutionState(in *Input) *SolutionState {
	nbV := len(in.Vehicles)
	ss := &SolutionState{
		in:           in,
		FwdCosts:     make([][][]model.Eval, nbV),
		BwdCosts:     make([][][]model.Eval, nbV),
		FwdPenalties: make([][][]int64, nbV),
	}
	for v := 0; v < nbV; v++ {
		ss.FwdCosts[v] = make([][]model.Eval, nbV)
		ss.BwdCosts[v] = make([][]model.Eval, nbV)
		ss.FwdPenalties[v] = make([][]int64, nbV)
	}
	return ss
}

// Setup refreshes all cached arrays for the given routes, indexed by
// vehicle rank.
func (ss *SolutionState) Setup(routes [][]int) {
	for v := range routes {
		ss.UpdateRoute(v, routes[v])
	}
}

// UpdateRoute recomputes the prefix arrays of vehicle v's route, priced for
// every vehicle.
func (ss *SolutionState) UpdateRoute(v int, route []int) {
	in := ss.in
	n := len(route)

	for v2 := range in.Vehicles {
		fwd := resize(ss.FwdCosts[v][v2], n)
		bwd := resize(ss.BwdCosts[v][v2], n)
		pen := resize(ss.FwdPenalties[v][v2], n)

		var currentFwd, currentBwd model.Eval
		var currentPen int64
		for i := 0; i < n; i++ {
			if i > 0 {
				from := in.Jobs[route[i-1]].Location
				to := in.Jobs[route[i]].Location
				currentFwd = currentFwd.Add(in.Eval(v2, from, to))
				currentBwd = currentBwd.Add(in.Eval(v2, to, from))
			}
			fwd[i] = currentFwd
			bwd[i] = currentBwd

			currentPen += in.JobVehiclePenalty(route[i], v2)
			pen[i] = currentPen
		}

		ss.FwdCosts[v][v2] = fwd
		ss.BwdCosts[v][v2] = bwd
		ss.FwdPenalties[v][v2] = pen
	}
}

func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	s = s[:n]
	var zero T
	for i := range s {
		s[i] = zero
	}
	return s
}
