package opt

import "fleetopt/internal/model"

// Insertion cost kernels and budget helpers shared by the search engine and
// the budget repair pass.

// AdditionCostTravel evaluates adding the job at jobRank in the given route
// at rank, for the vehicle at vRank. Travel-only, no objective penalties.
func AdditionCostTravel(in *Input, jobRank, vRank int, route []int, rank int) model.Eval {
	v := &in.Vehicles[vRank]
	jobIndex := in.Jobs[jobRank].Location
	var previousEval, nextEval, oldEdgeEval model.Eval

	if rank == len(route) {
		if len(route) == 0 {
			if v.HasStart() {
				previousEval = in.Eval(vRank, *v.Start, jobIndex)
			}
			if v.HasEnd() {
				nextEval = in.Eval(vRank, jobIndex, *v.End)
			}
		} else {
			// Adding past the end after a real job.
			pIndex := in.Jobs[route[rank-1]].Location
			previousEval = in.Eval(vRank, pIndex, jobIndex)
			if v.HasEnd() {
				oldEdgeEval = in.Eval(vRank, pIndex, *v.End)
				nextEval = in.Eval(vRank, jobIndex, *v.End)
			}
		}
	} else {
		// Adding before one of the jobs.
		nIndex := in.Jobs[route[rank]].Location
		nextEval = in.Eval(vRank, jobIndex, nIndex)

		if rank == 0 {
			if v.HasStart() {
				previousEval = in.Eval(vRank, *v.Start, jobIndex)
				oldEdgeEval = in.Eval(vRank, *v.Start, nIndex)
			}
		} else {
			pIndex := in.Jobs[route[rank-1]].Location
			previousEval = in.Eval(vRank, pIndex, jobIndex)
			oldEdgeEval = in.Eval(vRank, pIndex, nIndex)
		}
	}

	return previousEval.Add(nextEval).Sub(oldEdgeEval)
}

// AdditionCost adds the per-(job,vehicle) objective penalty on top of the
// travel delta.
func AdditionCost(in *Input, jobRank, vRank int, route []int, rank int) model.Eval {
	e := AdditionCostTravel(in, jobRank, vRank, route, rank)
	e.Cost += in.JobVehiclePenalty(jobRank, vRank)
	return e
}

// AdditionCostTravelPD evaluates adding the pickup at jobRank and its
// delivery (jobRank + 1). The pickup lands at pickupRank in the route, the
// delivery at deliveryRank in the route including the pickup.
func AdditionCostTravelPD(in *Input, jobRank, vRank int, route []int, pickupRank, deliveryRank int) model.Eval {
	v := &in.Vehicles[vRank]

	eval := AdditionCostTravel(in, jobRank, vRank, route, pickupRank)

	if deliveryRank == pickupRank+1 {
		// Delivery is inserted just after pickup.
		pIndex := in.Jobs[jobRank].Location
		dIndex := in.Jobs[jobRank+1].Location
		eval = eval.Add(in.Eval(vRank, pIndex, dIndex))

		var afterDelivery, removeAfterPickup model.Eval
		if pickupRank == len(route) {
			if v.HasEnd() {
				afterDelivery = in.Eval(vRank, dIndex, *v.End)
				removeAfterPickup = in.Eval(vRank, pIndex, *v.End)
			}
		} else {
			nextIndex := in.Jobs[route[pickupRank]].Location
			afterDelivery = in.Eval(vRank, dIndex, nextIndex)
			removeAfterPickup = in.Eval(vRank, pIndex, nextIndex)
		}
		eval = eval.Add(afterDelivery).Sub(removeAfterPickup)
	} else {
		// Disjoint edge sets for pickup and delivery additions.
		eval = eval.Add(AdditionCostTravel(in, jobRank+1, vRank, route, deliveryRank-1))
	}

	return eval
}

// AdditionCostPD is AdditionCostTravelPD plus the pickup's penalty; shipment
// penalties apply once.
func AdditionCostPD(in *Input, jobRank, vRank int, route []int, pickupRank, deliveryRank int) model.Eval {
	e := AdditionCostTravelPD(in, jobRank, vRank, route, pickupRank, deliveryRank)
	e.Cost += in.JobVehiclePenalty(jobRank, vRank)
	return e
}

// PenaltySumForRange sums per-(job,vehicle) penalties of route jobs in
// [firstRank, lastRank), priced for targetVehicle.
func PenaltySumForRange(ss *SolutionState, routeVehicle, targetVehicle, firstRank, lastRank int) int64 {
	if lastRank == firstRank {
		return 0
	}
	pref := ss.FwdPenalties[routeVehicle][targetVehicle]
	if firstRank == 0 {
		return pref[lastRank-1]
	}
	return pref[lastRank-1] - pref[firstRank-1]
}

// rangeIndices resolves the locations just before the range, at its first
// rank, and at lastRank, each nil when the boundary does not exist.
func rangeIndices(in *Input, route *RawRoute, firstRank, lastRank int) (beforeFirst, firstIndex, lastIndex *int) {
	r := route.Route
	v := &in.Vehicles[route.VRank]

	if firstRank > 0 {
		beforeFirst = &in.Jobs[r[firstRank-1]].Location
	} else if v.HasStart() {
		beforeFirst = v.Start
	}

	if firstRank < len(r) {
		firstIndex = &in.Jobs[r[firstRank]].Location
	} else if v.HasEnd() {
		firstIndex = v.End
	}

	if lastRank < len(r) {
		lastIndex = &in.Jobs[r[lastRank]].Location
	} else if v.HasEnd() {
		lastIndex = v.End
	}
	return
}

// RangeRemovalGain is the objective gain tied to removing [firstRank,
// lastRank): internal edges plus the removed jobs' penalties.
func RangeRemovalGain(ss *SolutionState, v, firstRank, lastRank int) model.Eval {
	var removalGain model.Eval
	if lastRank > firstRank {
		removalGain = removalGain.Add(ss.FwdCosts[v][v][lastRank-1])
		removalGain = removalGain.Sub(ss.FwdCosts[v][v][firstRank])
		removalGain.Cost += PenaltySumForRange(ss, v, v, firstRank, lastRank)
	}
	return removalGain
}

// AdditionCostDelta computes the objective gain when replacing [firstRank,
// lastRank) of route1 with the [insertionStart, insertionEnd) range of
// route2, for both the straight and reversed insertion orientations.
func AdditionCostDelta(in *Input, ss *SolutionState, route1 *RawRoute, firstRank, lastRank int, route2 *RawRoute, insertionStart, insertionEnd int) (straight, reversed model.Eval) {
	emptyInsertion := insertionStart == insertionEnd

	r1 := route1.Route
	v1Rank := route1.VRank
	r2 := route2.Route
	v2Rank := route2.VRank
	v1 := &in.Vehicles[v1Rank]

	costDelta := RangeRemovalGain(ss, v1Rank, firstRank, lastRank)

	var straightDelta, reversedDelta model.Eval
	if !emptyInsertion {
		straightDelta = straightDelta.Add(ss.FwdCosts[v2Rank][v1Rank][insertionStart])
		straightDelta = straightDelta.Sub(ss.FwdCosts[v2Rank][v1Rank][insertionEnd-1])

		reversedDelta = reversedDelta.Add(ss.BwdCosts[v2Rank][v1Rank][insertionStart])
		reversedDelta = reversedDelta.Sub(ss.BwdCosts[v2Rank][v1Rank][insertionEnd-1])
	}

	// The inserted jobs' penalties depend on the target vehicle, not on
	// orientation. This is a gain, so penalties are subtracted; negative
	// penalties (preferences) make the insertion more attractive.
	insertedPenaltyCost := PenaltySumForRange(ss, v2Rank, v1Rank, insertionStart, insertionEnd)
	straightDelta.Cost -= insertedPenaltyCost
	reversedDelta.Cost -= insertedPenaltyCost

	beforeFirst, firstIndex, lastIndex := rangeIndices(in, route1, firstRank, lastRank)

	// Gain of the removed edge before the replaced range.
	if beforeFirst != nil && firstIndex != nil && len(r1) != 0 {
		costDelta = costDelta.Add(in.Eval(v1Rank, *beforeFirst, *firstIndex))
	}

	if emptyInsertion {
		if beforeFirst != nil && lastIndex != nil &&
			!(firstRank == 0 && lastRank == len(r1)) {
			// New edge replacing the removed range, unless the route
			// ends up empty.
			costDelta = costDelta.Sub(in.Eval(v1Rank, *beforeFirst, *lastIndex))
		}
	} else {
		if beforeFirst != nil {
			straightDelta = straightDelta.Sub(in.Eval(v1Rank, *beforeFirst, in.Jobs[r2[insertionStart]].Location))
			reversedDelta = reversedDelta.Sub(in.Eval(v1Rank, *beforeFirst, in.Jobs[r2[insertionEnd-1]].Location))
		}
		if lastIndex != nil {
			straightDelta = straightDelta.Sub(in.Eval(v1Rank, in.Jobs[r2[insertionEnd-1]].Location, *lastIndex))
			reversedDelta = reversedDelta.Sub(in.Eval(v1Rank, in.Jobs[r2[insertionStart]].Location, *lastIndex))
		}
	}

	// Gain of the removed edge after the replaced range, if any.
	if lastIndex != nil && lastRank > firstRank {
		beforeLast := in.Jobs[r1[lastRank-1]].Location
		costDelta = costDelta.Add(in.Eval(v1Rank, beforeLast, *lastIndex))
	}

	// Fixed cost handling for emptying or filling a route.
	if len(r1) == 0 && !emptyInsertion {
		costDelta.Cost -= v1.FixedCost
	}
	if emptyInsertion && firstRank == 0 && lastRank == len(r1) {
		costDelta.Cost += v1.FixedCost
	}

	return costDelta.Add(straightDelta), costDelta.Add(reversedDelta)
}

// AdditionCostDeltaSingle computes the gain of replacing the non-empty range
// [firstRank, lastRank) with the single job at jobRank. Empty ranges are
// covered by AdditionCost.
func AdditionCostDeltaSingle(in *Input, ss *SolutionState, rawRoute *RawRoute, firstRank, lastRank, jobRank int) model.Eval {
	r := rawRoute.Route
	vRank := rawRoute.VRank
	jobIndex := in.Jobs[jobRank].Location

	costDelta := RangeRemovalGain(ss, vRank, firstRank, lastRank)

	beforeFirst, firstIndex, lastIndex := rangeIndices(in, rawRoute, firstRank, lastRank)

	if beforeFirst != nil && firstIndex != nil {
		costDelta = costDelta.Add(in.Eval(vRank, *beforeFirst, *firstIndex))
	}
	if beforeFirst != nil {
		costDelta = costDelta.Sub(in.Eval(vRank, *beforeFirst, jobIndex))
	}
	if lastIndex != nil {
		costDelta = costDelta.Sub(in.Eval(vRank, jobIndex, *lastIndex))
		beforeLast := in.Jobs[r[lastRank-1]].Location
		costDelta = costDelta.Add(in.Eval(vRank, beforeLast, *lastIndex))
	}

	costDelta.Cost -= in.JobVehiclePenalty(jobRank, vRank)

	return costDelta
}

// RemovalCostDelta is the gain of removing count jobs starting at rank.
func RemovalCostDelta(in *Input, ss *SolutionState, route *RawRoute, rank, count int) model.Eval {
	straight, _ := AdditionCostDelta(in, ss, route, rank, rank+count, route, 0, 0)
	return straight
}

// MaxEdgeEval returns the most expensive edge of the route, boundaries
// included.
func MaxEdgeEval(in *Input, vRank int, route []int) model.Eval {
	v := &in.Vehicles[vRank]
	var maxEval model.Eval

	if len(route) != 0 {
		if v.HasStart() {
			if e := in.Eval(vRank, *v.Start, in.Jobs[route[0]].Location); maxEval.Less(e) {
				maxEval = e
			}
		}
		for i := 0; i+1 < len(route); i++ {
			e := in.Eval(vRank, in.Jobs[route[i]].Location, in.Jobs[route[i+1]].Location)
			if maxEval.Less(e) {
				maxEval = e
			}
		}
		if v.HasEnd() {
			if e := in.Eval(vRank, in.Jobs[route[len(route)-1]].Location, *v.End); maxEval.Less(e) {
				maxEval = e
			}
		}
	}
	return maxEval
}

// setupForPrev resolves a job's setup time given the previous location, -1
// when none; setup is suppressed on a shared location.
func setupForPrev(in *Input, jobRank, vType, prevIndex int) int64 {
	if prevIndex >= 0 && prevIndex == in.Jobs[jobRank].Location {
		return 0
	}
	return in.JobSetup(jobRank, vType)
}

// JobBudget returns the task budget; shipments count it once on the pickup.
func JobBudget(in *Input, jobRank int) int64 {
	if in.Jobs[jobRank].Kind == model.JobDelivery {
		return 0
	}
	return in.Jobs[jobRank].Budget
}

func RouteBudgetSum(in *Input, route []int) int64 {
	var sum int64
	for _, r := range route {
		sum += JobBudget(in, r)
	}
	return sum
}

// RouteActionTimeDuration totals setup+service over the route, with
// same-location setup suppression starting from the vehicle start.
func RouteActionTimeDuration(in *Input, vRank int, route []int) int64 {
	if len(route) == 0 {
		return 0
	}
	v := &in.Vehicles[vRank]
	vType := in.VehicleTypeRank(vRank)
	var total int64
	prev := -1
	if v.HasStart() {
		prev = *v.Start
	}
	for _, r := range route {
		total += setupForPrev(in, r, vType, prev)
		total += in.JobService(r, vType)
		prev = in.Jobs[r].Location
	}
	return total
}

// ActionTimeDeltaSingle is the route action-time contribution of inserting a
// single job: its own setup/service plus the setup change of the next job.
func ActionTimeDeltaSingle(in *Input, vRank int, route []int, jobRank, insertRank int) int64 {
	v := &in.Vehicles[vRank]
	vType := in.VehicleTypeRank(vRank)
	var delta int64

	prev := -1
	if insertRank == 0 {
		if v.HasStart() {
			prev = *v.Start
		}
	} else {
		prev = in.Jobs[route[insertRank-1]].Location
	}
	delta += setupForPrev(in, jobRank, vType, prev)
	delta += in.JobService(jobRank, vType)

	if insertRank < len(route) {
		n := route[insertRank]
		oldSetup := setupForPrev(in, n, vType, prev)
		newSetup := setupForPrev(in, n, vType, in.Jobs[jobRank].Location)
		delta += newSetup - oldSetup
	}
	return delta
}

// ActionTimeDeltaPDContiguous covers a pickup-delivery pair inserted back to
// back at the route head.
func ActionTimeDeltaPDContiguous(in *Input, vRank int, pickupRank int) int64 {
	v := &in.Vehicles[vRank]
	vType := in.VehicleTypeRank(vRank)
	var delta int64
	prev := -1
	if v.HasStart() {
		prev = *v.Start
	}
	delta += setupForPrev(in, pickupRank, vType, prev)
	delta += in.JobService(pickupRank, vType)
	delta += setupForPrev(in, pickupRank+1, vType, in.Jobs[pickupRank].Location)
	delta += in.JobService(pickupRank+1, vType)
	return delta
}

// ActionTimeDeltaPDGeneral handles non-contiguous pickup/delivery placements.
// Ranks are positions in the route before any insertion.
func ActionTimeDeltaPDGeneral(in *Input, vRank int, route []int, pickupInsertRank, deliveryInsertRank, pickupRank int) int64 {
	if deliveryInsertRank == pickupInsertRank {
		return ActionTimeDeltaPDContiguous(in, vRank, pickupRank)
	}

	v := &in.Vehicles[vRank]
	vType := in.VehicleTypeRank(vRank)
	deliveryRank := pickupRank + 1
	var delta int64

	// Pickup insertion effects.
	prevP := -1
	if pickupInsertRank == 0 {
		if v.HasStart() {
			prevP = *v.Start
		}
	} else {
		prevP = in.Jobs[route[pickupInsertRank-1]].Location
	}
	delta += setupForPrev(in, pickupRank, vType, prevP)
	delta += in.JobService(pickupRank, vType)

	if pickupInsertRank < len(route) {
		n := route[pickupInsertRank]
		oldSetup := setupForPrev(in, n, vType, prevP)
		newSetup := setupForPrev(in, n, vType, in.Jobs[pickupRank].Location)
		delta += newSetup - oldSetup
	}

	// Delivery insertion effects.
	prevD := -1
	if deliveryInsertRank == 0 {
		if v.HasStart() {
			prevD = *v.Start
		}
	} else {
		prevD = in.Jobs[route[deliveryInsertRank-1]].Location
	}
	delta += setupForPrev(in, deliveryRank, vType, prevD)
	delta += in.JobService(deliveryRank, vType)

	if deliveryInsertRank < len(route) {
		n := route[deliveryInsertRank]
		oldSetup := setupForPrev(in, n, vType, prevD)
		newSetup := setupForPrev(in, n, vType, in.Jobs[deliveryRank].Location)
		delta += newSetup - oldSetup
	}

	return delta
}

// InPlaceDeltaCost evaluates in-place replacing the job at rank with the job
// at jobRank, used by swap-style operators.
func InPlaceDeltaCost(in *Input, jobRank, vRank int, route []int, rank int) model.Eval {
	v := &in.Vehicles[vRank]
	newIndex := in.Jobs[jobRank].Location

	var newPreviousEval, newNextEval model.Eval
	var pIndex, nIndex *int

	if rank == 0 {
		if v.HasStart() {
			pIndex = v.Start
			newPreviousEval = in.Eval(vRank, *pIndex, newIndex)
		}
	} else {
		pIndex = &in.Jobs[route[rank-1]].Location
		newPreviousEval = in.Eval(vRank, *pIndex, newIndex)
	}

	if rank == len(route)-1 {
		if v.HasEnd() {
			nIndex = v.End
			newNextEval = in.Eval(vRank, newIndex, *nIndex)
		}
	} else {
		nIndex = &in.Jobs[route[rank+1]].Location
		newNextEval = in.Eval(vRank, newIndex, *nIndex)
	}

	var oldVirtualEval model.Eval
	if pIndex != nil && nIndex != nil {
		oldVirtualEval = in.Eval(vRank, *pIndex, *nIndex)
	}

	return newPreviousEval.Add(newNextEval).Sub(oldVirtualEval)
}

func PrioritySumForRoute(in *Input, route []int) int {
	sum := 0
	for _, r := range route {
		sum += in.Jobs[r].Priority
	}
	return sum
}

// RouteEvalForVehicle totals the travel eval of the route including start
// and end boundaries. Fixed cost and penalties are accounted separately.
func RouteEvalForVehicle(in *Input, vRank int, route []int) model.Eval {
	v := &in.Vehicles[vRank]
	var eval model.Eval

	if len(route) == 0 {
		return eval
	}
	if v.HasStart() {
		eval = eval.Add(in.Eval(vRank, *v.Start, in.Jobs[route[0]].Location))
	}
	for i := 0; i+1 < len(route); i++ {
		eval = eval.Add(in.Eval(vRank, in.Jobs[route[i]].Location, in.Jobs[route[i+1]].Location))
	}
	if v.HasEnd() {
		eval = eval.Add(in.Eval(vRank, in.Jobs[route[len(route)-1]].Location, *v.End))
	}
	return eval
}

// RoutePenaltySum totals per-(job,vehicle) objective penalties of the route.
func RoutePenaltySum(in *Input, vRank int, route []int) int64 {
	var sum int64
	for _, r := range route {
		sum += in.JobVehiclePenalty(r, vRank)
	}
	return sum
}
