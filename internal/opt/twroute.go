package opt

import (
	"math"

	"fleetopt/internal/model"
)

const maxDuration = int64(math.MaxInt64)

type previousInfo struct {
	earliest int64
	travel   int64
	// Location of the previous step, -1 when the vehicle has no start and
	// nothing precedes.
	locationIndex int
}

type nextInfo struct {
	latest int64
	travel int64
}

// TWRoute layers a time schedule on top of RawRoute: earliest/latest service
// dates per rank, break placement between ranks, and the soft-pinned lateness
// accounting.
type TWRoute struct {
	RawRoute

	VStart int64
	VEnd   int64

	earliest   []int64
	latest     []int64
	actionTime []int64

	// breaksAtRank[i] counts the vehicle breaks taken strictly before job
	// rank i, breaksCounts[i] the cumulative count. Both keep a sentinel
	// slot at index n for breaks after the last job.
	breaksAtRank []int
	breaksCounts []int

	breakEarliest []int64
	breakLatest   []int64

	// Running component-wise minima of break max-load margins, forward and
	// backward, saturated at the maximum when no max-load applies.
	fwdSmallestBreaksLoadMargin []model.Amount
	bwdSmallestBreaksLoadMargin []model.Amount

	EarliestEnd int64

	// Service starts of the relaxed seed, the reference for soft-pinned
	// delay measurement. Left untouched by later edits.
	baselineServiceStart []int64
	isPinnedStep         []bool

	hasBreakMaxLoad bool
}

// NewTWRoute builds the empty schedule, placing vehicle breaks at their
// tightest feasible windows. It fails when the vehicle's breaks cannot all
// fit within its time window.
func NewTWRoute(in *Input, vRank int) (*TWRoute, error) {
	v := &in.Vehicles[vRank]
	nb := len(v.Breaks)
	t := &TWRoute{
		RawRoute:                    *NewRawRoute(in, vRank),
		VStart:                      v.TW.Start,
		VEnd:                        v.TW.End,
		breaksAtRank:                []int{nb},
		breaksCounts:                []int{nb},
		breakEarliest:               make([]int64, nb),
		breakLatest:                 make([]int64, nb),
		fwdSmallestBreaksLoadMargin: make([]model.Amount, nb),
		bwdSmallestBreaksLoadMargin: make([]model.Amount, nb),
	}

	previousEarliest := t.VStart
	fwdSmallestMargin := model.MaxAmount(in.AmountSize())
	bwdSmallestMargin := model.MaxAmount(in.AmountSize())

	for i := 0; i < nb; i++ {
		b := &v.Breaks[i]
		if b.MaxLoad != nil {
			t.hasBreakMaxLoad = true
		}
		bTW := firstTWNotEndingBefore(b.TWs, previousEarliest)
		if bTW < 0 {
			return nil, inputErrorf("inconsistent breaks for vehicle %d", v.ID)
		}
		t.breakEarliest[i] = max64(previousEarliest, b.TWs[bTW].Start)
		previousEarliest = t.breakEarliest[i] + b.Service

		if b.MaxLoad != nil {
			fwdSmallestMargin = fwdSmallestMargin.Clone()
			fwdSmallestMargin.MinInPlace(b.MaxLoad)
		}
		t.fwdSmallestBreaksLoadMargin[i] = fwdSmallestMargin
	}

	nextLatest := t.VEnd
	for ri := 0; ri < nb; ri++ {
		i := nb - 1 - ri
		b := &v.Breaks[i]
		if nextLatest < b.Service {
			return nil, inputErrorf("inconsistent breaks for vehicle %d", v.ID)
		}
		nextLatest -= b.Service
		bTW := lastTWStartingBefore(b.TWs, nextLatest)
		if bTW < 0 {
			return nil, inputErrorf("inconsistent breaks for vehicle %d", v.ID)
		}
		t.breakLatest[i] = min64(nextLatest, b.TWs[bTW].End)
		nextLatest = t.breakLatest[i]
		if t.breakLatest[i] < t.breakEarliest[i] {
			return nil, inputErrorf("inconsistent breaks for vehicle %d", v.ID)
		}

		if b.MaxLoad != nil {
			bwdSmallestMargin = bwdSmallestMargin.Clone()
			bwdSmallestMargin.MinInPlace(b.MaxLoad)
		}
		t.bwdSmallestBreaksLoadMargin[i] = bwdSmallestMargin
	}

	return t, nil
}

// firstTWNotEndingBefore returns the index of the first window with t <= end,
// or -1.
func firstTWNotEndingBefore(tws []model.TimeWindow, t int64) int {
	for i := range tws {
		if t <= tws[i].End {
			return i
		}
	}
	return -1
}

// lastTWStartingBefore returns the index of the last window with start <= t,
// or -1.
func lastTWStartingBefore(tws []model.TimeWindow, t int64) int {
	for i := len(tws) - 1; i >= 0; i-- {
		if tws[i].Start <= t {
			return i
		}
	}
	return -1
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func (t *TWRoute) Earliest(i int) int64   { return t.earliest[i] }
func (t *TWRoute) Latest(i int) int64     { return t.latest[i] }
func (t *TWRoute) ActionTime(i int) int64 { return t.actionTime[i] }

func (t *TWRoute) BreaksAtRank(i int) int     { return t.breaksAtRank[i] }
func (t *TWRoute) BreaksCounts(i int) int     { return t.breaksCounts[i] }
func (t *TWRoute) BreakEarliest(k int) int64  { return t.breakEarliest[k] }
func (t *TWRoute) BreakLatest(k int) int64    { return t.breakLatest[k] }
func (t *TWRoute) BaselineServiceStart(i int) int64 {
	return t.baselineServiceStart[i]
}

// actionTimeFor resolves the setup+service time of a job, with setup
// suppressed when the previous step shares its location.
func (t *TWRoute) actionTimeFor(jobRank, previousLocation int) int64 {
	j := &t.in.Jobs[jobRank]
	if previousLocation >= 0 && j.Location == previousLocation {
		return t.in.JobService(jobRank, t.VType)
	}
	return t.in.JobSetup(jobRank, t.VType) + t.in.JobService(jobRank, t.VType)
}

// SeedRelaxedFromJobRanks initializes the route directly, ignoring time
// windows, and records baseline earliest service starts used as the soft-pin
// delay reference. All vehicle breaks are parked at the trailing sentinel.
func (t *TWRoute) SeedRelaxedFromJobRanks(jobRanks []int) {
	t.SetRoute(jobRanks)

	v := &t.in.Vehicles[t.VRank]
	n := len(t.Route)
	t.earliest = assignInt64s(t.earliest, n, 0)
	t.latest = assignInt64s(t.latest, n, t.VEnd)
	t.actionTime = assignInt64s(t.actionTime, n, 0)
	t.breaksAtRank = assignInts(t.breaksAtRank, n+1, 0)
	t.breaksCounts = assignInts(t.breaksCounts, n+1, 0)
	t.baselineServiceStart = assignInt64s(t.baselineServiceStart, n, 0)
	t.isPinnedStep = t.isPinnedStep[:0]

	currentEarliest := t.VStart
	previousIndex := -1
	if t.HasStart {
		previousIndex = *v.Start
	}
	for i := 0; i < n; i++ {
		j := &t.in.Jobs[t.Route[i]]
		if previousIndex >= 0 {
			currentEarliest += t.in.Duration(t.VRank, previousIndex, j.Location)
		}
		t.earliest[i] = currentEarliest
		t.baselineServiceStart[i] = currentEarliest
		t.isPinnedStep = append(t.isPinnedStep, j.Pinned)

		at := t.actionTimeFor(t.Route[i], previousIndex)
		t.actionTime[i] = at
		currentEarliest += at
		previousIndex = j.Location

		if i > 0 {
			t.breaksCounts[i] = t.breaksCounts[i-1] + t.breaksAtRank[i]
		}
	}

	t.breaksAtRank[n] = len(v.Breaks)
	prev := 0
	if n > 0 {
		prev = t.breaksCounts[n-1]
	}
	t.breaksCounts[n] = prev + t.breaksAtRank[n]

	t.UpdateAmounts()
}

func assignInt64s(s []int64, n int, v int64) []int64 {
	if cap(s) < n {
		s = make([]int64, n)
	}
	s = s[:n]
	for i := range s {
		s[i] = v
	}
	return s
}

func assignInts(s []int, n int, v int) []int {
	if cap(s) < n {
		s = make([]int, n)
	}
	s = s[:n]
	for i := range s {
		s[i] = v
	}
	return s
}

func (t *TWRoute) previousInfo(jobRank, rank int) previousInfo {
	v := &t.in.Vehicles[t.VRank]
	j := &t.in.Jobs[jobRank]

	previous := previousInfo{earliest: t.VStart, locationIndex: -1}
	if rank > 0 {
		previousJob := &t.in.Jobs[t.Route[rank-1]]
		previous.earliest = t.earliest[rank-1] + t.actionTime[rank-1]
		previous.travel = t.in.Duration(t.VRank, previousJob.Location, j.Location)
		previous.locationIndex = previousJob.Location
	} else if t.HasStart {
		previous.locationIndex = *v.Start
		previous.travel = t.in.Duration(t.VRank, previous.locationIndex, j.Location)
	}
	return previous
}

func (t *TWRoute) nextInfo(jobRank, rank int) nextInfo {
	v := &t.in.Vehicles[t.VRank]
	j := &t.in.Jobs[jobRank]

	next := nextInfo{latest: t.VEnd}
	if rank == len(t.Route) {
		if t.HasEnd {
			next.travel = t.in.Duration(t.VRank, j.Location, *v.End)
		}
	} else {
		next.latest = t.latest[rank]
		next.travel = t.in.Duration(t.VRank, j.Location, t.in.Jobs[t.Route[rank]].Location)
	}
	return next
}

// fwdUpdateEarliestFrom sweeps forward from rank, updating earliest dates for
// jobs and breaks. Propagation stops as soon as a value is unchanged. Under
// soft timing a step can drift past every TW; the date is then clamped to the
// last window end so propagation keeps working.
func (t *TWRoute) fwdUpdateEarliestFrom(rank int) {
	v := &t.in.Vehicles[t.VRank]

	currentEarliest := t.earliest[rank]
	handleLastBreaks := true

	for i := rank + 1; i < len(t.Route); i++ {
		nextJ := &t.in.Jobs[t.Route[i]]
		remainingTravel := t.in.Duration(t.VRank, t.in.Jobs[t.Route[i-1]].Location, nextJ.Location)
		previousActionTime := t.actionTime[i-1]

		breakRank := t.breaksCounts[i] - t.breaksAtRank[i]
		brokeOut := false
		for r := 0; r < t.breaksAtRank[i]; r, breakRank = r+1, breakRank+1 {
			b := &v.Breaks[breakRank]
			currentEarliest += previousActionTime

			bTW := firstTWNotEndingBefore(b.TWs, currentEarliest)
			if bTW < 0 {
				if len(b.TWs) > 0 {
					currentEarliest = b.TWs[len(b.TWs)-1].End
				}
				t.breakEarliest[breakRank] = currentEarliest
				handleLastBreaks = false
				brokeOut = true
				break
			}

			if currentEarliest < b.TWs[bTW].Start {
				if margin := b.TWs[bTW].Start - currentEarliest; margin < remainingTravel {
					remainingTravel -= margin
				} else {
					remainingTravel = 0
				}
				currentEarliest = b.TWs[bTW].Start
			}

			t.breakEarliest[breakRank] = currentEarliest
			previousActionTime = b.Service
		}
		if brokeOut {
			break
		}

		currentEarliest += previousActionTime + remainingTravel

		jTW := firstTWNotEndingBefore(nextJ.TWs, currentEarliest)
		if jTW < 0 {
			if len(nextJ.TWs) > 0 {
				currentEarliest = nextJ.TWs[len(nextJ.TWs)-1].End
			}
			t.earliest[i] = currentEarliest
			handleLastBreaks = false
			break
		}

		currentEarliest = max64(currentEarliest, nextJ.TWs[jTW].Start)

		if currentEarliest == t.earliest[i] {
			handleLastBreaks = false
			break
		}
		t.earliest[i] = currentEarliest
	}

	if handleLastBreaks {
		// Breaks right before route end.
		i := len(t.Route)
		var remainingTravel int64
		if t.HasEnd {
			remainingTravel = t.in.Duration(t.VRank, t.in.Jobs[t.Route[i-1]].Location, *v.End)
		}
		previousActionTime := t.actionTime[i-1]

		breakRank := t.breaksCounts[i] - t.breaksAtRank[i]
		for r := 0; r < t.breaksAtRank[i]; r, breakRank = r+1, breakRank+1 {
			b := &v.Breaks[breakRank]
			currentEarliest += previousActionTime

			bTW := firstTWNotEndingBefore(b.TWs, currentEarliest)
			if bTW < 0 {
				if len(b.TWs) > 0 {
					currentEarliest = b.TWs[len(b.TWs)-1].End
				}
				t.breakEarliest[breakRank] = currentEarliest
				break
			}

			if currentEarliest < b.TWs[bTW].Start {
				if margin := b.TWs[bTW].Start - currentEarliest; margin < remainingTravel {
					remainingTravel -= margin
				} else {
					remainingTravel = 0
				}
				currentEarliest = b.TWs[bTW].Start
			}

			t.breakEarliest[breakRank] = currentEarliest
			previousActionTime = b.Service
		}

		t.EarliestEnd = currentEarliest + previousActionTime + remainingTravel
	}
}

// bwdUpdateLatestFrom sweeps backward from rank, updating latest dates for
// jobs and breaks. Soft timing can leave steps past their windows; dates are
// clamped rather than rejected so the remaining invariants hold.
func (t *TWRoute) bwdUpdateLatestFrom(rank int) {
	v := &t.in.Vehicles[t.VRank]

	if rank >= len(t.Route) {
		rank = len(t.Route) - 1
	}
	currentLatest := t.latest[rank]
	handleFirstBreaks := true

	for nextI := rank; nextI > 0; nextI-- {
		previousJ := &t.in.Jobs[t.Route[nextI-1]]
		var remainingTravel int64
		if nextI < len(t.Route) {
			remainingTravel = t.in.Duration(t.VRank, previousJ.Location, t.in.Jobs[t.Route[nextI]].Location)
		}

		breakRank := t.breaksCounts[nextI]
		for r := 0; r < t.breaksAtRank[nextI]; r++ {
			breakRank--
			b := &v.Breaks[breakRank]
			currentLatest -= b.Service

			bTW := lastTWStartingBefore(b.TWs, currentLatest)
			if bTW < 0 {
				if len(b.TWs) > 0 {
					currentLatest = b.TWs[len(b.TWs)-1].End
				}
				t.breakLatest[breakRank] = currentLatest
				continue
			}

			if b.TWs[bTW].End < currentLatest {
				if margin := currentLatest - b.TWs[bTW].End; margin < remainingTravel {
					remainingTravel -= margin
				} else {
					remainingTravel = 0
				}
				currentLatest = b.TWs[bTW].End
			}
			t.breakLatest[breakRank] = currentLatest
		}

		gap := t.actionTime[nextI-1] + remainingTravel
		if gap > currentLatest {
			// The job may finish late when soft pins already violated
			// the window.
			currentLatest = gap
		}
		currentLatest -= gap

		jTW := lastTWStartingBefore(previousJ.TWs, currentLatest)
		if jTW < 0 {
			if len(previousJ.TWs) > 0 {
				currentLatest = previousJ.TWs[len(previousJ.TWs)-1].End
			}
			t.latest[nextI-1] = currentLatest
			continue
		}

		currentLatest = min64(currentLatest, previousJ.TWs[jTW].End)

		if currentLatest < t.earliest[nextI-1] {
			// Downstream code expects non-negative slack; clamp back to
			// earliest when soft timing lets us run late.
			currentLatest = t.earliest[nextI-1]
		}
		if currentLatest == t.latest[nextI-1] {
			handleFirstBreaks = false
			break
		}
		t.latest[nextI-1] = currentLatest
	}

	if handleFirstBreaks {
		// Breaks right before the first job.
		breakRank := t.breaksCounts[0]
		for r := 0; r < t.breaksAtRank[0]; r++ {
			breakRank--
			b := &v.Breaks[breakRank]
			currentLatest -= b.Service

			bTW := lastTWStartingBefore(b.TWs, currentLatest)
			if bTW < 0 {
				if len(b.TWs) > 0 {
					currentLatest = b.TWs[len(b.TWs)-1].End
				}
				t.breakLatest[breakRank] = currentLatest
				continue
			}
			if b.TWs[bTW].End < currentLatest {
				currentLatest = b.TWs[bTW].End
			}
			t.breakLatest[breakRank] = currentLatest
		}
	}
}

// updateLastLatestDate recomputes the latest date of the last job from the
// vehicle end and trailing breaks.
func (t *TWRoute) updateLastLatestDate() {
	v := &t.in.Vehicles[t.VRank]
	next := t.nextInfo(t.Route[len(t.Route)-1], len(t.Route))

	breakRank := t.breaksCounts[len(t.Route)]
	for r := 0; r < t.breaksAtRank[len(t.Route)]; r++ {
		breakRank--
		b := &v.Breaks[breakRank]
		next.latest -= b.Service

		bTW := lastTWStartingBefore(b.TWs, next.latest)
		if b.TWs[bTW].End < next.latest {
			if margin := next.latest - b.TWs[bTW].End; margin < next.travel {
				next.travel -= margin
			} else {
				next.travel = 0
			}
			next.latest = b.TWs[bTW].End
		}
		t.breakLatest[breakRank] = next.latest
	}

	j := &t.in.Jobs[t.Route[len(t.Route)-1]]
	gap := t.actionTime[len(t.Route)-1] + next.travel
	next.latest -= gap

	jTW := lastTWStartingBefore(j.TWs, next.latest)
	t.latest[len(t.Route)-1] = min64(next.latest, j.TWs[jTW].End)
}

// fwdUpdateActionTimeFrom recomputes setup+service times following a change
// of previous location.
func (t *TWRoute) fwdUpdateActionTimeFrom(rank int) {
	currentIndex := t.in.Jobs[t.Route[rank]].Location
	for i := rank + 1; i < len(t.Route); i++ {
		t.actionTime[i] = t.actionTimeFor(t.Route[i], currentIndex)
		currentIndex = t.in.Jobs[t.Route[i]].Location
	}
}

func (t *TWRoute) breakMargin(b *model.Break, load model.Amount) model.Amount {
	if b.MaxLoad != nil {
		return b.MaxLoad.Sub(load)
	}
	return model.MaxAmount(t.in.AmountSize())
}

func (t *TWRoute) fwdUpdateBreaksLoadMarginFrom(rank int) {
	v := &t.in.Vehicles[t.VRank]

	fwdSmallest := model.MaxAmount(t.in.AmountSize())
	if t.breaksCounts[rank] != 0 {
		fwdSmallest = t.fwdSmallestBreaksLoadMargin[t.breaksCounts[rank]-1].Clone()
	}

	for i := rank; i <= len(t.Route); i++ {
		if t.breaksAtRank[i] == 0 {
			continue
		}
		currentLoad := t.LoadAtStep(i)
		for breakRank := t.breaksCounts[i] - t.breaksAtRank[i]; breakRank < t.breaksCounts[i]; breakRank++ {
			b := &v.Breaks[breakRank]
			fwdSmallest.MinInPlace(t.breakMargin(b, currentLoad))
			t.fwdSmallestBreaksLoadMargin[breakRank] = fwdSmallest.Clone()
		}
	}
}

func (t *TWRoute) bwdUpdateBreaksLoadMarginFrom(rank int) {
	v := &t.in.Vehicles[t.VRank]

	bwdSmallest := model.MaxAmount(t.in.AmountSize())
	if t.breaksCounts[rank] != t.breaksCounts[len(t.breaksCounts)-1] {
		bwdSmallest = t.bwdSmallestBreaksLoadMargin[t.breaksCounts[rank]].Clone()
	}

	for bwdI := 0; bwdI <= rank; bwdI++ {
		i := rank - bwdI
		if t.breaksAtRank[i] == 0 {
			continue
		}
		currentLoad := t.LoadAtStep(i)
		for c := 0; c < t.breaksAtRank[i]; c++ {
			breakRank := t.breaksCounts[i] - 1 - c
			b := &v.Breaks[breakRank]
			bwdSmallest.MinInPlace(t.breakMargin(b, currentLoad))
			t.bwdSmallestBreaksLoadMargin[breakRank] = bwdSmallest.Clone()
		}
	}
}

// orderChoice holds the sequencing decision when a job and a break compete
// for the next slot. Neither flag set means the insertion is infeasible.
type orderChoice struct {
	jTW           int
	bTW           int
	addJobFirst   bool
	addBreakFirst bool
}

// orderChoice decides between job-first and break-first sequencing. For a
// pickup, pickup-first is preferred only when the matching delivery remains
// feasible afterwards. For a single job, the ordering minimizing the
// sequence's earliest end wins; ties go to the earliest deadline, except
// deliveries which are never postponed behind a zero-max-load break.
func (t *TWRoute) orderChoice(jobRank int, jobActionTime int64, breakRank int, previous previousInfo, next nextInfo, currentLoad model.Amount, checkMaxLoad bool) orderChoice {
	v := &t.in.Vehicles[t.VRank]
	j := &t.in.Jobs[jobRank]
	b := &v.Breaks[breakRank]

	oc := orderChoice{
		jTW: firstTWNotEndingBefore(j.TWs, previous.earliest+previous.travel),
		bTW: firstTWNotEndingBefore(b.TWs, previous.earliest),
	}
	if oc.jTW < 0 || oc.bTW < 0 {
		// If either job or break can't fit first, then none of the
		// orderings are valid.
		return oc
	}

	// Try putting job first then break.
	earliestJobEnd := max64(previous.earliest+previous.travel, j.TWs[oc.jTW].Start) + jobActionTime
	var jobThenBreakMargin int64
	var jobThenBreakEnd int64

	newBTW := firstTWNotEndingBefore(b.TWs, earliestJobEnd)
	if newBTW < 0 {
		// Break does not fit after job due to its time windows.
		oc.addBreakFirst = !checkMaxLoad || b.IsValidForLoad(currentLoad)
		return oc
	}

	travelAfterBreak := next.travel
	if earliestJobEnd < b.TWs[newBTW].Start {
		jobThenBreakMargin = b.TWs[newBTW].Start - earliestJobEnd
		if jobThenBreakMargin < travelAfterBreak {
			travelAfterBreak -= jobThenBreakMargin
		} else {
			travelAfterBreak = 0
		}
		jobThenBreakEnd = b.TWs[oc.bTW].Start + b.Service
	} else {
		jobThenBreakEnd = earliestJobEnd + b.Service
	}

	if jobThenBreakEnd+travelAfterBreak > next.latest {
		// Starting the break is possible but then next step is not.
		oc.addBreakFirst = true
		return oc
	}

	if checkMaxLoad && j.Kind == model.JobSingle &&
		(!b.IsValidForLoad(currentLoad.Add(j.Pickup).Sub(j.Delivery)) ||
			!j.Pickup.LE(t.bwdSmallestBreaksLoadMargin[breakRank])) {
		// Break won't fit right after job for load reason.
		oc.addBreakFirst = b.IsValidForLoad(currentLoad)
		return oc
	}

	// Try putting break first then job.
	if checkMaxLoad && !b.IsValidForLoad(currentLoad) {
		oc.addJobFirst = true
		return oc
	}

	travelAfterBreak = previous.travel
	earliestJobStart := previous.earliest

	if previous.earliest < b.TWs[oc.bTW].Start {
		if margin := b.TWs[oc.bTW].Start - previous.earliest; margin < travelAfterBreak {
			travelAfterBreak -= margin
		} else {
			travelAfterBreak = 0
		}
		earliestJobStart = b.TWs[oc.bTW].Start
	}
	earliestJobStart += b.Service + travelAfterBreak

	newJTW := firstTWNotEndingBefore(j.TWs, earliestJobStart)
	if newJTW < 0 {
		// Job does not fit after break due to its time windows.
		oc.addJobFirst = true
		return oc
	}
	breakThenJobEnd := max64(earliestJobStart, j.TWs[newJTW].Start) + jobActionTime

	if breakThenJobEnd+next.travel > next.latest {
		// Arrival at the job is valid but next step is not.
		oc.addJobFirst = true
		return oc
	}

	// Both orderings are doable based on timing constraints.

	if j.Kind == model.JobPickup {
		matchingD := &t.in.Jobs[jobRank+1]

		// Try pickup -> break -> delivery.
		deliveryTravel := t.in.Duration(t.VRank, j.Location, matchingD.Location)
		if jobThenBreakMargin < deliveryTravel {
			deliveryTravel -= jobThenBreakMargin
		} else {
			deliveryTravel = 0
		}
		pbdCandidate := jobThenBreakEnd + deliveryTravel
		if firstTWNotEndingBefore(matchingD.TWs, pbdCandidate) >= 0 &&
			(!checkMaxLoad || b.IsValidForLoad(currentLoad.Add(j.Pickup))) {
			oc.addJobFirst = true
			return oc
		}

		// Try pickup -> delivery -> break.
		deliveryCandidate := earliestJobEnd + t.in.Duration(t.VRank, j.Location, matchingD.Location)
		if dTW := firstTWNotEndingBefore(matchingD.TWs, deliveryCandidate); dTW >= 0 {
			matchingDActionTime := t.actionTimeFor(jobRank+1, j.Location)
			breakCandidate := max64(deliveryCandidate, matchingD.TWs[dTW].Start) + matchingDActionTime
			if firstTWNotEndingBefore(b.TWs, breakCandidate) >= 0 {
				oc.addJobFirst = true
				return oc
			}
		}

		// Pickup first leads to infeasible options, put break first.
		oc.addBreakFirst = true
		return oc
	}

	if breakThenJobEnd < jobThenBreakEnd {
		oc.addBreakFirst = true
	} else if breakThenJobEnd == jobThenBreakEnd {
		// Same end date both ways: decide on earliest deadline, except
		// deliveries. A delivery without TW constraint postponed past a
		// zero max-load break can introduce arbitrary waiting time.
		if j.Kind == model.JobDelivery || j.TWs[oc.jTW].End <= b.TWs[oc.bTW].End {
			oc.addJobFirst = true
		} else {
			oc.addBreakFirst = true
		}
	} else {
		oc.addJobFirst = true
	}

	return oc
}

// deliverySumOfRange sums the single-job deliveries of an insertion sequence.
func (t *TWRoute) deliverySumOfRange(jobs []int) model.Amount {
	sum := t.in.ZeroAmount().Clone()
	for _, jr := range jobs {
		if j := &t.in.Jobs[jr]; j.Kind == model.JobSingle {
			sum.AddInPlace(j.Delivery)
		}
	}
	return sum
}

// IsValidAdditionForTW checks the insertion of a single job at rank against
// time windows, breaks, pinned anchors and the soft-pinned lateness budget.
func (t *TWRoute) IsValidAdditionForTW(jobRank, rank int) bool {
	if !t.RawRoute.IsValidAdditionForTW(jobRank, rank) {
		return false
	}
	return t.isValidRangeAddition(t.in.Jobs[jobRank].Delivery, []int{jobRank}, rank, rank, true)
}

func (t *TWRoute) IsValidAdditionForTWWithoutMaxLoad(jobRank, rank int) bool {
	if !t.RawRoute.IsValidAdditionForTW(jobRank, rank) {
		return false
	}
	return t.isValidRangeAddition(t.in.Jobs[jobRank].Delivery, []int{jobRank}, rank, rank, false)
}

// IsValidRangeAdditionForTW simulates replacing [firstRank, lastRank) with
// the given jobs plus the breaks currently assigned in that range.
func (t *TWRoute) IsValidRangeAdditionForTW(delivery model.Amount, jobs []int, firstRank, lastRank int) bool {
	if !t.RawRoute.IsValidRangeAdditionForTW(delivery, jobs, firstRank, lastRank) {
		return false
	}
	return t.isValidRangeAddition(delivery, jobs, firstRank, lastRank, true)
}

func (t *TWRoute) isValidRangeAddition(delivery model.Amount, jobs []int, firstRank, lastRank int, checkMaxLoad bool) bool {
	if firstRank > len(t.Route) || lastRank > len(t.Route) || firstRank > lastRank {
		return false
	}

	// Hard no-prepend rule with a zero lateness budget: any insertion at
	// the route head would delay every pinned step behind it.
	if t.in.PinnedSoftTiming() && t.in.PinnedViolationBudget() == 0 &&
		firstRank == 0 && len(t.Route) > 0 {
		for _, jr := range t.Route {
			if t.in.Jobs[jr].Pinned {
				return false
			}
		}
	}

	v := &t.in.Vehicles[t.VRank]
	checkMaxLoad = checkMaxLoad && t.hasBreakMaxLoad

	var current previousInfo
	var next nextInfo

	if len(jobs) > 0 {
		current = t.previousInfo(jobs[0], firstRank)
		next = t.nextInfo(jobs[len(jobs)-1], lastRank)
	} else {
		// This is actually a removal as no jobs are inserted.
		current = previousInfo{earliest: t.VStart, locationIndex: -1}
		next = nextInfo{latest: t.VEnd}

		if firstRank > 0 {
			previousJob := &t.in.Jobs[t.Route[firstRank-1]]
			current.earliest = t.earliest[firstRank-1] + t.actionTime[firstRank-1]
			current.locationIndex = previousJob.Location

			if lastRank < len(t.Route) {
				next.latest = t.latest[lastRank]
				next.travel = t.in.Duration(t.VRank, previousJob.Location, t.in.Jobs[t.Route[lastRank]].Location)
			} else if t.HasEnd {
				next.travel = t.in.Duration(t.VRank, previousJob.Location, *v.End)
			}
		} else {
			if lastRank < len(t.Route) {
				next.latest = t.latest[lastRank]
				if t.HasStart {
					current.locationIndex = *v.Start
					next.travel = t.in.Duration(t.VRank, *v.Start, t.in.Jobs[t.Route[lastRank]].Location)
				}
			} else {
				// Emptying the whole route is valid.
				return true
			}
		}
	}

	// A zero lateness budget categorically forbids inserting right before
	// a pinned step.
	if t.in.PinnedSoftTiming() && t.in.PinnedViolationBudget() == 0 &&
		lastRank < len(t.Route) && t.in.Jobs[t.Route[lastRank]].Pinned {
		return false
	}

	currentBreak := t.breaksCounts[firstRank] - t.breaksAtRank[firstRank]
	lastBreak := t.breaksCounts[lastRank]
	if lastBreak > len(v.Breaks) {
		lastBreak = len(v.Breaks)
	}
	if currentBreak > lastBreak {
		currentBreak = lastBreak
	}

	// Maintain current load over the insertion range, lowered by the
	// removed range.
	var currentLoad model.Amount
	if checkMaxLoad {
		previousInitLoad := t.in.ZeroAmount()
		if len(t.Route) != 0 {
			previousInitLoad = t.LoadAtStep(firstRank)
		}
		deltaDelivery := delivery.Sub(t.DeliveryInRange(firstRank, lastRank))

		if currentBreak != 0 && !deltaDelivery.LE(t.fwdSmallestBreaksLoadMargin[currentBreak-1]) {
			return false
		}
		currentLoad = previousInitLoad.Add(deltaDelivery)
	}

	// Propagate earliest dates for all jobs and breaks in their
	// respective addition ranges.
	jobIdx := 0
	for jobIdx < len(jobs) || currentBreak != lastBreak {
		if jobIdx == len(jobs) {
			// Earliest end date for break after last inserted jobs.
			b := &v.Breaks[currentBreak]

			bTW := firstTWNotEndingBefore(b.TWs, current.earliest)
			if bTW < 0 {
				return false
			}
			if checkMaxLoad && !b.IsValidForLoad(currentLoad) {
				return false
			}

			if current.earliest < b.TWs[bTW].Start {
				if margin := b.TWs[bTW].Start - current.earliest; margin < next.travel {
					next.travel -= margin
				} else {
					next.travel = 0
				}
				current.earliest = b.TWs[bTW].Start
			}
			current.earliest += b.Service
			currentBreak++
			continue
		}

		j := &t.in.Jobs[jobs[jobIdx]]

		if currentBreak == lastBreak {
			// Earliest end date for job after last inserted breaks.
			current.earliest += current.travel

			jTW := firstTWNotEndingBefore(j.TWs, current.earliest)
			if jTW < 0 {
				return false
			}
			jobAction := t.actionTimeFor(jobs[jobIdx], current.locationIndex)
			current.locationIndex = j.Location
			jobStart := max64(current.earliest, j.TWs[jTW].Start)
			current.earliest = jobStart + jobAction

			if checkMaxLoad {
				currentLoad.AddInPlace(j.Pickup)
				currentLoad.SubInPlace(j.Delivery)
			}

			jobIdx++
			if jobIdx < len(jobs) {
				current.travel = t.in.Duration(t.VRank, j.Location, t.in.Jobs[jobs[jobIdx]].Location)
			}
			continue
		}

		// Both jobs and breaks remain: decide on ordering.
		b := &v.Breaks[currentBreak]
		jobAction := t.actionTimeFor(jobs[jobIdx], current.locationIndex)

		oc := t.orderChoice(jobs[jobIdx], jobAction, currentBreak, current, next, currentLoad, checkMaxLoad)
		if !oc.addJobFirst && !oc.addBreakFirst {
			return false
		}

		if oc.addBreakFirst {
			if checkMaxLoad && !b.IsValidForLoad(currentLoad) {
				return false
			}

			if current.earliest < b.TWs[oc.bTW].Start {
				if margin := b.TWs[oc.bTW].Start - current.earliest; margin < current.travel {
					current.travel -= margin
				} else {
					current.travel = 0
				}
				current.earliest = b.TWs[oc.bTW].Start
			}
			current.earliest += b.Service
			currentBreak++
		}
		if oc.addJobFirst {
			current.locationIndex = j.Location
			jobStart := max64(current.earliest+current.travel, j.TWs[oc.jTW].Start)
			current.earliest = jobStart + jobAction

			if checkMaxLoad {
				currentLoad.AddInPlace(j.Pickup)
				currentLoad.SubInPlace(j.Delivery)
			}

			jobIdx++
			if jobIdx < len(jobs) {
				current.travel = t.in.Duration(t.VRank, j.Location, t.in.Jobs[jobs[jobIdx]].Location)
			}
		}
	}

	if checkMaxLoad && lastBreak < len(v.Breaks) {
		previousFinalLoad := t.in.ZeroAmount()
		if len(t.Route) != 0 {
			previousFinalLoad = t.LoadAtStep(lastRank)
		}
		deltaPickup := currentLoad.Sub(previousFinalLoad)
		if !deltaPickup.LE(t.bwdSmallestBreaksLoadMargin[lastBreak]) {
			return false
		}
	}

	if lastRank < len(t.Route) &&
		t.in.Jobs[t.Route[lastRank]].Location != current.locationIndex {
		// A task right after the replace range now gets setup time.
		jAfter := &t.in.Jobs[t.Route[lastRank]]
		jAfterRank := t.Route[lastRank]
		newAction := t.in.JobSetup(jAfterRank, t.VType) + t.in.JobService(jAfterRank, t.VType)
		if t.actionTime[lastRank] < newAction {
			// Setup time did not previously apply: the margin check in
			// the return clause may pass, but shifting the next task's
			// earliest date with the new setup time may break it.
			earliestAfter := current.earliest + next.travel
			jAfterTW := firstTWNotEndingBefore(jAfter.TWs, earliestAfter)
			if jAfterTW < 0 {
				return false
			}
			earliestAfter = max64(earliestAfter, jAfter.TWs[jAfterTW].Start)

			nextAfter := t.nextInfo(t.Route[lastRank], lastRank+1)

			breakRank := t.breaksCounts[lastRank+1] - t.breaksAtRank[lastRank+1]
			for r := 0; r < t.breaksAtRank[lastRank+1]; r, breakRank = r+1, breakRank+1 {
				b := &v.Breaks[breakRank]
				earliestAfter += newAction

				bTW := firstTWNotEndingBefore(b.TWs, earliestAfter)
				if bTW < 0 {
					return false
				}
				if earliestAfter < b.TWs[bTW].Start {
					if margin := b.TWs[bTW].Start - earliestAfter; margin < nextAfter.travel {
						nextAfter.travel -= margin
					} else {
						nextAfter.travel = 0
					}
					earliestAfter = b.TWs[bTW].Start
				}
				newAction = b.Service
			}

			if earliestAfter+newAction+nextAfter.travel > nextAfter.latest {
				return false
			}
		}
	}

	twOK := current.earliest+next.travel <= next.latest

	if !twOK && !t.in.PinnedSoftTiming() {
		return false
	}

	if t.in.PinnedSoftTiming() && lastRank < len(t.Route) && len(t.baselineServiceStart) > 0 {
		// Added delay at the next original step, measured against the
		// relaxed-seed baseline.
		arrivalWithInsertion := current.earliest + next.travel
		baseline := t.baselineServiceStart[len(t.baselineServiceStart)-1]
		if lastRank < len(t.baselineServiceStart) {
			baseline = t.baselineServiceStart[lastRank]
		}
		var delta int64
		if arrivalWithInsertion > baseline {
			delta = arrivalWithInsertion - baseline
		}

		// Allowed added delay up to any pinned step at or after lastRank.
		allowed := maxDuration
		for k := lastRank; k < len(t.Route); k++ {
			if !t.in.Jobs[t.Route[k]].Pinned {
				continue
			}
			j := &t.in.Jobs[t.Route[k]]
			baseK := baseline
			if k < len(t.baselineServiceStart) {
				baseK = t.baselineServiceStart[k]
			}
			var stepAllowed int64
			lateAlready := true
			for _, tw := range j.TWs {
				if baseK <= tw.End {
					lateAlready = false
					// Slack to the window end; early arrival is not
					// penalized.
					stepAllowed = min64(tw.End-baseK, t.in.PinnedViolationBudget())
					break
				}
			}
			if lateAlready {
				stepAllowed = 0
			}
			if stepAllowed < allowed {
				allowed = stepAllowed
			}
		}
		if allowed == maxDuration {
			// No pinned steps ahead; no guard.
			return twOK
		}
		if delta > allowed {
			return false
		}
	}

	return twOK
}

// Add inserts a single job at rank, rescheduling through Replace.
func (t *TWRoute) Add(jobRank, rank int) {
	t.Replace(t.in.Jobs[jobRank].Delivery, []int{jobRank}, rank, rank)
}

func (t *TWRoute) IsValidRemoval(rank, count int) bool {
	return t.isValidRangeAddition(t.in.ZeroAmount(), nil, rank, rank+count, true)
}

// Remove erases count jobs at rank, rescheduling through Replace.
func (t *TWRoute) Remove(rank, count int) {
	t.Replace(t.in.ZeroAmount(), nil, rank, rank+count)
}

// Replace swaps [firstRank, lastRank) for the given job sequence, then fixes
// earliest/latest dates, action times, break placement and break load
// margins around the modified range.
func (t *TWRoute) Replace(delivery model.Amount, jobs []int, firstRank, lastRank int) {
	v := &t.in.Vehicles[t.VRank]

	var current previousInfo
	var next nextInfo

	if len(jobs) > 0 {
		current = t.previousInfo(jobs[0], firstRank)
		next = t.nextInfo(jobs[len(jobs)-1], lastRank)
	} else {
		current = previousInfo{earliest: t.VStart, locationIndex: -1}
		next = nextInfo{latest: t.VEnd}

		if firstRank > 0 {
			previousJob := &t.in.Jobs[t.Route[firstRank-1]]
			previousIndex := previousJob.Location
			current.earliest = t.earliest[firstRank-1] + t.actionTime[firstRank-1]
			current.locationIndex = previousIndex

			if lastRank < len(t.Route) {
				next.latest = t.latest[lastRank]
				next.travel = t.in.Duration(t.VRank, previousIndex, t.in.Jobs[t.Route[lastRank]].Location)
			} else if t.HasEnd {
				next.travel = t.in.Duration(t.VRank, previousIndex, *v.End)
			}
		} else if lastRank < len(t.Route) {
			next.latest = t.latest[lastRank]
			if t.HasStart {
				current.locationIndex = *v.Start
				next.travel = t.in.Duration(t.VRank, *v.Start, t.in.Jobs[t.Route[lastRank]].Location)
			}
		}
	}

	currentBreak := t.breaksCounts[firstRank] - t.breaksAtRank[firstRank]
	lastBreak := t.breaksCounts[lastRank]

	previousInitLoad := t.in.ZeroAmount()
	previousFinalLoad := t.in.ZeroAmount()
	if len(t.Route) != 0 {
		previousInitLoad = t.LoadAtStep(firstRank)
		previousFinalLoad = t.LoadAtStep(lastRank)
	}
	deltaDelivery := delivery.Sub(t.DeliveryInRange(firstRank, lastRank))
	currentLoad := previousInitLoad.Add(deltaDelivery)

	// Update break load margins prior to the modified range, saturating
	// instead of overflowing.
	for i := 0; i < currentBreak; i++ {
		m := t.fwdSmallestBreaksLoadMargin[i]
		for a := range deltaDelivery {
			m[a] = model.SaturatingSub(m[a], deltaDelivery[a])
		}
	}

	previousBreaksCounts := 0
	if firstRank != 0 {
		previousBreaksCounts = t.breaksCounts[firstRank-1]
	}

	eraseCount := lastRank - firstRank
	addCount := len(jobs)

	// Overwrite dates in the edited range so propagation below does not
	// stop early on stale values.
	if addCount < eraseCount {
		toErase := eraseCount - addCount
		t.Route = eraseAt(t.Route, firstRank, toErase)
		t.earliest = eraseAt(t.earliest, firstRank, toErase)
		t.latest = eraseAt(t.latest, firstRank, toErase)
		t.actionTime = eraseAt(t.actionTime, firstRank, toErase)
		t.breaksAtRank = eraseAt(t.breaksAtRank, firstRank, toErase)
		t.breaksCounts = eraseAt(t.breaksCounts, firstRank, toErase)

		for i := firstRank; i < firstRank+addCount; i++ {
			t.earliest[i] = maxDuration
			t.latest[i] = 0
		}
	} else {
		for i := firstRank; i < firstRank+eraseCount; i++ {
			t.earliest[i] = maxDuration
			t.latest[i] = 0
		}
		toInsert := addCount - eraseCount
		t.Route = insertZeros(t.Route, firstRank, toInsert)
		t.earliest = insertZeros(t.earliest, firstRank, toInsert)
		t.latest = insertZeros(t.latest, firstRank, toInsert)
		t.actionTime = insertZeros(t.actionTime, firstRank, toInsert)
		t.breaksAtRank = insertZeros(t.breaksAtRank, firstRank, toInsert)
		t.breaksCounts = insertZeros(t.breaksCounts, firstRank, toInsert)
	}

	currentJobRank := firstRank
	breaksBefore := 0

	// Keep the trailing sentinel slot for end-of-route breaks.
	expectedSlots := len(t.Route) + 1
	for len(t.breaksAtRank) < expectedSlots {
		t.breaksAtRank = append(t.breaksAtRank, 0)
	}
	t.breaksAtRank = t.breaksAtRank[:expectedSlots]
	for len(t.breaksCounts) < expectedSlots {
		t.breaksCounts = append(t.breaksCounts, 0)
	}
	t.breaksCounts = t.breaksCounts[:expectedSlots]

	// Propagate earliest dates and action times over the addition range.
	jobIdx := 0
	for jobIdx < len(jobs) || currentBreak != lastBreak {
		if jobIdx == len(jobs) {
			if currentBreak >= len(v.Breaks) {
				currentBreak = lastBreak
				continue
			}
			b := &v.Breaks[currentBreak]

			bTW := firstTWNotEndingBefore(b.TWs, current.earliest)
			if bTW >= 0 && current.earliest < b.TWs[bTW].Start {
				if margin := b.TWs[bTW].Start - current.earliest; margin < next.travel {
					next.travel -= margin
				} else {
					next.travel = 0
				}
				current.earliest = b.TWs[bTW].Start
			}
			t.breakEarliest[currentBreak] = current.earliest
			current.earliest += b.Service

			t.setFwdBreakMargin(currentBreak, b, currentLoad)

			breaksBefore++
			currentBreak++
			continue
		}

		j := &t.in.Jobs[jobs[jobIdx]]

		if currentBreak == lastBreak {
			current.earliest += current.travel

			jTW := firstTWNotEndingBefore(j.TWs, current.earliest)
			if jTW >= 0 {
				current.earliest = max64(current.earliest, j.TWs[jTW].Start)
			}

			t.Route[currentJobRank] = jobs[jobIdx]
			t.earliest[currentJobRank] = current.earliest
			t.breaksAtRank[currentJobRank] = breaksBefore
			t.breaksCounts[currentJobRank] = previousBreaksCounts + breaksBefore

			t.actionTime[currentJobRank] = t.actionTimeFor(jobs[jobIdx], current.locationIndex)
			current.locationIndex = j.Location
			current.earliest += t.actionTime[currentJobRank]

			currentJobRank++
			previousBreaksCounts += breaksBefore
			breaksBefore = 0

			currentLoad.AddInPlace(j.Pickup)
			currentLoad.SubInPlace(j.Delivery)

			jobIdx++
			if jobIdx < len(jobs) {
				current.travel = t.in.Duration(t.VRank, j.Location, t.in.Jobs[jobs[jobIdx]].Location)
			}
			continue
		}

		if currentBreak >= len(v.Breaks) {
			currentBreak = lastBreak
			continue
		}
		b := &v.Breaks[currentBreak]
		jobAction := t.actionTimeFor(jobs[jobIdx], current.locationIndex)

		oc := t.orderChoice(jobs[jobIdx], jobAction, currentBreak, current, next, currentLoad, true)

		if oc.addBreakFirst {
			if current.earliest < b.TWs[oc.bTW].Start {
				if margin := b.TWs[oc.bTW].Start - current.earliest; margin < current.travel {
					current.travel -= margin
				} else {
					current.travel = 0
				}
				current.earliest = b.TWs[oc.bTW].Start
			}
			t.breakEarliest[currentBreak] = current.earliest
			current.earliest += b.Service

			t.setFwdBreakMargin(currentBreak, b, currentLoad)

			breaksBefore++
			currentBreak++
		}
		if oc.addJobFirst {
			current.earliest = max64(current.earliest+current.travel, j.TWs[oc.jTW].Start)

			t.Route[currentJobRank] = jobs[jobIdx]
			t.earliest[currentJobRank] = current.earliest
			t.breaksAtRank[currentJobRank] = breaksBefore
			t.breaksCounts[currentJobRank] = previousBreaksCounts + breaksBefore

			t.actionTime[currentJobRank] = jobAction
			current.earliest += jobAction
			current.locationIndex = j.Location

			currentJobRank++
			previousBreaksCounts += breaksBefore
			breaksBefore = 0

			currentLoad.AddInPlace(j.Pickup)
			currentLoad.SubInPlace(j.Delivery)

			jobIdx++
			if jobIdx < len(jobs) {
				current.travel = t.in.Duration(t.VRank, j.Location, t.in.Jobs[jobs[jobIdx]].Location)
			}
		}
	}

	// Update break load margins after the modified range.
	deltaPickup := currentLoad.Sub(previousFinalLoad)
	for i := lastBreak; i < len(v.Breaks); i++ {
		m := t.bwdSmallestBreaksLoadMargin[i]
		for a := range deltaPickup {
			m[a] = model.SaturatingSub(m[a], deltaPickup[a])
		}
	}

	// Remaining breaks due before the next step.
	t.breaksAtRank[currentJobRank] = breaksBefore
	t.breaksCounts[currentJobRank] = previousBreaksCounts + breaksBefore

	if len(t.Route) > 0 {
		validLatestDateRank := currentJobRank
		validEarliestDateRank := 0
		if firstRank > 0 {
			validEarliestDateRank = firstRank - 1
		}
		replaceLastJobs := currentJobRank == len(t.Route)
		doUpdateLastLatestDate := false

		if replaceLastJobs {
			t.EarliestEnd = current.earliest + next.travel
			doUpdateLastLatestDate = true
			validLatestDateRank = len(t.Route) - 1
		} else {
			// currentJobRank is the first non-replaced job.
			jAfterRank := t.Route[currentJobRank]
			newAction := t.actionTimeFor(jAfterRank, current.locationIndex)

			currentActionTimeChanged := newAction != t.actionTime[currentJobRank]
			if currentActionTimeChanged {
				// The time spent at the first retained task changed, so
				// its latest date needs updating, directly if at route
				// end, otherwise backward from the next task.
				if currentJobRank == len(t.Route)-1 {
					doUpdateLastLatestDate = true
				} else {
					validLatestDateRank = currentJobRank + 1
					// Neutralize the stop criterion of the backward
					// propagation at currentJobRank.
					t.latest[currentJobRank] = 0
				}
			}

			if currentJobRank == 0 {
				// First jobs erased and not replaced: refresh the new
				// head's earliest date and action time.
				jAfter := &t.in.Jobs[jAfterRank]
				current.earliest += next.travel
				if jTW := firstTWNotEndingBefore(jAfter.TWs, current.earliest); jTW >= 0 {
					t.earliest[0] = max64(current.earliest, jAfter.TWs[jTW].Start)
				} else {
					t.earliest[0] = current.earliest
				}
				t.actionTime[0] = newAction
			} else if currentJobRank-1 < validEarliestDateRank {
				validEarliestDateRank = currentJobRank - 1
			}
		}

		if !replaceLastJobs {
			// Force recomputation of earliest dates for the suffix that
			// may rely on the modified prefix; a neutral value keeps the
			// forward propagation from stopping early.
			resetFrom := validEarliestDateRank + 1
			if resetFrom < len(t.Route) {
				for i := resetFrom; i < len(t.Route); i++ {
					t.earliest[i] = t.VEnd
					t.latest[i] = t.VEnd
				}
				t.fwdUpdateActionTimeFrom(validEarliestDateRank)
				t.fwdUpdateEarliestFrom(validEarliestDateRank)
				// Latest dates above validLatestDateRank were wiped too,
				// so the backward propagation has to restart from the
				// route end to re-establish them.
				doUpdateLastLatestDate = true
				validLatestDateRank = len(t.Route) - 1
			}
		}

		if doUpdateLastLatestDate {
			t.updateLastLatestDate()
		}
		if validLatestDateRank >= len(t.Route) {
			validLatestDateRank = len(t.Route) - 1
		}
		t.bwdUpdateLatestFrom(validLatestDateRank)
	}

	t.UpdateAmounts()

	if lastBreak < len(v.Breaks) {
		t.fwdUpdateBreaksLoadMarginFrom(currentJobRank)
	}
	if lastBreak > 0 {
		t.bwdUpdateBreaksLoadMarginFrom(currentJobRank)
	}
}

func (t *TWRoute) setFwdBreakMargin(breakRank int, b *model.Break, currentLoad model.Amount) {
	margin := t.breakMargin(b, currentLoad)
	if breakRank == 0 {
		t.fwdSmallestBreaksLoadMargin[0] = margin
		return
	}
	prev := t.fwdSmallestBreaksLoadMargin[breakRank-1]
	out := margin.Clone()
	out.MinInPlace(prev)
	t.fwdSmallestBreaksLoadMargin[breakRank] = out
}

func eraseAt[T any](s []T, at, count int) []T {
	return append(s[:at], s[at+count:]...)
}

func insertZeros[T any](s []T, at, count int) []T {
	if count == 0 {
		return s
	}
	var zero T
	for i := 0; i < count; i++ {
		s = append(s, zero)
	}
	copy(s[at+count:], s[at:])
	for i := at; i < at+count; i++ {
		s[i] = zero
	}
	return s
}
