package opt

import "fleetopt/internal/model"

// RawRoute tracks the capacity and load state of one vehicle's route and
// answers insertion feasibility queries that do not involve time windows:
// loaded capacity, sub-route peaks, exclusive-tag counts, pinned anchors and
// the first-leg distance bound.
type RawRoute struct {
	in *Input

	zero model.Amount

	// fwdPickups[i] (resp. fwdDeliveries[i]) stores the total pickups
	// (resp. deliveries) for single jobs up to rank i.
	fwdPickups    []model.Amount
	fwdDeliveries []model.Amount

	// bwdDeliveries[i] (resp. bwdPickups[i]) stores the total deliveries
	// (resp. pickups) for single jobs pending after rank i.
	bwdDeliveries []model.Amount
	bwdPickups    []model.Amount

	// pdLoads[i] stores the shipments load at rank i (included).
	pdLoads []model.Amount

	// nbPickups[i] (resp. nbDeliveries[i]) stores the number of pickups
	// (resp. deliveries) up to rank i.
	nbPickups    []int
	nbDeliveries []int

	// currentLoads[s] stores the vehicle load at *step* s (step 0 is the
	// start, not the first job rank).
	currentLoads []model.Amount

	// fwdPeaks[s] stores the peak load (component-wise) up to *step* s,
	// bwdPeaks[s] the peak load after *step* s.
	fwdPeaks []model.Amount
	bwdPeaks []model.Amount

	// Difference between vehicle capacity and the sum of single-job
	// deliveries (resp. pickups).
	deliveryMargin model.Amount
	pickupMargin   model.Amount

	// Per-tag occurrence counts on the route, and the admissible maxima.
	// Limits default to 1, raised when the seeded workload already holds
	// duplicates.
	tagCounts []int
	tagLimits []int

	// Distance cap on the start -> first job leg, nil when not enforced.
	firstLegLimit *int64

	VRank    int
	VType    int
	HasStart bool
	HasEnd   bool
	Capacity model.Amount

	Route []int
}

func NewRawRoute(in *Input, vRank int) *RawRoute {
	v := &in.Vehicles[vRank]
	zero := in.ZeroAmount()
	r := &RawRoute{
		in:             in,
		zero:           zero,
		fwdPeaks:       []model.Amount{zero, zero},
		bwdPeaks:       []model.Amount{zero, zero},
		deliveryMargin: v.Capacity.Clone(),
		pickupMargin:   v.Capacity.Clone(),
		tagCounts:      make([]int, in.NumTags()),
		tagLimits:      make([]int, in.NumTags()),
		VRank:          vRank,
		VType:          in.VehicleTypeRank(vRank),
		HasStart:       v.HasStart(),
		HasEnd:         v.HasEnd(),
		Capacity:       v.Capacity,
	}
	for t := range r.tagLimits {
		r.tagLimits[t] = 1
	}
	seeded := in.VehicleStepRanks(vRank)
	for _, jr := range seeded {
		for _, t := range in.ExclusiveTagIDs(jr) {
			r.tagCounts[t]++
			if r.tagCounts[t] > r.tagLimits[t] {
				r.tagLimits[t] = r.tagCounts[t]
			}
		}
	}
	for t := range r.tagCounts {
		r.tagCounts[t] = 0
	}
	if v.HasStart() && len(seeded) == 0 && v.MaxFirstLegDistance != nil && in.HasDistances(vRank) {
		r.firstLegLimit = v.MaxFirstLegDistance
	}
	return r
}

func (r *RawRoute) Empty() bool { return len(r.Route) == 0 }
func (r *RawRoute) Size() int   { return len(r.Route) }

func (r *RawRoute) SetRoute(route []int) {
	r.Route = append(r.Route[:0], route...)
	r.UpdateAmounts()
}

// UpdateAmounts rebuilds every derived vector from the current job sequence.
func (r *RawRoute) UpdateAmounts() {
	n := len(r.Route)
	stepSize := n + 2
	r.fwdPickups = resizeAmounts(r.fwdPickups, n)
	r.fwdDeliveries = resizeAmounts(r.fwdDeliveries, n)
	r.bwdDeliveries = resizeAmounts(r.bwdDeliveries, n)
	r.bwdPickups = resizeAmounts(r.bwdPickups, n)
	r.pdLoads = resizeAmounts(r.pdLoads, n)
	r.nbPickups = resizeInts(r.nbPickups, n)
	r.nbDeliveries = resizeInts(r.nbDeliveries, n)
	r.currentLoads = resizeAmounts(r.currentLoads, stepSize)
	r.fwdPeaks = resizeAmounts(r.fwdPeaks, stepSize)
	r.bwdPeaks = resizeAmounts(r.bwdPeaks, stepSize)

	for t := range r.tagCounts {
		r.tagCounts[t] = 0
	}
	for _, jr := range r.Route {
		for _, t := range r.in.ExclusiveTagIDs(jr) {
			r.tagCounts[t]++
		}
	}

	if n == 0 {
		// Keep peaks and loads zeroed so the capacity checks stay
		// consistent with empty routes.
		for s := 0; s < stepSize; s++ {
			r.fwdPeaks[s] = r.zero
			r.bwdPeaks[s] = r.zero
			r.currentLoads[s] = r.zero
		}
		copy(r.deliveryMargin, r.Capacity)
		copy(r.pickupMargin, r.Capacity)
		return
	}

	currentPickups := r.zero.Clone()
	currentDeliveries := r.zero.Clone()
	currentPDLoad := r.zero.Clone()
	currentNbPickups := 0
	currentNbDeliveries := 0

	for i, jr := range r.Route {
		switch job := &r.in.Jobs[jr]; job.Kind {
		case model.JobSingle:
			currentPickups.AddInPlace(job.Pickup)
			currentDeliveries.AddInPlace(job.Delivery)
		case model.JobPickup:
			currentPDLoad.AddInPlace(job.Pickup)
			currentNbPickups++
		case model.JobDelivery:
			currentPDLoad.SubInPlace(job.Delivery)
			currentNbDeliveries++
		}
		r.fwdPickups[i] = currentPickups.Clone()
		r.fwdDeliveries[i] = currentDeliveries.Clone()
		r.pdLoads[i] = currentPDLoad.Clone()
		r.nbPickups[i] = currentNbPickups
		r.nbDeliveries[i] = currentNbDeliveries
	}

	currentDeliveries = r.zero.Clone()
	currentPickups = r.zero.Clone()

	r.currentLoads[n+1] = r.fwdPickups[n-1]

	for i := 0; i < n; i++ {
		bwdI := n - i - 1
		r.bwdDeliveries[bwdI] = currentDeliveries.Clone()
		r.bwdPickups[bwdI] = currentPickups.Clone()
		load := r.fwdPickups[bwdI].Add(r.pdLoads[bwdI])
		load.AddInPlace(currentDeliveries)
		r.currentLoads[bwdI+1] = load
		if job := &r.in.Jobs[r.Route[bwdI]]; job.Kind == model.JobSingle {
			currentDeliveries.AddInPlace(job.Delivery)
			currentPickups.AddInPlace(job.Pickup)
		}
	}
	r.currentLoads[0] = currentDeliveries

	peak := r.currentLoads[0].Clone()
	r.fwdPeaks[0] = peak.Clone()
	for s := 1; s < stepSize; s++ {
		peak.MaxInPlace(r.currentLoads[s])
		r.fwdPeaks[s] = peak.Clone()
	}

	peak = r.currentLoads[stepSize-1].Clone()
	r.bwdPeaks[stepSize-1] = peak.Clone()
	for s := 1; s < stepSize; s++ {
		bwdS := stepSize - s - 1
		peak.MaxInPlace(r.currentLoads[bwdS])
		r.bwdPeaks[bwdS] = peak.Clone()
	}

	pickupsSum := r.fwdPickups[n-1]
	for i := range r.zero {
		r.deliveryMargin[i] = r.Capacity[i] - r.currentLoads[0][i]
		r.pickupMargin[i] = r.Capacity[i] - pickupsSum[i]
	}
}

func resizeAmounts(s []model.Amount, n int) []model.Amount {
	if cap(s) >= n {
		return s[:n]
	}
	return append(s[:cap(s)], make([]model.Amount, n-cap(s))...)
}

func resizeInts(s []int, n int) []int {
	if cap(s) >= n {
		return s[:n]
	}
	return append(s[:cap(s)], make([]int, n-cap(s))...)
}

func (r *RawRoute) HasPendingDeliveryAfterRank(rank int) bool {
	return r.nbDeliveries[rank] < r.nbPickups[rank]
}

func (r *RawRoute) HasDeliveryAfterRank(rank int) bool {
	return r.nbDeliveries[rank] < r.nbDeliveries[len(r.nbDeliveries)-1]
}

func (r *RawRoute) HasPickupUpToRank(rank int) bool {
	return r.nbPickups[rank] > 0
}

func (r *RawRoute) FwdPeak(rank int) model.Amount { return r.fwdPeaks[rank] }
func (r *RawRoute) BwdPeak(rank int) model.Amount { return r.bwdPeaks[rank] }

func (r *RawRoute) MaxLoad() model.Amount { return r.fwdPeaks[len(r.fwdPeaks)-1] }

// SubRouteMaxLoadBefore computes the max load of the sub-route spanning
// [0; rank).
func (r *RawRoute) SubRouteMaxLoadBefore(rank int) model.Amount {
	return r.fwdPeaks[rank].Sub(r.bwdDeliveries[rank-1])
}

// SubRouteMaxLoadAfter computes the max load of the sub-route spanning
// [rank; size).
func (r *RawRoute) SubRouteMaxLoadAfter(rank int) model.Amount {
	return r.bwdPeaks[rank].Sub(r.fwdPickups[rank-1])
}

// IsValidAdditionForCapacity checks peak-load feasibility of inserting the
// given load at rank.
func (r *RawRoute) IsValidAdditionForCapacity(pickup, delivery model.Amount, rank int) bool {
	return r.fwdPeaks[rank].Add(delivery).LE(r.Capacity) &&
		r.bwdPeaks[rank].Add(pickup).LE(r.Capacity)
}

// IsValidAdditionForLoad checks whether the current load at rank admits an
// extra pickup, just considering the capacity limitation at that point.
func (r *RawRoute) IsValidAdditionForLoad(pickup model.Amount, rank int) bool {
	load := r.zero
	if len(r.Route) != 0 {
		load = r.currentLoads[rank]
	}
	return load.Add(pickup).LE(r.Capacity)
}

// IsValidAdditionForCapacityMargins checks capacity feasibility for inclusion
// of some load in place of the jobs within [firstRank, lastRank).
func (r *RawRoute) IsValidAdditionForCapacityMargins(pickup, delivery model.Amount, firstRank, lastRank int) bool {
	firstDeliveries := r.currentLoads[0]
	if firstRank != 0 {
		firstDeliveries = r.bwdDeliveries[firstRank-1]
	}
	firstPickups := r.zero
	if firstRank != 0 {
		firstPickups = r.fwdPickups[firstRank-1]
	}
	replacedDeliveries := firstDeliveries.Sub(r.bwdDeliveries[lastRank-1])

	return r.fwdPeaks[firstRank].Add(delivery).LE(r.Capacity.Add(replacedDeliveries)) &&
		r.bwdPeaks[lastRank].Add(pickup).LE(r.Capacity.Add(r.fwdPickups[lastRank-1]).Sub(firstPickups))
}

// IsValidAdditionForCapacityInclusion simulates replacing [firstRank,
// lastRank) with the given job sequence, checking the running load against
// capacity at every intermediate point. Pinned anchors are enforced as well,
// regardless of capacity.
func (r *RawRoute) IsValidAdditionForCapacityInclusion(delivery model.Amount, jobs []int, firstRank, lastRank int) bool {
	if !r.anchorsAllowRange(jobs, firstRank, lastRank) {
		return false
	}

	initLoad := r.zero
	if len(r.Route) != 0 {
		initLoad = r.currentLoads[0]
	}
	firstDeliveries := initLoad
	if firstRank != 0 {
		firstDeliveries = r.bwdDeliveries[firstRank-1]
	}
	lastDeliveries := initLoad
	if lastRank != 0 {
		lastDeliveries = r.bwdDeliveries[lastRank-1]
	}
	replacedDeliveries := firstDeliveries.Sub(lastDeliveries)

	load := delivery.Clone()
	if len(r.Route) != 0 {
		load.AddInPlace(r.currentLoads[firstRank])
	}
	load.SubInPlace(replacedDeliveries)

	if !load.LE(r.Capacity) {
		return false
	}
	for _, jr := range jobs {
		job := &r.in.Jobs[jr]
		load.AddInPlace(job.Pickup)
		load.SubInPlace(job.Delivery)
		if !load.LE(r.Capacity) {
			return false
		}
	}
	return true
}

func (r *RawRoute) JobDeliveriesSum() model.Amount {
	if len(r.Route) == 0 {
		return r.zero
	}
	return r.currentLoads[0]
}

func (r *RawRoute) JobPickupsSum() model.Amount {
	if len(r.Route) == 0 {
		return r.zero
	}
	return r.fwdPickups[len(r.fwdPickups)-1]
}

func (r *RawRoute) DeliveryMargin() model.Amount { return r.deliveryMargin }
func (r *RawRoute) PickupMargin() model.Amount   { return r.pickupMargin }

// PickupInRange sums pickups for all jobs in [i, j).
func (r *RawRoute) PickupInRange(i, j int) model.Amount {
	if i == j || len(r.Route) == 0 {
		return r.zero
	}
	if i == 0 {
		return r.fwdPickups[j-1]
	}
	return r.fwdPickups[j-1].Sub(r.fwdPickups[i-1])
}

// DeliveryInRange sums deliveries for all jobs in [i, j).
func (r *RawRoute) DeliveryInRange(i, j int) model.Amount {
	if i == j || len(r.Route) == 0 {
		return r.zero
	}
	before := r.currentLoads[0]
	if i != 0 {
		before = r.bwdDeliveries[i-1]
	}
	return before.Sub(r.bwdDeliveries[j-1])
}

func (r *RawRoute) BwdDeliveries(i int) model.Amount { return r.bwdDeliveries[i] }
func (r *RawRoute) FwdDeliveries(i int) model.Amount { return r.fwdDeliveries[i] }
func (r *RawRoute) BwdPickups(i int) model.Amount    { return r.bwdPickups[i] }
func (r *RawRoute) FwdPickups(i int) model.Amount    { return r.fwdPickups[i] }

func (r *RawRoute) LoadAtStep(s int) model.Amount { return r.currentLoads[s] }

// firstLegOK applies the start -> first job distance bound when enforced.
func (r *RawRoute) firstLegOK(jobRank int) bool {
	if r.firstLegLimit == nil {
		return true
	}
	start := *r.in.Vehicles[r.VRank].Start
	return r.in.Distance(r.VRank, start, r.in.Jobs[jobRank].Location) <= *r.firstLegLimit
}

// anchorsAllowSingle enforces the pinned first/last boundaries for a single
// insertion at rank.
func (r *RawRoute) anchorsAllowSingle(jobRank, rank int) bool {
	if pf := r.in.PinnedFirstForVehicle(r.VRank); pf != nil {
		if pf.JobRank != nil {
			// No insertion before the pinned-first job.
			if rank == 0 && jobRank != *pf.JobRank {
				return false
			}
		} else if pf.PickupRank != nil && pf.DeliveryRank != nil {
			// Keep the [pickup, delivery] pair at the head.
			if rank <= 1 {
				return false
			}
		}
	}
	if pl := r.in.PinnedLastForVehicle(r.VRank); pl != nil {
		if pl.JobRank != nil {
			if rank == len(r.Route) && jobRank != *pl.JobRank {
				return false
			}
		} else if pl.PickupRank != nil && pl.DeliveryRank != nil {
			limit := 0
			if len(r.Route) >= 1 {
				limit = len(r.Route) - 1
			}
			if rank >= limit {
				return false
			}
		}
	}
	return true
}

// anchorsAllowRange enforces the pinned first/last boundaries for replacing
// [firstRank, lastRank) with the given job sequence. Reasoning is on the
// post-edit sequence: the first/last two positions after the hypothetical
// replace are reconstructed and compared to the anchor.
func (r *RawRoute) anchorsAllowRange(jobs []int, firstRank, lastRank int) bool {
	insertLen := len(jobs)

	if pf := r.in.PinnedFirstForVehicle(r.VRank); pf != nil {
		if pf.JobRank != nil {
			if firstRank == 0 {
				var newFirst int
				if insertLen > 0 {
					newFirst = jobs[0]
				} else if lastRank < len(r.Route) {
					newFirst = r.Route[lastRank]
				} else {
					// Route empty after the edit.
					return false
				}
				if newFirst != *pf.JobRank {
					return false
				}
			}
		} else if pf.PickupRank != nil && pf.DeliveryRank != nil {
			if firstRank == 0 {
				var n0, n1 *int
				switch {
				case insertLen >= 2:
					n0, n1 = &jobs[0], &jobs[1]
				case insertLen == 1:
					n0 = &jobs[0]
					if lastRank < len(r.Route) {
						n1 = &r.Route[lastRank]
					}
				default:
					if lastRank < len(r.Route) {
						n0 = &r.Route[lastRank]
					}
					if lastRank+1 < len(r.Route) {
						n1 = &r.Route[lastRank+1]
					}
				}
				if n0 == nil || n1 == nil || *n0 != *pf.PickupRank || *n1 != *pf.DeliveryRank {
					return false
				}
			}
			if firstRank == 1 && insertLen > 0 &&
				len(r.Route) >= 2 && r.Route[0] == *pf.PickupRank && r.Route[1] == *pf.DeliveryRank {
				return false
			}
		}
	}

	if pl := r.in.PinnedLastForVehicle(r.VRank); pl != nil {
		if pl.JobRank != nil {
			if lastRank == len(r.Route) {
				var newLast *int
				if insertLen > 0 {
					newLast = &jobs[insertLen-1]
				} else if firstRank > 0 {
					newLast = &r.Route[firstRank-1]
				}
				if newLast == nil || *newLast != *pl.JobRank {
					return false
				}
			}
		} else if pl.PickupRank != nil && pl.DeliveryRank != nil {
			if lastRank == len(r.Route) {
				if insertLen < 2 {
					return false
				}
				if jobs[insertLen-2] != *pl.PickupRank || jobs[insertLen-1] != *pl.DeliveryRank {
					return false
				}
			}
			preLast := 0
			if len(r.Route) >= 1 {
				preLast = len(r.Route) - 1
			}
			if firstRank == preLast && insertLen > 0 &&
				len(r.Route) >= 2 && r.Route[len(r.Route)-2] == *pl.PickupRank &&
				r.Route[len(r.Route)-1] == *pl.DeliveryRank {
				return false
			}
		}
	}

	return true
}

// tagsAllowRange checks the exclusive-tag limits of the route resulting from
// replacing [firstRank, lastRank) with the given job sequence.
func (r *RawRoute) tagsAllowRange(jobs []int, firstRank, lastRank int) bool {
	if r.in.NumTags() == 0 {
		return true
	}
	hasTag := false
	for _, jr := range jobs {
		if len(r.in.ExclusiveTagIDs(jr)) > 0 {
			hasTag = true
			break
		}
	}
	if !hasTag {
		return true
	}
	counts := make([]int, r.in.NumTags())
	copy(counts, r.tagCounts)
	for i := firstRank; i < lastRank; i++ {
		for _, t := range r.in.ExclusiveTagIDs(r.Route[i]) {
			counts[t]--
		}
	}
	for _, jr := range jobs {
		for _, t := range r.in.ExclusiveTagIDs(jr) {
			counts[t]++
			if counts[t] > r.tagLimits[t] {
				return false
			}
		}
	}
	return true
}

// IsValidAdditionForTW is the TW-free variant: it enforces pinned anchors,
// exclusive-tag limits and the first-leg distance bound. TWRoute shadows it
// with the full scheduling check.
func (r *RawRoute) IsValidAdditionForTW(jobRank, rank int) bool {
	if rank == 0 && !r.firstLegOK(jobRank) {
		return false
	}
	return r.anchorsAllowSingle(jobRank, rank) &&
		r.tagsAllowRange([]int{jobRank}, rank, rank)
}

func (r *RawRoute) IsValidAdditionForTWWithoutMaxLoad(jobRank, rank int) bool {
	return r.IsValidAdditionForTW(jobRank, rank)
}

// IsValidRangeAdditionForTW is the TW-free range variant: pinned anchors,
// exclusive-tag limits and the first-leg bound.
func (r *RawRoute) IsValidRangeAdditionForTW(delivery model.Amount, jobs []int, firstRank, lastRank int) bool {
	if firstRank == 0 && len(jobs) > 0 && !r.firstLegOK(jobs[0]) {
		return false
	}
	return r.anchorsAllowRange(jobs, firstRank, lastRank) &&
		r.tagsAllowRange(jobs, firstRank, lastRank)
}

func (r *RawRoute) Add(jobRank, rank int) {
	r.Route = append(r.Route, 0)
	copy(r.Route[rank+1:], r.Route[rank:])
	r.Route[rank] = jobRank
	r.UpdateAmounts()
}

// IsValidRemoval always holds: removal is capacity-safe.
func (r *RawRoute) IsValidRemoval(rank int, count int) bool { return true }

func (r *RawRoute) Remove(rank int, count int) {
	r.Route = append(r.Route[:rank], r.Route[rank+count:]...)
	r.UpdateAmounts()
}

// Replace swaps [firstRank, lastRank) for the given job sequence.
func (r *RawRoute) Replace(delivery model.Amount, jobs []int, firstRank, lastRank int) {
	r.Route = replaceRange(r.Route, jobs, firstRank, lastRank)
	r.UpdateAmounts()
}

func replaceRange(route []int, jobs []int, firstRank, lastRank int) []int {
	tail := append([]int(nil), route[lastRank:]...)
	route = append(route[:firstRank], jobs...)
	return append(route, tail...)
}
