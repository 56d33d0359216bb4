package opt

import "fleetopt/internal/model"

// Deep copies of per-route state. Search tasks run on private copies; the
// ruin-and-recreate loop also snapshots state to roll back rejected moves.

func cloneAmounts(s []model.Amount) []model.Amount {
	out := make([]model.Amount, len(s))
	for i := range s {
		out[i] = s[i].Clone()
	}
	return out
}

func cloneInts(s []int) []int {
	return append([]int(nil), s...)
}

func cloneInt64s(s []int64) []int64 {
	return append([]int64(nil), s...)
}

func (r *RawRoute) cloneInto(c *RawRoute) {
	*c = *r
	c.fwdPickups = cloneAmounts(r.fwdPickups)
	c.fwdDeliveries = cloneAmounts(r.fwdDeliveries)
	c.bwdDeliveries = cloneAmounts(r.bwdDeliveries)
	c.bwdPickups = cloneAmounts(r.bwdPickups)
	c.pdLoads = cloneAmounts(r.pdLoads)
	c.nbPickups = cloneInts(r.nbPickups)
	c.nbDeliveries = cloneInts(r.nbDeliveries)
	c.currentLoads = cloneAmounts(r.currentLoads)
	c.fwdPeaks = cloneAmounts(r.fwdPeaks)
	c.bwdPeaks = cloneAmounts(r.bwdPeaks)
	c.deliveryMargin = r.deliveryMargin.Clone()
	c.pickupMargin = r.pickupMargin.Clone()
	c.tagCounts = cloneInts(r.tagCounts)
	c.tagLimits = cloneInts(r.tagLimits)
	c.Route = cloneInts(r.Route)
}

// Clone returns an independent copy of the full schedule state.
func (t *TWRoute) Clone() *TWRoute {
	c := &TWRoute{}
	*c = *t
	t.RawRoute.cloneInto(&c.RawRoute)
	c.earliest = cloneInt64s(t.earliest)
	c.latest = cloneInt64s(t.latest)
	c.actionTime = cloneInt64s(t.actionTime)
	c.breaksAtRank = cloneInts(t.breaksAtRank)
	c.breaksCounts = cloneInts(t.breaksCounts)
	c.breakEarliest = cloneInt64s(t.breakEarliest)
	c.breakLatest = cloneInt64s(t.breakLatest)
	c.fwdSmallestBreaksLoadMargin = cloneAmounts(t.fwdSmallestBreaksLoadMargin)
	c.bwdSmallestBreaksLoadMargin = cloneAmounts(t.bwdSmallestBreaksLoadMargin)
	c.baselineServiceStart = cloneInt64s(t.baselineServiceStart)
	c.isPinnedStep = append([]bool(nil), t.isPinnedStep...)
	return c
}
