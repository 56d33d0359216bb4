package opt

import (
	"sort"

	"fleetopt/internal/model"
)

// Formatting of the final schedule into the output document: one step stream
// per route with arrivals, waiting, loads and soft-timing violations, plus
// the aggregated summary.

func jobTypeString(k model.JobKind) string {
	switch k {
	case model.JobPickup:
		return "pickup"
	case model.JobDelivery:
		return "delivery"
	default:
		return "job"
	}
}

func FormatSolution(in *Input, routes []*TWRoute, unassigned map[int]bool, computing model.ComputingTimesDoc) *model.SolutionDoc {
	doc := &model.SolutionDoc{
		Unassigned: []model.UnassignedDoc{},
		Routes:     []model.RouteDoc{},
	}
	summary := model.SummaryDoc{
		Delivery:       make([]int64, in.AmountSize()),
		Pickup:         make([]int64, in.AmountSize()),
		ComputingTimes: computing,
	}

	for _, rt := range routes {
		if rt.Empty() {
			continue
		}
		rd := formatRoute(in, rt)
		summary.Cost += rd.Cost
		for i := range summary.Delivery {
			summary.Delivery[i] += rd.Delivery[i]
			summary.Pickup[i] += rd.Pickup[i]
		}
		summary.Setup += rd.Setup
		summary.Service += rd.Service
		summary.Duration += rd.Duration
		summary.Distance += rd.Distance
		summary.WaitingTime += rd.WaitingTime
		summary.Priority += rd.Priority
		summary.Violations += rd.Violations
		doc.Routes = append(doc.Routes, rd)
	}

	tasks := make([]int, 0, len(unassigned))
	for t := range unassigned {
		tasks = append(tasks, t)
	}
	sort.Ints(tasks)
	for _, t := range tasks {
		j := &in.Jobs[t]
		doc.Unassigned = append(doc.Unassigned, model.UnassignedDoc{
			ID:            j.ID,
			Type:          jobTypeString(j.Kind),
			LocationIndex: j.Location,
		})
		if j.Kind == model.JobPickup {
			d := &in.Jobs[t+1]
			doc.Unassigned = append(doc.Unassigned, model.UnassignedDoc{
				ID:            d.ID,
				Type:          "delivery",
				LocationIndex: d.Location,
			})
		}
	}

	summary.Routes = len(doc.Routes)
	summary.Unassigned = len(doc.Unassigned)
	doc.Summary = summary
	return doc
}

func formatRoute(in *Input, t *TWRoute) model.RouteDoc {
	v := &in.Vehicles[t.VRank]
	n := len(t.Route)
	eval := RouteEvalForVehicle(in, t.VRank, t.Route)

	rd := model.RouteDoc{
		Vehicle:  v.ID,
		Cost:     eval.Cost + v.FixedCost,
		Delivery: make([]int64, in.AmountSize()),
		Pickup:   make([]int64, in.AmountSize()),
		Duration: eval.Duration,
		Distance: eval.Distance,
		Priority: PrioritySumForRoute(in, t.Route),
	}
	for _, jr := range t.Route {
		j := &in.Jobs[jr]
		for i := range rd.Delivery {
			if i < len(j.Delivery) {
				rd.Delivery[i] += j.Delivery[i]
			}
			if i < len(j.Pickup) {
				rd.Pickup[i] += j.Pickup[i]
			}
		}
	}

	current := t.VStart
	prevLoc := -1
	breakIdx := 0

	loadAt := func(s int) []int64 {
		return append([]int64(nil), t.LoadAtStep(s)...)
	}

	if v.HasStart() {
		rd.Steps = append(rd.Steps, model.StepDoc{
			Type:          "start",
			LocationIndex: *v.Start,
			Arrival:       current,
			Load:          loadAt(0),
		})
		prevLoc = *v.Start
	}

	emitBreaks := func(slot, loadStep int) {
		for b := 0; b < t.BreaksAtRank(slot); b++ {
			br := &v.Breaks[breakIdx]
			svcStart := max64(current, t.BreakEarliest(breakIdx))
			var lateness int64
			if end := br.TWs[len(br.TWs)-1].End; svcStart > end {
				lateness = svcStart - end
				rd.Violations++
			}
			wait := svcStart - current
			rd.Steps = append(rd.Steps, model.StepDoc{
				Type:        "break",
				ID:          br.ID,
				Arrival:     current,
				Service:     br.Service,
				WaitingTime: wait,
				Load:        loadAt(loadStep),
				LatenessSec: lateness,
			})
			rd.WaitingTime += wait
			rd.Service += br.Service
			current = svcStart + br.Service
			breakIdx++
		}
	}

	for i := 0; i < n; i++ {
		emitBreaks(i, i)

		jr := t.Route[i]
		j := &in.Jobs[jr]
		var travel int64
		if prevLoc >= 0 {
			travel = in.Duration(t.VRank, prevLoc, j.Location)
		}
		arrival := current + travel
		svcStart := max64(arrival, t.Earliest(i))
		wait := svcStart - arrival

		var lateness int64
		if end := j.TWs[len(j.TWs)-1].End; svcStart > end {
			lateness = svcStart - end
			rd.Violations++
		}

		service := in.JobService(jr, t.VType)
		setup := t.ActionTime(i) - service
		if setup < 0 {
			setup = 0
		}

		rd.Steps = append(rd.Steps, model.StepDoc{
			Type:          jobTypeString(j.Kind),
			ID:            j.ID,
			LocationIndex: j.Location,
			Arrival:       arrival,
			Setup:         setup,
			Service:       service,
			WaitingTime:   wait,
			Load:          loadAt(i + 1),
			LatenessSec:   lateness,
		})
		rd.Setup += setup
		rd.Service += service
		rd.WaitingTime += wait
		current = svcStart + t.ActionTime(i)
		prevLoc = j.Location
	}

	emitBreaks(n, n)

	if v.HasEnd() {
		var travel int64
		if prevLoc >= 0 {
			travel = in.Duration(t.VRank, prevLoc, *v.End)
		}
		rd.Steps = append(rd.Steps, model.StepDoc{
			Type:          "end",
			LocationIndex: *v.End,
			Arrival:       current + travel,
			Load:          loadAt(n + 1),
		})
	}

	return rd
}
