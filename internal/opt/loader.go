package opt

import "fleetopt/internal/model"

// BuildInput converts a wire problem document into a finalized Input.
// Validation failures surface as *InputError.
func BuildInput(doc *model.ProblemDoc) (*Input, error) {
	in := NewInput()

	if doc.Options != nil {
		in.SetPinnedSoftTiming(doc.Options.PinnedSoftTiming)
		in.SetPinnedViolationBudget(doc.Options.PinnedLatenessLimitSec)
		in.SetIncludeActionTimeInBudget(doc.Options.IncludeActionTimeInBudget)
		if doc.Options.BudgetDensifyCandidatesK > 0 {
			in.SetBudgetDensifyCandidatesK(doc.Options.BudgetDensifyCandidatesK)
		}
	}

	for _, jd := range doc.Jobs {
		j, err := jobFromDoc(jd)
		if err != nil {
			return nil, err
		}
		if err := in.AddJob(j); err != nil {
			return nil, err
		}
	}
	for _, sd := range doc.Shipments {
		p, d, err := shipmentFromDoc(sd)
		if err != nil {
			return nil, err
		}
		if err := in.AddShipment(p, d); err != nil {
			return nil, err
		}
	}
	for _, vd := range doc.Vehicles {
		if err := in.AddVehicle(vehicleFromDoc(vd)); err != nil {
			return nil, err
		}
	}

	for key, md := range doc.Matrices {
		if key == "" {
			key = "car"
		}
		if len(md.Durations) > 0 {
			in.SetDurationsMatrix(key, model.MatrixFromRows(md.Durations))
		}
		if len(md.Distances) > 0 {
			in.SetDistancesMatrix(key, model.MatrixFromRows(md.Distances))
		}
		if len(md.Costs) > 0 {
			in.SetCostsMatrix(key, model.MatrixFromRows(md.Costs))
		}
	}

	if err := in.Finalize(); err != nil {
		return nil, err
	}
	return in, nil
}

func twsFromDoc(tws [][2]int64) []model.TimeWindow {
	if len(tws) == 0 {
		return nil
	}
	out := make([]model.TimeWindow, len(tws))
	for i, tw := range tws {
		out[i] = model.TimeWindow{Start: tw[0], End: tw[1]}
	}
	return out
}

func penaltiesFromDoc(ps []model.PenaltyDoc) []model.VehiclePenalty {
	if len(ps) == 0 {
		return nil
	}
	out := make([]model.VehiclePenalty, len(ps))
	for i, p := range ps {
		out[i] = model.VehiclePenalty{VehicleID: p.Vehicle, Cost: p.Cost}
	}
	return out
}

func pinnedPositionFromDoc(s string, id int64) (model.PinnedPosition, error) {
	switch s {
	case "":
		return model.PinNone, nil
	case "first":
		return model.PinFirst, nil
	case "last":
		return model.PinLast, nil
	default:
		return model.PinNone, inputErrorf("invalid pinned_position %q for task %d", s, id)
	}
}

func jobFromDoc(jd model.JobDoc) (model.Job, error) {
	pos, err := pinnedPositionFromDoc(jd.PinnedPosition, jd.ID)
	if err != nil {
		return model.Job{}, err
	}
	return model.Job{
		ID:               jd.ID,
		Location:         jd.LocationIndex,
		Setup:            jd.Setup,
		Service:          jd.Service,
		SetupPerType:     jd.SetupPerType,
		ServicePerType:   jd.ServicePerType,
		Delivery:         model.Amount(jd.Delivery),
		Pickup:           model.Amount(jd.Pickup),
		Skills:           jd.Skills,
		Priority:         jd.Priority,
		TWs:              twsFromDoc(jd.TimeWindows),
		Description:      jd.Description,
		VehiclePenalties: penaltiesFromDoc(jd.VehiclePenalties),
		ExclusiveTags:    jd.ExclusiveTags,
		Budget:           jd.Budget,
		Pinned:           jd.Pinned,
		PinnedPosition:   pos,
		AllowedVehicles:  jd.AllowedVehicles,
	}, nil
}

func shipmentFromDoc(sd model.ShipmentDoc) (pickup, delivery model.Job, err error) {
	pos, err := pinnedPositionFromDoc(sd.PinnedPosition, sd.Pickup.ID)
	if err != nil {
		return model.Job{}, model.Job{}, err
	}
	stepJob := func(step model.ShipmentStepDoc) model.Job {
		return model.Job{
			ID:             step.ID,
			Location:       step.LocationIndex,
			Setup:          step.Setup,
			Service:        step.Service,
			SetupPerType:   step.SetupPerType,
			ServicePerType: step.ServicePerType,
			Skills:         sd.Skills,
			Priority:       sd.Priority,
			TWs:            twsFromDoc(step.TimeWindows),
			Description:    step.Description,
			Pinned:         sd.Pinned,
			PinnedPosition: pos,
		}
	}
	pickup = stepJob(sd.Pickup)
	pickup.Pickup = model.Amount(sd.Amount)
	pickup.VehiclePenalties = penaltiesFromDoc(sd.VehiclePenalties)
	pickup.ExclusiveTags = sd.ExclusiveTags
	pickup.Budget = sd.Budget
	pickup.AllowedVehicles = sd.AllowedVehicles

	delivery = stepJob(sd.Delivery)
	delivery.Delivery = model.Amount(sd.Amount)
	delivery.AllowedVehicles = sd.AllowedVehicles
	return pickup, delivery, nil
}

func vehicleFromDoc(vd model.VehicleDoc) model.Vehicle {
	v := model.Vehicle{
		ID:                  vd.ID,
		Profile:             vd.Profile,
		Type:                vd.Type,
		Capacity:            model.Amount(vd.Capacity),
		Skills:              vd.Skills,
		Start:               vd.StartIndex,
		End:                 vd.EndIndex,
		MaxFirstLegDistance: vd.MaxFirstLegDistance,
		Description:         vd.Description,
	}
	if v.Profile == "" {
		v.Profile = "car"
	}
	if vd.TimeWindow != nil {
		v.TW = model.TimeWindow{Start: vd.TimeWindow[0], End: vd.TimeWindow[1]}
	}
	if vd.Costs != nil {
		v.CostPerHour = vd.Costs.PerHour
		v.FixedCost = vd.Costs.Fixed
	}
	for _, bd := range vd.Breaks {
		b := model.Break{
			ID:          bd.ID,
			TWs:         twsFromDoc(bd.TimeWindows),
			Service:     bd.Service,
			Description: bd.Description,
		}
		if len(bd.MaxLoad) > 0 {
			b.MaxLoad = model.Amount(bd.MaxLoad)
		}
		v.Breaks = append(v.Breaks, b)
	}
	for _, st := range vd.Steps {
		v.Steps = append(v.Steps, model.VehicleStep{Type: st.Type, ID: st.ID})
	}
	return v
}
