package opt

import (
	"fmt"
	"sort"

	"fleetopt/internal/model"
)

// InputError reports a validation failure in the problem definition. The CLI
// maps it to exit code 2.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func inputErrorf(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// PinnedBoundary is a positional requirement on the first or last slot of a
// vehicle's route: either a single job rank, or a (pickup, delivery) pair.
type PinnedBoundary struct {
	JobRank      *int
	PickupRank   *int
	DeliveryRank *int
}

type vehicleEval struct {
	durations *model.Matrix
	distances *model.Matrix
	costs     *model.Matrix
	perHour   int64
}

// Input gathers the full problem definition. It is immutable once Finalize
// has run and may be shared by any number of concurrent search workers.
type Input struct {
	Jobs     []model.Job
	Vehicles []model.Vehicle

	JobIDToRank      map[int64]int
	PickupIDToRank   map[int64]int
	DeliveryIDToRank map[int64]int

	amountSize int
	zero       model.Amount

	durations map[string]*model.Matrix
	distances map[string]*model.Matrix
	costs     map[string]*model.Matrix

	vehicleTypes []string
	typeRank     map[string]int
	// Per job, per vehicle type: resolved setup and service durations.
	jobSetups   [][]int64
	jobServices [][]int64

	vehicleEvals []vehicleEval

	compat [][]bool

	pinnedVehicleByJob   []*int
	pinnedFirstByVehicle []*PinnedBoundary
	pinnedLastByVehicle  []*PinnedBoundary
	// Seeded job ranks per vehicle, resolved from vehicle steps.
	vehicleStepRanks [][]int

	tagRank   map[string]int
	jobTags   [][]int // per job, interned tag ids
	// Per job, per vehicle rank: signed objective penalty.
	penalties [][]int64

	pinnedSoftTiming          bool
	pinnedViolationBudget     int64
	includeActionTimeInBudget bool
	budgetDensifyCandidatesK  uint

	hasShipments bool
	finalized    bool
}

func NewInput() *Input {
	return &Input{
		JobIDToRank:              map[int64]int{},
		PickupIDToRank:           map[int64]int{},
		DeliveryIDToRank:         map[int64]int{},
		durations:                map[string]*model.Matrix{},
		distances:                map[string]*model.Matrix{},
		costs:                    map[string]*model.Matrix{},
		typeRank:                 map[string]int{"": 0},
		vehicleTypes:             []string{""},
		tagRank:                  map[string]int{},
		budgetDensifyCandidatesK: 20,
	}
}

func (in *Input) AmountSize() int          { return in.amountSize }
func (in *Input) ZeroAmount() model.Amount { return in.zero }

func (in *Input) PinnedSoftTiming() bool           { return in.pinnedSoftTiming }
func (in *Input) PinnedViolationBudget() int64     { return in.pinnedViolationBudget }
func (in *Input) IncludeActionTimeInBudget() bool  { return in.includeActionTimeInBudget }
func (in *Input) BudgetDensifyCandidatesK() uint   { return in.budgetDensifyCandidatesK }

func (in *Input) SetPinnedSoftTiming(v bool)          { in.pinnedSoftTiming = v }
func (in *Input) SetPinnedViolationBudget(sec int64)  { in.pinnedViolationBudget = sec }
func (in *Input) SetIncludeActionTimeInBudget(v bool) { in.includeActionTimeInBudget = v }

func (in *Input) SetBudgetDensifyCandidatesK(k uint) {
	if k == 0 {
		k = 1
	}
	in.budgetDensifyCandidatesK = k
}

func (in *Input) checkAmountSize(a model.Amount) error {
	if in.amountSize == 0 && len(a) > 0 {
		in.amountSize = len(a)
		return nil
	}
	if len(a) > 0 && len(a) != in.amountSize {
		return inputErrorf("inconsistent amount length: %d vs %d", len(a), in.amountSize)
	}
	return nil
}

func checkTWs(tws []model.TimeWindow, id int64, kind string) error {
	if len(tws) == 0 {
		return inputErrorf("empty time windows for %s %d", kind, id)
	}
	for i, tw := range tws {
		if tw.End < tw.Start {
			return inputErrorf("invalid time window for %s %d", kind, id)
		}
		if i > 0 && tw.Start <= tws[i-1].End {
			return inputErrorf("unsorted or overlapping time windows for %s %d", kind, id)
		}
	}
	return nil
}

func (in *Input) normalizeJob(j *model.Job) error {
	if err := in.checkAmountSize(j.Delivery); err != nil {
		return err
	}
	if err := in.checkAmountSize(j.Pickup); err != nil {
		return err
	}
	if len(j.TWs) == 0 {
		j.TWs = []model.TimeWindow{model.DefaultTimeWindow()}
	}
	return checkTWs(j.TWs, j.ID, "job")
}

func (in *Input) AddJob(j model.Job) error {
	j.Kind = model.JobSingle
	if err := in.normalizeJob(&j); err != nil {
		return err
	}
	if _, ok := in.JobIDToRank[j.ID]; ok {
		return inputErrorf("duplicate job id %d", j.ID)
	}
	in.JobIDToRank[j.ID] = len(in.Jobs)
	in.Jobs = append(in.Jobs, j)
	return nil
}

// AddShipment appends the pickup then the delivery, preserving the adjacency
// invariant pickup rank = delivery rank - 1.
func (in *Input) AddShipment(pickup, delivery model.Job) error {
	pickup.Kind = model.JobPickup
	delivery.Kind = model.JobDelivery
	// The delivery never carries tags, budget or penalties.
	delivery.ExclusiveTags = nil
	delivery.Budget = 0
	delivery.VehiclePenalties = nil
	if pickup.Pinned != delivery.Pinned {
		return inputErrorf("shipment %d pinned on one half only", pickup.ID)
	}
	if err := in.normalizeJob(&pickup); err != nil {
		return err
	}
	if err := in.normalizeJob(&delivery); err != nil {
		return err
	}
	if !pickup.Pickup.Equal(delivery.Delivery) {
		return inputErrorf("shipment %d amount mismatch", pickup.ID)
	}
	if _, ok := in.PickupIDToRank[pickup.ID]; ok {
		return inputErrorf("duplicate pickup id %d", pickup.ID)
	}
	if _, ok := in.DeliveryIDToRank[delivery.ID]; ok {
		return inputErrorf("duplicate delivery id %d", delivery.ID)
	}
	in.PickupIDToRank[pickup.ID] = len(in.Jobs)
	in.Jobs = append(in.Jobs, pickup)
	in.DeliveryIDToRank[delivery.ID] = len(in.Jobs)
	in.Jobs = append(in.Jobs, delivery)
	in.hasShipments = true
	return nil
}

func (in *Input) AddVehicle(v model.Vehicle) error {
	if err := in.checkAmountSize(v.Capacity); err != nil {
		return err
	}
	if v.TW == (model.TimeWindow{}) {
		v.TW = model.DefaultTimeWindow()
	}
	if v.TW.End < v.TW.Start {
		return inputErrorf("invalid time window for vehicle %d", v.ID)
	}
	if v.CostPerHour == 0 {
		v.CostPerHour = 3600
	}
	for i := range v.Breaks {
		b := &v.Breaks[i]
		if len(b.TWs) == 0 {
			b.TWs = []model.TimeWindow{model.DefaultTimeWindow()}
		}
		if err := checkTWs(b.TWs, b.ID, "break"); err != nil {
			return err
		}
		if b.MaxLoad != nil {
			if err := in.checkAmountSize(b.MaxLoad); err != nil {
				return err
			}
		}
	}
	if _, ok := in.typeRank[v.Type]; !ok {
		in.typeRank[v.Type] = len(in.vehicleTypes)
		in.vehicleTypes = append(in.vehicleTypes, v.Type)
	}
	in.Vehicles = append(in.Vehicles, v)
	return nil
}

func (in *Input) SetDurationsMatrix(profile string, m *model.Matrix) { in.durations[profile] = m }
func (in *Input) SetDistancesMatrix(profile string, m *model.Matrix) { in.distances[profile] = m }
func (in *Input) SetCostsMatrix(profile string, m *model.Matrix)     { in.costs[profile] = m }

// Finalize validates the whole definition and builds the derived caches.
// The input must not be mutated afterwards.
func (in *Input) Finalize() error {
	if in.finalized {
		return nil
	}
	if len(in.Vehicles) == 0 {
		return inputErrorf("no vehicle defined")
	}
	if in.amountSize == 0 {
		in.amountSize = 0
	}
	in.zero = model.ZeroAmount(in.amountSize)

	// Pad amounts and capacities to the common arity.
	for i := range in.Jobs {
		j := &in.Jobs[i]
		if len(j.Delivery) == 0 {
			j.Delivery = model.ZeroAmount(in.amountSize)
		}
		if len(j.Pickup) == 0 {
			j.Pickup = model.ZeroAmount(in.amountSize)
		}
	}
	for i := range in.Vehicles {
		v := &in.Vehicles[i]
		if len(v.Capacity) == 0 {
			v.Capacity = model.ZeroAmount(in.amountSize)
		}
	}

	if err := in.checkMatrices(); err != nil {
		return err
	}
	in.setJobDurationsPerVehicleType()
	in.setVehicleEvals()
	if err := in.setVehicleStepRanks(); err != nil {
		return err
	}
	if err := in.setPinnedMetadata(); err != nil {
		return err
	}
	in.setCompatibility()
	in.internTags()
	in.setPenalties()

	in.finalized = true
	return nil
}

func (in *Input) checkMatrices() error {
	for i := range in.Vehicles {
		v := &in.Vehicles[i]
		m, ok := in.durations[v.Profile]
		if !ok {
			return inputErrorf("no durations matrix for profile %q", v.Profile)
		}
		check := func(idx *int) error {
			if idx != nil && (*idx < 0 || *idx >= m.Size()) {
				return inputErrorf("location index %d out of matrix range for vehicle %d", *idx, v.ID)
			}
			return nil
		}
		if err := check(v.Start); err != nil {
			return err
		}
		if err := check(v.End); err != nil {
			return err
		}
	}
	for r := range in.Jobs {
		j := &in.Jobs[r]
		for _, m := range in.durations {
			if j.Location < 0 || j.Location >= m.Size() {
				return inputErrorf("location index %d out of matrix range for job %d", j.Location, j.ID)
			}
		}
	}
	return nil
}

func (in *Input) setJobDurationsPerVehicleType() {
	nTypes := len(in.vehicleTypes)
	in.jobSetups = make([][]int64, len(in.Jobs))
	in.jobServices = make([][]int64, len(in.Jobs))
	for r := range in.Jobs {
		j := &in.Jobs[r]
		setups := make([]int64, nTypes)
		services := make([]int64, nTypes)
		for t, name := range in.vehicleTypes {
			setups[t] = j.Setup
			services[t] = j.Service
			if d, ok := j.SetupPerType[name]; ok && name != "" {
				setups[t] = d
			}
			if d, ok := j.ServicePerType[name]; ok && name != "" {
				services[t] = d
			}
		}
		in.jobSetups[r] = setups
		in.jobServices[r] = services
	}
}

func (in *Input) setVehicleEvals() {
	in.vehicleEvals = make([]vehicleEval, len(in.Vehicles))
	for i := range in.Vehicles {
		v := &in.Vehicles[i]
		in.vehicleEvals[i] = vehicleEval{
			durations: in.durations[v.Profile],
			distances: in.distances[v.Profile],
			costs:     in.costs[v.Profile],
			perHour:   v.CostPerHour,
		}
	}
}

func (in *Input) setVehicleStepRanks() error {
	in.vehicleStepRanks = make([][]int, len(in.Vehicles))
	for vi := range in.Vehicles {
		v := &in.Vehicles[vi]
		ranks := make([]int, 0, len(v.Steps))
		for _, st := range v.Steps {
			var r int
			var ok bool
			switch st.Type {
			case "job", "":
				r, ok = in.JobIDToRank[st.ID]
			case "pickup":
				r, ok = in.PickupIDToRank[st.ID]
			case "delivery":
				r, ok = in.DeliveryIDToRank[st.ID]
			default:
				return inputErrorf("unknown step type %q for vehicle %d", st.Type, v.ID)
			}
			if !ok {
				return inputErrorf("unknown step id %d for vehicle %d", st.ID, v.ID)
			}
			ranks = append(ranks, r)
		}
		in.vehicleStepRanks[vi] = ranks
	}
	return nil
}

func (in *Input) setPinnedMetadata() error {
	in.pinnedVehicleByJob = make([]*int, len(in.Jobs))
	in.pinnedFirstByVehicle = make([]*PinnedBoundary, len(in.Vehicles))
	in.pinnedLastByVehicle = make([]*PinnedBoundary, len(in.Vehicles))

	for vi := range in.Vehicles {
		for _, r := range in.vehicleStepRanks[vi] {
			if !in.Jobs[r].Pinned {
				continue
			}
			if in.pinnedVehicleByJob[r] != nil && *in.pinnedVehicleByJob[r] != vi {
				return inputErrorf("pinned job %d seeded on more than one vehicle", in.Jobs[r].ID)
			}
			v := vi
			in.pinnedVehicleByJob[r] = &v
		}
	}

	for r := range in.Jobs {
		j := &in.Jobs[r]
		if !j.Pinned {
			continue
		}
		pv := in.pinnedVehicleByJob[r]
		if pv == nil {
			return inputErrorf("pinned job %d not present in any vehicle steps", j.ID)
		}
		if len(j.AllowedVehicles) > 0 {
			found := false
			for _, id := range j.AllowedVehicles {
				if id == in.Vehicles[*pv].ID {
					found = true
					break
				}
			}
			if !found {
				return inputErrorf("pinned job %d conflicts with its allowed_vehicles", j.ID)
			}
		}
		if j.Kind == model.JobPickup || j.Kind == model.JobDelivery {
			// Shipments must be pinned as a whole on the same vehicle.
			mate := r + 1
			if j.Kind == model.JobDelivery {
				mate = r - 1
			}
			if !in.Jobs[mate].Pinned {
				return inputErrorf("shipment %d pinned on one half only", j.ID)
			}
			mv := in.pinnedVehicleByJob[mate]
			if mv == nil || *mv != *pv {
				return inputErrorf("shipment %d halves pinned to different vehicles", j.ID)
			}
		}

		if j.PinnedPosition == model.PinNone {
			continue
		}
		req := &PinnedBoundary{}
		switch j.Kind {
		case model.JobSingle:
			rr := r
			req.JobRank = &rr
		case model.JobPickup:
			pr, dr := r, r+1
			req.PickupRank = &pr
			req.DeliveryRank = &dr
		case model.JobDelivery:
			// The boundary requirement is registered on the pickup.
			continue
		}
		slot := &in.pinnedFirstByVehicle[*pv]
		if j.PinnedPosition == model.PinLast {
			slot = &in.pinnedLastByVehicle[*pv]
		}
		if *slot != nil {
			return inputErrorf("conflicting pinned positions on vehicle %d", in.Vehicles[*pv].ID)
		}
		*slot = req
	}
	return nil
}

func (in *Input) setCompatibility() {
	in.compat = make([][]bool, len(in.Vehicles))
	for vi := range in.Vehicles {
		v := &in.Vehicles[vi]
		row := make([]bool, len(in.Jobs))
		for r := range in.Jobs {
			j := &in.Jobs[r]
			if pv := in.pinnedVehicleByJob[r]; pv != nil {
				// Pinned work is only eligible on its pinned vehicle,
				// regardless of other pre-compat restrictions.
				row[r] = *pv == vi
				continue
			}
			ok := skillsSubset(j.Skills, v.Skills)
			if ok && len(j.AllowedVehicles) > 0 {
				ok = false
				for _, id := range j.AllowedVehicles {
					if id == v.ID {
						ok = true
						break
					}
				}
			}
			row[r] = ok
		}
		in.compat[vi] = row
	}
}

func skillsSubset(needed, offered []int) bool {
	if len(needed) == 0 {
		return true
	}
	have := make(map[int]struct{}, len(offered))
	for _, s := range offered {
		have[s] = struct{}{}
	}
	for _, s := range needed {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}

func (in *Input) internTags() {
	names := map[string]struct{}{}
	for r := range in.Jobs {
		for _, t := range in.Jobs[r].ExclusiveTags {
			names[t] = struct{}{}
		}
	}
	ordered := make([]string, 0, len(names))
	for t := range names {
		ordered = append(ordered, t)
	}
	sort.Strings(ordered)
	for i, t := range ordered {
		in.tagRank[t] = i
	}
	in.jobTags = make([][]int, len(in.Jobs))
	for r := range in.Jobs {
		tags := in.Jobs[r].ExclusiveTags
		if len(tags) == 0 {
			continue
		}
		ids := make([]int, len(tags))
		for i, t := range tags {
			ids[i] = in.tagRank[t]
		}
		in.jobTags[r] = ids
	}
}

func (in *Input) setPenalties() {
	in.penalties = make([][]int64, len(in.Jobs))
	idToVRank := make(map[int64]int, len(in.Vehicles))
	for vi := range in.Vehicles {
		idToVRank[in.Vehicles[vi].ID] = vi
	}
	for r := range in.Jobs {
		if len(in.Jobs[r].VehiclePenalties) == 0 {
			continue
		}
		row := make([]int64, len(in.Vehicles))
		for _, p := range in.Jobs[r].VehiclePenalties {
			if vi, ok := idToVRank[p.VehicleID]; ok {
				row[vi] = p.Cost
			}
		}
		in.penalties[r] = row
	}
}

func (in *Input) NumTags() int { return len(in.tagRank) }

func (in *Input) ExclusiveTagIDs(jobRank int) []int { return in.jobTags[jobRank] }

func (in *Input) HasShipments() bool { return in.hasShipments }

// JobVehiclePenalty returns the signed objective penalty for placing the job
// on the vehicle. Shipments carry their penalty on the pickup only.
func (in *Input) JobVehiclePenalty(jobRank, vRank int) int64 {
	row := in.penalties[jobRank]
	if row == nil {
		return 0
	}
	return row[vRank]
}

func (in *Input) VehicleOKWithJob(vRank, jobRank int) bool {
	return in.compat[vRank][jobRank]
}

func (in *Input) JobIsPinned(jobRank int) bool {
	return in.pinnedVehicleByJob[jobRank] != nil
}

func (in *Input) PinnedVehicle(jobRank int) *int {
	return in.pinnedVehicleByJob[jobRank]
}

func (in *Input) PinnedFirstForVehicle(vRank int) *PinnedBoundary {
	return in.pinnedFirstByVehicle[vRank]
}

func (in *Input) PinnedLastForVehicle(vRank int) *PinnedBoundary {
	return in.pinnedLastByVehicle[vRank]
}

func (in *Input) VehicleStepRanks(vRank int) []int {
	return in.vehicleStepRanks[vRank]
}

func (in *Input) VehicleTypeRank(vRank int) int {
	return in.typeRank[in.Vehicles[vRank].Type]
}

// JobSetup and JobService resolve per-vehicle-type durations.
func (in *Input) JobSetup(jobRank, vType int) int64   { return in.jobSetups[jobRank][vType] }
func (in *Input) JobService(jobRank, vType int) int64 { return in.jobServices[jobRank][vType] }

// Duration between two location indices for the given vehicle.
func (in *Input) Duration(vRank, from, to int) int64 {
	return in.vehicleEvals[vRank].durations.At(from, to)
}

func (in *Input) HasDistances(vRank int) bool {
	return in.vehicleEvals[vRank].distances != nil
}

func (in *Input) Distance(vRank, from, to int) int64 {
	if m := in.vehicleEvals[vRank].distances; m != nil {
		return m.At(from, to)
	}
	return 0
}

// Eval evaluates the edge between two location indices for the vehicle. Cost
// comes from the explicit costs matrix when provided, and otherwise from the
// travel time priced at the vehicle's hourly rate.
func (in *Input) Eval(vRank, from, to int) model.Eval {
	ve := &in.vehicleEvals[vRank]
	d := ve.durations.At(from, to)
	var c int64
	if ve.costs != nil {
		c = ve.costs.At(from, to)
	} else {
		c = costFromDuration(d, ve.perHour)
	}
	var dist int64
	if ve.distances != nil {
		dist = ve.distances.At(from, to)
	}
	return model.Eval{Cost: c, Duration: d, Distance: dist}
}

// ActionCostFromDuration prices setup+service time at the vehicle's hourly
// rate, used when action times count toward route budgets.
func (in *Input) ActionCostFromDuration(vRank int, d int64) int64 {
	return costFromDuration(d, in.vehicleEvals[vRank].perHour)
}

func costFromDuration(d, perHour int64) int64 {
	if d == 0 {
		return 0
	}
	if perHour == 3600 {
		return d
	}
	return (d*perHour + 1800) / 3600
}
