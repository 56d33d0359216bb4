package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetopt/internal/model"
)

func mustInput(t *testing.T, doc *model.ProblemDoc) *Input {
	t.Helper()
	in, err := BuildInput(doc)
	require.NoError(t, err)
	return in
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

// One vehicle (start/end 0, capacity 10), two singles and one shipment over
// three locations. Job ranks: single 1 -> 0, single 2 -> 1, pickup -> 2,
// delivery -> 3.
func mixedProblem() *model.ProblemDoc {
	return &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1, Delivery: []int64{3}},
			{ID: 2, LocationIndex: 2, Pickup: []int64{4}},
		},
		Shipments: []model.ShipmentDoc{
			{
				Amount:   []int64{2},
				Pickup:   model.ShipmentStepDoc{ID: 3, LocationIndex: 1},
				Delivery: model.ShipmentStepDoc{ID: 4, LocationIndex: 2},
			},
		},
		Vehicles: []model.VehicleDoc{
			{ID: 1, StartIndex: intPtr(0), EndIndex: intPtr(0), Capacity: []int64{10}},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {Durations: [][]int64{
				{0, 10, 20},
				{10, 0, 15},
				{20, 15, 0},
			}},
		},
	}
}

func loadSnapshot(r *RawRoute) []model.Amount {
	out := make([]model.Amount, r.Size()+2)
	for s := range out {
		out[s] = r.LoadAtStep(s).Clone()
	}
	return out
}

func TestRawRouteEmptyRoute(t *testing.T) {
	in := mustInput(t, mixedProblem())
	r := NewRawRoute(in, 0)
	r.SetRoute(nil)

	assert.True(t, r.LoadAtStep(0).IsZero())
	assert.True(t, r.LoadAtStep(1).IsZero())
	assert.True(t, r.MaxLoad().IsZero())
	assert.Equal(t, model.Amount{10}, r.DeliveryMargin())
	assert.Equal(t, model.Amount{10}, r.PickupMargin())
}

func TestRawRouteUpdateAmounts(t *testing.T) {
	in := mustInput(t, mixedProblem())
	r := NewRawRoute(in, 0)
	// single delivery, shipment pickup, shipment delivery, single pickup
	r.SetRoute([]int{0, 2, 3, 1})

	want := []model.Amount{{3}, {0}, {2}, {0}, {4}, {4}}
	assert.Equal(t, want, loadSnapshot(r))

	assert.Equal(t, model.Amount{4}, r.MaxLoad())
	assert.True(t, r.MaxLoad().LE(r.Capacity))
	assert.Equal(t, model.Amount{3}, r.JobDeliveriesSum())
	assert.Equal(t, model.Amount{4}, r.JobPickupsSum())
	assert.Equal(t, model.Amount{7}, r.DeliveryMargin())
	assert.Equal(t, model.Amount{6}, r.PickupMargin())
}

func TestRawRouteAddRemoveRoundTrip(t *testing.T) {
	in := mustInput(t, mixedProblem())
	r := NewRawRoute(in, 0)
	r.SetRoute([]int{0})

	wantRoute := append([]int(nil), r.Route...)
	wantLoads := loadSnapshot(r)

	r.Add(1, 1)
	assert.Equal(t, []int{0, 1}, r.Route)
	r.Remove(1, 1)

	assert.Equal(t, wantRoute, r.Route)
	assert.Equal(t, wantLoads, loadSnapshot(r))
}

func TestRawRouteReplaceRoundTrip(t *testing.T) {
	in := mustInput(t, mixedProblem())
	r := NewRawRoute(in, 0)
	r.SetRoute([]int{0, 1})

	wantRoute := append([]int(nil), r.Route...)
	wantLoads := loadSnapshot(r)

	r.Replace(in.ZeroAmount(), []int{2, 3}, 0, 2)
	assert.Equal(t, []int{2, 3}, r.Route)

	r.Replace(in.ZeroAmount(), []int{0, 1}, 0, 2)
	assert.Equal(t, wantRoute, r.Route)
	assert.Equal(t, wantLoads, loadSnapshot(r))
}

func TestRawRouteCapacityPredicates(t *testing.T) {
	in := mustInput(t, mixedProblem())
	r := NewRawRoute(in, 0)
	r.SetRoute([]int{1}) // single pickup of 4

	assert.True(t, r.IsValidAdditionForLoad(model.Amount{7}, 0))
	assert.False(t, r.IsValidAdditionForLoad(model.Amount{7}, 1))

	assert.True(t, r.IsValidAdditionForCapacity(model.Amount{3}, model.Amount{8}, 0))
	assert.False(t, r.IsValidAdditionForCapacity(model.Amount{7}, model.Amount{0}, 0))
}

func TestRawRouteCapacityInclusion(t *testing.T) {
	in := mustInput(t, mixedProblem())
	r := NewRawRoute(in, 0)
	r.SetRoute([]int{1})

	// Inserting the shipment pair keeps every intermediate load below
	// capacity.
	md := in.ZeroAmount()
	assert.True(t, r.IsValidAdditionForCapacityInclusion(md, []int{2, 3}, 0, 0))

	// Predicate success implies the post-replace max load fits.
	r.Replace(in.ZeroAmount(), []int{2, 3, 1}, 0, 1)
	assert.True(t, r.MaxLoad().LE(r.Capacity))
}

func TestPinnedFirstSingle(t *testing.T) {
	doc := &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1, Pinned: true, PinnedPosition: "first"},
			{ID: 2, LocationIndex: 2},
		},
		Vehicles: []model.VehicleDoc{
			{
				ID:         1,
				StartIndex: intPtr(0),
				Steps:      []model.VehicleStepDoc{{Type: "job", ID: 1}},
			},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {Durations: [][]int64{
				{0, 10, 20},
				{10, 0, 15},
				{20, 15, 0},
			}},
		},
	}
	in := mustInput(t, doc)
	r := NewRawRoute(in, 0)
	r.SetRoute([]int{0})

	assert.False(t, r.IsValidAdditionForTW(1, 0))
	assert.True(t, r.IsValidAdditionForTW(1, 1))

	// Position contract holds after a valid addition.
	r.Add(1, 1)
	assert.Equal(t, 0, r.Route[0])
}

func TestPinnedShipmentFirstBlocksHeadRanks(t *testing.T) {
	doc := &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 9, LocationIndex: 2},
		},
		Shipments: []model.ShipmentDoc{
			{
				Amount:         []int64{1},
				Pickup:         model.ShipmentStepDoc{ID: 3, LocationIndex: 1},
				Delivery:       model.ShipmentStepDoc{ID: 4, LocationIndex: 2},
				Pinned:         true,
				PinnedPosition: "first",
			},
		},
		Vehicles: []model.VehicleDoc{
			{
				ID:         1,
				StartIndex: intPtr(0),
				Capacity:   []int64{5},
				Steps: []model.VehicleStepDoc{
					{Type: "pickup", ID: 3},
					{Type: "delivery", ID: 4},
				},
			},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {Durations: [][]int64{
				{0, 10, 20},
				{10, 0, 15},
				{20, 15, 0},
			}},
		},
	}
	in := mustInput(t, doc)
	r := NewRawRoute(in, 0)
	r.SetRoute([]int{1, 2}) // pickup, delivery job ranks

	extra := 0 // job 9
	assert.False(t, r.IsValidAdditionForTW(extra, 0))
	assert.False(t, r.IsValidAdditionForTW(extra, 1))
	assert.True(t, r.IsValidAdditionForTW(extra, 2))
}

func TestExclusiveTagLimit(t *testing.T) {
	doc := &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1, ExclusiveTags: []string{"T"}},
			{ID: 2, LocationIndex: 2, ExclusiveTags: []string{"T"}},
			{ID: 3, LocationIndex: 2},
		},
		Vehicles: []model.VehicleDoc{
			{ID: 1, StartIndex: intPtr(0)},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {Durations: [][]int64{
				{0, 10, 20},
				{10, 0, 15},
				{20, 15, 0},
			}},
		},
	}
	in := mustInput(t, doc)
	r := NewRawRoute(in, 0)
	r.SetRoute([]int{0})

	assert.False(t, r.IsValidAdditionForTW(1, 1))
	assert.False(t, r.IsValidRangeAdditionForTW(in.ZeroAmount(), []int{1}, 1, 1))
	assert.True(t, r.IsValidAdditionForTW(2, 1))

	// Replacing the tagged job with the other tagged job stays within the
	// limit.
	assert.True(t, r.IsValidRangeAdditionForTW(in.ZeroAmount(), []int{1}, 0, 1))
}

func TestExclusiveTagSeededDuplicatesRaiseLimit(t *testing.T) {
	doc := &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1, ExclusiveTags: []string{"T"}, Pinned: true},
			{ID: 2, LocationIndex: 2, ExclusiveTags: []string{"T"}, Pinned: true},
			{ID: 3, LocationIndex: 2, ExclusiveTags: []string{"T"}},
		},
		Vehicles: []model.VehicleDoc{
			{
				ID:         1,
				StartIndex: intPtr(0),
				Steps: []model.VehicleStepDoc{
					{Type: "job", ID: 1},
					{Type: "job", ID: 2},
				},
			},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {Durations: [][]int64{
				{0, 10, 20},
				{10, 0, 15},
				{20, 15, 0},
			}},
		},
	}
	in := mustInput(t, doc)
	r := NewRawRoute(in, 0)
	r.SetRoute([]int{0, 1})

	// The seeded duplicates set the limit to two; a third tagged job still
	// does not fit.
	assert.False(t, r.IsValidAdditionForTW(2, 2))
}

func TestFirstLegDistanceBound(t *testing.T) {
	doc := &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1},
			{ID: 2, LocationIndex: 2},
		},
		Vehicles: []model.VehicleDoc{
			{ID: 1, StartIndex: intPtr(0), MaxFirstLegDistance: int64Ptr(50)},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {
				Durations: [][]int64{
					{0, 10, 20},
					{10, 0, 15},
					{20, 15, 0},
				},
				Distances: [][]int64{
					{0, 100, 30},
					{100, 0, 40},
					{30, 40, 0},
				},
			},
		},
	}
	in := mustInput(t, doc)
	r := NewRawRoute(in, 0)

	// Job 1 sits 100 away from the start, past the 50 limit.
	assert.False(t, r.IsValidAdditionForTW(0, 0))
	assert.True(t, r.IsValidAdditionForTW(1, 0))

	r.Add(1, 0)
	assert.True(t, r.IsValidAdditionForTW(0, 1))
	assert.False(t, r.IsValidRangeAdditionForTW(in.ZeroAmount(), []int{0}, 0, 0))
}
