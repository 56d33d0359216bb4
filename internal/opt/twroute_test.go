package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetopt/internal/model"
)

func twProblem() *model.ProblemDoc {
	return &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1, Service: 5, TimeWindows: [][2]int64{{15, 100}}},
			{ID: 2, LocationIndex: 2, TimeWindows: [][2]int64{{0, 200}}},
		},
		Vehicles: []model.VehicleDoc{
			{
				ID:         1,
				StartIndex: intPtr(0),
				EndIndex:   intPtr(0),
				TimeWindow: &[2]int64{0, 1000},
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
}

type twSnapshot struct {
	route       []int
	earliest    []int64
	latest      []int64
	actionTime  []int64
	breaks      []int
	earliestEnd int64
}

func snapshotTW(t *TWRoute) twSnapshot {
	n := len(t.Route)
	s := twSnapshot{
		route:       append([]int(nil), t.Route...),
		earliestEnd: t.EarliestEnd,
	}
	for i := 0; i < n; i++ {
		s.earliest = append(s.earliest, t.Earliest(i))
		s.latest = append(s.latest, t.Latest(i))
		s.actionTime = append(s.actionTime, t.ActionTime(i))
	}
	for i := 0; i <= n; i++ {
		s.breaks = append(s.breaks, t.BreaksAtRank(i))
	}
	return s
}

func TestTWRouteAddSchedule(t *testing.T) {
	in := mustInput(t, twProblem())
	r, err := NewTWRoute(in, 0)
	require.NoError(t, err)

	require.True(t, r.IsValidAdditionForTW(0, 0))
	r.Add(0, 0)
	assert.Equal(t, int64(15), r.Earliest(0)) // waits for the window start
	assert.Equal(t, int64(100), r.Latest(0))
	assert.Equal(t, int64(5), r.ActionTime(0))

	require.True(t, r.IsValidAdditionForTW(1, 1))
	r.Add(1, 1)
	assert.Equal(t, int64(35), r.Earliest(1)) // 15 + 5 service + 15 travel
	assert.Equal(t, int64(200), r.Latest(1))
	assert.Equal(t, int64(55), r.EarliestEnd)

	for i := 0; i < len(r.Route); i++ {
		assert.LessOrEqual(t, r.Earliest(i), r.Latest(i))
	}
}

func TestTWRouteRejectsUnreachableWindow(t *testing.T) {
	doc := twProblem()
	doc.Jobs[0].TimeWindows = [][2]int64{{0, 5}} // travel alone takes 10
	in := mustInput(t, doc)
	r, err := NewTWRoute(in, 0)
	require.NoError(t, err)

	assert.False(t, r.IsValidAdditionForTW(0, 0))
}

func TestTWRouteAddRemoveRoundTrip(t *testing.T) {
	in := mustInput(t, twProblem())
	r, err := NewTWRoute(in, 0)
	require.NoError(t, err)
	r.Add(0, 0)

	want := snapshotTW(r)
	require.True(t, r.IsValidAdditionForTW(1, 1))
	r.Add(1, 1)
	require.True(t, r.IsValidRemoval(1, 1))
	r.Remove(1, 1)

	assert.Equal(t, want, snapshotTW(r))
}

func TestTWRouteRecomputeEquivalence(t *testing.T) {
	in := mustInput(t, twProblem())

	incremental, err := NewTWRoute(in, 0)
	require.NoError(t, err)
	incremental.Add(0, 0)
	incremental.Add(1, 1)

	fresh, err := NewTWRoute(in, 0)
	require.NoError(t, err)
	jobs := []int{0, 1}
	fresh.Replace(singleDeliveriesOf(in, jobs), jobs, 0, 0)

	assert.Equal(t, snapshotTW(fresh), snapshotTW(incremental))
	assert.Equal(t, loadSnapshot(&fresh.RawRoute), loadSnapshot(&incremental.RawRoute))
}

func twBreakProblem() *model.ProblemDoc {
	return &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1, Service: 5, TimeWindows: [][2]int64{{15, 100}}},
			{ID: 2, LocationIndex: 2, TimeWindows: [][2]int64{{0, 500}}},
			{ID: 3, LocationIndex: 3, TimeWindows: [][2]int64{{0, 400}}},
		},
		Vehicles: []model.VehicleDoc{
			{
				ID:         1,
				StartIndex: intPtr(0),
				EndIndex:   intPtr(0),
				TimeWindow: &[2]int64{0, 1000},
				Breaks: []model.BreakDoc{
					{ID: 7, TimeWindows: [][2]int64{{0, 80}}, Service: 2},
				},
			},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {Durations: [][]int64{
				{0, 10, 20, 30},
				{10, 0, 15, 25},
				{20, 15, 0, 12},
				{30, 25, 12, 0},
			}},
		},
	}
}

// Removing a job in the middle of a route must leave the same schedule as
// building the remaining route from scratch, latest dates included.
func TestTWRouteInteriorRemoveEquivalence(t *testing.T) {
	in := mustInput(t, twBreakProblem())

	incremental, err := NewTWRoute(in, 0)
	require.NoError(t, err)
	for _, step := range []struct{ job, rank int }{{0, 0}, {1, 1}, {2, 1}} {
		require.True(t, incremental.IsValidAdditionForTW(step.job, step.rank))
		incremental.Add(step.job, step.rank)
	}
	require.True(t, incremental.IsValidRemoval(1, 1))
	incremental.Remove(1, 1)

	fresh, err := NewTWRoute(in, 0)
	require.NoError(t, err)
	jobs := []int{0, 1}
	fresh.Replace(singleDeliveriesOf(in, jobs), jobs, 0, 0)

	assert.Equal(t, snapshotTW(fresh), snapshotTW(incremental))
	assert.Equal(t, loadSnapshot(&fresh.RawRoute), loadSnapshot(&incremental.RawRoute))
}

func TestTWRouteInteriorInsertEquivalence(t *testing.T) {
	in := mustInput(t, twBreakProblem())

	incremental, err := NewTWRoute(in, 0)
	require.NoError(t, err)
	incremental.Add(0, 0)
	incremental.Add(1, 1)
	require.True(t, incremental.IsValidAdditionForTW(2, 1))
	incremental.Add(2, 1)

	fresh, err := NewTWRoute(in, 0)
	require.NoError(t, err)
	jobs := []int{0, 2, 1}
	fresh.Replace(singleDeliveriesOf(in, jobs), jobs, 0, 0)

	assert.Equal(t, snapshotTW(fresh), snapshotTW(incremental))
	assert.Equal(t, loadSnapshot(&fresh.RawRoute), loadSnapshot(&incremental.RawRoute))
}

func TestTWRouteBreakPlacement(t *testing.T) {
	doc := twProblem()
	doc.Vehicles[0].Breaks = []model.BreakDoc{
		{ID: 7, TimeWindows: [][2]int64{{12, 40}}, Service: 5},
	}
	in := mustInput(t, doc)
	r, err := NewTWRoute(in, 0)
	require.NoError(t, err)

	require.True(t, r.IsValidAdditionForTW(0, 0))
	r.Add(0, 0)

	total := 0
	for i := 0; i <= len(r.Route); i++ {
		total += r.BreaksAtRank(i)
	}
	assert.Equal(t, 1, total)
	for i := 0; i < len(r.Route); i++ {
		assert.LessOrEqual(t, r.Earliest(i), r.Latest(i))
	}
}

func TestTWRouteBreakMaxLoad(t *testing.T) {
	doc := &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1, Delivery: []int64{1}},
		},
		Vehicles: []model.VehicleDoc{
			{
				ID:         1,
				StartIndex: intPtr(0),
				Capacity:   []int64{5},
				TimeWindow: &[2]int64{0, 1000},
				Breaks: []model.BreakDoc{
					{ID: 7, TimeWindows: [][2]int64{{0, 8}}, Service: 1, MaxLoad: []int64{0}},
				},
			},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {Durations: [][]int64{
				{0, 10},
				{10, 0},
			}},
		},
	}
	in := mustInput(t, doc)
	r, err := NewTWRoute(in, 0)
	require.NoError(t, err)

	// The break must precede the job (its window closes before arrival) and
	// would then be taken while carrying the delivery load.
	assert.False(t, r.IsValidAdditionForTW(0, 0))
	assert.True(t, r.IsValidAdditionForTWWithoutMaxLoad(0, 0))
}

func softPinProblem(latenessSec int64, travelBack int64) *model.ProblemDoc {
	return &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 9, LocationIndex: 3, TimeWindows: [][2]int64{{0, 5}}},
		},
		Shipments: []model.ShipmentDoc{
			{
				Amount:   []int64{1},
				Pickup:   model.ShipmentStepDoc{ID: 3, LocationIndex: 1},
				Delivery: model.ShipmentStepDoc{ID: 4, LocationIndex: 2},
				Pinned:   true,
			},
		},
		Vehicles: []model.VehicleDoc{
			{
				ID:         1,
				StartIndex: intPtr(0),
				Capacity:   []int64{1},
				Steps: []model.VehicleStepDoc{
					{Type: "pickup", ID: 3},
					{Type: "delivery", ID: 4},
				},
			},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {Durations: [][]int64{
				{0, 10, 20, 2},
				{10, 0, 10, travelBack},
				{20, 10, 0, 15},
				{2, travelBack, 15, 0},
			}},
		},
		Options: &model.ProblemOptionsDoc{
			PinnedSoftTiming:       true,
			PinnedLatenessLimitSec: latenessSec,
		},
	}
}

func TestSoftPinZeroBudgetBlocksPrepend(t *testing.T) {
	in := mustInput(t, softPinProblem(0, 10))
	sol, err := newSeedSolution(in)
	require.NoError(t, err)
	r := sol.routes[0]

	extra := 0 // job 9
	assert.False(t, r.IsValidAdditionForTW(extra, 0))
	// Inserting right before the pinned delivery is also rejected.
	assert.False(t, r.IsValidAdditionForTW(extra, 1))
}

func TestSoftPinLatenessBudget(t *testing.T) {
	// Detour via the extra job delays the pinned pickup by 2s.
	in := mustInput(t, softPinProblem(5, 10))
	sol, err := newSeedSolution(in)
	require.NoError(t, err)
	assert.True(t, sol.routes[0].IsValidAdditionForTW(0, 0))

	// A 20s leg back pushes the delay to 12s, past the 5s budget.
	in = mustInput(t, softPinProblem(5, 20))
	sol, err = newSeedSolution(in)
	require.NoError(t, err)
	assert.False(t, sol.routes[0].IsValidAdditionForTW(0, 0))
}
