package opt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetopt/internal/model"
)

func testSolveOptions() SolveOptions {
	return SolveOptions{
		Threads:         1,
		TimeLimit:       200 * time.Millisecond,
		IterationsLimit: 200,
		Seed:            1,
	}
}

func solveDoc(t *testing.T, doc *model.ProblemDoc) (*model.SolutionDoc, Metrics) {
	t.Helper()
	in := mustInput(t, doc)
	out, m, err := Solve(in, testSolveOptions())
	require.NoError(t, err)
	return out, m
}

func taskSteps(r model.RouteDoc) []model.StepDoc {
	var out []model.StepDoc
	for _, s := range r.Steps {
		switch s.Type {
		case "job", "pickup", "delivery":
			out = append(out, s)
		}
	}
	return out
}

func budgetProblem(budget int64) *model.ProblemDoc {
	return &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1, Budget: budget},
		},
		Vehicles: []model.VehicleDoc{
			{ID: 1, StartIndex: intPtr(0)},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {Durations: [][]int64{
				{0, 100},
				{100, 0},
			}},
		},
		Options: &model.ProblemOptionsDoc{IncludeActionTimeInBudget: true},
	}
}

func TestSolveBudgetKeepsAffordableRoute(t *testing.T) {
	out, m := solveDoc(t, budgetProblem(100))

	assert.Equal(t, 0, out.Summary.Unassigned)
	require.Len(t, out.Routes, 1)
	assert.Equal(t, int64(100), out.Summary.Cost)
	assert.Equal(t, 1, m.Repair.Kept)
}

func TestSolveBudgetDropsUnaffordableRoute(t *testing.T) {
	out, m := solveDoc(t, budgetProblem(99))

	assert.Equal(t, 1, out.Summary.Unassigned)
	assert.Empty(t, out.Routes)
	require.Len(t, out.Unassigned, 1)
	assert.Equal(t, int64(1), out.Unassigned[0].ID)
	assert.Equal(t, "job", out.Unassigned[0].Type)
	assert.Equal(t, m.Repair.Reduced+m.Repair.Dropped, 1)
}

func TestSolveInsertsAroundPinnedTask(t *testing.T) {
	doc := &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1, Pinned: true},
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
				{0, 1000, 100},
				{1000, 0, 100},
				{100, 100, 0},
			}},
		},
	}
	out, _ := solveDoc(t, doc)

	assert.Equal(t, 0, out.Summary.Unassigned)
	require.Len(t, out.Routes, 1)
	steps := taskSteps(out.Routes[0])
	require.Len(t, steps, 2)
	// Visiting the free job first saves the long direct leg to the pinned
	// one.
	assert.Equal(t, int64(2), steps[0].ID)
	assert.Equal(t, int64(1), steps[1].ID)
	assert.Equal(t, int64(200), out.Summary.Cost)
}

func TestSolveKeepsPinnedFirstShipmentAtHead(t *testing.T) {
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
	out, _ := solveDoc(t, doc)

	assert.Equal(t, 0, out.Summary.Unassigned)
	require.Len(t, out.Routes, 1)
	steps := taskSteps(out.Routes[0])
	require.Len(t, steps, 3)
	assert.Equal(t, "pickup", steps[0].Type)
	assert.Equal(t, int64(3), steps[0].ID)
	assert.Equal(t, "delivery", steps[1].Type)
	assert.Equal(t, int64(9), steps[2].ID)
}

func TestSolveSoftPinZeroBudgetLeavesDetourUnassigned(t *testing.T) {
	out, _ := solveDoc(t, softPinProblem(0, 10))

	assert.Equal(t, 1, out.Summary.Unassigned)
	require.Len(t, out.Unassigned, 1)
	assert.Equal(t, int64(9), out.Unassigned[0].ID)
	require.Len(t, out.Routes, 1)
	assert.Len(t, taskSteps(out.Routes[0]), 2)
}

func TestSolveSoftPinBudgetAbsorbsDetour(t *testing.T) {
	out, _ := solveDoc(t, softPinProblem(5, 10))

	assert.Equal(t, 0, out.Summary.Unassigned)
	require.Len(t, out.Routes, 1)
	steps := taskSteps(out.Routes[0])
	require.Len(t, steps, 3)
	// The detour job slots in before the seeded pair.
	assert.Equal(t, int64(9), steps[0].ID)
	assert.Equal(t, int64(3), steps[1].ID)
	assert.Equal(t, int64(4), steps[2].ID)
}

func TestSolveExclusiveTagLimitsAssignments(t *testing.T) {
	doc := &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1, ExclusiveTags: []string{"hazmat"}},
			{ID: 2, LocationIndex: 2, ExclusiveTags: []string{"hazmat"}},
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
	out, _ := solveDoc(t, doc)

	assert.Equal(t, 1, out.Summary.Unassigned)
	require.Len(t, out.Routes, 1)
	assert.Len(t, taskSteps(out.Routes[0]), 1)
}

func TestSolveFirstLegDistanceShapesRoute(t *testing.T) {
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
	out, _ := solveDoc(t, doc)

	assert.Equal(t, 0, out.Summary.Unassigned)
	require.Len(t, out.Routes, 1)
	steps := taskSteps(out.Routes[0])
	require.Len(t, steps, 2)
	assert.Equal(t, int64(2), steps[0].ID)
}

func TestSolvePenaltySteersVehicleChoice(t *testing.T) {
	doc := &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{
				ID:            1,
				LocationIndex: 1,
				VehiclePenalties: []model.PenaltyDoc{
					{Vehicle: 1, Cost: 500},
				},
			},
		},
		Vehicles: []model.VehicleDoc{
			{ID: 1, StartIndex: intPtr(0)},
			{ID: 2, StartIndex: intPtr(0)},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {Durations: [][]int64{
				{0, 10},
				{10, 0},
			}},
		},
	}
	out, _ := solveDoc(t, doc)

	assert.Equal(t, 0, out.Summary.Unassigned)
	require.Len(t, out.Routes, 1)
	assert.Equal(t, int64(2), out.Routes[0].Vehicle)
}

func TestSolveShipmentPrecedenceAndLoad(t *testing.T) {
	doc := &model.ProblemDoc{
		Shipments: []model.ShipmentDoc{
			{
				Amount:   []int64{2},
				Pickup:   model.ShipmentStepDoc{ID: 3, LocationIndex: 1},
				Delivery: model.ShipmentStepDoc{ID: 4, LocationIndex: 2},
			},
		},
		Vehicles: []model.VehicleDoc{
			{ID: 1, StartIndex: intPtr(0), EndIndex: intPtr(0), Capacity: []int64{2}},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {Durations: [][]int64{
				{0, 10, 20},
				{10, 0, 15},
				{20, 15, 0},
			}},
		},
	}
	out, _ := solveDoc(t, doc)

	assert.Equal(t, 0, out.Summary.Unassigned)
	require.Len(t, out.Routes, 1)
	steps := taskSteps(out.Routes[0])
	require.Len(t, steps, 2)
	assert.Equal(t, "pickup", steps[0].Type)
	assert.Equal(t, "delivery", steps[1].Type)
	assert.Equal(t, []int64{2}, steps[0].Load)
	assert.Equal(t, []int64{0}, steps[1].Load)
}

func TestSolveBudgetDensifiesWhenHeadroomRemains(t *testing.T) {
	// Two cheap jobs share a generous budget on the first one, so the
	// repair pass keeps both on the route.
	doc := &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1, Budget: 1000},
			{ID: 2, LocationIndex: 2, Budget: 1000},
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
		Options: &model.ProblemOptionsDoc{IncludeActionTimeInBudget: true},
	}
	out, m := solveDoc(t, doc)

	assert.Equal(t, 0, out.Summary.Unassigned)
	require.Len(t, out.Routes, 1)
	assert.Len(t, taskSteps(out.Routes[0]), 2)
	assert.Equal(t, 1, m.Repair.Kept)
}

func TestSolveRespectsAllowedVehicles(t *testing.T) {
	doc := &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1, AllowedVehicles: []int64{2}},
		},
		Vehicles: []model.VehicleDoc{
			{ID: 1, StartIndex: intPtr(0)},
			{ID: 2, StartIndex: intPtr(0)},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {Durations: [][]int64{
				{0, 10},
				{10, 0},
			}},
		},
	}
	out, _ := solveDoc(t, doc)

	assert.Equal(t, 0, out.Summary.Unassigned)
	require.Len(t, out.Routes, 1)
	assert.Equal(t, int64(2), out.Routes[0].Vehicle)
}

func TestSolveInfeasibleSeededRouteFails(t *testing.T) {
	doc := &model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1, Pinned: true, Delivery: []int64{5}},
		},
		Vehicles: []model.VehicleDoc{
			{
				ID:         1,
				StartIndex: intPtr(0),
				Capacity:   []int64{1},
				Steps:      []model.VehicleStepDoc{{Type: "job", ID: 1}},
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
	_, _, err := Solve(in, testSolveOptions())
	var ierr *InputError
	require.ErrorAs(t, err, &ierr)
}
