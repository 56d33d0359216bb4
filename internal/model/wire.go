package model

// Wire types for the JSON problem and solution documents. Field layout
// mirrors the documents consumed and produced by the CLI and the API.

type ProblemDoc struct {
	Jobs      []JobDoc              `json:"jobs,omitempty"`
	Shipments []ShipmentDoc         `json:"shipments,omitempty"`
	Vehicles  []VehicleDoc          `json:"vehicles"`
	Matrices  map[string]MatrixDoc  `json:"matrices"`
	Options   *ProblemOptionsDoc    `json:"options,omitempty"`
}

type ProblemOptionsDoc struct {
	PinnedSoftTiming          bool  `json:"pinned_soft_timing,omitempty"`
	PinnedLatenessLimitSec    int64 `json:"pinned_lateness_limit_sec,omitempty"`
	IncludeActionTimeInBudget bool  `json:"include_action_time_in_budget,omitempty"`
	BudgetDensifyCandidatesK  uint  `json:"budget_densify_candidates_k,omitempty"`
}

type JobDoc struct {
	ID               int64               `json:"id"`
	LocationIndex    int                 `json:"location_index"`
	Setup            int64               `json:"setup,omitempty"`
	Service          int64               `json:"service,omitempty"`
	SetupPerType     map[string]int64    `json:"setup_per_type,omitempty"`
	ServicePerType   map[string]int64    `json:"service_per_type,omitempty"`
	Delivery         []int64             `json:"delivery,omitempty"`
	Pickup           []int64             `json:"pickup,omitempty"`
	Skills           []int               `json:"skills,omitempty"`
	Priority         int                 `json:"priority,omitempty"`
	TimeWindows      [][2]int64          `json:"time_windows,omitempty"`
	Description      string              `json:"description,omitempty"`
	VehiclePenalties []PenaltyDoc        `json:"vehicle_penalties,omitempty"`
	ExclusiveTags    []string            `json:"exclusive_tags,omitempty"`
	Budget           int64               `json:"budget,omitempty"`
	Pinned           bool                `json:"pinned,omitempty"`
	PinnedPosition   string              `json:"pinned_position,omitempty"` // "first" or "last"
	AllowedVehicles  []int64             `json:"allowed_vehicles,omitempty"`
}

type PenaltyDoc struct {
	Vehicle int64 `json:"vehicle"`
	Cost    int64 `json:"cost"`
}

// ShipmentDoc describes a pickup-delivery pair. Tags, budget and penalties
// are shipment-level and end up on the pickup job.
type ShipmentDoc struct {
	Amount           []int64         `json:"amount,omitempty"`
	Pickup           ShipmentStepDoc `json:"pickup"`
	Delivery         ShipmentStepDoc `json:"delivery"`
	Skills           []int           `json:"skills,omitempty"`
	Priority         int             `json:"priority,omitempty"`
	VehiclePenalties []PenaltyDoc    `json:"vehicle_penalties,omitempty"`
	ExclusiveTags    []string        `json:"exclusive_tags,omitempty"`
	Budget           int64           `json:"budget,omitempty"`
	Pinned           bool            `json:"pinned,omitempty"`
	PinnedPosition   string          `json:"pinned_position,omitempty"`
	AllowedVehicles  []int64         `json:"allowed_vehicles,omitempty"`
}

type ShipmentStepDoc struct {
	ID             int64            `json:"id"`
	LocationIndex  int              `json:"location_index"`
	Setup          int64            `json:"setup,omitempty"`
	Service        int64            `json:"service,omitempty"`
	SetupPerType   map[string]int64 `json:"setup_per_type,omitempty"`
	ServicePerType map[string]int64 `json:"service_per_type,omitempty"`
	TimeWindows    [][2]int64       `json:"time_windows,omitempty"`
	Description    string           `json:"description,omitempty"`
}

type VehicleDoc struct {
	ID                  int64            `json:"id"`
	Profile             string           `json:"profile,omitempty"`
	Type                string           `json:"type,omitempty"`
	StartIndex          *int             `json:"start_index,omitempty"`
	EndIndex            *int             `json:"end_index,omitempty"`
	Capacity            []int64          `json:"capacity,omitempty"`
	Skills              []int            `json:"skills,omitempty"`
	TimeWindow          *[2]int64        `json:"time_window,omitempty"`
	Breaks              []BreakDoc       `json:"breaks,omitempty"`
	Costs               *VehicleCostsDoc `json:"costs,omitempty"`
	MaxFirstLegDistance *int64           `json:"max_first_leg_distance,omitempty"`
	Steps               []VehicleStepDoc `json:"steps,omitempty"`
	Description         string           `json:"description,omitempty"`
}

type VehicleCostsDoc struct {
	PerHour int64 `json:"per_hour,omitempty"`
	Fixed   int64 `json:"fixed,omitempty"`
}

type BreakDoc struct {
	ID          int64      `json:"id"`
	TimeWindows [][2]int64 `json:"time_windows,omitempty"`
	Service     int64      `json:"service,omitempty"`
	MaxLoad     []int64    `json:"max_load,omitempty"`
	Description string     `json:"description,omitempty"`
}

type VehicleStepDoc struct {
	Type string `json:"type"` // "job", "pickup" or "delivery"
	ID   int64  `json:"id"`
}

type MatrixDoc struct {
	Durations [][]int64 `json:"durations,omitempty"`
	Distances [][]int64 `json:"distances,omitempty"`
	Costs     [][]int64 `json:"costs,omitempty"`
}

// Solution output.

type SolutionDoc struct {
	Code       int             `json:"code"`
	Error      string          `json:"error,omitempty"`
	Summary    SummaryDoc      `json:"summary"`
	Unassigned []UnassignedDoc `json:"unassigned"`
	Routes     []RouteDoc      `json:"routes"`
}

type SummaryDoc struct {
	Cost           int64              `json:"cost"`
	Routes         int                `json:"routes"`
	Unassigned     int                `json:"unassigned"`
	Delivery       []int64            `json:"delivery"`
	Pickup         []int64            `json:"pickup"`
	Setup          int64              `json:"setup"`
	Service        int64              `json:"service"`
	Duration       int64              `json:"duration"`
	Distance       int64              `json:"distance,omitempty"`
	WaitingTime    int64              `json:"waiting_time"`
	Priority       int                `json:"priority"`
	Violations     int                `json:"violations"`
	ComputingTimes ComputingTimesDoc  `json:"computing_times"`
}

type ComputingTimesDoc struct {
	LoadingMs int64 `json:"loading"`
	SolvingMs int64 `json:"solving"`
}

type UnassignedDoc struct {
	ID            int64  `json:"id"`
	Type          string `json:"type"`
	LocationIndex int    `json:"location_index"`
}

type RouteDoc struct {
	Vehicle     int64     `json:"vehicle"`
	Cost        int64     `json:"cost"`
	Delivery    []int64   `json:"delivery"`
	Pickup      []int64   `json:"pickup"`
	Setup       int64     `json:"setup"`
	Service     int64     `json:"service"`
	Duration    int64     `json:"duration"`
	Distance    int64     `json:"distance,omitempty"`
	WaitingTime int64     `json:"waiting_time"`
	Priority    int       `json:"priority"`
	Violations  int       `json:"violations"`
	Steps       []StepDoc `json:"steps"`
}

type StepDoc struct {
	Type          string  `json:"type"` // "start", "job", "pickup", "delivery", "break", "end"
	ID            int64   `json:"id,omitempty"`
	LocationIndex int     `json:"location_index,omitempty"`
	Arrival       int64   `json:"arrival"`
	Setup         int64   `json:"setup,omitempty"`
	Service       int64   `json:"service,omitempty"`
	WaitingTime   int64   `json:"waiting_time,omitempty"`
	Load          []int64 `json:"load,omitempty"`
	LatenessSec   int64   `json:"lateness,omitempty"`
}
