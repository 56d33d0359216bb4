package model

// Core domain types shared by the solver packages.

type JobKind uint8

const (
	JobSingle JobKind = iota
	JobPickup
	JobDelivery
)

type PinnedPosition uint8

const (
	PinNone PinnedPosition = iota
	PinFirst
	PinLast
)

// TimeWindow bounds a service start, inclusive on both ends. Times and
// durations are plain seconds.
type TimeWindow struct {
	Start int64
	End   int64
}

func DefaultTimeWindow() TimeWindow {
	return TimeWindow{Start: 0, End: maxInt64}
}

func (tw TimeWindow) Contains(t int64) bool {
	return tw.Start <= t && t <= tw.End
}

// VehiclePenalty is a signed objective adjustment applied when a job lands on
// the given vehicle. Negative values act as preferences.
type VehiclePenalty struct {
	VehicleID int64
	Cost      int64
}

// Job describes a single job or one half of a shipment. For shipments the
// penalties, tags and budget live on the pickup; the delivery carries none.
type Job struct {
	ID       int64
	Kind     JobKind
	Location int

	Setup   int64
	Service int64
	// Optional per-vehicle-type overrides, keyed by vehicle type name.
	SetupPerType   map[string]int64
	ServicePerType map[string]int64

	Delivery Amount
	Pickup   Amount

	Skills   []int
	Priority int

	TWs []TimeWindow

	Description string

	VehiclePenalties []VehiclePenalty
	ExclusiveTags    []string
	Budget           int64

	Pinned          bool
	PinnedPosition  PinnedPosition
	AllowedVehicles []int64
}

// Break is a mandatory rest on a vehicle. MaxLoad, when set, caps the load
// the vehicle may carry while the break is taken.
type Break struct {
	ID          int64
	TWs         []TimeWindow
	Service     int64
	Description string
	MaxLoad     Amount // nil when unconstrained
}

func (b *Break) IsValidForLoad(load Amount) bool {
	return b.MaxLoad == nil || load.LE(b.MaxLoad)
}

// VehicleStep seeds a task on a vehicle's route, binding pinned work.
type VehicleStep struct {
	Type string // "job", "pickup" or "delivery"
	ID   int64
}

type Vehicle struct {
	ID      int64
	Profile string
	Type    string

	Capacity Amount
	Skills   []int

	Start *int // location index, nil when the vehicle starts anywhere
	End   *int

	TW     TimeWindow
	Breaks []Break

	CostPerHour int64
	FixedCost   int64

	MaxFirstLegDistance *int64

	Steps []VehicleStep

	Description string
}

func (v *Vehicle) HasStart() bool { return v.Start != nil }
func (v *Vehicle) HasEnd() bool   { return v.End != nil }

// Matrix is a square cost/duration/distance matrix indexed by location.
type Matrix struct {
	n    int
	data []int64
}

func NewMatrix(n int) *Matrix {
	return &Matrix{n: n, data: make([]int64, n*n)}
}

// MatrixFromRows builds a matrix from row-major input, which must be square.
func MatrixFromRows(rows [][]int64) *Matrix {
	m := NewMatrix(len(rows))
	for i, row := range rows {
		copy(m.data[i*m.n:(i+1)*m.n], row)
	}
	return m
}

func (m *Matrix) Size() int { return m.n }

func (m *Matrix) At(i, j int) int64 {
	return m.data[i*m.n+j]
}

func (m *Matrix) Set(i, j int, v int64) {
	m.data[i*m.n+j] = v
}
