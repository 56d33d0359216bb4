package model

import "math"

const (
	maxInt64 = math.MaxInt64
	minInt64 = math.MinInt64
)

// Eval is the (cost, duration, distance) triple used throughout the solver.
// Arithmetic saturates so the NoEval/NoGain sentinels stay well-behaved when
// composed with regular deltas.
type Eval struct {
	Cost     int64
	Duration int64
	Distance int64
}

// NoEval flags an unreachable option, NoGain an unimproving one.
var (
	NoEval = Eval{Cost: maxInt64}
	NoGain = Eval{Cost: minInt64}
)

func SaturatingAdd(lhs, rhs int64) int64 {
	if rhs > 0 && lhs > maxInt64-rhs {
		return maxInt64
	}
	if rhs < 0 && lhs < minInt64-rhs {
		return minInt64
	}
	return lhs + rhs
}

func SaturatingSub(lhs, rhs int64) int64 {
	return SaturatingAdd(lhs, SaturatingNeg(rhs))
}

func SaturatingNeg(v int64) int64 {
	switch v {
	case minInt64:
		return maxInt64
	case maxInt64:
		return minInt64
	default:
		return -v
	}
}

func (e Eval) Add(rhs Eval) Eval {
	return Eval{
		Cost:     SaturatingAdd(e.Cost, rhs.Cost),
		Duration: SaturatingAdd(e.Duration, rhs.Duration),
		Distance: SaturatingAdd(e.Distance, rhs.Distance),
	}
}

func (e Eval) Sub(rhs Eval) Eval {
	return Eval{
		Cost:     SaturatingSub(e.Cost, rhs.Cost),
		Duration: SaturatingSub(e.Duration, rhs.Duration),
		Distance: SaturatingSub(e.Distance, rhs.Distance),
	}
}

func (e Eval) Neg() Eval {
	return Eval{
		Cost:     SaturatingNeg(e.Cost),
		Duration: SaturatingNeg(e.Duration),
		Distance: SaturatingNeg(e.Distance),
	}
}

// Less orders lexicographically by (cost, duration, distance).
func (e Eval) Less(rhs Eval) bool {
	if e.Cost != rhs.Cost {
		return e.Cost < rhs.Cost
	}
	if e.Duration != rhs.Duration {
		return e.Duration < rhs.Duration
	}
	return e.Distance < rhs.Distance
}

// LE compares on cost only, matching the ordering used by gain comparisons.
func (e Eval) LE(rhs Eval) bool {
	return e.Cost <= rhs.Cost
}
