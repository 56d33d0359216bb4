package model

// Amount is a fixed-arity vector of capacity components. All routes and jobs
// within one problem share the same arity.
type Amount []int64

func ZeroAmount(size int) Amount {
	return make(Amount, size)
}

// MaxAmount returns an amount saturated at the maximum representable value,
// used as the neutral element for component-wise minima.
func MaxAmount(size int) Amount {
	a := make(Amount, size)
	for i := range a {
		a[i] = maxInt64
	}
	return a
}

func (a Amount) Clone() Amount {
	out := make(Amount, len(a))
	copy(out, a)
	return out
}

func (a Amount) Add(b Amount) Amount {
	out := a.Clone()
	out.AddInPlace(b)
	return out
}

func (a Amount) Sub(b Amount) Amount {
	out := a.Clone()
	out.SubInPlace(b)
	return out
}

func (a Amount) AddInPlace(b Amount) {
	for i := range a {
		a[i] += b[i]
	}
}

func (a Amount) SubInPlace(b Amount) {
	for i := range a {
		a[i] -= b[i]
	}
}

// LE reports component-wise a <= b.
func (a Amount) LE(b Amount) bool {
	for i := range a {
		if a[i] > b[i] {
			return false
		}
	}
	return true
}

func (a Amount) Equal(b Amount) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (a Amount) IsZero() bool {
	for i := range a {
		if a[i] != 0 {
			return false
		}
	}
	return true
}

// MinInPlace keeps the component-wise minimum of a and b in a.
func (a Amount) MinInPlace(b Amount) {
	for i := range a {
		if b[i] < a[i] {
			a[i] = b[i]
		}
	}
}

// MaxInPlace keeps the component-wise maximum of a and b in a.
func (a Amount) MaxInPlace(b Amount) {
	for i := range a {
		if b[i] > a[i] {
			a[i] = b[i]
		}
	}
}
