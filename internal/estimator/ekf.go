package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// State vector indices.
const (
	X  = 0
	Y  = 1
	VX = 2
	VY = 3

	stateDim = 4
)

// Measurement is a full-state observation (H is identity in this model).
type Measurement [stateDim]float64

// Noise holds the diagonal noise and initial-uncertainty parameters for
// filter construction. Zero values are valid (a noiseless model), though a
// measurement noise of all zeros combined with a zero covariance makes the
// innovation covariance singular and Update will refuse to commit.
type Noise struct {
	Process     [stateDim]float64 // Q diagonal
	Measurement [stateDim]float64 // R diagonal
	InitialCov  [stateDim]float64 // P diagonal at startup
}

// DefaultNoise mirrors the tuning of the reference airframe: positions are
// trusted more than the dead-reckoned velocities.
func DefaultNoise() Noise {
	return Noise{
		Process:     [stateDim]float64{0.01, 0.01, 0.05, 0.05},
		Measurement: [stateDim]float64{0.5, 0.5, 1.0, 1.0},
		InitialCov:  [stateDim]float64{1, 1, 100, 100},
	}
}

// condLimit bounds the acceptable condition number of the innovation
// covariance; anything worse is reported as ErrNumerical.
const condLimit = 1e12

// EKF fuses planar position/velocity measurements into a filtered state
// estimate. The process model is constant-velocity: F is identity with dt
// coupling from velocity into position. All matrices are owned by the
// filter; Predict and Update either commit a full new (x, P) pair or leave
// the previous one untouched.
type EKF struct {
	x *mat.VecDense // state [x, y, vx, vy]
	p *mat.Dense    // estimate covariance
	q *mat.Dense    // process noise
	r *mat.Dense    // measurement noise
	f *mat.Dense    // state transition
	h *mat.Dense    // observation (identity)
}

// New constructs a filter at the origin with the given noise model.
func New(n Noise) *EKF {
	diag := func(d [stateDim]float64) *mat.Dense {
		m := mat.NewDense(stateDim, stateDim, nil)
		for i, v := range d {
			m.Set(i, i, v)
		}
		return m
	}

	return &EKF{
		x: mat.NewVecDense(stateDim, nil),
		p: diag(n.InitialCov),
		q: diag(n.Process),
		r: diag(n.Measurement),
		f: identity(stateDim),
		h: identity(stateDim),
	}
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Predict advances the state by dt seconds:
//
//	x ← F·x
//	P ← F·P·Fᵀ + Q
//
// Requires dt > 0 and finite; otherwise ErrInvalidInput and no mutation.
func (k *EKF) Predict(dt float64) error {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: dt=%v", ErrInvalidInput, dt)
	}

	k.f.Set(X, VX, dt)
	k.f.Set(Y, VY, dt)

	newX := mat.NewVecDense(stateDim, nil)
	newX.MulVec(k.f, k.x)

	newP := mat.NewDense(stateDim, stateDim, nil)
	newP.Mul(k.f, k.p)
	newP.Mul(newP, k.f.T())
	newP.Add(newP, k.q)

	k.x = newX
	k.p = symmetrize(newP)
	return nil
}

// Update corrects the estimate with a measurement:
//
//	y = z − H·x
//	S = H·P·Hᵀ + R
//	K = P·Hᵀ·S⁻¹
//	x ← x + K·y
//	P ← (I − K·H)·P
//
// A singular or ill-conditioned S yields ErrNumerical with the previous
// (x, P) retained. Non-finite measurement values yield ErrInvalidInput.
func (k *EKF) Update(z Measurement) error {
	for i, v := range z {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: z[%d]=%v", ErrInvalidInput, i, v)
		}
	}

	zVec := mat.NewVecDense(stateDim, z[:])

	// Innovation y = z − H·x.
	y := mat.NewVecDense(stateDim, nil)
	y.MulVec(k.h, k.x)
	y.SubVec(zVec, y)

	// Innovation covariance S = H·P·Hᵀ + R.
	s := mat.NewDense(stateDim, stateDim, nil)
	s.Mul(k.h, k.p)
	s.Mul(s, k.h.T())
	s.Add(s, k.r)

	var sInv mat.Dense
	if err := sInv.Inverse(s); err != nil {
		// gonum reports a mat.Condition for merely ill-conditioned
		// inputs and still produces a result; accept it up to the
		// configured limit.
		if c, ok := err.(mat.Condition); !ok || float64(c) > condLimit {
			return fmt.Errorf("%w: %v", ErrNumerical, err)
		}
	}

	// Gain K = P·Hᵀ·S⁻¹.
	kGain := mat.NewDense(stateDim, stateDim, nil)
	kGain.Mul(k.p, k.h.T())
	kGain.Mul(kGain, &sInv)

	newX := mat.NewVecDense(stateDim, nil)
	newX.MulVec(kGain, y)
	newX.AddVec(k.x, newX)

	// P ← (I − K·H)·P.
	kh := mat.NewDense(stateDim, stateDim, nil)
	kh.Mul(kGain, k.h)
	ikh := identity(stateDim)
	ikh.Sub(ikh, kh)
	newP := mat.NewDense(stateDim, stateDim, nil)
	newP.Mul(ikh, k.p)

	k.x = newX
	k.p = symmetrize(newP)
	return nil
}

// symmetrize averages a covariance with its transpose to counter
// floating-point drift away from symmetry.
func symmetrize(p *mat.Dense) *mat.Dense {
	out := mat.NewDense(stateDim, stateDim, nil)
	out.Add(p, p.T())
	out.Scale(0.5, out)
	return out
}

// State returns a copy of the current estimate [x, y, vx, vy].
func (k *EKF) State() [stateDim]float64 {
	var out [stateDim]float64
	for i := range out {
		out[i] = k.x.AtVec(i)
	}
	return out
}

// Altitude returns the estimated height above the origin. The planar model
// carries altitude on the y axis, matching the airframe convention.
func (k *EKF) Altitude() float64 { return k.x.AtVec(Y) }

// Covariance returns a copy of the current estimate covariance.
func (k *EKF) Covariance() *mat.Dense {
	out := mat.NewDense(stateDim, stateDim, nil)
	out.Copy(k.p)
	return out
}
