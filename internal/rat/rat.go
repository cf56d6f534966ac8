// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package rat implements exact dyadic rational arithmetic for the cursor
// normaliser and scene-root ascent, where repeated float multiplication
// would drift at deep nesting.
//
// Every IEEE-754 finite float is representable exactly: FromFloat splits
// the mantissa/exponent bits directly into a numerator/denominator pair,
// and ToFloat converts back, truncating the operands before dividing
// whenever either is too wide to divide directly.
package rat

import (
	"math"
	"math/big"

	"github.com/pkg/errors"
	"github.com/remyoudompheng/bigfft"
)

// ErrDivByZero is returned by Div when the divisor is zero.
var ErrDivByZero = errors.New("rat: division by zero")

// ErrNonFinite is returned by FromFloat when given NaN or +/-Inf.
var ErrNonFinite = errors.New("rat: non-finite float")

// Rat is a reduced fraction n/d with d > 0 and gcd(|n|, d) == 1.
//
// The zero value is not usable (its n/d pointers are nil); always
// construct via New, FromFloat, ZERO, or ONE.
type Rat struct {
	n *big.Int // signed numerator
	d *big.Int // positive denominator
}

// ZERO is the rational 0/1.
var ZERO = Rat{n: big.NewInt(0), d: big.NewInt(1)}

// ONE is the rational 1/1.
var ONE = Rat{n: big.NewInt(1), d: big.NewInt(1)}

// New builds a Rat from an integer numerator/denominator pair and reduces it.
// It panics if d == 0, mirroring big.Rat's own contract.
func New(n, d int64) Rat {
	if d == 0 {
		panic("rat: zero denominator")
	}
	return Rat{n: big.NewInt(n), d: big.NewInt(d)}.reduce()
}

func fromBig(n, d *big.Int) Rat {
	return Rat{n: n, d: d}.reduce()
}

// reduce forces a positive denominator and divides out the gcd.
func (r Rat) reduce() Rat {
	n, d := new(big.Int).Set(r.n), new(big.Int).Set(r.d)
	if d.Sign() == 0 {
		panic("rat: zero denominator")
	}
	if d.Sign() < 0 {
		n.Neg(n)
		d.Neg(d)
	}
	if n.Sign() == 0 {
		return Rat{n: big.NewInt(0), d: big.NewInt(1)}
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(n), d)
	if g.Cmp(big.NewInt(1)) != 0 {
		n.Quo(n, g)
		d.Quo(d, g)
	}
	return Rat{n: n, d: d}
}

// Add returns r + s, exactly, with no rounding.
func (r Rat) Add(s Rat) Rat {
	// r.n/r.d + s.n/s.d = (r.n*s.d + s.n*r.d) / (r.d*s.d)
	n := new(big.Int).Add(
		new(big.Int).Mul(r.n, s.d),
		new(big.Int).Mul(s.n, r.d),
	)
	d := new(big.Int).Mul(r.d, s.d)
	return fromBig(n, d)
}

// Sub returns r - s, exactly.
func (r Rat) Sub(s Rat) Rat {
	return r.Add(s.Neg())
}

// Neg returns -r.
func (r Rat) Neg() Rat {
	return Rat{n: new(big.Int).Neg(r.n), d: new(big.Int).Set(r.d)}
}

// Mul returns r * s, exactly.
//
// The numerator/denominator products are formed with bigfft.Mul rather
// than big.Int.Mul: cursor normalisation composes one multiplication per
// ascended/descended prefix token, so deep prefixes (long held-down
// sessions) can grow the operands well past the length where FFT
// multiplication overtakes schoolbook multiplication.
func (r Rat) Mul(s Rat) Rat {
	n := bigfft.Mul(r.n, s.n)
	d := bigfft.Mul(r.d, s.d)
	return fromBig(n, d)
}

// Div returns r / s. It fails with ErrDivByZero if s is zero.
func (r Rat) Div(s Rat) (Rat, error) {
	if s.n.Sign() == 0 {
		return Rat{}, ErrDivByZero
	}
	n := bigfft.Mul(r.n, s.d)
	d := bigfft.Mul(r.d, s.n)
	return fromBig(n, d), nil
}

// Lt reports whether r < s.
func (r Rat) Lt(s Rat) bool {
	lhs := new(big.Int).Mul(r.n, s.d)
	rhs := new(big.Int).Mul(s.n, r.d)
	return lhs.Cmp(rhs) < 0
}

// Gte reports whether r >= s.
func (r Rat) Gte(s Rat) bool {
	return !r.Lt(s)
}

// Sign returns -1, 0, or 1 according to the sign of r.
func (r Rat) Sign() int {
	return r.n.Sign()
}

// FromFloat converts a finite float64 to an exact Rat.
//
// It decomposes the IEEE-754 bit pattern directly: subnormals use the
// fixed exponent 1-1023-52 = -1074 with no implicit leading bit, normals
// use the biased exponent with an implicit leading 1, exactly as the
// format defines significand*2^exponent.
func FromFloat(f float64) (Rat, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Rat{}, ErrNonFinite
	}
	if f == 0 {
		return ZERO, nil
	}

	bits := math.Float64bits(f)
	sign := int64(1)
	if bits>>63 == 1 {
		sign = -1
	}
	rawExp := int64((bits >> 52) & 0x7ff)
	mantissa := bits & ((uint64(1) << 52) - 1)

	var significand *big.Int
	var exp int64
	if rawExp == 0 {
		// subnormal: significand has no implicit leading 1.
		significand = new(big.Int).SetUint64(mantissa)
		exp = -1074
	} else {
		significand = new(big.Int).SetUint64(mantissa | (uint64(1) << 52))
		exp = rawExp - 1023 - 52
	}

	n := new(big.Int).Mul(big.NewInt(sign), significand)
	d := big.NewInt(1)
	if exp >= 0 {
		n.Lsh(n, uint(exp))
	} else {
		d.Lsh(d, uint(-exp))
	}
	return fromBig(n, d), nil
}

// ToFloat converts r back to the nearest float64.
//
// When both operands fit comfortably in a float64's exponent range it
// divides directly; otherwise it right-shifts both numerator and
// denominator down to 64 significant bits each and compensates with a
// power-of-two scale factor, so ToFloat never builds a float out of a
// division between thousand-bit integers.
func ToFloat(r Rat) float64 {
	const maxBits = 1000

	nBits := r.n.BitLen()
	dBits := r.d.BitLen()
	if nBits <= maxBits && dBits <= maxBits {
		nf := new(big.Float).SetInt(r.n)
		df := new(big.Float).SetInt(r.d)
		q := new(big.Float).Quo(nf, df)
		f, _ := q.Float64()
		return f
	}

	// Shift each operand independently so neither collapses to zero, then
	// restore the difference of the two shifts as a power-of-two scale.
	nShift, dShift := 0, 0
	if nBits > 64 {
		nShift = nBits - 64
	}
	if dBits > 64 {
		dShift = dBits - 64
	}

	n := new(big.Int).Rsh(r.n, uint(nShift))
	d := new(big.Int).Rsh(r.d, uint(dShift))

	nf := new(big.Float).SetInt(n)
	df := new(big.Float).SetInt(d)
	q := new(big.Float).Quo(nf, df)
	q.SetMantExp(q, nShift-dShift)
	f, _ := q.Float64()
	return f
}

// Cmp returns -1, 0, or +1 as r is less than, equal to, or greater than s.
func (r Rat) Cmp(s Rat) int {
	if r.Lt(s) {
		return -1
	}
	if s.Lt(r) {
		return 1
	}
	return 0
}

// String renders r as "n/d", mainly for test failure messages.
func (r Rat) String() string {
	return r.n.String() + "/" + r.d.String()
}
