package energy

import (
	"math"

	"github.com/cwbudde/spheredist/internal/sphere"
	"gonum.org/v1/gonum/mat"
)

// DiagonalTerm is the value of a single i == j term: (1 + 1)^6.
// It does not depend on the configuration.
const DiagonalTerm = 64.0

// Arith is the numeric abstraction the objective is written against.
// Plain floats, dual numbers and expression-graph nodes all implement it.
type Arith[T any] interface {
	Const(v float64) T
	Add(a, b T) T
	Mul(a, b T) T
	Sin(x T) T
	Cos(x T) T
}

// Diagonal returns the configuration-independent offset contributed by the
// n diagonal terms of E.
func Diagonal(n int) float64 {
	return DiagonalTerm * float64(n)
}

// PairTerm returns (<a, b> + 1)^6 for two cartesian points
func PairTerm(a, b sphere.Vec3) float64 {
	c := a.X*b.X + a.Y*b.Y + a.Z*b.Z + 1
	cc := c * c
	return cc * cc * cc
}

// Spherical evaluates E over packed spherical angles
// x = [theta0, phi0, theta1, phi1, ...].
//
// Diagonal terms enter as the constant 64 each; every unordered off-diagonal
// pair is counted twice, so the result is the full ordered double sum.
func Spherical[T any](a Arith[T], x []T) T {
	n := len(x) / 2

	pts := make([][3]T, n)
	for i := range pts {
		sinTheta, cosTheta := a.Sin(x[2*i]), a.Cos(x[2*i])
		sinPhi, cosPhi := a.Sin(x[2*i+1]), a.Cos(x[2*i+1])
		pts[i] = [3]T{a.Mul(sinTheta, cosPhi), a.Mul(sinTheta, sinPhi), cosTheta}
	}

	one := a.Const(1)
	two := a.Const(2)
	sum := a.Const(Diagonal(n))

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			p, q := pts[i], pts[j]
			c := a.Add(a.Add(a.Add(a.Mul(p[0], q[0]), a.Mul(p[1], q[1])), a.Mul(p[2], q[2])), one)
			cc := a.Mul(c, c)
			sum = a.Add(sum, a.Mul(two, a.Mul(a.Mul(cc, cc), cc)))
		}
	}

	return sum
}

// Cartesian evaluates E directly on unit vectors using the Gram matrix P·Pᵀ.
func Cartesian(ps sphere.PointSet) float64 {
	n := len(ps)
	if n == 0 {
		return 0
	}

	p := mat.NewDense(n, 3, nil)
	for i, v := range ps {
		p.SetRow(i, []float64{v.X, v.Y, v.Z})
	}

	var gram mat.Dense
	gram.Mul(p, p.T())

	sum := Diagonal(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := gram.At(i, j) + 1
			cc := c * c
			sum += 2 * cc * cc * cc
		}
	}
	return sum
}

// Float is the plain float64 arithmetic used for direct evaluation
type Float struct{}

func (Float) Const(v float64) float64 { return v }
func (Float) Add(a, b float64) float64 { return a + b }
func (Float) Mul(a, b float64) float64 { return a * b }
func (Float) Sin(x float64) float64    { return math.Sin(x) }
func (Float) Cos(x float64) float64    { return math.Cos(x) }

// Value evaluates E at packed spherical angles with plain floats
func Value(x []float64) float64 {
	return Spherical[float64](Float{}, x)
}
