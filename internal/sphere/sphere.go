package sphere

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a point in 3D space. Points on the sphere are unit vectors.
type Vec3 = r3.Vec

// PointSet is an ordered sequence of points. Order is positional: the
// displayed set is matched index-by-index against a target set.
type PointSet []Vec3

// paramsPerPoint is the number of spherical angles per point (theta, phi)
const paramsPerPoint = 2

// Clone returns an independent copy of the point set
func (ps PointSet) Clone() PointSet {
	if ps == nil {
		return nil
	}
	out := make(PointSet, len(ps))
	copy(out, ps)
	return out
}

// Dim returns the dimensionality of the spherical parameter space
func (ps PointSet) Dim() int {
	return len(ps) * paramsPerPoint
}

// ToSpherical maps a vector to its polar angle theta in [0, pi] and its
// azimuth phi in (-pi, pi]. The vector does not need to be normalized.
func ToSpherical(p Vec3) (theta, phi float64) {
	norm := r3.Norm(p)
	if norm == 0 {
		return 0, 0
	}
	theta = math.Acos(clamp(p.Z/norm, -1, 1))
	phi = math.Atan2(p.Y, p.X)
	return theta, phi
}

// ToCartesian maps spherical angles to a unit vector
func ToCartesian(theta, phi float64) Vec3 {
	sinTheta, cosTheta := math.Sincos(theta)
	sinPhi, cosPhi := math.Sincos(phi)
	return Vec3{
		X: sinTheta * cosPhi,
		Y: sinTheta * sinPhi,
		Z: cosTheta,
	}
}

// NormalizeOK scales v to unit length. It reports false for the zero vector
// (or any vector whose norm is not a positive finite number).
func NormalizeOK(v Vec3) (Vec3, bool) {
	norm := r3.Norm(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return v, false
	}
	return r3.Scale(1/norm, v), true
}

// Normalize scales v to unit length. Degenerate input is returned unchanged.
func Normalize(v Vec3) Vec3 {
	u, _ := NormalizeOK(v)
	return u
}

// Pack flattens a point set into [theta0, phi0, theta1, phi1, ...]
func Pack(ps PointSet) []float64 {
	x := make([]float64, 0, ps.Dim())
	for _, p := range ps {
		theta, phi := ToSpherical(p)
		x = append(x, theta, phi)
	}
	return x
}

// Unpack converts a flat vector of spherical angles back to unit vectors.
// A trailing odd element is ignored.
func Unpack(x []float64) PointSet {
	ps := make(PointSet, len(x)/paramsPerPoint)
	for i := range ps {
		ps[i] = ToCartesian(x[i*paramsPerPoint], x[i*paramsPerPoint+1])
	}
	return ps
}

// RandomUnit returns a random unit vector. Components are drawn from
// [-1, 1) and near-zero draws are rejected.
func RandomUnit(rng *rand.Rand) Vec3 {
	for {
		v := Vec3{
			X: rng.Float64()*2 - 1,
			Y: rng.Float64()*2 - 1,
			Z: rng.Float64()*2 - 1,
		}
		if r3.Norm(v) < 1e-6 {
			continue
		}
		if u, ok := NormalizeOK(v); ok {
			return u
		}
	}
}

// RandomSet returns n random unit vectors
func RandomSet(rng *rand.Rand, n int) PointSet {
	ps := make(PointSet, n)
	for i := range ps {
		ps[i] = RandomUnit(rng)
	}
	return ps
}

// AngularDistance returns the angle in radians between two unit vectors
func AngularDistance(a, b Vec3) float64 {
	return math.Acos(clamp(r3.Dot(a, b), -1, 1))
}

// MatchOrder returns ps permuted so that ps[i] is paired with ref[i].
// Pairs are taken greedily, closest first. Sets of different length are
// returned unchanged.
func MatchOrder(ref, ps PointSet) PointSet {
	n := len(ps)
	if len(ref) != n || n < 2 {
		return ps
	}

	type pair struct {
		i, j int
		d    float64
	}
	pairs := make([]pair, 0, n*n)
	for i := range ref {
		for j := range ps {
			pairs = append(pairs, pair{i, j, AngularDistance(ref[i], ps[j])})
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].d < pairs[b].d })

	out := make(PointSet, n)
	usedRef := make([]bool, n)
	usedPs := make([]bool, n)
	for _, p := range pairs {
		if usedRef[p.i] || usedPs[p.j] {
			continue
		}
		out[p.i] = ps[p.j]
		usedRef[p.i], usedPs[p.j] = true, true
	}
	return out
}

// MaxNormError returns the largest deviation from unit length in the set
func MaxNormError(ps PointSet) float64 {
	var worst float64
	for _, p := range ps {
		if d := math.Abs(r3.Norm(p) - 1); d > worst {
			worst = d
		}
	}
	return worst
}

func clamp(val, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, val))
}
