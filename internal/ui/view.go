package ui

import (
	"math"

	"github.com/cwbudde/spheredist/internal/sphere"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r3"
)

// View is an orthographic camera looking at the unit sphere
type View struct {
	Yaw   float64 // rotation about +Z, radians
	Pitch float64 // tilt about +X after yaw, radians
}

// DefaultView looks slightly down onto the equator
func DefaultView() View {
	return View{Yaw: 0.4, Pitch: -0.35}
}

// Project maps a point to screen coordinates in [-1, 1] with +Y up.
// Depth is positive for points on the visible hemisphere.
func (v View) Project(p sphere.Vec3) (x, y, depth float64) {
	q := r3.NewRotation(v.Yaw, r3.Vec{Z: 1}).Rotate(p)
	q = r3.NewRotation(v.Pitch, r3.Vec{X: 1}).Rotate(q)
	return q.X, q.Z, -q.Y
}

// Orbit returns the view advanced by dYaw
func (v View) Orbit(dYaw float64) View {
	v.Yaw = math.Mod(v.Yaw+dYaw, 2*math.Pi)
	return v
}

// Palette returns n visually distinct colours, stable for a given index
// regardless of n
func Palette(n int) []colorful.Color {
	out := make([]colorful.Color, n)
	for i := range out {
		out[i] = PointColor(i)
	}
	return out
}

// PointColor returns the colour of the i-th point. Hues advance by the
// golden angle so neighbouring indices stay apart.
func PointColor(i int) colorful.Color {
	const golden = 137.50776405003785
	h := math.Mod(float64(i)*golden, 360)
	return colorful.Hcl(h, 0.6, 0.7).Clamped()
}

// HexPalette is Palette as CSS hex strings
func HexPalette(n int) []string {
	out := make([]string, n)
	for i, c := range Palette(n) {
		out[i] = c.Hex()
	}
	return out
}
