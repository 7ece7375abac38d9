package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera orbits Target and projects world points onto a canvas with a
// simple perspective divide.
type Camera struct {
	Target     mgl64.Vec3
	Yaw, Pitch float64
	Distance   float64
	// Zoom is how many dots one world unit spans at the target's depth.
	Zoom float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 20, Zoom: 12}
}

func (c *Camera) Orbit(dYaw, dPitch float64) {
	c.Yaw += dYaw
	c.Pitch = mgl64.Clamp(c.Pitch+dPitch, -math.Pi/2, math.Pi/2)
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(200, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(1, c.Zoom/1.2) }

// view rotates p into camera space, where -z points into the screen.
func (c *Camera) view(p mgl64.Vec3) mgl64.Vec3 {
	q := mgl64.QuatRotate(-c.Pitch, mgl64.Vec3{1, 0, 0}).Mul(mgl64.QuatRotate(-c.Yaw, mgl64.Vec3{0, 1, 0}))
	return q.Rotate(p.Sub(c.Target))
}

// Project maps p to canvas dots. It reports false for points behind the
// camera or off the canvas; the coordinates stay usable for clipping lines.
func (c *Camera) Project(p mgl64.Vec3, dotsW, dotsH int) (x, y int, scale float64, ok bool) {
	v := c.view(p)
	depth := c.Distance - v.Z()
	if depth <= 1e-3 {
		return 0, 0, 0, false
	}
	scale = c.Zoom * c.Distance / depth
	x = dotsW/2 + int(math.Round(v.X()*scale))
	y = dotsH/2 - int(math.Round(v.Y()*scale))
	return x, y, scale, x >= 0 && x < dotsW && y >= 0 && y < dotsH
}
