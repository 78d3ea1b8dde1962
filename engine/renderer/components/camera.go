package components

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// CameraZNear is the distance of the near clip plane. There is no far plane.
	CameraZNear float32 = 0.1
	// pitchLimit keeps the look vector away from the up axis.
	pitchLimit = math.Pi/2 - 0.01
)

// CameraUp is +Z: the world is laid out with Z pointing up.
var CameraUp = mgl32.Vec3{0, 0, 1}

/**
 * @brief A free-flying camera described by a position and two angles.
 * Yaw rotates around +Z starting from +X, pitch tilts towards +Z.
 */
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
}

func NewCamera(position mgl32.Vec3, yaw, pitch float32) *Camera {
	c := &Camera{Position: position, Yaw: yaw}
	c.SetPitch(pitch)
	return c
}

// Look is the unit view direction.
func (c *Camera) Look() mgl32.Vec3 {
	sp, cp := math.Sincos(float64(c.Pitch))
	sy, cy := math.Sincos(float64(c.Yaw))
	return mgl32.Vec3{float32(cp * cy), float32(cp * sy), float32(sp)}
}

// Right is the horizontal unit vector to the right of the view direction.
func (c *Camera) Right() mgl32.Vec3 {
	sy, cy := math.Sincos(float64(c.Yaw))
	return mgl32.Vec3{float32(sy), float32(-cy), 0}
}

func (c *Camera) SetPitch(pitch float32) {
	c.Pitch = mgl32.Clamp(pitch, -pitchLimit, pitchLimit)
}

// Rotate turns the camera by the given yaw and pitch deltas in radians.
func (c *Camera) Rotate(dYaw, dPitch float32) {
	c.Yaw = float32(math.Mod(float64(c.Yaw+dYaw), 2*math.Pi))
	c.SetPitch(c.Pitch + dPitch)
}

// Move translates the camera relative to its orientation: forward along the
// look vector, right along Right and up along +Z.
func (c *Camera) Move(forward, right, up float32) {
	c.Position = c.Position.
		Add(c.Look().Mul(forward)).
		Add(c.Right().Mul(right)).
		Add(CameraUp.Mul(up))
}

// View is the right-handed look-at matrix of the camera.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Look()), CameraUp)
}

// Matrix combines the projection and the view. fovY is in radians.
func (c *Camera) Matrix(fovY, aspect float32) mgl32.Mat4 {
	return PerspectiveInfiniteVk(fovY, aspect, CameraZNear).Mul4(c.View())
}

// PerspectiveInfiniteVk is a right-handed perspective projection with an
// infinite far plane for Vulkan clip space: y points down and depth maps
// the near plane to 0 and infinity to 1.
func PerspectiveInfiniteVk(fovY, aspect, near float32) mgl32.Mat4 {
	sy := float32(1 / math.Tan(float64(fovY)/2))
	sx := sy / aspect
	return mgl32.Mat4{
		sx, 0, 0, 0,
		0, -sy, 0, 0,
		0, 0, -1, -1,
		0, 0, -near, 0,
	}
}
