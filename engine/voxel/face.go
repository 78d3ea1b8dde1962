package voxel

import "fmt"

// Direction is the outward normal of a face.
type Direction uint8

// Directions in mesher emission order.
const (
	DirPosX Direction = iota
	DirNegX
	DirPosY
	DirNegY
	DirPosZ
	DirNegZ
	DirectionCount
)

var directionOffsets = [DirectionCount][3]int{
	DirPosX: {1, 0, 0},
	DirNegX: {-1, 0, 0},
	DirPosY: {0, 1, 0},
	DirNegY: {0, -1, 0},
	DirPosZ: {0, 0, 1},
	DirNegZ: {0, 0, -1},
}

// Offset returns the unit step towards the neighbour across the face.
func (d Direction) Offset() (int, int, int) {
	o := directionOffsets[d]
	return o[0], o[1], o[2]
}

func (d Direction) String() string {
	switch d {
	case DirPosX:
		return "+x"
	case DirNegX:
		return "-x"
	case DirPosY:
		return "+y"
	case DirNegY:
		return "-y"
	case DirPosZ:
		return "+z"
	case DirNegZ:
		return "-z"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Face is one visible unit quad, packed as x | y<<5 | z<<10 | dir<<15.
// It is the per-instance word read by the vertex shader.
type Face uint32

const (
	faceCoordBits = 5
	faceCoordMask = 1<<faceCoordBits - 1
	faceDirShift  = 3 * faceCoordBits
)

func PackFace(x, y, z int, dir Direction) Face {
	return Face(uint32(x) | uint32(y)<<5 | uint32(z)<<10 | uint32(dir)<<faceDirShift)
}

func (f Face) Unpack() (x, y, z int, dir Direction) {
	v := uint32(f)
	x = int(v & faceCoordMask)
	y = int(v >> 5 & faceCoordMask)
	z = int(v >> 10 & faceCoordMask)
	dir = Direction(v >> faceDirShift)
	return
}

func (f Face) String() string {
	x, y, z, d := f.Unpack()
	return fmt.Sprintf("(%d,%d,%d %s)", x, y, z, d)
}
