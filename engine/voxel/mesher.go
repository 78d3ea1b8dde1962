package voxel

// Faces returns one face per occupied cell and direction whose neighbour is
// empty or outside the chunk. Cells are visited x-major, then y, then z, and
// each cell emits in the order +x, -x, +y, -y, +z, -z.
//
// Chunk borders always count as exposed, neighbouring chunks are not
// consulted.
func Faces(c *Chunk) []Face {
	faces := make([]Face, 0, 6*c.Occupied())
	for x := 0; x < ChunkSize; x++ {
		for y := 0; y < ChunkSize; y++ {
			for z := 0; z < ChunkSize; z++ {
				if !c.Solid(x, y, z) {
					continue
				}
				for d := Direction(0); d < DirectionCount; d++ {
					dx, dy, dz := d.Offset()
					if !c.Solid(x+dx, y+dy, z+dz) {
						faces = append(faces, PackFace(x, y, z, d))
					}
				}
			}
		}
	}
	return faces
}

// FacesToWords converts a face list to the raw words uploaded to the GPU.
func FacesToWords(faces []Face) []uint32 {
	words := make([]uint32, len(faces))
	for i, f := range faces {
		words[i] = uint32(f)
	}
	return words
}
