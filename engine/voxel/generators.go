package voxel

import (
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/rand"
)

// Generator produces a freshly filled chunk.
type Generator func() *Chunk

// Sphere fills the cells strictly within 16 blocks of the chunk centre.
func Sphere() *Chunk {
	c := NewChunk()
	const centre, radius = ChunkSize / 2, ChunkSize / 2
	c.Fill(func(x, y, z int) Block {
		dx, dy, dz := x-centre, y-centre, z-centre
		if dx*dx+dy*dy+dz*dz < radius*radius {
			return 1
		}
		return BlockEmpty
	})
	return c
}

// Full fills every cell.
func Full() *Chunk {
	c := NewChunk()
	c.Fill(func(x, y, z int) Block { return 1 })
	return c
}

// Random returns a generator that occupies each cell with the given
// probability. The same seed always yields the same chunk.
func Random(seed uint64, density float64) Generator {
	return func() *Chunk {
		r := rand.New(rand.NewSource(seed))
		c := NewChunk()
		c.Fill(func(x, y, z int) Block {
			if r.Float64() < density {
				return Block(1 + r.Intn(255))
			}
			return BlockEmpty
		})
		return c
	}
}

// GeneratorByName resolves the pattern names accepted in the configuration.
func GeneratorByName(name string, seed uint64, density float64) (Generator, error) {
	switch strings.ToLower(name) {
	case "", "sphere":
		return Sphere, nil
	case "full":
		return Full, nil
	case "random":
		return Random(seed, density), nil
	}
	return nil, errors.Newf("unknown chunk pattern %q", name)
}
