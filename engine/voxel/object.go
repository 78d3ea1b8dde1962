package voxel

import (
	"runtime"
	"sync"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// ChunkCoord addresses a chunk inside an object, in chunk units.
type ChunkCoord struct {
	X, Y, Z int
}

// Object is a sparse set of chunks.
type Object struct {
	chunks map[ChunkCoord]*Chunk
}

func NewObject() *Object {
	return &Object{chunks: make(map[ChunkCoord]*Chunk)}
}

// NewTestObject fills an n*n*n block of chunks with gen. Chunks are
// generated concurrently, so gen must be safe for concurrent use.
func NewTestObject(n int, gen Generator) *Object {
	o := NewObject()
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				coord := ChunkCoord{x, y, z}
				g.Go(func() error {
					c := gen()
					mu.Lock()
					o.Set(coord, c)
					mu.Unlock()
					return nil
				})
			}
		}
	}
	_ = g.Wait()
	return o
}

func (o *Object) Set(coord ChunkCoord, c *Chunk) {
	o.chunks[coord] = c
}

func (o *Object) Chunk(coord ChunkCoord) (*Chunk, bool) {
	c, ok := o.chunks[coord]
	return c, ok
}

func (o *Object) Len() int {
	return len(o.chunks)
}

// Coords lists the chunk coordinates in x, y, z order.
func (o *Object) Coords() []ChunkCoord {
	coords := make([]ChunkCoord, 0, len(o.chunks))
	for c := range o.chunks {
		coords = append(coords, c)
	}
	slices.SortFunc(coords, func(a, b ChunkCoord) int {
		if a.X != b.X {
			return a.X - b.X
		}
		if a.Y != b.Y {
			return a.Y - b.Y
		}
		return a.Z - b.Z
	})
	return coords
}

// FaceCount meshes every chunk independently and sums the faces.
func (o *Object) FaceCount() int {
	// Each goroutine writes only its own element.
	counts := make([]int, len(o.chunks))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	i := 0
	for _, c := range o.chunks {
		slot, c := i, c
		g.Go(func() error {
			counts[slot] = len(Faces(c))
			return nil
		})
		i++
	}
	_ = g.Wait()

	n := 0
	for _, v := range counts {
		n += v
	}
	return n
}
