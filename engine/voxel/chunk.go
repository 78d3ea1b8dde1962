package voxel

const (
	// ChunkSize is the edge length of a chunk in blocks.
	ChunkSize  = 32
	ChunkSize2 = ChunkSize * ChunkSize
	ChunkSize3 = ChunkSize * ChunkSize * ChunkSize
)

// Block is a cell value. Zero is empty, any other value is occupied.
type Block uint16

const BlockEmpty Block = 0

// Chunk is a dense 32x32x32 grid of blocks, stored x-major.
type Chunk struct {
	blocks [ChunkSize][ChunkSize][ChunkSize]Block
}

func NewChunk() *Chunk {
	return &Chunk{}
}

func inBounds(x, y, z int) bool {
	return x >= 0 && x < ChunkSize && y >= 0 && y < ChunkSize && z >= 0 && z < ChunkSize
}

// Get returns the block at x, y, z. Coordinates outside the chunk read as empty.
func (c *Chunk) Get(x, y, z int) Block {
	if !inBounds(x, y, z) {
		return BlockEmpty
	}
	return c.blocks[x][y][z]
}

// Set stores a block. Writes outside the chunk are ignored.
func (c *Chunk) Set(x, y, z int, b Block) {
	if !inBounds(x, y, z) {
		return
	}
	c.blocks[x][y][z] = b
}

func (c *Chunk) Solid(x, y, z int) bool {
	return c.Get(x, y, z) != BlockEmpty
}

// Occupied counts the non-empty cells.
func (c *Chunk) Occupied() int {
	n := 0
	for x := 0; x < ChunkSize; x++ {
		for y := 0; y < ChunkSize; y++ {
			for z := 0; z < ChunkSize; z++ {
				if c.blocks[x][y][z] != BlockEmpty {
					n++
				}
			}
		}
	}
	return n
}

// Fill sets every cell for which fn returns a non-empty block.
func (c *Chunk) Fill(fn func(x, y, z int) Block) {
	for x := 0; x < ChunkSize; x++ {
		for y := 0; y < ChunkSize; y++ {
			for z := 0; z < ChunkSize; z++ {
				c.blocks[x][y][z] = fn(x, y, z)
			}
		}
	}
}
