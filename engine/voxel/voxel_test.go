package voxel

import (
	"reflect"
	"testing"
)

func expectedFaceCount(c *Chunk) int {
	n := 0
	for x := 0; x < ChunkSize; x++ {
		for y := 0; y < ChunkSize; y++ {
			for z := 0; z < ChunkSize; z++ {
				if !c.Solid(x, y, z) {
					continue
				}
				n += 6
				for d := Direction(0); d < DirectionCount; d++ {
					dx, dy, dz := d.Offset()
					nx, ny, nz := x+dx, y+dy, z+dz
					if inBounds(nx, ny, nz) && c.Solid(nx, ny, nz) {
						n--
					}
				}
			}
		}
	}
	return n
}

func TestFacesCount(t *testing.T) {
	tests := []struct {
		name  string
		chunk *Chunk
		want  int
	}{
		{"empty", NewChunk(), 0},
		{"full", Full(), 6 * ChunkSize2},
		{"sphere", Sphere(), -1},
		{"random sparse", Random(7, 0.1)(), -1},
		{"random dense", Random(42, 0.7)(), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := tt.want
			if want < 0 {
				want = expectedFaceCount(tt.chunk)
			}
			faces := Faces(tt.chunk)
			if len(faces) != want {
				t.Fatalf("len(Faces) = %d, want %d", len(faces), want)
			}
			if len(faces) > 6*tt.chunk.Occupied() {
				t.Fatalf("more than six faces per occupied cell")
			}
		})
	}
}

func TestFacesFullChunkOnlyBoundary(t *testing.T) {
	perDir := map[Direction]int{}
	for _, f := range Faces(Full()) {
		x, y, z, d := f.Unpack()
		perDir[d]++
		var onBoundary bool
		switch d {
		case DirPosX:
			onBoundary = x == ChunkSize-1
		case DirNegX:
			onBoundary = x == 0
		case DirPosY:
			onBoundary = y == ChunkSize-1
		case DirNegY:
			onBoundary = y == 0
		case DirPosZ:
			onBoundary = z == ChunkSize-1
		case DirNegZ:
			onBoundary = z == 0
		}
		if !onBoundary {
			t.Fatalf("interior face emitted: %v", f)
		}
	}
	for d := Direction(0); d < DirectionCount; d++ {
		if perDir[d] != ChunkSize2 {
			t.Errorf("direction %v has %d faces, want %d", d, perDir[d], ChunkSize2)
		}
	}
}

func TestFacesOrder(t *testing.T) {
	c := NewChunk()
	c.Set(3, 0, 0, 1)
	c.Set(4, 0, 0, 1)

	want := []Face{
		PackFace(3, 0, 0, DirNegX),
		PackFace(3, 0, 0, DirPosY),
		PackFace(3, 0, 0, DirNegY),
		PackFace(3, 0, 0, DirPosZ),
		PackFace(3, 0, 0, DirNegZ),
		PackFace(4, 0, 0, DirPosX),
		PackFace(4, 0, 0, DirPosY),
		PackFace(4, 0, 0, DirNegY),
		PackFace(4, 0, 0, DirPosZ),
		PackFace(4, 0, 0, DirNegZ),
	}
	if got := Faces(c); !reflect.DeepEqual(got, want) {
		t.Fatalf("Faces = %v, want %v", got, want)
	}
}

func TestFacesSingleCellAtCorner(t *testing.T) {
	c := NewChunk()
	c.Set(0, 0, 0, 9)
	faces := Faces(c)
	if len(faces) != 6 {
		t.Fatalf("single cell emitted %d faces", len(faces))
	}
	for i, f := range faces {
		x, y, z, d := f.Unpack()
		if x != 0 || y != 0 || z != 0 || d != Direction(i) {
			t.Errorf("face %d = %v", i, f)
		}
	}
}

func TestPackFaceRoundTrip(t *testing.T) {
	for x := 0; x < ChunkSize; x++ {
		for y := 0; y < ChunkSize; y++ {
			for z := 0; z < ChunkSize; z++ {
				for d := Direction(0); d < DirectionCount; d++ {
					f := PackFace(x, y, z, d)
					if uint32(f) != uint32(x)|uint32(y)<<5|uint32(z)<<10|uint32(d)<<15 {
						t.Fatalf("PackFace(%d,%d,%d,%d) = %#x", x, y, z, d, uint32(f))
					}
					gx, gy, gz, gd := f.Unpack()
					if gx != x || gy != y || gz != z || gd != d {
						t.Fatalf("round trip of (%d,%d,%d,%d) gave (%d,%d,%d,%d)", x, y, z, d, gx, gy, gz, gd)
					}
				}
			}
		}
	}
}

func TestChunkBounds(t *testing.T) {
	c := Full()
	for _, p := range [][3]int{{-1, 0, 0}, {0, -1, 0}, {0, 0, -1}, {ChunkSize, 0, 0}, {0, ChunkSize, 0}, {0, 0, ChunkSize}, {1000, -1000, 5}} {
		if b := c.Get(p[0], p[1], p[2]); b != BlockEmpty {
			t.Errorf("Get%v = %d, want empty", p, b)
		}
	}
	c.Set(-1, 0, 0, 5)
	c.Set(ChunkSize, 0, 0, 5)
	if c.Occupied() != ChunkSize3 {
		t.Errorf("out of range writes changed the chunk")
	}
}

func TestSphere(t *testing.T) {
	c := Sphere()
	if !c.Solid(16, 16, 16) {
		t.Error("centre should be solid")
	}
	if c.Solid(0, 0, 0) {
		t.Error("corner should be empty")
	}
	// Exactly on the radius is excluded.
	if c.Solid(16, 16, 0) {
		t.Error("cell at distance 16 should be empty")
	}
	if !c.Solid(16, 16, 1) {
		t.Error("cell at distance 15 should be solid")
	}
}

func TestRandomIsDeterministic(t *testing.T) {
	a := Random(1234, 0.5)()
	b := Random(1234, 0.5)()
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed produced different chunks")
	}
	if a.Occupied() == 0 || a.Occupied() == ChunkSize3 {
		t.Fatalf("density 0.5 gave %d occupied cells", a.Occupied())
	}
}

func TestGeneratorByName(t *testing.T) {
	for _, name := range []string{"", "sphere", "Full", "random"} {
		if _, err := GeneratorByName(name, 1, 0.5); err != nil {
			t.Errorf("GeneratorByName(%q): %v", name, err)
		}
	}
	if _, err := GeneratorByName("terrain", 1, 0.5); err == nil {
		t.Error("unknown pattern accepted")
	}
}

func TestObject(t *testing.T) {
	o := NewTestObject(2, Full)
	if o.Len() != 8 {
		t.Fatalf("Len = %d, want 8", o.Len())
	}
	coords := o.Coords()
	if coords[0] != (ChunkCoord{0, 0, 0}) || coords[7] != (ChunkCoord{1, 1, 1}) || coords[1] != (ChunkCoord{0, 0, 1}) {
		t.Fatalf("Coords not ordered: %v", coords)
	}
	if _, ok := o.Chunk(ChunkCoord{2, 0, 0}); ok {
		t.Fatal("chunk outside the object reported present")
	}
	// Neighbouring chunks do not hide each other's borders.
	if got, want := o.FaceCount(), 8*6*ChunkSize2; got != want {
		t.Fatalf("FaceCount = %d, want %d", got, want)
	}
}

func TestFacesToWords(t *testing.T) {
	faces := []Face{PackFace(1, 2, 3, DirNegZ), PackFace(31, 31, 31, DirPosX)}
	words := FacesToWords(faces)
	if words[0] != 1|2<<5|3<<10|5<<15 || words[1] != 31|31<<5|31<<10 {
		t.Fatalf("words = %#x", words)
	}
}

// Run with -race: FaceCount meshes chunks on several goroutines.
func TestObjectFaceCountConcurrent(t *testing.T) {
	o := NewTestObject(3, Sphere)
	want := 0
	for _, coord := range o.Coords() {
		c, _ := o.Chunk(coord)
		want += len(Faces(c))
	}
	for i := 0; i < 4; i++ {
		if got := o.FaceCount(); got != want {
			t.Fatalf("FaceCount = %d, want %d", got, want)
		}
	}
}
