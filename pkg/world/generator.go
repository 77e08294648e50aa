package world

import "github.com/blocklayer/voxelkeep/pkg/voxel"

// solidBlockID is the only block id the generator ever places.
const solidBlockID byte = 1

// Generator deterministically produces chunk contents from a world seed. The
// same (seed, position) pair always yields byte-identical output, including
// across process restarts, since the Perlin permutation table is derived
// solely from the seed.
type Generator struct {
	perlin *Perlin
}

// NewGenerator builds a Generator for the given world seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{perlin: NewPerlin(seed)}
}

// Generate produces the chunk at pos. A cell is solid iff its center lies at
// or below the Perlin-noise height sampled at its column.
func (g *Generator) Generate(pos voxel.ChunkPos) *voxel.Chunk {
	chunk := &voxel.Chunk{}
	for xx := 0; xx < voxel.ChunkSize; xx++ {
		worldX := float64(pos.X*voxel.ChunkSize+int32(xx)) + 0.5
		for zz := 0; zz < voxel.ChunkSize; zz++ {
			worldZ := float64(pos.Z*voxel.ChunkSize+int32(zz)) + 0.5
			height := g.perlin.Noise2D(worldX/50, worldZ/50) * float64(voxel.YRange) * float64(voxel.ChunkSize) * 0.1
			for yy := 0; yy < voxel.ChunkSize; yy++ {
				worldY := float64(pos.Y*voxel.ChunkSize+int32(yy)) + 0.5
				if worldY <= height {
					chunk.Set(uint8(xx), uint8(yy), uint8(zz), solidBlockID)
				}
			}
		}
	}
	return chunk
}
