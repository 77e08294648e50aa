package voxel

import "testing"

func TestSplitJoinRoundTrip(t *testing.T) {
	cases := []BlockPos{
		{X: 0, Y: 0, Z: 0},
		{X: 15, Y: 15, Z: 15},
		{X: 16, Y: 0, Z: 0},
		{X: -1, Y: -1, Z: -1},
		{X: -16, Y: -17, Z: 33},
		{X: 1000003, Y: -999999, Z: 5},
	}
	for _, bp := range cases {
		cp, local := bp.Split()
		if local[0] >= ChunkSize || local[1] >= ChunkSize || local[2] >= ChunkSize {
			t.Fatalf("local coords out of range for %+v: %+v", bp, local)
		}
		if got := Join(cp, local); got != bp {
			t.Errorf("Join(Split(%+v)) = %+v, want %+v", bp, got, bp)
		}
	}
}

func TestSplitNegativeResolvesBelow(t *testing.T) {
	cp, local := BlockPos{X: -1, Y: -1, Z: -1}.Split()
	if cp != (ChunkPos{X: -1, Y: -1, Z: -1}) {
		t.Errorf("expected chunk (-1,-1,-1), got %+v", cp)
	}
	if local != ([3]uint8{15, 15, 15}) {
		t.Errorf("expected local (15,15,15), got %+v", local)
	}
}

func TestChunkIndexBijective(t *testing.T) {
	seen := make(map[int]bool, ChunkVolume)
	for x := 0; x < ChunkSize; x++ {
		for y := 0; y < ChunkSize; y++ {
			for z := 0; z < ChunkSize; z++ {
				idx := Index(uint8(x), uint8(y), uint8(z))
				if idx < 0 || idx >= ChunkVolume {
					t.Fatalf("index out of range: %d", idx)
				}
				if seen[idx] {
					t.Fatalf("duplicate index %d", idx)
				}
				seen[idx] = true
			}
		}
	}
}
