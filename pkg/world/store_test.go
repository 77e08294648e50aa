package world

import (
	"path/filepath"
	"testing"

	"github.com/blocklayer/voxelkeep/pkg/voxel"
)

func TestStoreGetGeneratesAndCaches(t *testing.T) {
	s := NewStore(1)
	pos := voxel.ChunkPos{X: 0, Y: 0, Z: 0}
	first := s.Get(pos)
	second := s.Get(pos)
	if first != second {
		t.Fatal("Get should return the cached pointer on repeat access")
	}
}

func TestStoreLoadedDoesNotGenerate(t *testing.T) {
	s := NewStore(1)
	pos := voxel.ChunkPos{X: 5, Y: 0, Z: 5}
	if _, ok := s.Loaded(pos); ok {
		t.Fatal("expected chunk to be unloaded before any Get/Flush")
	}
}

func TestApplyBlockUpdateNoopWhenNotLoaded(t *testing.T) {
	s := NewStore(1)
	_, ok := s.ApplyBlockUpdate(voxel.BlockPos{X: 1, Y: 1, Z: 1}, 1)
	if ok {
		t.Fatal("expected no-op against an unloaded chunk")
	}
}

func TestApplyBlockUpdateDestroyAndPlace(t *testing.T) {
	s := NewStore(1)
	pos := voxel.ChunkPos{X: 0, Y: 0, Z: 0}
	s.Get(pos) // load it

	bp := voxel.BlockPos{X: 0, Y: 0, Z: 0}

	// Destroy always applies, regardless of current value.
	final, ok := s.ApplyBlockUpdate(bp, 0)
	if !ok || final != 0 {
		t.Fatalf("destroy: got (%d,%v), want (0,true)", final, ok)
	}

	// Place into the now-empty cell succeeds.
	final, ok = s.ApplyBlockUpdate(bp, 7)
	if !ok || final != 7 {
		t.Fatalf("place into empty: got (%d,%v), want (7,true)", final, ok)
	}

	// Placing again onto an occupied cell is rejected; echoes the existing value.
	final, ok = s.ApplyBlockUpdate(bp, 9)
	if !ok || final != 7 {
		t.Fatalf("place into occupied: got (%d,%v), want (7,true)", final, ok)
	}
}

func TestStoreFlushAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunks.dat")

	s := NewStore(42)
	pos := voxel.ChunkPos{X: 1, Y: 0, Z: -1}
	chunk := s.Get(pos)
	chunk.Set(0, 0, 0, 5)

	if err := s.Flush(path); err != nil {
		t.Fatalf("flush: %v", err)
	}

	reloaded, err := LoadStore(42, path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := reloaded.Loaded(pos)
	if !ok {
		t.Fatal("expected reloaded store to have the chunk preloaded")
	}
	if got.Get(0, 0, 0) != 5 {
		t.Fatalf("modification lost across flush/reload: got %d, want 5", got.Get(0, 0, 0))
	}
}

func TestLoadStoreMissingFileIsEmpty(t *testing.T) {
	s, err := LoadStore(1, filepath.Join(t.TempDir(), "missing.dat"))
	if err != nil {
		t.Fatalf("expected no error for missing chunks file, got %v", err)
	}
	if _, ok := s.Loaded(voxel.ChunkPos{}); ok {
		t.Fatal("expected empty store")
	}
}
