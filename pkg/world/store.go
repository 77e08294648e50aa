package world

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gammazero/deque"

	"github.com/blocklayer/voxelkeep/pkg/voxel"
)

// Store is the chunk cache and its on-disk persistence. It is intended to be
// owned and mutated by exactly one goroutine; it performs no internal
// locking.
type Store struct {
	gen   *Generator
	cache map[voxel.ChunkPos]*voxel.Chunk
	// order records the sequence in which chunks first entered the cache,
	// so Flush writes records in a stable, reproducible order rather than
	// Go's randomized map iteration order.
	order deque.Deque[voxel.ChunkPos]
}

// NewStore creates an empty store backed by a generator for the given seed.
func NewStore(seed int64) *Store {
	return &Store{
		gen:   NewGenerator(seed),
		cache: make(map[voxel.ChunkPos]*voxel.Chunk),
	}
}

const chunkRecordPosSize = 12 // 3 x int32 LE

// LoadStore builds a store for the given seed and, if path exists, preloads
// its cache from a chunks.dat file: a flat sequence of
// {pos: 3xint32 LE, blocks: 4096 bytes} records with no header or index.
func LoadStore(seed int64, path string) (*Store, error) {
	s := NewStore(seed)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("world: opening chunks file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		var raw [chunkRecordPosSize]byte
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("world: reading chunk record position: %w", err)
		}
		pos := voxel.ChunkPos{
			X: int32(binary.LittleEndian.Uint32(raw[0:4])),
			Y: int32(binary.LittleEndian.Uint32(raw[4:8])),
			Z: int32(binary.LittleEndian.Uint32(raw[8:12])),
		}
		chunk := &voxel.Chunk{}
		if _, err := io.ReadFull(r, chunk.Blocks[:]); err != nil {
			return nil, fmt.Errorf("world: reading chunk blocks: %w", err)
		}
		s.insert(pos, chunk)
	}
	return s, nil
}

func (s *Store) insert(pos voxel.ChunkPos, c *voxel.Chunk) {
	if _, exists := s.cache[pos]; !exists {
		s.order.PushBack(pos)
	}
	s.cache[pos] = c
}

// Loaded returns the cached chunk at pos without generating it, reporting
// whether it was present. ApplyBlockUpdate makes the same presence check on
// the cache, so block updates are a no-op against chunks nobody has requested
// yet.
func (s *Store) Loaded(pos voxel.ChunkPos) (*voxel.Chunk, bool) {
	c, ok := s.cache[pos]
	return c, ok
}

// Get returns the chunk at pos, generating and caching it on first access.
func (s *Store) Get(pos voxel.ChunkPos) *voxel.Chunk {
	if c, ok := s.cache[pos]; ok {
		return c
	}
	c := s.gen.Generate(pos)
	s.insert(pos, c)
	return c
}

// ApplyBlockUpdate mutates the block at pos according to the destroy/place
// rule: a zero id always clears the cell; a non-zero id is only placed into
// an empty (zero) cell, otherwise the existing block wins. It reports the
// value that actually took effect, and ok=false if the containing chunk is
// not loaded (in which case no mutation happens).
func (s *Store) ApplyBlockUpdate(pos voxel.BlockPos, newID byte) (final byte, ok bool) {
	cp, local := pos.Split()
	chunk, loaded := s.cache[cp]
	if !loaded {
		return 0, false
	}
	if newID == 0 {
		chunk.Set(local[0], local[1], local[2], 0)
		return 0, true
	}
	cur := chunk.Get(local[0], local[1], local[2])
	if cur == 0 {
		chunk.Set(local[0], local[1], local[2], newID)
		return newID, true
	}
	return cur, true
}

// Flush rewrites the chunks file from the full in-memory cache, in cache
// insertion order. The write goes to a temp file followed by a rename so a
// crash mid-write cannot leave a truncated chunks.dat behind.
func (s *Store) Flush(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("world: creating chunks temp file: %w", err)
	}
	w := bufio.NewWriter(f)

	var raw [chunkRecordPosSize]byte
	for i := 0; i < s.order.Len(); i++ {
		pos := s.order.At(i)
		chunk := s.cache[pos]
		binary.LittleEndian.PutUint32(raw[0:4], uint32(pos.X))
		binary.LittleEndian.PutUint32(raw[4:8], uint32(pos.Y))
		binary.LittleEndian.PutUint32(raw[8:12], uint32(pos.Z))
		if _, err := w.Write(raw[:]); err != nil {
			f.Close()
			return fmt.Errorf("world: writing chunk record: %w", err)
		}
		if _, err := w.Write(chunk.Blocks[:]); err != nil {
			f.Close()
			return fmt.Errorf("world: writing chunk blocks: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
