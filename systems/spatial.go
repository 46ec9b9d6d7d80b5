package systems

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// cellKey addresses one grid cell.
type cellKey struct {
	x, z int
}

// SpatialIndex buckets agent indices by grid cell for neighbour lookups.
// It is rebuilt from scratch every tick. Cells are keyed by integer
// coordinates, so agents that overshoot the world bounds still index.
type SpatialIndex struct {
	cellSize float64
	offset   float64 // added to positions so the world origin sits on a cell corner

	cells     map[cellKey][]int
	occupied  []cellKey // cells touched by the last rebuild, for cheap clearing
	vacated   []cellKey // previous occupied set, checked for cells left empty
	cellOf    []cellKey
	positions []r3.Vec
}

// NewSpatialIndex creates an index with the given cell size. maxRadius is the
// largest radius the caller will query; it must not exceed the cell size,
// since Neighbors only visits the 3x3 block around an agent's cell.
func NewSpatialIndex(cellSize, boundsOffset, maxRadius float64) (*SpatialIndex, error) {
	if cellSize <= 0 || math.IsNaN(cellSize) {
		return nil, fmt.Errorf("spatial index: cell size must be positive, got %v", cellSize)
	}
	if maxRadius > cellSize {
		return nil, fmt.Errorf("spatial index: interaction radius %v exceeds cell size %v", maxRadius, cellSize)
	}
	return &SpatialIndex{
		cellSize: cellSize,
		offset:   boundsOffset,
		cells:    make(map[cellKey][]int),
	}, nil
}

// CellSize returns the grid cell size.
func (s *SpatialIndex) CellSize() float64 {
	return s.cellSize
}

func (s *SpatialIndex) keyOf(p r3.Vec) cellKey {
	return cellKey{
		x: int(math.Floor((p.X + s.offset) / s.cellSize)),
		z: int(math.Floor((p.Z + s.offset) / s.cellSize)),
	}
}

// Rebuild clears the grid and inserts every position by its index.
// The slice is retained for queries until the next Rebuild and must not be
// modified in between.
func (s *SpatialIndex) Rebuild(positions []r3.Vec) {
	for _, k := range s.occupied {
		s.cells[k] = s.cells[k][:0]
	}
	s.occupied, s.vacated = s.vacated[:0], s.occupied

	if cap(s.cellOf) < len(positions) {
		s.cellOf = make([]cellKey, len(positions))
	}
	s.cellOf = s.cellOf[:len(positions)]
	s.positions = positions

	for i, p := range positions {
		k := s.keyOf(p)
		s.cellOf[i] = k
		bucket := s.cells[k]
		if len(bucket) == 0 {
			s.occupied = append(s.occupied, k)
		}
		// append reuses the bucket's capacity from earlier ticks
		s.cells[k] = append(bucket, i)
	}

	// Drop cells nobody moved back into, so the map tracks the occupied set.
	for _, k := range s.vacated {
		if len(s.cells[k]) == 0 {
			delete(s.cells, k)
		}
	}
}

// Len returns the number of indexed agents.
func (s *SpatialIndex) Len() int {
	return len(s.positions)
}

// Bucket returns the indices in the cell containing p. The slice is owned by
// the index.
func (s *SpatialIndex) Bucket(p r3.Vec) []int {
	return s.cells[s.keyOf(p)]
}

// Neighbors appends every agent in the 3x3 block of cells around idx's cell,
// excluding idx, to dst and returns it. Reuse dst across calls to avoid
// allocations.
func (s *SpatialIndex) Neighbors(idx int, dst []int) []int {
	c := s.cellOf[idx]
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			for _, j := range s.cells[cellKey{c.x + dx, c.z + dz}] {
				if j != idx {
					dst = append(dst, j)
				}
			}
		}
	}
	return dst
}

// InRadius is Neighbors filtered to agents within r of idx on the ground plane.
// r must not exceed the cell size.
func (s *SpatialIndex) InRadius(idx int, r float64, dst []int) []int {
	p := s.positions[idx]
	rSq := r * r
	c := s.cellOf[idx]
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			for _, j := range s.cells[cellKey{c.x + dx, c.z + dz}] {
				if j != idx && distanceSqXZ(p, s.positions[j]) <= rSq {
					dst = append(dst, j)
				}
			}
		}
	}
	return dst
}
