package systems

import (
	"math/rand/v2"
	"slices"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func randomPositions(rng *rand.Rand, n int, extent float64) []r3.Vec {
	ps := make([]r3.Vec, n)
	for i := range ps {
		ps[i] = r3.Vec{
			X: (rng.Float64()*2 - 1) * extent,
			Y: rng.Float64() * 10,
			Z: (rng.Float64()*2 - 1) * extent,
		}
	}
	return ps
}

func TestNewSpatialIndexRejectsLargeRadius(t *testing.T) {
	if _, err := NewSpatialIndex(20, 300, 25); err == nil {
		t.Error("radius larger than cell size accepted")
	}
	if _, err := NewSpatialIndex(0, 300, 0); err == nil {
		t.Error("zero cell size accepted")
	}
	if _, err := NewSpatialIndex(20, 300, 20); err != nil {
		t.Errorf("radius equal to cell size rejected: %v", err)
	}
}

func TestSpatialIndexEveryAgentInOneBucket(t *testing.T) {
	idx, err := NewSpatialIndex(20, 300, 12)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewPCG(1, 2))
	// Include overshoot beyond the nominal bounds.
	ps := randomPositions(rng, 400, 340)

	for round := 0; round < 3; round++ {
		idx.Rebuild(ps)
		seen := make(map[int]int)
		for _, bucket := range idx.cells {
			for _, i := range bucket {
				seen[i]++
			}
		}
		for i, p := range ps {
			if seen[i] != 1 {
				t.Fatalf("round %d: agent %d appears in %d buckets", round, i, seen[i])
			}
			if !slices.Contains(idx.Bucket(p), i) {
				t.Fatalf("round %d: agent %d not in the bucket for its position", round, i)
			}
		}
		// Move everyone for the next round.
		for i := range ps {
			ps[i].X += 7
			ps[i].Z -= 13
		}
	}
}

func TestNeighborCompleteness(t *testing.T) {
	const cell = 20.0
	idx, err := NewSpatialIndex(cell, 300, cell)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		n      int
		extent float64
		radius float64
	}{
		{"sparse", 200, 300, 12},
		{"dense", 300, 40, 4.5},
		{"radius equals cell", 250, 120, cell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(uint64(tt.n), 99))
			ps := randomPositions(rng, tt.n, tt.extent)
			idx.Rebuild(ps)

			var got []int
			for i := range ps {
				got = idx.InRadius(i, tt.radius, got[:0])
				slices.Sort(got)

				var want []int
				for j := range ps {
					if j != i && distanceXZ(ps[i], ps[j]) <= tt.radius {
						want = append(want, j)
					}
				}
				if !slices.Equal(got, want) {
					t.Fatalf("agent %d: InRadius = %v, brute force = %v", i, got, want)
				}

				// Every true neighbour must also be in the unfiltered block.
				block := idx.Neighbors(i, nil)
				for _, j := range want {
					if !slices.Contains(block, j) {
						t.Fatalf("agent %d: neighbour %d missing from Neighbors", i, j)
					}
				}
				if slices.Contains(block, i) {
					t.Fatalf("agent %d lists itself as a neighbour", i)
				}
			}
		})
	}
}

func TestRebuildKeepsOnlyOccupiedCells(t *testing.T) {
	idx, err := NewSpatialIndex(20, 300, 12)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewPCG(5, 6))
	ps := randomPositions(rng, 50, 300)

	// Drift the whole group across the world; cells left behind must go.
	for round := 0; round < 40; round++ {
		idx.Rebuild(ps)
		want := make(map[cellKey]bool)
		for _, p := range ps {
			want[idx.keyOf(p)] = true
		}
		if len(idx.cells) != len(want) {
			t.Fatalf("round %d: %d cells in the map, %d occupied", round, len(idx.cells), len(want))
		}
		for i := range ps {
			ps[i].X += 15
		}
	}
}
