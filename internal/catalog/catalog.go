// Package catalog holds the read-only vehicle table and its vector index.
package catalog

import (
	"errors"
	"math"
	"slices"
	"strings"

	"carmatch/internal/model"
)

// ErrNotFound is returned when a vehicle id is not in the catalog.
var ErrNotFound = errors.New("vehicle not found")

// MaxDistance is the squared L2 distance assigned to vehicles that have no
// stored vector. Unit vectors are never further apart than this.
const MaxDistance = 4.0

// Hit is one nearest-neighbour result.
type Hit struct {
	Index    int
	Distance float64
}

// Catalog is built once and never mutated, so it is safe for concurrent use.
type Catalog struct {
	vehicles []model.Vehicle
	vectors  [][]float32
	byID     map[string]int
	makes    []string
	series   []string
	dim      int
	skipped  int
}

// New builds a catalog from vehicles and their parallel embeddings. A nil or
// wrong-sized embedding leaves the vehicle reachable only through filters.
func New(vehicles []model.Vehicle, embeddings [][]float32) *Catalog {
	c := &Catalog{
		vehicles: slices.Clone(vehicles),
		vectors:  make([][]float32, len(vehicles)),
		byID:     make(map[string]int, len(vehicles)),
	}

	for _, e := range embeddings {
		if len(e) > 0 {
			c.dim = len(e)
			break
		}
	}

	seenMake := map[string]bool{}
	seenSeries := map[string]bool{}
	for i := range c.vehicles {
		v := &c.vehicles[i]
		c.byID[v.ID] = i
		if i < len(embeddings) && len(embeddings[i]) == c.dim && c.dim > 0 {
			c.vectors[i] = normalize(embeddings[i])
		}
		if mk := strings.ToLower(strings.TrimSpace(v.Make)); mk != "" && !seenMake[mk] {
			seenMake[mk] = true
			c.makes = append(c.makes, mk)
		}
		if sr := strings.ToLower(strings.TrimSpace(v.Series)); sr != "" && !seenSeries[sr] {
			seenSeries[sr] = true
			c.series = append(c.series, sr)
		}
	}
	return c
}

// Len returns the number of vehicles.
func (c *Catalog) Len() int { return len(c.vehicles) }

// Dimension returns the embedding width, 0 when no vehicle has a vector.
func (c *Catalog) Dimension() int { return c.dim }

// SkippedRows returns how many source rows were dropped while loading.
func (c *Catalog) SkippedRows() int { return c.skipped }

// At returns the vehicle at row i.
func (c *Catalog) At(i int) *model.Vehicle { return &c.vehicles[i] }

// Vehicles returns the table in load order. Callers must not modify it.
func (c *Catalog) Vehicles() []model.Vehicle { return c.vehicles }

// Makes returns distinct lower-case makes in first-seen order.
func (c *Catalog) Makes() []string { return c.makes }

// Series returns distinct lower-case series in first-seen order.
func (c *Catalog) Series() []string { return c.series }

// Get looks a vehicle up by id.
func (c *Catalog) Get(id string) (*model.Vehicle, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c.vehicles[i], nil
}

// IndexOf returns the row of id.
func (c *Catalog) IndexOf(id string) (int, bool) {
	i, ok := c.byID[id]
	return i, ok
}

// Reconstruct returns a copy of the stored vector for row i.
func (c *Catalog) Reconstruct(i int) ([]float32, bool) {
	if i < 0 || i >= len(c.vectors) || c.vectors[i] == nil {
		return nil, false
	}
	return slices.Clone(c.vectors[i]), true
}

// Distance is the squared L2 distance between the normalized query and row
// i, or MaxDistance when either side has no usable vector.
func (c *Catalog) Distance(query []float32, i int) float64 {
	if len(query) != c.dim || i < 0 || i >= len(c.vectors) || c.vectors[i] == nil {
		return MaxDistance
	}
	return squaredL2(normalize(query), c.vectors[i])
}

// Search returns the k rows nearest to query by ascending squared L2
// distance. Ties keep row order.
func (c *Catalog) Search(query []float32, k int) []Hit {
	if k <= 0 || len(query) != c.dim || c.dim == 0 {
		return nil
	}
	q := normalize(query)
	hits := make([]Hit, 0, len(c.vectors))
	for i, v := range c.vectors {
		if v == nil {
			continue
		}
		hits = append(hits, Hit{Index: i, Distance: squaredL2(q, v)})
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
