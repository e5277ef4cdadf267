package index

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/catalog"
)

// snapshot is immutable once published.
type snapshot struct {
	items []catalog.Item
	units [][]float64
	byID  map[string]int
	byURL map[string]int
	dims  int
}

// Flat is an exact cosine-similarity index that scans every item per query.
type Flat struct {
	building atomic.Bool
	snap     atomic.Pointer[snapshot]
}

var _ VectorIndex = (*Flat)(nil)

// NewFlat creates an empty, unbuilt index.
func NewFlat() *Flat {
	return &Flat{}
}

// Build validates items and atomically publishes them as the new snapshot.
// On failure the previous snapshot keeps serving.
func (f *Flat) Build(items []catalog.Item) error {
	if !f.building.CompareAndSwap(false, true) {
		return ErrBuildInProgress
	}
	defer f.building.Store(false)

	s, err := newSnapshot(items)
	if err != nil {
		return err
	}
	f.snap.Store(s)
	return nil
}

func newSnapshot(items []catalog.Item) (*snapshot, error) {
	if len(items) == 0 {
		return nil, domain.NewConfigurationError("", "catalog is empty")
	}

	s := &snapshot{
		items: make([]catalog.Item, len(items)),
		units: make([][]float64, len(items)),
		byID:  make(map[string]int, len(items)),
		byURL: make(map[string]int, len(items)),
	}
	copy(s.items, items)

	for i := range s.items {
		it := &s.items[i]
		if strings.TrimSpace(it.Description()) == "" {
			return nil, domain.NewConfigurationError(it.ID(), "item has no usable description")
		}
		if _, dup := s.byID[it.ID()]; dup {
			return nil, domain.NewConfigurationError(it.ID(), "duplicate item ID")
		}

		vec := it.Embedding()
		if len(vec) == 0 {
			return nil, domain.NewConfigurationError(it.ID(), "item has no embedding")
		}
		if s.dims == 0 {
			s.dims = len(vec)
		} else if len(vec) != s.dims {
			return nil, domain.NewConfigurationError(it.ID(),
				fmt.Sprintf("embedding has %d dimensions, catalog uses %d", len(vec), s.dims))
		}
		u, ok := unit(vec)
		if !ok {
			return nil, domain.NewConfigurationError(it.ID(), "embedding has zero norm or non-finite values")
		}

		s.units[i] = u
		s.byID[it.ID()] = i
		if u := it.URL(); u != "" {
			if _, seen := s.byURL[u]; !seen {
				s.byURL[u] = i
			}
		}
	}
	return s, nil
}

// Query scores every item against vector and returns the top k.
func (f *Flat) Query(vector []float32, k int) ([]Hit, error) {
	s := f.snap.Load()
	if s == nil {
		return nil, ErrNotBuilt
	}
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: got %d, index has %d", domain.ErrVectorDimMismatch, len(vector), s.dims)
	}
	q, ok := unit(vector)
	if !ok {
		return nil, ErrInvalidVector
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, len(s.items))
	for i := range s.items {
		hits[i] = Hit{
			Item:     s.items[i],
			Score:    quantize(clampUnit(dot(q, s.units[i]))),
			Position: i,
		}
	}

	// Total order: score desc, then insertion order.
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Size returns the number of served items.
func (f *Flat) Size() int {
	if s := f.snap.Load(); s != nil {
		return len(s.items)
	}
	return 0
}

// Dimensions returns the served embedding dimensionality.
func (f *Flat) Dimensions() int {
	if s := f.snap.Load(); s != nil {
		return s.dims
	}
	return 0
}

// Lookup finds an item by ID.
func (f *Flat) Lookup(id string) (catalog.Item, bool) {
	s := f.snap.Load()
	if s == nil {
		return catalog.Item{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return catalog.Item{}, false
	}
	return s.items[i], true
}

// LookupURL finds an item by catalog URL.
func (f *Flat) LookupURL(url string) (catalog.Item, bool) {
	s := f.snap.Load()
	if s == nil || url == "" {
		return catalog.Item{}, false
	}
	i, ok := s.byURL[url]
	if !ok {
		return catalog.Item{}, false
	}
	return s.items[i], true
}

// Items returns a copy of the served snapshot.
func (f *Flat) Items() []catalog.Item {
	s := f.snap.Load()
	if s == nil {
		return nil
	}
	return slices.Clone(s.items)
}

// scorePrecision is the resolution scores are rounded to, so cosines that are
// equal up to float rounding compare equal and fall back to insertion order.
const scorePrecision = 1e12

// norm returns the L2 norm of v; false for zero-norm or non-finite vectors.
func norm(v []float32) (float64, bool) {
	var sum float64
	for _, x := range v {
		f := float64(x)
		sum += f * f
	}
	n := math.Sqrt(sum)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// unit returns v scaled to unit length in float64.
func unit(v []float32) ([]float64, bool) {
	n, ok := norm(v)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x) / n
	}
	return out, true
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func quantize(x float64) float64 {
	return math.Round(x*scorePrecision) / scorePrecision
}

func clampUnit(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}
