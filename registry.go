package citybuf

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

// ColorBucket is one lazily-interned name: a dense index plus the RGB
// color assigned when the name was first seen.
type ColorBucket struct {
	Index int
	Color mgl32.Vec3
}

// IndexRegistry interns object ids, object-type and surface-type color
// buckets, and LOD labels for one parse session. Interning is
// append-only: an index never changes meaning once assigned. Single
// writer per session; two sessions must use two registries.
type IndexRegistry struct {
	objects      map[string]int
	objectOrder  []string
	types        map[string]ColorBucket
	typeOrder    []string
	surfaceTypes map[string]ColorBucket
	surfaceOrder []string
	lods         map[string]int
	lodOrder     []string
	rng          *rand.Rand
}

// NewIndexRegistry builds an empty registry. seed fixes the bucket
// color sequence; pass 0 for run-local pseudo-random colors.
func NewIndexRegistry(seed uint64) *IndexRegistry {
	if seed == 0 {
		seed = rand.Uint64() | 1
	}
	return &IndexRegistry{
		objects:      make(map[string]int),
		types:        make(map[string]ColorBucket),
		surfaceTypes: make(map[string]ColorBucket),
		lods:         make(map[string]int),
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// SeedTypeColor pins the color an object type will get before it is
// first interned. No effect if the type has already been seen.
func (r *IndexRegistry) SeedTypeColor(typeName string, color mgl32.Vec3) {
	if _, ok := r.types[typeName]; ok {
		return
	}
	r.types[typeName] = ColorBucket{Index: len(r.typeOrder), Color: color}
	r.typeOrder = append(r.typeOrder, typeName)
}

// SeedSurfaceColor is SeedTypeColor for semantic surface types.
func (r *IndexRegistry) SeedSurfaceColor(typeName string, color mgl32.Vec3) {
	if _, ok := r.surfaceTypes[typeName]; ok {
		return
	}
	r.surfaceTypes[typeName] = ColorBucket{Index: len(r.surfaceOrder), Color: color}
	r.surfaceOrder = append(r.surfaceOrder, typeName)
}

func (r *IndexRegistry) randomColor() mgl32.Vec3 {
	return mgl32.Vec3{r.rng.Float32(), r.rng.Float32(), r.rng.Float32()}
}

// ObjectIndex interns a city object id.
func (r *IndexRegistry) ObjectIndex(id string) int {
	if idx, ok := r.objects[id]; ok {
		return idx
	}
	idx := len(r.objectOrder)
	r.objects[id] = idx
	r.objectOrder = append(r.objectOrder, id)
	return idx
}

// TypeIndex interns an object type name, assigning its color bucket on
// first sight.
func (r *IndexRegistry) TypeIndex(typeName string) int {
	if b, ok := r.types[typeName]; ok {
		return b.Index
	}
	b := ColorBucket{Index: len(r.typeOrder), Color: r.randomColor()}
	r.types[typeName] = b
	r.typeOrder = append(r.typeOrder, typeName)
	return b.Index
}

// SurfaceTypeIndex interns a semantic surface type name. Independent
// namespace from object types: "Building" as an object type and as a
// surface type get unrelated indices.
func (r *IndexRegistry) SurfaceTypeIndex(typeName string) int {
	if b, ok := r.surfaceTypes[typeName]; ok {
		return b.Index
	}
	b := ColorBucket{Index: len(r.surfaceOrder), Color: r.randomColor()}
	r.surfaceTypes[typeName] = b
	r.surfaceOrder = append(r.surfaceOrder, typeName)
	return b.Index
}

// LodIndex interns a LOD label; the empty label maps to -1.
func (r *IndexRegistry) LodIndex(label string) int {
	if label == "" {
		return -1
	}
	if idx, ok := r.lods[label]; ok {
		return idx
	}
	idx := len(r.lodOrder)
	r.lods[label] = idx
	r.lodOrder = append(r.lodOrder, label)
	return idx
}

func (r *IndexRegistry) ObjectCount() int { return len(r.objectOrder) }

// ObjectIDs returns interned object ids in index order.
func (r *IndexRegistry) ObjectIDs() []string { return r.objectOrder }

// TypeColor returns the color bucket for an interned object type.
func (r *IndexRegistry) TypeColor(typeName string) (ColorBucket, bool) {
	b, ok := r.types[typeName]
	return b, ok
}

// SurfaceColor returns the color bucket for an interned surface type.
func (r *IndexRegistry) SurfaceColor(typeName string) (ColorBucket, bool) {
	b, ok := r.surfaceTypes[typeName]
	return b, ok
}

// Types returns object type names in index order.
func (r *IndexRegistry) Types() []string { return r.typeOrder }

// SurfaceTypes returns surface type names in index order.
func (r *IndexRegistry) SurfaceTypes() []string { return r.surfaceOrder }

// Lods returns LOD labels in index order.
func (r *IndexRegistry) Lods() []string { return r.lodOrder }
