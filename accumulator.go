package citybuf

import (
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/math/f32"
)

// TextureRef is one resolved texture assignment for a vertex: the
// texture table index (-1 for untextured) and the UV pair.
type TextureRef struct {
	Index int
	UV    f32.Vec2
}

// VertexRecord is the per-corner (triangles), per-endpoint (lines) or
// per-point record appended to a GeometryData.
type VertexRecord struct {
	VertexID        int
	ObjectID        int
	ObjectType      int
	SemanticSurface int
	GeometryID      int
	BoundaryID      int
	LodID           int
	Normal          mgl32.Vec3
	Materials       map[string]int
	Textures        map[string]TextureRef
}

// GeometryData accumulates parallel attribute arrays during one parse,
// one slot per emitted vertex. Write-mostly while parsing, read-only
// once handed to the renderer layer. Per-theme arrays stay aligned with
// the core arrays: a theme appearing mid-parse is backfilled with the
// untextured defaults for every earlier slot.
type GeometryData struct {
	VertexIDs        []int
	ObjectIDs        []int
	ObjectTypes      []int
	SemanticSurfaces []int
	GeometryIDs      []int
	BoundaryIDs      []int
	LodIDs           []int
	Normals          []mgl32.Vec3

	Materials      map[string][]int
	TextureIndices map[string][]int
	TextureUVs     map[string][]f32.Vec2
}

func NewGeometryData() *GeometryData {
	return &GeometryData{
		Materials:      make(map[string][]int),
		TextureIndices: make(map[string][]int),
		TextureUVs:     make(map[string][]f32.Vec2),
	}
}

func (d *GeometryData) Len() int {
	return len(d.VertexIDs)
}

func (d *GeometryData) ensureMaterialTheme(theme string) {
	if _, ok := d.Materials[theme]; ok {
		return
	}
	fill := make([]int, d.Len())
	for i := range fill {
		fill[i] = -1
	}
	d.Materials[theme] = fill
}

func (d *GeometryData) ensureTextureTheme(theme string) {
	if _, ok := d.TextureIndices[theme]; ok {
		return
	}
	fill := make([]int, d.Len())
	for i := range fill {
		fill[i] = -1
	}
	d.TextureIndices[theme] = fill
	d.TextureUVs[theme] = make([]f32.Vec2, d.Len())
}

// Append adds one record, keeping every known theme array aligned.
func (d *GeometryData) Append(r VertexRecord) {
	for theme := range r.Materials {
		d.ensureMaterialTheme(theme)
	}
	for theme := range r.Textures {
		d.ensureTextureTheme(theme)
	}

	d.VertexIDs = append(d.VertexIDs, r.VertexID)
	d.ObjectIDs = append(d.ObjectIDs, r.ObjectID)
	d.ObjectTypes = append(d.ObjectTypes, r.ObjectType)
	d.SemanticSurfaces = append(d.SemanticSurfaces, r.SemanticSurface)
	d.GeometryIDs = append(d.GeometryIDs, r.GeometryID)
	d.BoundaryIDs = append(d.BoundaryIDs, r.BoundaryID)
	d.LodIDs = append(d.LodIDs, r.LodID)
	d.Normals = append(d.Normals, r.Normal)

	for theme := range d.Materials {
		v, ok := r.Materials[theme]
		if !ok {
			v = -1
		}
		d.Materials[theme] = append(d.Materials[theme], v)
	}
	for theme := range d.TextureIndices {
		ref, ok := r.Textures[theme]
		if !ok {
			ref = TextureRef{Index: -1}
		}
		d.TextureIndices[theme] = append(d.TextureIndices[theme], ref.Index)
		d.TextureUVs[theme] = append(d.TextureUVs[theme], ref.UV)
	}
}

// Extend appends all records of other, preserving order and theme
// alignment. Used to concatenate chunk buffers into a full-session
// buffer.
func (d *GeometryData) Extend(other *GeometryData) {
	add := other.Len()

	for theme := range other.Materials {
		d.ensureMaterialTheme(theme)
	}
	for theme := range other.TextureIndices {
		d.ensureTextureTheme(theme)
	}

	d.VertexIDs = append(d.VertexIDs, other.VertexIDs...)
	d.ObjectIDs = append(d.ObjectIDs, other.ObjectIDs...)
	d.ObjectTypes = append(d.ObjectTypes, other.ObjectTypes...)
	d.SemanticSurfaces = append(d.SemanticSurfaces, other.SemanticSurfaces...)
	d.GeometryIDs = append(d.GeometryIDs, other.GeometryIDs...)
	d.BoundaryIDs = append(d.BoundaryIDs, other.BoundaryIDs...)
	d.LodIDs = append(d.LodIDs, other.LodIDs...)
	d.Normals = append(d.Normals, other.Normals...)

	for theme := range d.Materials {
		if vals, ok := other.Materials[theme]; ok {
			d.Materials[theme] = append(d.Materials[theme], vals...)
			continue
		}
		arr := d.Materials[theme]
		for i := 0; i < add; i++ {
			arr = append(arr, -1)
		}
		d.Materials[theme] = arr
	}
	for theme := range d.TextureIndices {
		if vals, ok := other.TextureIndices[theme]; ok {
			d.TextureIndices[theme] = append(d.TextureIndices[theme], vals...)
			d.TextureUVs[theme] = append(d.TextureUVs[theme], other.TextureUVs[theme]...)
			continue
		}
		idxArr := d.TextureIndices[theme]
		uvArr := d.TextureUVs[theme]
		for i := 0; i < add; i++ {
			idxArr = append(idxArr, -1)
			uvArr = append(uvArr, f32.Vec2{})
		}
		d.TextureIndices[theme] = idxArr
		d.TextureUVs[theme] = uvArr
	}
}
