package citybuf

import (
	"encoding/json"

	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// untexturedRef marks a vertex that carries no texture for a theme.
var untexturedRef = TextureRef{Index: -1}

// UVResolver resolves texture indices and UV pairs against the
// document appearance block for one parse session. Malformed entries
// degrade to the untextured default and a diagnostic; resolution never
// fails the parse.
type UVResolver struct {
	textures []TextureSpec
	uvs      [][]float64
	diags    *Diagnostics
}

func newUVResolver(app *Appearance, diags *Diagnostics) *UVResolver {
	r := &UVResolver{diags: diags}
	if app != nil {
		r.textures = app.Textures
		r.uvs = app.TextureVertices
	}
	return r
}

// surfaceTexture decodes one surface's texture entry from the theme
// value tree: ring -> [textureIndex, uvIndex...], nulls allowed.
func surfaceTexture(raw json.RawMessage) [][]*int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var rings [][]*int
	if err := json.Unmarshal(raw, &rings); err != nil {
		return nil
	}
	return rings
}

// ringFor locates the ring a flattened boundary vertex position falls
// in: the ring id is the number of hole-start offsets at or before the
// position, and the within-ring id subtracts the last crossed offset.
func ringFor(flatPos int, holeOffsets []int) (ringID, withinRing int) {
	withinRing = flatPos
	for _, off := range holeOffsets {
		if off > flatPos {
			break
		}
		ringID++
		withinRing = flatPos - off
	}
	return ringID, withinRing
}

// Resolve maps one flattened boundary vertex to its texture index and
// UV pair for one theme. ok is false only when the document carries no
// texture vertex table at all; every other failure returns a usable
// default. The texture index lives in ring 0 slot 0 only; holes carry
// UV references but no index of their own.
func (r *UVResolver) Resolve(object, theme string, rings [][]*int, flatPos int, holeOffsets []int) (TextureRef, bool) {
	if len(r.uvs) == 0 {
		return TextureRef{}, false
	}
	if len(rings) == 0 || len(rings[0]) == 0 {
		r.diags.warnf("texture-values", object, "theme %q: surface has no texture entry", theme)
		return untexturedRef, true
	}
	if rings[0][0] == nil {
		// Explicitly untextured surface, not malformed data.
		return untexturedRef, true
	}
	texIdx := *rings[0][0]
	if texIdx < 0 || texIdx >= len(r.textures) {
		r.diags.warnf("texture-values", object, "theme %q: texture index %d out of range", theme, texIdx)
		return untexturedRef, true
	}

	ringID, withinRing := ringFor(flatPos, holeOffsets)
	if ringID >= len(rings) {
		r.diags.warnf("ring-mismatch", object, "theme %q: vertex position %d maps to ring %d of %d", theme, flatPos, ringID, len(rings))
		return untexturedRef, true
	}
	ring := rings[ringID]
	// Slot 0 of every ring entry is reserved for the texture index, so
	// the UV reference for within-ring vertex v sits at v+1.
	slot := withinRing + 1
	if slot < 0 || slot >= len(ring) || ring[slot] == nil {
		r.diags.warnf("ring-mismatch", object, "theme %q: ring %d has no UV slot for vertex %d", theme, ringID, withinRing)
		return TextureRef{Index: texIdx}, true
	}
	uvIdx := *ring[slot]

	index, uv, valid := r.lookupUV(object, theme, texIdx, uvIdx)
	if !valid {
		return TextureRef{Index: index}, true
	}
	return TextureRef{Index: index, UV: uv}, true
}

// lookupUV reads the UV table entry and applies the atlas remap. The
// returned index is the parent's index when a valid atlas region
// applies, otherwise the original; valid is false when the UVs must
// fall back to (0,0).
func (r *UVResolver) lookupUV(object, theme string, texIdx, uvIdx int) (int, f32.Vec2, bool) {
	index := texIdx
	if uvIdx < 0 || uvIdx >= len(r.uvs) {
		r.diags.warnf("uv-index", object, "theme %q: UV index %d out of range (table size %d)", theme, uvIdx, len(r.uvs))
		return index, f32.Vec2{}, false
	}
	entry := r.uvs[uvIdx]
	if len(entry) != 2 {
		r.diags.warnf("uv-index", object, "theme %q: UV entry %d has %d components", theme, uvIdx, len(entry))
		return index, f32.Vec2{}, false
	}
	u, v := entry[0], entry[1]

	if at := r.textures[texIdx].AtlasTexture; at != nil {
		parent := *at
		region := r.textures[texIdx].AtlasRegion
		if parent < 0 || parent >= len(r.textures) || region == nil {
			r.diags.warnf("atlas-ref", object, "theme %q: texture %d has dangling atlas reference", theme, texIdx)
		} else {
			u = u*region[2] + region[0]
			v = v*region[3] + region[1]
			index = parent
		}
	}

	fu, fv := float32(u), float32(v)
	if math32.IsNaN(fu) || math32.IsInf(fu, 0) || math32.IsNaN(fv) || math32.IsInf(fv, 0) {
		r.diags.warnf("uv-index", object, "theme %q: non-finite UV at entry %d", theme, uvIdx)
		return index, f32.Vec2{}, false
	}
	return index, f32.Vec2{fu, fv}, true
}

// materialIndex resolves a surface's material for one theme: the
// per-surface value when the theme carries a values tree, else the
// theme's scalar value, else -1.
func materialIndex(perSurface json.RawMessage, theme MaterialTheme) int {
	if v := rawInt(perSurface); v >= 0 {
		return v
	}
	if theme.Values == nil && theme.Value != nil {
		return *theme.Value
	}
	return -1
}

// surfaceMaterials resolves every material theme for one flattened
// surface.
func surfaceMaterials(fs flatSurface, themes map[string]MaterialTheme) map[string]int {
	if len(themes) == 0 {
		return nil
	}
	out := make(map[string]int, len(themes))
	for name, theme := range themes {
		out[name] = materialIndex(fs.material[name], theme)
	}
	return out
}
