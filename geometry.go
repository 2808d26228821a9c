package citybuf

import (
	"encoding/json"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

type GeometryKind int

const (
	KindUnknown GeometryKind = iota
	KindMultiPoint
	KindMultiLineString
	KindMultiSurface
	KindCompositeSurface
	KindSolid
	KindMultiSolid
	KindCompositeSolid
	KindGeometryInstance
)

func kindOf(typeName string) GeometryKind {
	switch typeName {
	case "MultiPoint":
		return KindMultiPoint
	case "MultiLineString":
		return KindMultiLineString
	case "MultiSurface":
		return KindMultiSurface
	case "CompositeSurface":
		return KindCompositeSurface
	case "Solid":
		return KindSolid
	case "MultiSolid":
		return KindMultiSolid
	case "CompositeSolid":
		return KindCompositeSolid
	case "GeometryInstance":
		return KindGeometryInstance
	}
	return KindUnknown
}

func (k GeometryKind) String() string {
	switch k {
	case KindMultiPoint:
		return "MultiPoint"
	case KindMultiLineString:
		return "MultiLineString"
	case KindMultiSurface:
		return "MultiSurface"
	case KindCompositeSurface:
		return "CompositeSurface"
	case KindSolid:
		return "Solid"
	case KindMultiSolid:
		return "MultiSolid"
	case KindCompositeSolid:
		return "CompositeSolid"
	case KindGeometryInstance:
		return "GeometryInstance"
	}
	return "Unknown"
}

type SemanticSurface struct {
	Type       string          `json:"type"`
	Attributes json.RawMessage `json:"-"`
}

type Semantics struct {
	Surfaces []SemanticSurface
	// Values mirrors the boundary nesting minus the ring level; entries
	// are indices into Surfaces or null. Kept raw and walked alongside
	// the boundaries during flattening.
	Values json.RawMessage
}

// MaterialTheme assigns materials for one theme: either one index per
// surface (Values, mirroring the boundary nesting) or a single scalar
// applied to every surface.
type MaterialTheme struct {
	Values json.RawMessage `json:"values"`
	Value  *int            `json:"value"`
}

// TextureTheme carries per-surface ring entries; each ring entry is
// [textureIndex, uvIndex...] with nulls allowed.
type TextureTheme struct {
	Values json.RawMessage `json:"values"`
}

// Geometry is the closed variant over CityJSON geometry types. Exactly
// one of the boundary fields is populated, matching Kind.
type Geometry struct {
	Kind GeometryKind
	Lod  string

	Points   []int         // MultiPoint
	Lines    [][]int       // MultiLineString
	Surfaces [][][]int     // MultiSurface / CompositeSurface
	Shells   [][][][]int   // Solid: shell -> surface -> ring
	Solids   [][][][][]int // MultiSolid / CompositeSolid

	Semantics *Semantics
	Material  map[string]MaterialTheme
	Texture   map[string]TextureTheme

	// GeometryInstance fields.
	Template  int
	Anchor    int
	Transform mgl32.Mat4

	// decodeErr preserves a boundary decode failure so the parse
	// session can report it as a diagnostic instead of failing decode.
	decodeErr error
}

type geometryJSON struct {
	Type       string                   `json:"type"`
	Lod        json.RawMessage          `json:"lod"`
	Boundaries json.RawMessage          `json:"boundaries"`
	Semantics  *semanticsJSON           `json:"semantics"`
	Material   map[string]MaterialTheme `json:"material"`
	Texture    map[string]TextureTheme  `json:"texture"`
	Template   *int                     `json:"template"`
	Matrix     []float64                `json:"transformationMatrix"`
}

type semanticsJSON struct {
	Surfaces []SemanticSurface `json:"surfaces"`
	Values   json.RawMessage   `json:"values"`
}

// lodLabel normalizes the lod field: 1.0-style numeric lods and
// 1.1-style string lods intern to the same label ("2" and 2 match).
func lodLabel(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func decodeGeometry(gj *geometryJSON) *Geometry {
	g := &Geometry{
		Kind:     kindOf(gj.Type),
		Lod:      lodLabel(gj.Lod),
		Material: gj.Material,
		Texture:  gj.Texture,
		Template: -1,
		Anchor:   -1,
	}
	if gj.Semantics != nil {
		g.Semantics = &Semantics{
			Surfaces: gj.Semantics.Surfaces,
			Values:   gj.Semantics.Values,
		}
	}

	var err error
	switch g.Kind {
	case KindMultiPoint:
		err = json.Unmarshal(gj.Boundaries, &g.Points)
	case KindMultiLineString:
		err = json.Unmarshal(gj.Boundaries, &g.Lines)
	case KindMultiSurface, KindCompositeSurface:
		err = json.Unmarshal(gj.Boundaries, &g.Surfaces)
	case KindSolid:
		err = json.Unmarshal(gj.Boundaries, &g.Shells)
	case KindMultiSolid, KindCompositeSolid:
		err = json.Unmarshal(gj.Boundaries, &g.Solids)
	case KindGeometryInstance:
		var anchor []int
		err = json.Unmarshal(gj.Boundaries, &anchor)
		if err == nil && len(anchor) > 0 {
			g.Anchor = anchor[0]
		}
		if gj.Template != nil {
			g.Template = *gj.Template
		}
		g.Transform = instanceMatrix(gj.Matrix)
	}
	g.decodeErr = err
	return g
}

// instanceMatrix builds a column-major mgl32 matrix from the row-major
// 16-float list CityJSON uses.
func instanceMatrix(m []float64) mgl32.Mat4 {
	if len(m) != 16 {
		return mgl32.Ident4()
	}
	rows := [4]mgl32.Vec4{}
	for r := 0; r < 4; r++ {
		rows[r] = mgl32.Vec4{
			float32(m[r*4+0]), float32(m[r*4+1]), float32(m[r*4+2]), float32(m[r*4+3]),
		}
	}
	return mgl32.Mat4FromRows(rows[0], rows[1], rows[2], rows[3])
}

// rawArray splits a raw JSON array into its elements. Returns nil for
// null, absent, or non-array input.
func rawArray(raw json.RawMessage) []json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func rawAt(arr []json.RawMessage, i int) json.RawMessage {
	if i < 0 || i >= len(arr) {
		return nil
	}
	return arr[i]
}

// rawInt reads a raw entry as an int, with -1 for null/absent/invalid.
func rawInt(raw json.RawMessage) int {
	if len(raw) == 0 || string(raw) == "null" {
		return -1
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return -1
	}
	return v
}

// flatSurface is one boundary after nesting has been flattened away:
// its rings, the geometry-local boundary id used for selection, and
// the per-surface slices of the semantics/material/texture value trees,
// aligned by walking those trees with the same recursion as the
// boundaries.
type flatSurface struct {
	boundaryID int
	rings      [][]int
	semantic   json.RawMessage
	material   map[string]json.RawMessage
	texture    map[string]json.RawMessage
}

// flatSurfaces flattens a surface-bearing geometry to a flat boundary
// list, preserving boundary ids across shells/solids.
func (g *Geometry) flatSurfaces() []flatSurface {
	var semVals json.RawMessage
	if g.Semantics != nil {
		semVals = g.Semantics.Values
	}

	matVals := make(map[string]json.RawMessage, len(g.Material))
	for theme, mt := range g.Material {
		matVals[theme] = mt.Values
	}
	texVals := make(map[string]json.RawMessage, len(g.Texture))
	for theme, tt := range g.Texture {
		texVals[theme] = tt.Values
	}

	var out []flatSurface
	emit := func(id int, rings [][]int, sem json.RawMessage, mat, tex map[string]json.RawMessage) {
		out = append(out, flatSurface{
			boundaryID: id,
			rings:      rings,
			semantic:   sem,
			material:   mat,
			texture:    tex,
		})
	}

	switch g.Kind {
	case KindMultiSurface, KindCompositeSurface:
		sems := rawArray(semVals)
		mats := splitThemes(matVals)
		texs := splitThemes(texVals)
		for i, rings := range g.Surfaces {
			emit(i, rings, rawAt(sems, i), themesAt(mats, i), themesAt(texs, i))
		}
	case KindSolid:
		sems := rawArray(semVals)
		mats := splitThemes(matVals)
		texs := splitThemes(texVals)
		id := 0
		for si, shell := range g.Shells {
			shellSems := rawArray(rawAt(sems, si))
			shellMats := themeArraysAt(mats, si)
			shellTexs := themeArraysAt(texs, si)
			for fi, rings := range shell {
				emit(id, rings, rawAt(shellSems, fi), themesAt(shellMats, fi), themesAt(shellTexs, fi))
				id++
			}
		}
	case KindMultiSolid, KindCompositeSolid:
		sems := rawArray(semVals)
		mats := splitThemes(matVals)
		texs := splitThemes(texVals)
		id := 0
		for vi, solid := range g.Solids {
			solidSems := rawArray(rawAt(sems, vi))
			solidMats := themeArraysAt(mats, vi)
			solidTexs := themeArraysAt(texs, vi)
			for si, shell := range solid {
				shellSems := rawArray(rawAt(solidSems, si))
				shellMats := themeArraysAt(solidMats, si)
				shellTexs := themeArraysAt(solidTexs, si)
				for fi, rings := range shell {
					emit(id, rings, rawAt(shellSems, fi), themesAt(shellMats, fi), themesAt(shellTexs, fi))
					id++
				}
			}
		}
	}
	return out
}

// splitThemes decodes each theme's value tree one level deep.
func splitThemes(vals map[string]json.RawMessage) map[string][]json.RawMessage {
	if len(vals) == 0 {
		return nil
	}
	out := make(map[string][]json.RawMessage, len(vals))
	for theme, raw := range vals {
		out[theme] = rawArray(raw)
	}
	return out
}

// themesAt picks element i of each theme's current level.
func themesAt(themes map[string][]json.RawMessage, i int) map[string]json.RawMessage {
	if len(themes) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(themes))
	for theme, arr := range themes {
		if v := rawAt(arr, i); v != nil {
			out[theme] = v
		}
	}
	return out
}

// themeArraysAt descends one level: element i of each theme, re-split
// as an array for the next level of the walk.
func themeArraysAt(themes map[string][]json.RawMessage, i int) map[string][]json.RawMessage {
	if len(themes) == 0 {
		return nil
	}
	out := make(map[string][]json.RawMessage, len(themes))
	for theme, arr := range themes {
		out[theme] = rawArray(rawAt(arr, i))
	}
	return out
}

// shiftIndices returns a deep copy of the geometry with every boundary
// vertex index offset by base. Used when a template's vertices are
// appended to the session position table for one instance.
func (g *Geometry) shiftIndices(base int) *Geometry {
	shifted := *g
	shift1 := func(ring []int) []int {
		out := make([]int, len(ring))
		for i, v := range ring {
			out[i] = v + base
		}
		return out
	}
	shift2 := func(rings [][]int) [][]int {
		out := make([][]int, len(rings))
		for i, r := range rings {
			out[i] = shift1(r)
		}
		return out
	}
	shift3 := func(surfs [][][]int) [][][]int {
		out := make([][][]int, len(surfs))
		for i, s := range surfs {
			out[i] = shift2(s)
		}
		return out
	}
	switch g.Kind {
	case KindMultiPoint:
		shifted.Points = shift1(g.Points)
	case KindMultiLineString:
		shifted.Lines = shift2(g.Lines)
	case KindMultiSurface, KindCompositeSurface:
		shifted.Surfaces = shift3(g.Surfaces)
	case KindSolid:
		out := make([][][][]int, len(g.Shells))
		for i, s := range g.Shells {
			out[i] = shift3(s)
		}
		shifted.Shells = out
	case KindMultiSolid, KindCompositeSolid:
		out := make([][][][][]int, len(g.Solids))
		for i, v := range g.Solids {
			sv := make([][][][]int, len(v))
			for j, s := range v {
				sv[j] = shift3(s)
			}
			out[i] = sv
		}
		shifted.Solids = out
	}
	return &shifted
}
