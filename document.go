package citybuf

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrNotCityJSON     = errors.New("document is not a CityJSON object")
	ErrMissingObjects  = errors.New("document has no CityObjects collection")
	ErrMissingVertices = errors.New("document has no vertex table")
)

// Document is one decoded CityJSON file, held fully in memory. The
// quantization transform is applied at decode time, so Positions holds
// final world-space coordinates.
type Document struct {
	Version    string
	Objects    map[string]*CityObject
	Positions  []mgl32.Vec3
	Appearance *Appearance
	Templates  *GeometryTemplates

	// order is the deterministic object traversal order (lexicographic
	// by id). Map iteration order would make buffer layout unstable
	// between runs.
	order []string
}

// ObjectIDs returns the ids in traversal order.
func (d *Document) ObjectIDs() []string {
	return d.order
}

type CityObject struct {
	Type       string
	Geometry   []*Geometry
	Attributes json.RawMessage
	Children   []string
	Parents    []string
}

// MaterialSpec describes one entry of the appearance materials table.
// The parser never interprets these fields; they travel to the renderer
// layer as opaque configuration.
type MaterialSpec struct {
	Name             string    `json:"name"`
	AmbientIntensity float64   `json:"ambientIntensity"`
	DiffuseColor     []float64 `json:"diffuseColor"`
	EmissiveColor    []float64 `json:"emissiveColor"`
	SpecularColor    []float64 `json:"specularColor"`
	Shininess        float64   `json:"shininess"`
	Transparency     float64   `json:"transparency"`
	IsSmooth         bool      `json:"isSmooth"`
}

// TextureSpec describes one entry of the appearance textures table.
// AtlasTexture/AtlasRegion are the atlas extension: when set, UVs
// resolved against this texture are remapped into the parent texture's
// coordinate space.
type TextureSpec struct {
	Type         string      `json:"type"`
	Image        string      `json:"image"`
	WrapMode     string      `json:"wrapMode"`
	TextureType  string      `json:"textureType"`
	BorderColor  []float64   `json:"borderColor"`
	AtlasTexture *int        `json:"atlasTexture"`
	AtlasRegion  *[4]float64 `json:"atlasRegion"`
}

type Appearance struct {
	Materials            []MaterialSpec `json:"materials"`
	Textures             []TextureSpec  `json:"textures"`
	TextureVertices      [][]float64    `json:"vertices-texture"`
	DefaultThemeTexture  string         `json:"default-theme-texture"`
	DefaultThemeMaterial string         `json:"default-theme-material"`
}

type GeometryTemplates struct {
	Templates []*Geometry
	Vertices  []mgl32.Vec3
}

type transformSpec struct {
	Scale     [3]float64 `json:"scale"`
	Translate [3]float64 `json:"translate"`
}

type documentJSON struct {
	Type              string                     `json:"type"`
	Version           string                     `json:"version"`
	CityObjects       map[string]*cityObjectJSON `json:"CityObjects"`
	Vertices          [][]float64                `json:"vertices"`
	Transform         *transformSpec             `json:"transform"`
	Appearance        *Appearance                `json:"appearance"`
	GeometryTemplates *templatesJSON             `json:"geometry-templates"`
}

type cityObjectJSON struct {
	Type       string          `json:"type"`
	Geometry   []*geometryJSON `json:"geometry"`
	Attributes json.RawMessage `json:"attributes"`
	Children   []string        `json:"children"`
	Parents    []string        `json:"parents"`
}

type templatesJSON struct {
	Templates []*geometryJSON `json:"templates"`
	Vertices  [][]float64     `json:"vertices-templates"`
}

// Decode parses a CityJSON document. Only top-level structural problems
// are fatal; anything below the object collection degrades to a
// per-geometry diagnostic during parsing.
func Decode(data []byte) (*Document, error) {
	var raw documentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCityJSON, err)
	}
	if raw.Type != "CityJSON" {
		return nil, fmt.Errorf("%w: type is %q", ErrNotCityJSON, raw.Type)
	}
	if raw.CityObjects == nil {
		return nil, ErrMissingObjects
	}
	if raw.Vertices == nil {
		return nil, ErrMissingVertices
	}

	scale := [3]float64{1, 1, 1}
	translate := [3]float64{}
	if raw.Transform != nil {
		scale = raw.Transform.Scale
		translate = raw.Transform.Translate
	}

	positions := make([]mgl32.Vec3, len(raw.Vertices))
	for i, v := range raw.Vertices {
		if len(v) != 3 {
			return nil, fmt.Errorf("%w: vertex %d has %d coordinates", ErrMissingVertices, i, len(v))
		}
		positions[i] = mgl32.Vec3{
			float32(v[0]*scale[0] + translate[0]),
			float32(v[1]*scale[1] + translate[1]),
			float32(v[2]*scale[2] + translate[2]),
		}
	}

	doc := &Document{
		Version:    raw.Version,
		Objects:    make(map[string]*CityObject, len(raw.CityObjects)),
		Positions:  positions,
		Appearance: raw.Appearance,
	}

	for id, obj := range raw.CityObjects {
		co := &CityObject{
			Type:       obj.Type,
			Attributes: obj.Attributes,
			Children:   obj.Children,
			Parents:    obj.Parents,
		}
		for _, gj := range obj.Geometry {
			if gj == nil {
				continue
			}
			co.Geometry = append(co.Geometry, decodeGeometry(gj))
		}
		doc.Objects[id] = co
		doc.order = append(doc.order, id)
	}
	sort.Strings(doc.order)

	if raw.GeometryTemplates != nil {
		tpl := &GeometryTemplates{}
		for _, gj := range raw.GeometryTemplates.Templates {
			if gj == nil {
				continue
			}
			tpl.Templates = append(tpl.Templates, decodeGeometry(gj))
		}
		tpl.Vertices = make([]mgl32.Vec3, 0, len(raw.GeometryTemplates.Vertices))
		for _, v := range raw.GeometryTemplates.Vertices {
			if len(v) != 3 {
				continue
			}
			// Template vertices are real-valued and not quantized.
			tpl.Vertices = append(tpl.Vertices, mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])})
		}
		doc.Templates = tpl
	}

	return doc, nil
}
